package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis stores vectors as JSON arrays under <prefix><model>:<sha256>.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to url (redis://...) and verifies it with PING.
func NewRedis(ctx context.Context, url, prefix string, ttl time.Duration, log zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, log: log}, nil
}

func (c *Redis) Get(ctx context.Context, model, text string) ([]float32, bool) {
	b, err := c.client.Get(ctx, Key(c.prefix, model, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("model", model).Msg("cache get")
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(b, &v); err != nil {
		c.log.Warn().Err(err).Str("model", model).Msg("cache decode")
		return nil, false
	}
	return v, true
}

func (c *Redis) Set(ctx context.Context, model, text string, vec []float32) {
	b, err := json.Marshal(vec)
	if err != nil {
		c.log.Warn().Err(err).Str("model", model).Msg("cache encode")
		return
	}
	if err := c.client.Set(ctx, Key(c.prefix, model, text), b, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("model", model).Msg("cache set")
	}
}

func (c *Redis) Close() error { return c.client.Close() }
