package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"embedd/internal/cache"
	"embedd/internal/config"
	"embedd/internal/dispatch"
	"embedd/internal/events"
	"embedd/internal/logging"
	"embedd/internal/registry"
	"embedd/internal/service"
	"embedd/pkg/types"
)

// app is the wired process: registry, dispatcher and their optional sinks.
type app struct {
	cfg  config.Config
	log  zerolog.Logger
	reg  *registry.Registry
	disp *dispatch.Dispatcher
	svc  *service.Service

	closers []func(context.Context) error
}

// newLogger builds the process logger from cfg.Log.
func newLogger(cfg config.Config) (zerolog.Logger, io.Closer, error) {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("logging: %w", err)
	}
	return log, closer, nil
}

// newPublisher always logs lifecycle events and also sends them to NATS when
// a server is configured. The returned close func is nil without NATS.
func newPublisher(cfg config.Config, log zerolog.Logger) (events.Multi, func(), error) {
	pubs := events.Multi{events.NewLog(log)}
	if cfg.Events.NATSURL == "" {
		return pubs, nil, nil
	}
	n, err := events.NewNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, log)
	if err != nil {
		return nil, nil, err
	}
	return append(pubs, n), n.Close, nil
}

// newApp wires every component for cfg and registers descs. Models are not
// loaded until the caller runs reg.LoadAll.
func newApp(ctx context.Context, cfg config.Config, log zerolog.Logger, descs []types.Model) (*app, error) {
	a := &app{cfg: cfg, log: log}

	policy, err := registry.ParsePolicy(cfg.LoadPolicy)
	if err != nil {
		return nil, err
	}

	pub, closePub, err := newPublisher(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	if closePub != nil {
		a.closers = append(a.closers, func(context.Context) error {
			closePub()
			return nil
		})
	}

	var vc cache.Cache
	switch cfg.Cache.Kind {
	case "lru":
		vc = cache.NewLRU(cfg.Cache.Size, cfg.CacheTTL())
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.KeyPrefix, cfg.CacheTTL(), log)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("cache: %w", err)
		}
		vc = rc
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
	}

	a.reg = registry.New(registry.Options{
		Policy:        policy,
		RequireAny:    cfg.RequireAny,
		Device:        cfg.Device,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		Logger:        log,
		Publisher:     pub,
	})
	// Backends are released before the event and cache sinks they may use.
	a.closers = append([]func(context.Context) error{a.reg.Close}, a.closers...)
	if err := a.reg.RegisterAll(descs); err != nil {
		a.close(ctx)
		return nil, err
	}

	a.disp = dispatch.New(dispatch.RegistryResolver{Registry: a.reg}, dispatch.Options{
		MaxTextLength: cfg.MaxTextLength,
		DefaultModel:  cfg.DefaultModel,
		Timeout:       cfg.EncodeTimeout(),
		Cache:         vc,
		Logger:        log,
	})
	a.svc = service.New(a.reg, a.disp)
	return a, nil
}

// close releases the registry first, then the remaining sinks concurrently.
func (a *app) close(ctx context.Context) error {
	if len(a.closers) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	first, rest := a.closers[0], a.closers[1:]
	err := first(ctx)
	var g errgroup.Group
	for _, c := range rest {
		c := c
		g.Go(func() error { return c(ctx) })
	}
	if gerr := g.Wait(); err == nil {
		err = gerr
	}
	a.closers = nil
	return err
}
