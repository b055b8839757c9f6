package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"embedd/internal/registry"
	"embedd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultAddr          = "127.0.0.1:8080"
	DefaultModelsDir     = "./model"
	DefaultDevice        = "auto"
	DefaultMaxTextLength = 512
	DefaultLoadPolicy    = "isolate"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 10
	DefaultCacheSize     = 4096
	DefaultCacheTTL      = 6 * time.Hour
	DefaultKeyPrefix     = "embedd:"
	DefaultSubjectPrefix = "embedd.models"
)

// DefaultModels is the built-in model set used when a config lists none.
func DefaultModels() []ModelEntry {
	return []ModelEntry{
		{Alias: "bge_small_zh_v1.5", Name: "bge-small-zh-v1.5", Backend: "onnx"},
		{Alias: "bge_small_en_v1.5", Name: "bge-small-en-v1.5", Backend: "onnx"},
		{Alias: "qwen3_embedding_0.6b", Name: "qwen3-embedding-0.6b", Backend: "llama"},
	}
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.Device == "" {
		c.Device = DefaultDevice
	}
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.LoadPolicy == "" {
		c.LoadPolicy = DefaultLoadPolicy
	}
	if len(c.Models) == 0 && !c.Discover {
		c.Models = DefaultModels()
	}
	for i := range c.Models {
		if c.Models[i].Backend == "" {
			c.Models[i].Backend = "hash"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = DefaultCacheSize
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = int(DefaultCacheTTL / time.Second)
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultKeyPrefix
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = DefaultSubjectPrefix
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Device {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("invalid device: %s (must be auto, cpu, or cuda)", c.Device)
	}
	switch c.LoadPolicy {
	case "isolate", "fail_fast":
	default:
		return fmt.Errorf("invalid load_policy: %s (must be isolate or fail_fast)", c.LoadPolicy)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}
	switch c.Cache.Kind {
	case "", "lru":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required when cache.kind is redis")
		}
	default:
		return fmt.Errorf("invalid cache kind: %s (must be lru or redis)", c.Cache.Kind)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.MaxQueueDepth < 0 || c.MaxWaitMS < 0 || c.EncodeTimeoutMS < 0 {
		return errors.New("queue and timeout values must not be negative")
	}
	for i, m := range c.Models {
		if strings.TrimSpace(m.Alias) == "" || strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("models[%d]: alias and name are required", i)
		}
	}
	return nil
}

// Descriptors converts model entries into registry descriptors, resolving
// artifact paths under ModelsDir when no explicit path is set. With Discover,
// artifact directories found under ModelsDir follow the configured entries;
// a directory whose name is already configured as an alias or name is skipped.
func (c Config) Descriptors() ([]types.Model, error) {
	out := make([]types.Model, 0, len(c.Models))
	taken := make(map[string]bool, 2*len(c.Models))
	for _, m := range c.Models {
		p := m.Path
		if p == "" {
			var err error
			p, err = registry.ArtifactPath(c.ModelsDir, m.Name)
			if err != nil {
				return nil, fmt.Errorf("model %s: %w", m.Alias, err)
			}
		}
		out = append(out, types.Model{
			Alias:      m.Alias,
			Name:       m.Name,
			Path:       p,
			Backend:    m.Backend,
			Dimensions: m.Dimensions,
		})
		taken[m.Alias], taken[m.Name] = true, true
	}
	if !c.Discover {
		return out, nil
	}
	found, err := registry.ScanDir(c.ModelsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, fmt.Errorf("discover models: %w", err)
	}
	for _, m := range found {
		if taken[m.Name] {
			continue
		}
		taken[m.Name] = true
		out = append(out, m)
	}
	return out, nil
}

func (c Config) EncodeTimeout() time.Duration {
	return time.Duration(c.EncodeTimeoutMS) * time.Millisecond
}

func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMS) * time.Millisecond
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
