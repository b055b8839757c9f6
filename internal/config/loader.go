package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr            string          `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir       string          `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Discover        bool            `json:"discover" yaml:"discover" toml:"discover"`
	Device          string          `json:"device" yaml:"device" toml:"device"`
	DefaultModel    string          `json:"default_model" yaml:"default_model" toml:"default_model"`
	MaxTextLength   int             `json:"max_text_length" yaml:"max_text_length" toml:"max_text_length"`
	LoadPolicy      string          `json:"load_policy" yaml:"load_policy" toml:"load_policy"`
	RequireAny      bool            `json:"require_any" yaml:"require_any" toml:"require_any"`
	MaxQueueDepth   int             `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS       int             `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	EncodeTimeoutMS int             `json:"encode_timeout_ms" yaml:"encode_timeout_ms" toml:"encode_timeout_ms"`
	MaxBodyBytes    int64           `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Models          []ModelEntry    `json:"models" yaml:"models" toml:"models"`
	Log             LogConfig       `json:"log" yaml:"log" toml:"log"`
	Cache           CacheConfig     `json:"cache" yaml:"cache" toml:"cache"`
	RateLimit       RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	Events          EventsConfig    `json:"events" yaml:"events" toml:"events"`
	CORS            CORSConfig      `json:"cors" yaml:"cors" toml:"cors"`
}

// ModelEntry registers one model. Path defaults to <models_dir>/<name>.
type ModelEntry struct {
	Alias      string `json:"alias" yaml:"alias" toml:"alias"`
	Name       string `json:"name" yaml:"name" toml:"name"`
	Path       string `json:"path" yaml:"path" toml:"path"`
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	Dimensions int    `json:"dimensions" yaml:"dimensions" toml:"dimensions"`
}

type LogConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
}

// CacheConfig selects an optional vector cache: "" (off), "lru" or "redis".
type CacheConfig struct {
	Kind       string `json:"kind" yaml:"kind" toml:"kind"`
	Size       int    `json:"size" yaml:"size" toml:"size"`
	RedisURL   string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix" toml:"key_prefix"`
}

// RateLimitConfig enables per-client token buckets on /embedding when RPS > 0.
type RateLimitConfig struct {
	RPS   float64 `json:"rps" yaml:"rps" toml:"rps"`
	Burst int     `json:"burst" yaml:"burst" toml:"burst"`
}

// EventsConfig publishes model lifecycle events to NATS when NATSURL is set.
type EventsConfig struct {
	NATSURL       string `json:"nats_url" yaml:"nats_url" toml:"nats_url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix" toml:"subject_prefix"`
}

type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
