package main

import (
	"os"

	"github.com/spf13/cobra"

	"embedd/internal/config"
)

// options holds flag values. Each flag defaults to its EMBEDD_* variable and
// overrides the config file only when set on the command line or in the env.
type options struct {
	configPath string
	modelsDir  string
	discover   bool
	device     string
	logLevel   string
	logFormat  string
	logFile    string

	addr           string
	defaultModel   string
	loadPolicy     string
	requireAny     bool
	maxQueueDepth  int
	maxWaitMS      int
	timeoutMS      int
	cacheKind      string
	redisURL       string
	natsURL        string
	rateLimitRPS   float64
	rateLimitBurst int
	corsOrigins    string
}

// flagEnv pairs each overridable flag with its environment variable.
var flagEnv = map[string]string{
	"models-dir":        "EMBEDD_MODELS_DIR",
	"discover":          "EMBEDD_DISCOVER",
	"device":            "EMBEDD_DEVICE",
	"log-level":         "EMBEDD_LOG_LEVEL",
	"log-format":        "EMBEDD_LOG_FORMAT",
	"log-file":          "EMBEDD_LOG_FILE",
	"addr":              "EMBEDD_ADDR",
	"default-model":     "EMBEDD_DEFAULT_MODEL",
	"load-policy":       "EMBEDD_LOAD_POLICY",
	"require-any":       "EMBEDD_REQUIRE_ANY",
	"max-queue-depth":   "EMBEDD_MAX_QUEUE_DEPTH",
	"max-wait-ms":       "EMBEDD_MAX_WAIT_MS",
	"encode-timeout-ms": "EMBEDD_ENCODE_TIMEOUT_MS",
	"cache":             "EMBEDD_CACHE",
	"redis-url":         "EMBEDD_REDIS_URL",
	"nats-url":          "EMBEDD_NATS_URL",
	"rate-limit-rps":    "EMBEDD_RATE_LIMIT_RPS",
	"rate-limit-burst":  "EMBEDD_RATE_LIMIT_BURST",
	"cors-origins":      "EMBEDD_CORS_ORIGINS",
}

func (o *options) bindGlobal(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&o.configPath, "config", envStr("EMBEDD_CONFIG", ""), "Config file (.yaml, .json or .toml)")
	fs.StringVar(&o.modelsDir, "models-dir", envStr("EMBEDD_MODELS_DIR", config.DefaultModelsDir), "Root directory holding one artifact directory per model")
	fs.BoolVar(&o.discover, "discover", envBool("EMBEDD_DISCOVER", false), "Also register every artifact directory found under --models-dir")
	fs.StringVar(&o.device, "device", envStr("EMBEDD_DEVICE", config.DefaultDevice), "Compute device: auto|cpu|cuda")
	fs.StringVar(&o.logLevel, "log-level", envStr("EMBEDD_LOG_LEVEL", config.DefaultLogLevel), "Log level: debug|info|warn|error|off")
	fs.StringVar(&o.logFormat, "log-format", envStr("EMBEDD_LOG_FORMAT", config.DefaultLogFormat), "Log format: console|json")
	fs.StringVar(&o.logFile, "log-file", envStr("EMBEDD_LOG_FILE", ""), "Also write JSON logs to this size-rotated file")
}

func (o *options) bindServe(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&o.addr, "addr", envStr("EMBEDD_ADDR", config.DefaultAddr), "HTTP listen address")
	fs.StringVar(&o.defaultModel, "default-model", envStr("EMBEDD_DEFAULT_MODEL", ""), "Model used when a request names none")
	fs.StringVar(&o.loadPolicy, "load-policy", envStr("EMBEDD_LOAD_POLICY", config.DefaultLoadPolicy), "Load failure policy: isolate|fail_fast")
	fs.BoolVar(&o.requireAny, "require-any", envBool("EMBEDD_REQUIRE_ANY", false), "Exit if no model loads")
	fs.IntVar(&o.maxQueueDepth, "max-queue-depth", envInt("EMBEDD_MAX_QUEUE_DEPTH", 0), "Queued requests per model before rejecting (0=default)")
	fs.IntVar(&o.maxWaitMS, "max-wait-ms", envInt("EMBEDD_MAX_WAIT_MS", 0), "Max time a request waits for a model (0=default)")
	fs.IntVar(&o.timeoutMS, "encode-timeout-ms", envInt("EMBEDD_ENCODE_TIMEOUT_MS", 0), "Per-request encode timeout (0=none)")
	fs.StringVar(&o.cacheKind, "cache", envStr("EMBEDD_CACHE", ""), "Vector cache: lru|redis (empty disables)")
	fs.StringVar(&o.redisURL, "redis-url", envStr("EMBEDD_REDIS_URL", ""), "Redis URL for --cache=redis")
	fs.StringVar(&o.natsURL, "nats-url", envStr("EMBEDD_NATS_URL", ""), "Publish model lifecycle events to this NATS server")
	fs.Float64Var(&o.rateLimitRPS, "rate-limit-rps", envFloat("EMBEDD_RATE_LIMIT_RPS", 0), "Per-client requests per second on /embedding (0=off)")
	fs.IntVar(&o.rateLimitBurst, "rate-limit-burst", envInt("EMBEDD_RATE_LIMIT_BURST", 0), "Per-client burst on /embedding")
	fs.StringVar(&o.corsOrigins, "cors-origins", envStr("EMBEDD_CORS_ORIGINS", ""), "Comma-separated CORS origins; enables CORS when set")
}

// overridden reports whether a flag was given explicitly or via its env var.
func overridden(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f == nil {
		return false
	}
	if cmd.Flags().Changed(name) {
		return true
	}
	if env, ok := flagEnv[name]; ok {
		if v, set := os.LookupEnv(env); set && v != "" {
			return true
		}
	}
	return false
}

// loadConfig reads the optional config file, applies flag overrides, then
// fills defaults and validates.
func (o *options) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	set := func(name string, apply func()) {
		if overridden(cmd, name) {
			apply()
		}
	}
	set("models-dir", func() { cfg.ModelsDir = o.modelsDir })
	set("discover", func() { cfg.Discover = o.discover })
	set("device", func() { cfg.Device = o.device })
	set("log-level", func() { cfg.Log.Level = o.logLevel })
	set("log-format", func() { cfg.Log.Format = o.logFormat })
	set("log-file", func() { cfg.Log.File = o.logFile })
	set("addr", func() { cfg.Addr = o.addr })
	set("default-model", func() { cfg.DefaultModel = o.defaultModel })
	set("load-policy", func() { cfg.LoadPolicy = o.loadPolicy })
	set("require-any", func() { cfg.RequireAny = o.requireAny })
	set("max-queue-depth", func() { cfg.MaxQueueDepth = o.maxQueueDepth })
	set("max-wait-ms", func() { cfg.MaxWaitMS = o.maxWaitMS })
	set("encode-timeout-ms", func() { cfg.EncodeTimeoutMS = o.timeoutMS })
	set("cache", func() { cfg.Cache.Kind = o.cacheKind })
	set("redis-url", func() { cfg.Cache.RedisURL = o.redisURL })
	set("nats-url", func() { cfg.Events.NATSURL = o.natsURL })
	set("rate-limit-rps", func() { cfg.RateLimit.RPS = o.rateLimitRPS })
	set("rate-limit-burst", func() { cfg.RateLimit.Burst = o.rateLimitBurst })
	set("cors-origins", func() {
		cfg.CORS.Origins = splitCSV(o.corsOrigins)
		cfg.CORS.Enabled = len(cfg.CORS.Origins) > 0
	})
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
