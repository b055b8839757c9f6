package httpapi

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Options configures the HTTP layer. The zero value serves with defaults:
// 1 MiB bodies, no rate limit, no CORS, stdlib request logging.
type Options struct {
	// Logger receives request logs. Nil falls back to the standard logger.
	Logger *zerolog.Logger
	// BaseContext is canceled on shutdown so in-flight encodes stop waiting.
	BaseContext context.Context
	// MaxBodyBytes caps /embedding request bodies; non-positive means 1 MiB.
	MaxBodyBytes int64
	// RateLimitRPS enables per-client token buckets on /embedding when > 0.
	// A burst below 1 is raised to ceil(rps).
	RateLimitRPS   float64
	RateLimitBurst int
	CORS           CORSOptions
	// RequestLog is the default per-request log level (off|error|info|debug).
	// Empty reads EMBEDD_REQUEST_LOG.
	RequestLog string
}

// CORSOptions enables the CORS middleware when Enabled is set.
type CORSOptions struct {
	Enabled bool
	Origins []string
	Methods []string
	Headers []string
}

func (o Options) withDefaults() Options {
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.RateLimitRPS < 0 {
		o.RateLimitRPS = 0
	}
	if o.RequestLog == "" {
		o.RequestLog = os.Getenv("EMBEDD_REQUEST_LOG")
	}
	return o
}
