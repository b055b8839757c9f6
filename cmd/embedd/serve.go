package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"embedd/internal/config"
	"embedd/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, o *options) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	log, logCloser, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx := cmd.Context()
	descs, err := cfg.Descriptors()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log, descs)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a.svc, httpOptions(ctx, cfg, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("embedd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// /readyz reports loading until the pass below finishes.
	if err := a.reg.LoadAll(ctx); err != nil {
		shutdown(srv, log)
		return err
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	}
	shutdown(srv, log)
	return nil
}

func shutdown(srv *http.Server, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
}

// httpOptions maps the config onto the HTTP layer. ctx is canceled on shutdown.
func httpOptions(ctx context.Context, cfg config.Config, log zerolog.Logger) httpapi.Options {
	return httpapi.Options{
		Logger:         &log,
		BaseContext:    ctx,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		CORS: httpapi.CORSOptions{
			Enabled: cfg.CORS.Enabled,
			Origins: cfg.CORS.Origins,
			Methods: cfg.CORS.Methods,
			Headers: cfg.CORS.Headers,
		},
	}
}
