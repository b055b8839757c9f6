package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"embedd/internal/config"
	"embedd/internal/events"
)

func TestModelsCommand_Discover(t *testing.T) {
	cfg := writeModelsConfig(t)
	extra := filepath.Join(filepath.Dir(cfg), "model", "minilm-l6")
	if err := os.MkdirAll(extra, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(extra, "config.json"), []byte(`{"hidden_size": 6}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := runCLI(t, "--config", cfg, "--discover", "models", "--json")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var rows []modelRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("json: %v out=%q", err, out)
	}
	// model-one is configured already, so only the new directory is added.
	if len(rows) != 3 {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[2].Alias != "minilm-l6" || rows[2].Backend != "hash" || !rows[2].Present {
		t.Fatalf("discovered row=%+v", rows[2])
	}

	out, err = runCLI(t, "--config", cfg, "models", "--json")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	rows = nil
	if err := json.Unmarshal([]byte(out), &rows); err != nil || len(rows) != 2 {
		t.Fatalf("without --discover rows=%+v err=%v", rows, err)
	}
}

func TestNewPublisher_LogOnlyWithoutNATS(t *testing.T) {
	pub, closeFn, err := newPublisher(config.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if closeFn != nil {
		t.Fatal("no close func expected without NATS")
	}
	if len(pub) != 1 {
		t.Fatalf("publishers=%d", len(pub))
	}
	if _, ok := pub[0].(events.Log); !ok {
		t.Fatalf("expected log publisher, got %T", pub[0])
	}
}

func TestHTTPOptions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.Config{MaxBodyBytes: 2048}
	cfg.RateLimit.RPS, cfg.RateLimit.Burst = 3, 6
	cfg.CORS = config.CORSConfig{Enabled: true, Origins: []string{"https://a.example"}}
	o := httpOptions(ctx, cfg, zerolog.Nop())
	if o.BaseContext != ctx || o.Logger == nil {
		t.Fatalf("context or logger not passed: %+v", o)
	}
	if o.MaxBodyBytes != 2048 || o.RateLimitRPS != 3 || o.RateLimitBurst != 6 {
		t.Fatalf("limits not mapped: %+v", o)
	}
	if !o.CORS.Enabled || len(o.CORS.Origins) != 1 {
		t.Fatalf("cors not mapped: %+v", o.CORS)
	}
}
