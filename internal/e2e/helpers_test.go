package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/cache"
	"embedd/internal/config"
	"embedd/internal/dispatch"
	"embedd/internal/events"
	"embedd/internal/httpapi"
	"embedd/internal/registry"
	"embedd/internal/service"
	"embedd/pkg/types"
)

// slowBackend delegates to the hash backend after waiting on gate.
type slowBackend struct {
	backend.Backend
	gate chan struct{}
}

func (s *slowBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-s.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Backend.Encode(ctx, texts)
}

// gates maps artifact dirs to the gate of the "slow" kind.
var gates = map[string]chan struct{}{}

func init() {
	backend.Register("slow", func(_ context.Context, s backend.Spec) (backend.Backend, error) {
		g, ok := gates[s.Path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return &slowBackend{Backend: backend.NewHash(8, true), gate: g}, nil
	})
}

// modelsDir creates <root>/<name>/config.json for each name.
func modelsDir(t *testing.T, dims string, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		d := filepath.Join(root, n)
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(d, "config.json"), []byte(`{"hidden_size": `+dims+`}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

type stack struct {
	srv  *httptest.Server
	reg  *registry.Registry
	pub  *events.Memory
	lru  *cache.LRU
	load func() error
}

// newStack wires config -> registry -> dispatcher -> service -> HTTP the way
// the serve command does. Models are registered but not loaded.
func newStack(t *testing.T, cfg config.Config) *stack {
	t.Helper()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	descs, err := cfg.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	pub := events.NewMemory()
	reg := registry.New(registry.Options{
		RequireAny:    cfg.RequireAny,
		Device:        "cpu",
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		Logger:        zerolog.Nop(),
		Publisher:     pub,
	})
	if err := reg.RegisterAll(descs); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := &stack{reg: reg, pub: pub}
	opts := dispatch.Options{
		MaxTextLength: cfg.MaxTextLength,
		DefaultModel:  cfg.DefaultModel,
		Timeout:       cfg.EncodeTimeout(),
		Logger:        zerolog.Nop(),
	}
	if cfg.Cache.Kind == "lru" {
		st.lru = cache.NewLRU(cfg.Cache.Size, cfg.CacheTTL())
		opts.Cache = st.lru
	}
	disp := dispatch.New(dispatch.RegistryResolver{Registry: reg}, opts)
	st.srv = httptest.NewServer(httpapi.NewMux(service.New(reg, disp), httpapi.Options{}))
	st.load = func() error { return reg.LoadAll(context.Background()) }
	t.Cleanup(func() {
		st.srv.Close()
		_ = reg.Close(context.Background())
	})
	return st
}

func (s *stack) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func (s *stack) embed(t *testing.T, body string) (int, types.EmbeddingResponse) {
	t.Helper()
	c := http.Client{Timeout: 5 * time.Second}
	resp, err := c.Post(s.srv.URL+"/embedding", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out types.EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}
