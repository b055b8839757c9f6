package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/events"
)

// fakeBackend records concurrency and can block, sleep or panic on Encode.
type fakeBackend struct {
	dims      int
	delay     time.Duration
	block     chan struct{}
	panicNext atomic.Bool

	active    atomic.Int32
	maxActive atomic.Int32
	calls     atomic.Int32
	closed    atomic.Bool
}

func (f *fakeBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)
	if f.panicNext.Swap(false) {
		panic("boom")
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeBackend) Dimensions() int { return f.dims }

func (f *fakeBackend) Close() error {
	f.closed.Store(true)
	return nil
}

// fakes maps an artifact path to the fake the "fake" loader returns.
var fakes sync.Map

func init() {
	backend.Register("fake", func(_ context.Context, s backend.Spec) (backend.Backend, error) {
		if v, ok := fakes.Load(s.Path); ok {
			return v.(*fakeBackend), nil
		}
		return nil, fmt.Errorf("no fake registered at %s", s.Path)
	})
	backend.Register("fake-panic", func(context.Context, backend.Spec) (backend.Backend, error) {
		panic("loader exploded")
	})
	backend.Register("fake-untagged", func(context.Context, backend.Spec) (backend.Backend, error) {
		return nil, backend.ErrDependencyUnavailable("runtime not built")
	})
}

// installFake registers f under a unique path and returns the path.
func installFake(t *testing.T, f *fakeBackend) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake")
	fakes.Store(p, f)
	t.Cleanup(func() { fakes.Delete(p) })
	return p
}

// hashDir creates an artifact directory loadable by the hash backend.
func hashDir(t *testing.T, dims int) string {
	t.Helper()
	d := t.TempDir()
	cfg := fmt.Sprintf(`{"hidden_size": %d}`, dims)
	if err := os.WriteFile(filepath.Join(d, "config.json"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config.json: %v", err)
	}
	return d
}

func newTestRegistry(opts Options) (*Registry, *events.Memory) {
	pub := events.NewMemory()
	opts.Publisher = pub
	opts.Logger = zerolog.Nop()
	if opts.Device == "" {
		opts.Device = "cpu"
	}
	return New(opts), pub
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
