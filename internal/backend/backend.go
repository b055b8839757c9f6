// Package backend defines the embedding runtime interface and the loaders
// that turn an artifact directory into a ready Backend.
//
// Kinds:
//
//   - hash: deterministic feature hashing, always available, no native deps.
//   - onnx: ONNX Runtime via yalue/onnxruntime_go. Enabled with `-tags=onnx`.
//   - llama: GGUF models via go-skynet/go-llama.cpp. Enabled with `-tags=llama`.
//   - server: a running OpenAI-compatible embeddings server (llama.cpp server).
//
// When a kind is compiled out its loader returns a dependency-unavailable
// error, so the model is reported as not loaded and the process keeps serving.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Backend computes embeddings for a batch of texts. Implementations are not
// required to be safe for concurrent use; callers serialize access.
type Backend interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Kind selects a loader.
type Kind string

const (
	KindHash  Kind = "hash"
	KindONNX  Kind = "onnx"
	KindLlama Kind = "llama"
)

// Spec carries everything a loader needs to instantiate a backend.
type Spec struct {
	Path       string
	Dimensions int
	Device     Device
	Normalize  bool
	// MaxTokens caps tokenized sequence length for transformer backends.
	MaxTokens int
	Logger    zerolog.Logger
}

// Loader instantiates a backend from its artifact directory.
type Loader func(ctx context.Context, spec Spec) (Backend, error)

// DefaultMaxTokens matches the max_length the bundled models were exported with.
const DefaultMaxTokens = 512

var (
	loadersMu sync.RWMutex
	loaders   = map[Kind]Loader{}
)

// Register installs a loader for kind, replacing any previous one.
func Register(kind Kind, l Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[kind] = l
}

// Kinds lists registered kinds in sorted order.
func Kinds() []Kind {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	out := make([]Kind, 0, len(loaders))
	for k := range loaders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func kindList() string {
	ks := Kinds()
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// ErrUnknownKind is returned by Load for kinds with no registered loader.
var ErrUnknownKind = errors.New("unknown backend kind")

// Load instantiates a backend of the given kind. An empty kind means hash.
func Load(ctx context.Context, kind Kind, spec Spec) (Backend, error) {
	if kind == "" {
		kind = KindHash
	}
	kind = Kind(strings.ToLower(string(kind)))
	loadersMu.RLock()
	l := loaders[kind]
	loadersMu.RUnlock()
	if l == nil {
		return nil, fmt.Errorf("%w: %s (have %s)", ErrUnknownKind, kind, kindList())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.MaxTokens <= 0 {
		spec.MaxTokens = DefaultMaxTokens
	}
	if spec.Device == "" {
		spec.Device = DeviceCPU
	}
	return l(ctx, spec)
}

// measureDimensions embeds one short text to learn the vector width of a
// freshly loaded model. A configured width (want > 0) must match.
func measureDimensions(ctx context.Context, b Backend, want int) (int, error) {
	vecs, err := b.Encode(ctx, []string{"ping"})
	if err != nil {
		return 0, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, errors.New("sample encode returned no vector")
	}
	got := len(vecs[0])
	if want > 0 && got != want {
		return 0, fmt.Errorf("dimension mismatch: model returned %d, configured %d", got, want)
	}
	return got, nil
}

// dependencyUnavailableError signals a runtime that was not compiled in or
// whose shared library could not be initialized.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var d dependencyUnavailableError
	return errors.As(err, &d)
}
