//go:build llama

package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	llama "github.com/go-skynet/go-llama.cpp"

	"embedd/internal/common/fsutil"
)

const (
	llamaContextSize = 2048
	// llamaGPULayers offloads every layer; llama.cpp clamps to the model's count.
	llamaGPULayers = 999
)

func init() { Register(KindLlama, loadLlama) }

// llamaBackend owns a GGUF model loaded with embeddings enabled.
type llamaBackend struct {
	model     *llama.LLama
	dims      int
	threads   int
	maxTokens int
	normalize bool
}

func loadLlama(ctx context.Context, spec Spec) (Backend, error) {
	if err := requireArtifactDir(spec.Path); err != nil {
		return nil, err
	}
	gguf, err := fsutil.FindBySuffix(spec.Path, ".gguf")
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{
		llama.SetContext(llamaContextSize),
		llama.EnableEmbeddings,
	}
	if spec.Device == DeviceCUDA {
		mo = append(mo, llama.SetGPULayers(llamaGPULayers))
	}
	m, err := llama.New(gguf, mo...)
	if err != nil {
		return nil, fmt.Errorf("load gguf: %w", err)
	}
	b := &llamaBackend{
		model:     m,
		threads:   max(1, runtime.NumCPU()/2),
		maxTokens: spec.MaxTokens,
		normalize: spec.Normalize,
	}
	dims, err := measureDimensions(ctx, b, spec.Dimensions)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("sample encode %s: %w", filepath.Base(gguf), err)
	}
	b.dims = dims
	spec.Logger.Debug().Str("model", gguf).Str("device", string(spec.Device)).Int("dims", dims).Msg("llama model ready")
	return b, nil
}

func (b *llamaBackend) Dimensions() int { return b.dims }

func (b *llamaBackend) Close() error {
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}

func (b *llamaBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if b.model == nil {
		return nil, fmt.Errorf("llama model not initialized")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := b.model.Embeddings(t, llama.SetThreads(b.threads), llama.SetTokens(b.maxTokens))
		if err != nil {
			return nil, fmt.Errorf("embeddings: %w", err)
		}
		// dims is zero only during the load-time sample encode.
		if b.dims > 0 && len(v) != b.dims {
			return nil, fmt.Errorf("embedding dims %d, want %d", len(v), b.dims)
		}
		if b.normalize {
			l2Normalize(v)
		}
		out[i] = v
	}
	return out, nil
}
