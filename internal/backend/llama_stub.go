//go:build !llama

package backend

import "context"

// The real loader lives in llama.go and needs CGO plus libllama.
func init() { Register(KindLlama, loadLlamaStub) }

func loadLlamaStub(context.Context, Spec) (Backend, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
