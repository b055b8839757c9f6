// Package cache stores computed embeddings keyed by model and input text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache is a best-effort vector store. Implementations treat internal errors
// as misses and must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool)
	Set(ctx context.Context, model, text string, vec []float32)
}

// Key derives the storage key for a model and text.
func Key(prefix, model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return prefix + model + ":" + hex.EncodeToString(h.Sum(nil))
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
