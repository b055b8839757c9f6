package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimensions is used when neither the descriptor nor config.json
// specify a dimension.
const DefaultHashDimensions = 384

const trigramWeight = 0.5

func init() { Register(KindHash, loadHash) }

// hashBackend embeds text by hashing word and character-trigram features
// into a fixed number of signed buckets.
type hashBackend struct {
	dims      int
	normalize bool
}

func loadHash(_ context.Context, spec Spec) (Backend, error) {
	if err := requireArtifactDir(spec.Path); err != nil {
		return nil, err
	}
	if _, err := requireFile(spec.Path, "config.json"); err != nil {
		return nil, err
	}
	mc, err := readModelConfig(spec.Path)
	if err != nil {
		return nil, err
	}
	dims := mc.HiddenSize
	if spec.Dimensions > 0 {
		if dims > 0 && dims != spec.Dimensions {
			return nil, fmt.Errorf("dimension mismatch: config.json hidden_size %d, configured %d", dims, spec.Dimensions)
		}
		dims = spec.Dimensions
	}
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &hashBackend{dims: dims, normalize: spec.Normalize}, nil
}

// NewHash returns a hash backend without touching the filesystem.
func NewHash(dims int, normalize bool) Backend {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &hashBackend{dims: dims, normalize: normalize}
}

func (h *hashBackend) Dimensions() int { return h.dims }

func (h *hashBackend) Close() error { return nil }

func (h *hashBackend) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *hashBackend) embed(text string) []float32 {
	v := make([]float32, h.dims)
	for _, w := range words(text) {
		h.add(v, "w:"+w, 1)
		r := []rune("#" + w + "#")
		for i := 0; i+3 <= len(r); i++ {
			h.add(v, "t:"+string(r[i:i+3]), trigramWeight)
		}
	}
	if h.normalize {
		l2Normalize(v)
	}
	return v
}

func (h *hashBackend) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

// words lowercases text and splits it on anything that is not a letter or digit.
// Han characters are emitted one per token.
func words(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return out
}
