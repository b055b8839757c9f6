// Package dispatch turns encode requests into backend calls: it normalizes
// input, truncates texts, resolves the model, consults the cache, and
// contains every failure as an error value.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/cache"
	"embedd/internal/registry"
)

// DefaultMaxTextLength is the truncation length, in characters.
const DefaultMaxTextLength = 512

// Encoder is the per-model handle the dispatcher invokes.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Resolver looks up a loaded model by alias or canonical name. canonical
// keys the cache, so an alias and its name share entries.
type Resolver interface {
	Lookup(name string) (enc Encoder, canonical string, ok bool)
}

// RegistryResolver adapts *registry.Registry to Resolver.
type RegistryResolver struct{ Registry *registry.Registry }

func (r RegistryResolver) Lookup(name string) (Encoder, string, bool) {
	h, ok := r.Registry.GetModel(name)
	if !ok {
		return nil, "", false
	}
	return h, h.Name(), true
}

// Options configures a Dispatcher. Zero values select defaults.
type Options struct {
	MaxTextLength int
	// DefaultModel is used when a request names no model.
	DefaultModel string
	// Timeout bounds each Encode call; zero means no extra deadline.
	Timeout time.Duration
	Cache   cache.Cache
	Logger  zerolog.Logger
}

// Dispatcher is stateless per call and safe for concurrent use.
type Dispatcher struct {
	models       Resolver
	maxLen       int
	defaultModel string
	timeout      time.Duration
	cache        cache.Cache
	log          zerolog.Logger
}

func New(models Resolver, opts Options) *Dispatcher {
	d := &Dispatcher{
		models:       models,
		maxLen:       opts.MaxTextLength,
		defaultModel: opts.DefaultModel,
		timeout:      opts.Timeout,
		cache:        opts.Cache,
		log:          opts.Logger,
	}
	if d.maxLen <= 0 {
		d.maxLen = DefaultMaxTextLength
	}
	return d
}

// EncodeText embeds a single string as a one-element batch.
func (d *Dispatcher) EncodeText(ctx context.Context, text, model string) ([][]float64, error) {
	return d.Encode(ctx, []string{text}, model)
}

// Encode embeds texts with the named model. On success the result has exactly
// len(texts) vectors in input order; on failure it is nil.
func (d *Dispatcher) Encode(ctx context.Context, texts []string, model string) (out [][]float64, err error) {
	if model == "" {
		model = d.defaultModel
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrInternal, p)
		}
		res := resultLabel(err)
		encodeTotal.WithLabelValues(metricModel(model, res), res).Inc()
		if err == nil {
			encodeDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
			return
		}
		ev := d.log.Warn()
		if res == resultError {
			ev = d.log.Error()
		}
		ev.Err(err).Str("model", model).Int("texts", len(texts)).Msg("encode failed")
	}()

	if len(texts) == 0 {
		return nil, ErrNoContexts
	}
	if model == "" {
		return nil, fmt.Errorf("%w: no model specified", ErrModelUnavailable)
	}
	h, canonical, ok := d.models.Lookup(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	batch := make([]string, len(texts))
	for i, t := range texts {
		batch[i] = Truncate(t, d.maxLen)
	}

	vecs, err := d.encodeCached(ctx, h, canonical, batch)
	if err != nil {
		if d.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, d.timeout, err)
		}
		return nil, err
	}
	return toFloat64(vecs), nil
}

// encodeCached serves cache hits and sends only the misses, in order, to the
// backend in one call.
func (d *Dispatcher) encodeCached(ctx context.Context, h Encoder, model string, batch []string) ([][]float32, error) {
	out := make([][]float32, len(batch))
	missIdx := make([]int, 0, len(batch))
	if d.cache != nil {
		for i, t := range batch {
			if v, ok := d.cache.Get(ctx, model, t); ok {
				out[i] = v
				continue
			}
			missIdx = append(missIdx, i)
		}
	} else {
		for i := range batch {
			missIdx = append(missIdx, i)
		}
	}
	encodeTexts.WithLabelValues(model, "cache").Add(float64(len(batch) - len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	misses := make([]string, len(missIdx))
	for j, i := range missIdx {
		misses[j] = batch[i]
	}
	vecs, err := h.Encode(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBadBackendOutput, len(vecs), len(misses))
	}
	for j, i := range missIdx {
		if vecs[j] == nil {
			return nil, fmt.Errorf("%w: nil vector at index %d", ErrBadBackendOutput, i)
		}
		out[i] = vecs[j]
		if d.cache != nil {
			d.cache.Set(ctx, model, batch[i], vecs[j])
		}
	}
	encodeTexts.WithLabelValues(model, "backend").Add(float64(len(misses)))
	return out, nil
}

// Truncate returns the first max characters (runes) of s.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func toFloat64(vs [][]float32) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrNoContexts):
		return resultNoContexts
	case errors.Is(err, ErrModelUnavailable):
		return resultUnavailable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return resultTimeout
	case registry.IsTooBusy(err):
		return resultBusy
	default:
		return resultError
	}
}

// metricModel keeps unknown model names out of label values.
func metricModel(model, result string) string {
	if result == resultUnavailable || model == "" {
		return "unknown"
	}
	return model
}
