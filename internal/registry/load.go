package registry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"embedd/internal/backend"
	"embedd/internal/events"
	"embedd/pkg/types"
)

// Policy decides what LoadAll does when a model fails to load.
type Policy int

const (
	// PolicyIsolate records the failure and continues with the next model.
	PolicyIsolate Policy = iota
	// PolicyFailFast stops at the first failure and returns a *LoadError.
	PolicyFailFast
)

const notAttempted = "not attempted"

// ParsePolicy maps a config value to a Policy. Empty means isolate.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "isolate":
		return PolicyIsolate, nil
	case "fail_fast":
		return PolicyFailFast, nil
	default:
		return PolicyIsolate, fmt.Errorf("invalid load policy: %s", s)
	}
}

func (p Policy) String() string {
	if p == PolicyFailFast {
		return "fail_fast"
	}
	return "isolate"
}

// LoadAll loads every registered model once, sequentially, in registration
// order. Per-model failures are recorded in the status table; whether they
// abort the pass depends on the policy.
func (r *Registry) LoadAll(ctx context.Context) error {
	r.mu.Lock()
	if r.loadStarted {
		r.mu.Unlock()
		return ErrAlreadyLoaded
	}
	r.loadStarted = true
	descs := make([]types.Model, 0, len(r.order))
	for _, a := range r.order {
		descs = append(descs, r.descs[a])
	}
	r.mu.Unlock()

	start := time.Now()
	var firstErr error
	for i, d := range descs {
		if err := ctx.Err(); err != nil {
			r.markNotAttempted(descs[i:], err.Error())
			firstErr = err
			break
		}
		if err := r.loadOne(ctx, d); err != nil && r.policy == PolicyFailFast {
			r.markNotAttempted(descs[i+1:], notAttempted)
			firstErr = &LoadError{Alias: d.Alias, Err: err}
			break
		}
	}

	loaded, failed := r.Counts()
	r.mu.Lock()
	r.loadDone = true
	r.mu.Unlock()
	modelsLoaded.Set(float64(loaded))
	modelsFailed.Set(float64(failed))
	r.log.Info().
		Int("loaded", loaded).
		Int("failed", failed).
		Int("total", len(descs)).
		Str("policy", r.policy.String()).
		Dur("elapsed", time.Since(start)).
		Msg("model load pass complete")
	r.pub.Publish(events.New(events.LoadSummary, "", map[string]any{
		"loaded": loaded,
		"failed": failed,
		"total":  len(descs),
	}))

	if firstErr != nil {
		return firstErr
	}
	if loaded == 0 && r.requireAny {
		return ErrNoModelsLoaded
	}
	return nil
}

// loadOne instantiates one backend and records the outcome.
func (r *Registry) loadOne(ctx context.Context, d types.Model) error {
	r.pub.Publish(events.New(events.LoadStart, d.Alias, map[string]any{"name": d.Name, "backend": d.Backend}))
	start := time.Now()
	dev, b, err := r.instantiate(ctx, d)
	dur := time.Since(start)

	r.mu.Lock()
	st := r.status[d.Alias]
	st.Device = string(dev)
	st.LoadDuration = dur
	if err != nil {
		st.Loaded = false
		st.LastError = err.Error()
	} else {
		st.Loaded = true
		st.LastError = ""
		st.Dimensions = b.Dimensions()
		r.handles[d.Alias] = newHandle(d.Alias, d.Name, backend.Kind(d.Backend), dev, b, r.depth, r.maxWait)
	}
	r.mu.Unlock()

	if err != nil {
		loadDuration.WithLabelValues(d.Backend, "error").Observe(dur.Seconds())
		ev := r.log.Error()
		msg := "model load failed"
		if backend.IsDependencyUnavailable(err) {
			// Runtime not built in; expected on CPU-only or untagged builds.
			ev, msg = r.log.Warn(), "model backend unavailable in this build"
		}
		ev.Err(err).Str("model", d.Alias).Str("name", d.Name).Str("backend", d.Backend).Str("path", d.Path).Msg(msg)
		r.pub.Publish(events.New(events.LoadFailed, d.Alias, map[string]any{"error": err.Error()}))
		return err
	}
	loadDuration.WithLabelValues(d.Backend, "ok").Observe(dur.Seconds())
	r.log.Info().Str("model", d.Alias).Str("name", d.Name).Str("backend", d.Backend).Str("device", string(dev)).Int("dims", b.Dimensions()).Dur("elapsed", dur).Msg("model loaded")
	r.pub.Publish(events.New(events.LoadReady, d.Alias, map[string]any{"device": string(dev), "dimensions": b.Dimensions()}))
	return nil
}

// instantiate resolves a device and calls the backend loader, converting a
// loader panic into an error.
func (r *Registry) instantiate(ctx context.Context, d types.Model) (dev backend.Device, b backend.Backend, err error) {
	defer func() {
		if p := recover(); p != nil {
			b = nil
			err = fmt.Errorf("%w: %v", ErrBackendPanic, p)
		}
	}()
	dev, err = backend.SelectDevice(r.device)
	if err != nil {
		return "", nil, err
	}
	b, err = backend.Load(ctx, backend.Kind(d.Backend), backend.Spec{
		Path:       d.Path,
		Dimensions: d.Dimensions,
		Device:     dev,
		Normalize:  true,
		MaxTokens:  r.maxTokens,
		Logger:     r.log.With().Str("model", d.Alias).Logger(),
	})
	if err != nil {
		return dev, nil, err
	}
	if b == nil {
		return dev, nil, fmt.Errorf("loader for %s returned no backend", d.Backend)
	}
	return dev, b, nil
}

func (r *Registry) markNotAttempted(ds []types.Model, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range ds {
		st := r.status[d.Alias]
		st.Loaded = false
		st.LastError = reason
	}
}

// Close waits for in-flight encodes and releases every loaded backend.
// Lookups fail once Close has begun.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hs := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, h := range hs {
		h := h
		g.Go(func() error { return h.close(ctx) })
	}
	return g.Wait()
}
