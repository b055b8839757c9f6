package registry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"embedd/internal/backend"
)

// Handle is a loaded model. It serializes access to its backend: one call
// executes at a time and at most cap(queueCh) callers wait or execute.
type Handle struct {
	alias   string
	name    string
	kind    backend.Kind
	device  backend.Device
	backend backend.Backend
	maxWait time.Duration

	genCh   chan struct{} // size 1: single in-flight encode
	queueCh chan struct{} // buffered: queue slots, held by waiting and running callers
	closed  atomic.Bool
}

func newHandle(alias, name string, kind backend.Kind, dev backend.Device, b backend.Backend, depth int, maxWait time.Duration) *Handle {
	return &Handle{
		alias:   alias,
		name:    name,
		kind:    kind,
		device:  dev,
		backend: b,
		maxWait: maxWait,
		genCh:   make(chan struct{}, 1),
		queueCh: make(chan struct{}, depth),
	}
}

func (h *Handle) Alias() string          { return h.alias }
func (h *Handle) Name() string           { return h.name }
func (h *Handle) Device() backend.Device { return h.device }
func (h *Handle) Dimensions() int        { return h.backend.Dimensions() }

// QueueLen is the number of callers waiting for the in-flight slot.
func (h *Handle) QueueLen() int {
	n := len(h.queueCh) - len(h.genCh)
	if n < 0 {
		return 0
	}
	return n
}

func (h *Handle) Inflight() int      { return len(h.genCh) }
func (h *Handle) MaxQueueDepth() int { return cap(h.queueCh) }

// Encode runs the backend on texts once admitted. If ctx ends first, Encode
// returns ctx.Err() immediately; the in-flight slot stays held until the
// backend call actually returns.
func (h *Handle) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	release, err := h.admit(ctx)
	if err != nil {
		if IsTooBusy(err) {
			admissionRejections.WithLabelValues(h.alias).Inc()
		}
		return nil, err
	}

	type result struct {
		vecs [][]float32
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer release()
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrBackendPanic, p)}
			}
		}()
		v, err := h.backend.Encode(ctx, texts)
		done <- result{vecs: v, err: err}
	}()

	select {
	case res := <-done:
		return res.vecs, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close waits for the in-flight call to finish, then releases the backend.
// The in-flight slot is never returned, so later callers cannot reach it.
func (h *Handle) close(ctx context.Context) error {
	if h.closed.Swap(true) {
		return nil
	}
	select {
	case h.genCh <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("close %s: %w", h.alias, ctx.Err())
	}
	return h.backend.Close()
}
