package dispatch

import "errors"

var (
	// ErrNoContexts is returned for a nil or empty batch.
	ErrNoContexts = errors.New("no contexts provided")
	// ErrModelUnavailable covers unknown, unregistered and failed-to-load models.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrTimeout is returned when the per-call encode timeout elapses.
	ErrTimeout = errors.New("encode timeout")
	// ErrBadBackendOutput is returned when a backend returns the wrong number of vectors.
	ErrBadBackendOutput = errors.New("backend returned a malformed result")
	// ErrInternal wraps a recovered panic in the dispatch path.
	ErrInternal = errors.New("internal encode error")
)
