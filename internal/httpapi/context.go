package httpapi

import (
	"context"
	"errors"
)

var errShuttingDown = errors.New("server shutting down")

// withShutdown derives a request context that is also canceled, with cause
// errShuttingDown, once base is done. release must be called when the
// handler returns.
func withShutdown(base, req context.Context) (ctx context.Context, release func()) {
	ctx, cancel := context.WithCancelCause(req)
	stop := context.AfterFunc(base, func() { cancel(errShuttingDown) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}
