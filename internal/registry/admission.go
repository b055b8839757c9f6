package registry

import "context"

// admit blocks until the handle may run one encode: first a queue slot, then
// the in-flight slot. maxWait bounds the two waits together; running out of
// it yields a tooBusyError, while the caller's own cancellation or deadline
// is returned as is. On success release frees both slots.
func (h *Handle) admit(ctx context.Context) (release func(), err error) {
	wait, cancel := context.WithTimeoutCause(ctx, h.maxWait, tooBusyError{alias: h.alias})
	defer cancel()

	if err := take(wait, h.queueCh); err != nil {
		return nil, err
	}
	if err := take(wait, h.genCh); err != nil {
		<-h.queueCh
		return nil, err
	}
	return func() {
		<-h.genCh
		<-h.queueCh
	}, nil
}

// take puts a token into slots unless wait ends first. A wait that is
// already over never takes a slot, even when one is free.
func take(wait context.Context, slots chan<- struct{}) error {
	if wait.Err() != nil {
		return waitErr(wait)
	}
	select {
	case slots <- struct{}{}:
		return nil
	case <-wait.Done():
		return waitErr(wait)
	}
}

// waitErr maps an ended admission wait to the error callers see.
func waitErr(wait context.Context) error {
	if cause := context.Cause(wait); IsTooBusy(cause) {
		return cause
	}
	return wait.Err()
}
