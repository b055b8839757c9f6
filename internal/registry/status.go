package registry

import "time"

// ModelStatus is the per-alias availability record. Values returned by the
// registry are copies.
type ModelStatus struct {
	Alias        string
	Name         string
	Backend      string
	Device       string
	Loaded       bool
	LastError    string
	Dimensions   int
	LoadDuration time.Duration

	QueueLen      int
	Inflight      int
	MaxQueueDepth int
}

// Status returns alias -> loaded.
func (r *Registry) Status() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.status))
	for alias, st := range r.status {
		out[alias] = st.Loaded
	}
	return out
}

// AvailableModels returns canonical name -> loaded.
func (r *Registry) AvailableModels() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.status))
	for _, st := range r.status {
		out[st.Name] = st.Loaded
	}
	return out
}

// Statuses returns detailed status records in registration order.
func (r *Registry) Statuses() []ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelStatus, 0, len(r.order))
	for _, alias := range r.order {
		st := *r.status[alias]
		if h := r.handles[alias]; h != nil {
			st.QueueLen = h.QueueLen()
			st.Inflight = h.Inflight()
			st.MaxQueueDepth = h.MaxQueueDepth()
		}
		out = append(out, st)
	}
	return out
}

// Counts returns the number of loaded and failed models.
func (r *Registry) Counts() (loaded, failed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, st := range r.status {
		switch {
		case st.Loaded:
			loaded++
		case st.LastError != "":
			failed++
		}
	}
	return loaded, failed
}
