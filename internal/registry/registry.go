package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"embedd/internal/backend"
	"embedd/internal/events"
	"embedd/pkg/types"
)

// Defaults applied when corresponding Options fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// Options tunes loading and admission.
type Options struct {
	Policy     Policy
	RequireAny bool
	// Device is the preference passed to backend.SelectDevice: auto, cpu or cuda.
	Device        string
	MaxTokens     int
	MaxQueueDepth int
	MaxWait       time.Duration
	Logger        zerolog.Logger
	Publisher     events.Publisher
}

// Registry maps aliases to descriptors, load status, and loaded handles.
type Registry struct {
	mu sync.RWMutex

	policy     Policy
	requireAny bool
	device     string
	maxTokens  int
	depth      int
	maxWait    time.Duration
	log        zerolog.Logger
	pub        events.Publisher

	order   []string               // aliases in registration order
	descs   map[string]types.Model // by alias
	byName  map[string]string      // canonical name -> alias
	status  map[string]*ModelStatus
	handles map[string]*Handle

	loadStarted bool
	loadDone    bool
	closed      bool
}

// New constructs an empty registry.
func New(opts Options) *Registry {
	r := &Registry{
		policy:     opts.Policy,
		requireAny: opts.RequireAny,
		device:     opts.Device,
		maxTokens:  opts.MaxTokens,
		depth:      opts.MaxQueueDepth,
		maxWait:    opts.MaxWait,
		log:        opts.Logger,
		pub:        opts.Publisher,
		descs:      make(map[string]types.Model),
		byName:     make(map[string]string),
		status:     make(map[string]*ModelStatus),
		handles:    make(map[string]*Handle),
	}
	if r.depth <= 0 {
		r.depth = defaultMaxQueueDepth
	}
	if r.maxWait <= 0 {
		r.maxWait = defaultMaxWait
	}
	if r.maxTokens <= 0 {
		r.maxTokens = backend.DefaultMaxTokens
	}
	if r.pub == nil {
		r.pub = events.Noop{}
	}
	return r
}

// Register adds a hash-backed descriptor. See RegisterModel.
func (r *Registry) Register(alias, canonicalName, artifactPath string) error {
	return r.RegisterModel(types.Model{Alias: alias, Name: canonicalName, Path: artifactPath})
}

// RegisterModel adds a descriptor with an initial not-loaded status.
func (r *Registry) RegisterModel(m types.Model) error {
	m.Alias = strings.TrimSpace(m.Alias)
	m.Name = strings.TrimSpace(m.Name)
	if m.Alias == "" || m.Name == "" {
		return ErrEmptyName
	}
	if m.Backend == "" {
		m.Backend = string(backend.KindHash)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadStarted {
		return ErrAlreadyLoaded
	}
	if _, ok := r.descs[m.Alias]; ok {
		return &DuplicateAliasError{Alias: m.Alias}
	}
	if other, ok := r.byName[m.Name]; ok {
		return fmt.Errorf("%w: %s (alias %s)", ErrDuplicateName, m.Name, other)
	}
	r.order = append(r.order, m.Alias)
	r.descs[m.Alias] = m
	r.byName[m.Name] = m.Alias
	r.status[m.Alias] = &ModelStatus{Alias: m.Alias, Name: m.Name, Backend: m.Backend}
	return nil
}

// RegisterAll registers descriptors in order, stopping at the first error.
func (r *Registry) RegisterAll(ms []types.Model) error {
	for _, m := range ms {
		if err := r.RegisterModel(m); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps an alias or canonical name to an alias. Caller holds r.mu.
func (r *Registry) resolve(name string) (string, bool) {
	if _, ok := r.descs[name]; ok {
		return name, true
	}
	alias, ok := r.byName[name]
	return alias, ok
}

// GetModel returns the handle for an alias or canonical name if it loaded.
func (r *Registry) GetModel(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false
	}
	alias, ok := r.resolve(name)
	if !ok {
		return nil, false
	}
	h := r.handles[alias]
	return h, h != nil
}

// IsAvailable reports whether name resolves to a loaded model.
func (r *Registry) IsAvailable(name string) bool {
	_, ok := r.GetModel(name)
	return ok
}

// Descriptors returns a copy of the registered descriptors in registration order.
func (r *Registry) Descriptors() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Model, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, r.descs[a])
	}
	return out
}

// Ready reports whether the load pass finished with at least one model loaded.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadDone && !r.closed && len(r.handles) > 0
}

// Loaded reports whether the load pass has finished.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadDone
}
