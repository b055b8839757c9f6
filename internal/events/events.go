// Package events carries model lifecycle notifications out of the registry.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names.
const (
	LoadStart   = "load_start"
	LoadReady   = "load_ready"
	LoadFailed  = "load_failed"
	LoadSummary = "load_summary"
)

// Event is one lifecycle notification. Model is empty for summary events.
type Event struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Model  string         `json:"model,omitempty"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(name, model string, fields map[string]any) Event {
	return Event{ID: uuid.NewString(), Name: name, Model: model, Time: time.Now().UTC(), Fields: fields}
}

// Publisher receives lifecycle events. Implementations must be non-blocking
// and must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(Event) {}

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}
