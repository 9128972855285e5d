package dispatcher

import (
	"sync"
	"time"
)

// Event types.
const (
	EventOK             = "ok_message"
	EventError          = "error_message"
	EventLoadConfig     = "load_config"
	EventExportConfig   = "export_config"
	EventSystemReloaded = "system_reloaded"
)

// Event is an asynchronous notification to the client.
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Emitter delivers events to whoever is listening.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// NoopEmitter drops every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// Recording collects events in memory.
type Recording struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recording) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything emitted so far.
func (r *Recording) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
