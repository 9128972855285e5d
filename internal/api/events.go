package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/manyvis/internal/dispatcher"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
)

// eventBuffer is the per-subscriber backlog before events are dropped.
const eventBuffer = 10

// EventSubscriber fans dispatcher events out to every open stream.
type EventSubscriber struct {
	mu          sync.RWMutex
	subscribers map[chan dispatcher.Event]struct{}
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber() *EventSubscriber {
	return &EventSubscriber{subscribers: make(map[chan dispatcher.Event]struct{})}
}

// Subscribe returns a channel receiving every published event and a
// function that unsubscribes and closes it.
func (es *EventSubscriber) Subscribe() (<-chan dispatcher.Event, func()) {
	ch := make(chan dispatcher.Event, eventBuffer)
	es.mu.Lock()
	es.subscribers[ch] = struct{}{}
	es.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			es.mu.Lock()
			defer es.mu.Unlock()
			delete(es.subscribers, ch)
			close(ch)
		})
	}
}

// Publish sends an event to all subscribers without blocking.
func (es *EventSubscriber) Publish(event dispatcher.Event) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	for ch := range es.subscribers {
		select {
		case ch <- event:
		default:
			slog.Warn("Event channel full, dropping event", logfields.Event(event.Type))
		}
	}
}

// Emit implements dispatcher.Emitter.
func (es *EventSubscriber) Emit(event dispatcher.Event) { es.Publish(event) }

// SubscriberCount returns the number of open streams.
func (es *EventSubscriber) SubscriberCount() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.subscribers)
}

// handleEvents streams dispatcher events as Server-Sent Events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Streams outlive the server write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("Could not clear write deadline", logfields.Error(err))
	}

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	slog.Info("Event stream opened")
	sendSSEEvent(w, dispatcher.Event{Type: "connected", Message: "Connected to event stream", Timestamp: time.Now().UTC()})

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			slog.Info("Event stream closed (client disconnect)")
			return
		case <-keepAlive.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flush(w)
		case event, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, event)
		}
	}
}

// sendSSEEvent writes one event in SSE format, named by its type.
func sendSSEEvent(w http.ResponseWriter, event dispatcher.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal SSE event", logfields.Error(err))
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	} else {
		slog.Warn("Response writer does not support flushing")
	}
}
