// README: In-process fan-out for channel events; multiple subscribers per event, isolated from each other.
package registry

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type Handle string

type Callback func(payload json.RawMessage)

type entry struct {
	handle Handle
	fn     Callback
}

type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	log       *slog.Logger
}

func New(log *slog.Logger) *Registry {
	return &Registry{
		listeners: make(map[string][]entry),
		log:       log,
	}
}

// Subscribe registers fn for event and returns a handle for removal.
// Callbacks for the same event run in subscription order.
func (r *Registry) Subscribe(event string, fn Callback) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	r.listeners[event] = append(r.listeners[event], entry{handle: h, fn: fn})
	r.mu.Unlock()
	return h
}

// Unsubscribe removes the listener identified by handle. An unknown handle is
// a no-op; an empty handle removes every listener for the event.
func (r *Registry) Unsubscribe(event string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == "" {
		delete(r.listeners, event)
		return
	}
	entries := r.listeners[event]
	for i, e := range entries {
		if e.handle == h {
			r.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every current listener for event. A panic in
// one callback is recovered and logged so the remaining callbacks still run.
// A listener removed mid-delivery receives no further events, including the
// one in flight; removal never affects delivery to other listeners.
func (r *Registry) Publish(event string, payload json.RawMessage) {
	r.mu.RLock()
	snapshot := make([]entry, len(r.listeners[event]))
	copy(snapshot, r.listeners[event])
	r.mu.RUnlock()

	for _, e := range snapshot {
		if !r.alive(event, e.handle) {
			continue
		}
		r.invoke(event, e, payload)
	}
}

func (r *Registry) alive(event string, h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.listeners[event] {
		if e.handle == h {
			return true
		}
	}
	return false
}

func (r *Registry) invoke(event string, e entry, payload json.RawMessage) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("event listener panicked", "event", event, "panic", p)
		}
	}()
	e.fn(payload)
}
