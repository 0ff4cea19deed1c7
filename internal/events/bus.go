// Package events broadcasts engine outcomes to registered observers.
package events

import (
	"sort"
	"sync"
	"time"

	"autologin/internal/models"
)

// Type names an event.
type Type string

const (
	NetworkStatusChecked Type = "network_status_checked"
	LoginAttempted       Type = "login_attempted"
	ConfigSaved          Type = "config_saved"
	AutoStartSet         Type = "auto_start_set"
)

// Event is delivered once to every observer registered at publish time.
type Event struct {
	Type    Type                  `json:"type"`
	Time    time.Time             `json:"time"`
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Campus  models.CampusStatus   `json:"campus,omitempty"`
	Wan     models.WanStatus      `json:"wan,omitempty"`
	Elapsed float64               `json:"elapsed_seconds,omitempty"`
	Enabled *bool                 `json:"enabled,omitempty"`
	State   models.CompositeState `json:"state,omitempty"`
}

// Handler observes events. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(Event)

// Bus is a one-shot broadcaster with no replay for late subscribers.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every current observer in subscription order.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
