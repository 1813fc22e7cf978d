package bulb

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of state change an event describes.
type EventType string

// Event types published by the engine and poller.
const (
	EventStateChanged EventType = "state_changed"
	EventBulbOnline   EventType = "bulb_online"
	EventBulbOffline  EventType = "bulb_offline"
)

// Event describes a single bulb state change.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Type classifies the change.
	Type EventType `json:"type"`

	// Bulb is the name of the bulb that changed.
	Bulb string `json:"bulb"`

	// State is a snapshot taken after the change was applied.
	State *State `json:"state"`

	// Timestamp is when the event was published (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber receives state change events.
// Subscribers must not block for long; slow consumers should hand the
// event off to their own queue.
type Subscriber func(Event)

// Bus fans state change events out to registered subscribers.
//
// Delivery is best-effort: every subscriber gets a delivery attempt
// per event, a panicking subscriber never affects the others or the
// operation that triggered the event, and no ordering is guaranteed
// across subscribers.
//
// All public methods are thread-safe.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	logger      Logger
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]Subscriber),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Subscribe registers a subscriber and returns its subscription ID.
func (b *Bus) Subscribe(fn Subscriber) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.subscribers[id] = fn
	b.mu.Unlock()

	b.logger.Debug("subscriber registered", "subscription_id", id)
	return id
}

// Unsubscribe removes a subscriber by subscription ID.
// Unknown IDs are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers an event to every subscriber.
// The event ID and timestamp are stamped here if unset.
func (b *Bus) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subscribers := make(map[string]Subscriber, len(b.subscribers))
	for id, fn := range b.subscribers {
		subscribers[id] = fn
	}
	b.mu.RUnlock()

	for id, fn := range subscribers {
		b.deliver(id, fn, event)
	}
}

// deliver invokes one subscriber, containing any panic.
func (b *Bus) deliver(id string, fn Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"subscription_id", id,
				"event_id", event.ID,
				"panic", r,
			)
		}
	}()
	fn(event)
}
