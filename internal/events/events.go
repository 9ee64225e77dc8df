package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventConnectionRequested = "connection_requested"
	EventConnectionAccepted  = "connection_accepted"
	EventConnectionRejected  = "connection_rejected"
	EventConnectionRemoved   = "connection_removed"
	EventConnectionCancelled = "connection_cancelled"

	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingMessage       = "booking_message"
)

// ConnectionEventPayload is the minimal connection snapshot for consumers.
type ConnectionEventPayload struct {
	ConnectionID int64  `json:"connection_id"`
	SenderID     int64  `json:"sender_id"`
	ReceiverID   int64  `json:"receiver_id"`
	Status       string `json:"status"`
	SenderType   string `json:"sender_type,omitempty"`
	ActorID      int64  `json:"actor_id,omitempty"`
}

// BookingEventPayload is the minimal booking snapshot for consumers.
type BookingEventPayload struct {
	BookingID      int64     `json:"booking_id"`
	Reference      string    `json:"reference"`
	ClientID       int64     `json:"client_id"`
	ProfessionalID int64     `json:"professional_id"`
	Status         string    `json:"status"`
	PrevStatus     string    `json:"prev_status,omitempty"`
	StartTime      time.Time `json:"start_time"`
	ActorID        int64     `json:"actor_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
