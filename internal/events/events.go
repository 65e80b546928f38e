package events

import (
	"encoding/json"
	"sync"
	"time"

	"roombook/internal/models"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingRejected   = "booking_rejected"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingCheckedIn  = "booking_checked_in"
	EventBookingCheckedOut = "booking_checked_out"
	EventBookingReleased   = "booking_released"
)

// AllBookingEvents lists every lifecycle event type.
var AllBookingEvents = []string{
	EventBookingCreated,
	EventBookingRejected,
	EventBookingCancelled,
	EventBookingCheckedIn,
	EventBookingCheckedOut,
	EventBookingReleased,
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID string `json:"booking_id,omitempty"`
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status,omitempty"`
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ChangedBy string `json:"changed_by,omitempty"`
}

// PayloadFromBooking snapshots a booking for publishing.
func PayloadFromBooking(b *models.Booking, changedBy string) BookingEventPayload {
	return BookingEventPayload{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Status:    b.Status,
		Date:      b.Date,
		StartTime: b.StartTime.Short(),
		EndTime:   b.EndTime.Short(),
		ChangedBy: changedBy,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     func(*Event, error)
	seq         int64
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

// OnError installs a hook for handler failures.
func (b *EventBus) OnError(fn func(*Event, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.Lock()
	b.seq++
	event.ID = b.seq
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
