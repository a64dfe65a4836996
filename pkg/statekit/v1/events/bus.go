package events

import "time"

// EventType represents the type of a store lifecycle event.
type EventType string

// Standard statekit event types.
const (
	StoreCreated     EventType = "StoreCreated"
	StateDispatched  EventType = "StateDispatched"  // A field was replaced
	ActionStarted    EventType = "ActionStarted"    // Before the action function runs
	ActionCompleted  EventType = "ActionCompleted"  // Action returned without error
	ActionFailed     EventType = "ActionFailed"     // Action returned an error or panicked
	SubscriberFailed EventType = "SubscriberFailed" // A subscriber failed during notification
	StoreClosed      EventType = "StoreClosed"
)

// Event represents a significant occurrence within a store.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	// StoreName and StoreID identify the emitting store instance.
	StoreName string `json:"store_name,omitempty"`
	StoreID   string `json:"store_id,omitempty"`
	// Action is set for action events.
	Action string `json:"action,omitempty"`
	// Field is set for dispatch and subscriber events.
	Field string `json:"field,omitempty"`
	// Payload carries event-specific data. State values are never included;
	// only versions, durations and error strings.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing store events.
type Bus interface {
	// Emit publishes an event. Implementations must not block the caller,
	// since events are emitted from inside dispatch.
	Emit(event Event)
}
