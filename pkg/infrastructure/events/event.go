package events

import (
	"time"
)

type Event interface {
	Type() string
	StreamID() string
	TenantID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore journals lifecycle events per order stream. Positions passed to
// ReadAllEvents are zero-based offsets into the global journal.
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

type BaseEvent struct {
	EventType    string      `json:"type"`
	Stream       string      `json:"stream_id"`
	Tenant       string      `json:"tenant_id"`
	EventData    interface{} `json:"data"`
	EventTime    time.Time   `json:"timestamp"`
	EventVersion int         `json:"version"`
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) TenantID() string {
	return e.Tenant
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

func NewEvent(eventType, tenantID, streamID string, data interface{}, at time.Time) Event {
	return BaseEvent{
		EventType:    eventType,
		Stream:       streamID,
		Tenant:       tenantID,
		EventData:    data,
		EventTime:    at,
		EventVersion: 1,
	}
}

// withVersion copies an event into a BaseEvent carrying the stream version assigned by a store
func withVersion(streamID string, event Event, version int) BaseEvent {
	return BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		Tenant:       event.TenantID(),
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: version,
	}
}
