package events

import (
	"sync"

	"go.uber.org/zap"
)

type InMemoryEventStore struct {
	streams   map[string][]Event
	mutex     sync.RWMutex
	allEvents []Event
	*dispatcher
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:    make(map[string][]Event),
		allEvents:  make([]Event, 0),
		dispatcher: newDispatcher(logger),
	}
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	eventWithVersion := withVersion(streamID, event, len(s.streams[streamID])+1)
	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.mutex.Unlock()

	s.notify(eventWithVersion)
	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	if fromVersion < 1 {
		fromVersion = 1
	}

	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}

	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.subscribe(eventTypes, handler)
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.unsubscribe(handler)
	return nil
}
