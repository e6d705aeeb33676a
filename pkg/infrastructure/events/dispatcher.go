package events

import (
	"sync"

	"go.uber.org/zap"
)

// dispatcher fans committed events out to subscribers on the appending goroutine, so each handler
// sees one stream's events in append order. Handlers must not block. Failures are logged, never returned.
type dispatcher struct {
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	logger      *zap.Logger
}

func newDispatcher(logger *zap.Logger) *dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dispatcher{
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

func (d *dispatcher) subscribe(eventTypes []string, handler EventHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, eventType := range eventTypes {
		d.subscribers[eventType] = append(d.subscribers[eventType], handler)
	}
}

func (d *dispatcher) unsubscribe(handler EventHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for eventType, handlers := range d.subscribers {
		newHandlers := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		d.subscribers[eventType] = newHandlers
	}
}

func (d *dispatcher) notify(event Event) {
	d.mutex.RLock()
	handlers := append([]EventHandler(nil), d.subscribers[event.Type()]...)
	d.mutex.RUnlock()

	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", event.Type()),
				zap.String("stream_id", event.StreamID()),
				zap.Error(err),
			)
		}
	}
}
