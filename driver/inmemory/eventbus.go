package inmemory

import (
	"context"
	"sync"

	"github.com/hellofresh/cqrs"
)

// Ensure that we satisfy the cqrs.EventPublisher interface
var _ cqrs.EventPublisher = &EventBus{}

// EventBus delivers published events synchronously to its subscribers.
// Every subscriber receives a copy decoded from the structural form of the event, as a broker consumer would.
type EventBus struct {
	mux         sync.RWMutex
	registry    *cqrs.EventRegistry
	subscribers []cqrs.EventHandler
	logger      cqrs.Logger
}

// NewEventBus returns a new inmemory.EventBus decoding events with registry
func NewEventBus(registry *cqrs.EventRegistry, logger cqrs.Logger) (*EventBus, error) {
	if registry == nil {
		return nil, cqrs.InvalidArgumentError("registry")
	}
	if logger == nil {
		logger = cqrs.NopLogger
	}

	return &EventBus{registry: registry, logger: logger}, nil
}

// Subscribe adds a handler receiving every published event
func (b *EventBus) Subscribe(handler cqrs.EventHandler) error {
	if handler == nil {
		return cqrs.InvalidArgumentError("handler")
	}

	b.mux.Lock()
	defer b.mux.Unlock()

	b.subscribers = append(b.subscribers, handler)

	return nil
}

// PublishEvent hands the event to the subscribers in subscription order, stopping at the first failure
func (b *EventBus) PublishEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return cqrs.InvalidArgumentError("event")
	}

	data, err := event.Serialize()
	if err != nil {
		return err
	}

	b.mux.RLock()
	subscribers := make([]cqrs.EventHandler, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mux.RUnlock()

	for _, handler := range subscribers {
		received, err := b.registry.DecodeEvent(copyData(data))
		if err != nil {
			return err
		}

		if err := handler(ctx, received); err != nil {
			b.logger.Warn("subscriber failed to handle event", func(e cqrs.LoggerEntry) {
				e.Error(err)
				e.String("event_uuid", event.UUID().String())
				e.String("event_name", event.Name())
			})

			return err
		}
	}

	b.logger.Debug("event published", func(e cqrs.LoggerEntry) {
		e.String("event_uuid", event.UUID().String())
		e.String("event_name", event.Name())
		e.Int("subscribers", len(subscribers))
	})

	return nil
}
