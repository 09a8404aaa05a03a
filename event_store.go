package cqrs

import (
	"context"
	"errors"
)

// ErrDuplicateEvent occurs when an event with the same uuid is already stored
var ErrDuplicateEvent = errors.New("cqrs: event is already stored")

// EventStorage is an append only store of events
type EventStorage interface {
	// StoreEvent appends the serialized event keyed by the event uuid
	StoreEvent(ctx context.Context, event *Event) error
}

// StoreEventHandler returns an EventHandler that appends every received event to storage.
// Events that are already stored are skipped so that redelivered messages are acknowledged.
func StoreEventHandler(storage EventStorage, logger Logger) EventHandler {
	if logger == nil {
		logger = NopLogger
	}

	return func(ctx context.Context, event *Event) error {
		err := storage.StoreEvent(ctx, event)
		if errors.Is(err, ErrDuplicateEvent) {
			logger.Warn("event is already stored, skipping", func(e LoggerEntry) {
				e.String("event_uuid", event.UUID().String())
				e.String("event_name", event.Name())
			})
			return nil
		}

		return err
	}
}
