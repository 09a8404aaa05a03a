// Package inmemory provides an event store keeping events in memory, useful for tests and development.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/projection"
)

var (
	// Ensure that we satisfy the cqrs.EventStorage interface
	_ cqrs.EventStorage = &EventStore{}
	// Ensure that we satisfy the projection.EventLoader interface
	_ projection.EventLoader = &EventStore{}
)

// EventStore a in memory event store implementation
type EventStore struct {
	sync.RWMutex

	logger cqrs.Logger
	events []codec.Data
	known  map[cqrs.UUID]struct{}
}

// NewEventStore return a new inmemory.EventStore
func NewEventStore(logger cqrs.Logger) *EventStore {
	if logger == nil {
		logger = cqrs.NopLogger
	}

	return &EventStore{
		logger: logger,
		known:  map[cqrs.UUID]struct{}{},
	}
}

// StoreEvent appends the structural form of the event to the store
func (i *EventStore) StoreEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return cqrs.InvalidArgumentError("event")
	}

	data, err := event.Serialize()
	if err != nil {
		return err
	}

	i.Lock()
	defer i.Unlock()

	if _, found := i.known[event.UUID()]; found {
		return cqrs.ErrDuplicateEvent
	}

	i.known[event.UUID()] = struct{}{}
	i.events = append(i.events, data)

	i.logger.Debug("event stored", func(e cqrs.LoggerEntry) {
		e.String("event_uuid", event.UUID().String())
		e.String("event_name", event.Name())
	})

	return nil
}

// LoadEntityEvents returns the events with the given payload uuid ordered by creation time and insertion order
func (i *EventStore) LoadEntityEvents(ctx context.Context, entityUUID string) ([]codec.Data, error) {
	i.RLock()
	defer i.RUnlock()

	var res []codec.Data
	for _, data := range i.events {
		if typ, _ := data["type"].(string); typ != string(cqrs.EventType) {
			continue
		}
		if id, ok := cqrs.EntityUUID(data); !ok || id != entityUUID {
			continue
		}

		res = append(res, copyData(data))
	}

	sort.SliceStable(res, func(a, b int) bool {
		return createdAt(res[a]).Before(createdAt(res[b]))
	})

	return res, nil
}

// Len returns the number of stored events
func (i *EventStore) Len() int {
	i.RLock()
	defer i.RUnlock()

	return len(i.events)
}

func createdAt(data codec.Data) time.Time {
	s, _ := data["createdAt"].(string)
	t, _ := time.Parse(time.RFC3339, s)

	return t
}

func copyData(data map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(data))
	for k, v := range data {
		if m, ok := v.(map[string]interface{}); ok {
			v = copyData(m)
		}
		res[k] = v
	}

	return res
}
