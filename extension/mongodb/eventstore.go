// Package mongodb stores events as documents of a MongoDB collection.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/projection"
)

const (
	idField       = "_id"
	storedAtField = "storedAt"
)

var (
	// Ensure that we satisfy the cqrs.EventStorage interface
	_ cqrs.EventStorage = &EventStore{}
	// Ensure that we satisfy the projection.EventLoader interface
	_ projection.EventLoader = &EventStore{}
)

type (
	// Collection is the part of a *mongo.Collection used by the EventStore
	Collection interface {
		InsertOne(ctx context.Context, document interface{}, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
		Find(ctx context.Context, filter interface{}, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	}

	// Indexer creates indexes, it is satisfied by mongo.IndexView
	Indexer interface {
		CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) ([]string, error)
	}

	// EventStore The mongodb event store
	EventStore struct {
		collection Collection
		logger     cqrs.Logger
		cs         ContextStrategy
		now        func() time.Time
	}
)

// NewEventStore creates new MongoDB based event store
func NewEventStore(collection Collection, logger cqrs.Logger, options ...Option) *EventStore {
	if logger == nil {
		logger = cqrs.NopLogger
	}

	es := &EventStore{
		collection: collection,
		logger:     logger,
		cs:         NewParentContextStrategy(),
		now:        time.Now,
	}

	for _, o := range options {
		o(es)
	}

	return es
}

// StoreEvent inserts the event as a document identified by the event uuid
func (s *EventStore) StoreEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return cqrs.InvalidArgumentError("event")
	}

	data, err := event.Serialize()
	if err != nil {
		return err
	}

	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	doc[idField] = event.UUID().String()
	doc["createdAt"] = event.CreatedAt()
	doc[storedAtField] = s.now().UTC()

	ctx, cancel := s.cs.StoreEvent(ctx)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return cqrs.ErrDuplicateEvent
		}
		return err
	}

	s.logger.Debug("event stored", func(e cqrs.LoggerEntry) {
		e.String("event_uuid", event.UUID().String())
		e.String("event_name", event.Name())
	})

	return nil
}

// LoadEntityEvents returns the events with the given payload uuid sorted by creation and insertion time
func (s *EventStore) LoadEntityEvents(ctx context.Context, entityUUID string) ([]codec.Data, error) {
	ctx, cancel := s.cs.LoadEvents(ctx)
	defer cancel()

	cur, err := s.collection.Find(
		ctx,
		bson.D{
			{Key: "type", Value: string(cqrs.EventType)},
			{Key: "payload.uuid", Value: entityUUID},
		},
		options.Find().SetSort(bson.D{
			{Key: "createdAt", Value: 1},
			{Key: storedAtField, Value: 1},
		}),
	)
	if err != nil {
		return nil, err
	}

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]codec.Data, 0, len(docs))
	for _, doc := range docs {
		data := normalize(doc).(map[string]interface{})
		delete(data, idField)
		delete(data, storedAtField)

		events = append(events, data)
	}

	return events, nil
}

// EnsureIndexes creates the indexes used to load the events of an entity
func EnsureIndexes(ctx context.Context, indexes Indexer, cs ContextStrategy) error {
	if cs == nil {
		cs = NewParentContextStrategy()
	}

	ctx, cancel := cs.CreateIndices(ctx)
	defer cancel()

	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "payload.uuid", Value: 1},
				{Key: "createdAt", Value: 1},
				{Key: storedAtField, Value: 1},
			},
			Options: options.Index().SetName("entity_events"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("event_name"),
		},
	})

	return err
}

// normalize converts the decoded bson values into the structural form understood by the codec
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return normalizeMap(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case bson.D:
		res := make(map[string]interface{}, len(val))
		for _, e := range val {
			res[e.Key] = normalize(e.Value)
		}
		return res
	case bson.A:
		return normalizeList(val)
	case []interface{}:
		return normalizeList(val)
	case bson.DateTime:
		return val.Time().UTC()
	case bson.Binary:
		return val.Data
	}

	return v
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(m))
	for k, e := range m {
		res[k] = normalize(e)
	}

	return res
}

func normalizeList(l []interface{}) []interface{} {
	res := make([]interface{}, len(l))
	for i, e := range l {
		res[i] = normalize(e)
	}

	return res
}
