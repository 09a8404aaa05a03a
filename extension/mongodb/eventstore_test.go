package mongodb

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/projection"
)

const authorUUID = "068332f0-9465-47c4-a7c2-402e9ccabfdc"

type (
	author struct {
		UUID      cqrs.UUID
		FirstName string   `codec:"firstName"`
		LastName  string   `codec:"lastName"`
		Tags      []string `codec:"tags"`
	}

	fakeCollection struct {
		inserted  []interface{}
		insertErr error

		filter  interface{}
		docs    []interface{}
		findErr error
	}

	fakeIndexer struct {
		models []mongo.IndexModel
		ctx    context.Context
	}
)

func (a *author) Serialize() (codec.Data, error) {
	return codec.Serialize(a)
}

func (a *author) Unserialize(data codec.Data) error {
	return codec.Deserialize(a, data)
}

func (c *fakeCollection) InsertOne(_ context.Context, document interface{}, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	c.inserted = append(c.inserted, document)

	return &mongo.InsertOneResult{InsertedID: document.(bson.M)[idField]}, nil
}

func (c *fakeCollection) Find(_ context.Context, filter interface{}, _ ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	c.filter = filter
	if c.findErr != nil {
		return nil, c.findErr
	}

	return mongo.NewCursorFromDocuments(c.docs, nil, nil)
}

func (i *fakeIndexer) CreateMany(ctx context.Context, models []mongo.IndexModel, _ ...options.Lister[options.CreateIndexesOptions]) ([]string, error) {
	i.ctx = ctx
	i.models = models

	return []string{"entity_events", "event_name"}, nil
}

func newAuthorEvent(name string, action cqrs.Action, payload *author, createdAt time.Time) *cqrs.Event {
	id, err := cqrs.ParseUUID(authorUUID)
	Expect(err).ToNot(HaveOccurred())
	payload.UUID = id

	event, err := cqrs.NewEvent(name, action, payload, cqrs.WithCreatedAt(createdAt))
	Expect(err).ToNot(HaveOccurred())

	return event
}

var _ = Describe("MongoDB Event Store", func() {
	var (
		ctx        context.Context
		collection *fakeCollection
		store      *EventStore
		storedAt   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		collection = &fakeCollection{}
		storedAt = time.Date(2019, 1, 2, 3, 4, 6, 0, time.UTC)
		store = NewEventStore(collection, nil)
		store.now = func() time.Time { return storedAt }
	})

	Describe("when I store an event", func() {
		It("should insert the event document identified by the event uuid", func() {
			createdAt := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
			event := newAuthorEvent("library.author.created", cqrs.ActionInsert, &author{FirstName: "J", LastName: "T"}, createdAt)

			Expect(store.StoreEvent(ctx, event)).To(Succeed())
			Expect(collection.inserted).To(HaveLen(1))

			doc := collection.inserted[0].(bson.M)
			Expect(doc[idField]).To(Equal(event.UUID().String()))
			Expect(doc["uuid"]).To(Equal(event.UUID().String()))
			Expect(doc["type"]).To(Equal("event"))
			Expect(doc["name"]).To(Equal("library.author.created"))
			Expect(doc["createdAt"]).To(Equal(createdAt))
			Expect(doc[storedAtField]).To(Equal(storedAt))
		})

		It("should report duplicate events", func() {
			collection.insertErr = mongo.WriteException{
				WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
			}
			event := newAuthorEvent("library.author.created", cqrs.ActionInsert, &author{}, time.Now())

			Expect(store.StoreEvent(ctx, event)).To(Equal(cqrs.ErrDuplicateEvent))
		})

		It("should return insert failures", func() {
			insertErr := errors.New("connection reset")
			collection.insertErr = insertErr
			event := newAuthorEvent("library.author.created", cqrs.ActionInsert, &author{}, time.Now())

			Expect(store.StoreEvent(ctx, event)).To(Equal(insertErr))
		})

		It("should refuse a nil event", func() {
			Expect(store.StoreEvent(ctx, nil)).To(Equal(cqrs.InvalidArgumentError("event")))
		})
	})

	Describe("when I load the events of an entity", func() {
		It("should filter on the entity uuid", func() {
			_, err := store.LoadEntityEvents(ctx, authorUUID)

			Expect(err).ToNot(HaveOccurred())
			Expect(collection.filter).To(Equal(bson.D{
				{Key: "type", Value: "event"},
				{Key: "payload.uuid", Value: authorUUID},
			}))
		})

		It("should return the find failure", func() {
			findErr := errors.New("server selection timeout")
			collection.findErr = findErr

			events, err := store.LoadEntityEvents(ctx, authorUUID)

			Expect(err).To(Equal(findErr))
			Expect(events).To(BeNil())
		})

		It("should return the stored events in their structural form", func() {
			createdAt := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
			event := newAuthorEvent("library.author.created", cqrs.ActionInsert, &author{FirstName: "J", LastName: "T", Tags: []string{"fantasy"}}, createdAt)
			Expect(store.StoreEvent(ctx, event)).To(Succeed())
			collection.docs = collection.inserted

			events, err := store.LoadEntityEvents(ctx, authorUUID)

			Expect(err).ToNot(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0]).ToNot(HaveKey(idField))
			Expect(events[0]).ToNot(HaveKey(storedAtField))
			Expect(events[0]["createdAt"]).To(Equal(createdAt))
			Expect(events[0]["payload"]).To(Equal(map[string]interface{}{
				"uuid":      authorUUID,
				"firstName": "J",
				"lastName":  "T",
				"tags":      []interface{}{"fantasy"},
			}))
		})

		It("should project the entity from the stored events", func() {
			now := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)
			created := newAuthorEvent("library.author.created", cqrs.ActionInsert, &author{FirstName: "J", LastName: "T"}, now)
			updated := newAuthorEvent("library.author.updated", cqrs.ActionUpdate, &author{FirstName: "J", LastName: "Tolkien"}, now.Add(time.Hour))
			Expect(store.StoreEvent(ctx, created)).To(Succeed())
			Expect(store.StoreEvent(ctx, updated)).To(Succeed())
			collection.docs = collection.inserted

			registry := cqrs.NewEventRegistry()
			Expect(registry.RegisterEvents(map[string]cqrs.PayloadInitiator{
				"library.author.created": func() cqrs.Serializable { return &author{} },
				"library.author.updated": func() cqrs.Serializable { return &author{} },
			})).To(Succeed())

			projector, err := projection.NewEntityProjector(store, registry, nil)
			Expect(err).ToNot(HaveOccurred())

			entity, err := projector.FindEntity(ctx, created.Payload().(*author).UUID)

			Expect(err).ToNot(HaveOccurred())
			Expect(entity.(*author).FirstName).To(Equal("J"))
			Expect(entity.(*author).LastName).To(Equal("Tolkien"))
		})
	})

	Describe("when I ensure the indexes", func() {
		It("should create the entity and name indexes", func() {
			indexer := &fakeIndexer{}

			Expect(EnsureIndexes(ctx, indexer, NewTimeoutContextStrategy())).To(Succeed())

			Expect(indexer.models).To(HaveLen(2))
			Expect(indexer.models[0].Keys).To(Equal(bson.D{
				{Key: "payload.uuid", Value: 1},
				{Key: "createdAt", Value: 1},
				{Key: storedAtField, Value: 1},
			}))
			_, hasDeadline := indexer.ctx.Deadline()
			Expect(hasDeadline).To(BeTrue())
		})
	})
})

var _ = Describe("normalize", func() {
	It("should convert nested bson values", func() {
		at := time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC)

		res := normalize(bson.M{
			"metadata": bson.D{{Key: "user", Value: "admin"}},
			"tags":     bson.A{"a", bson.D{{Key: "b", Value: int32(1)}}},
			"at":       bson.NewDateTimeFromTime(at),
			"raw":      bson.Binary{Data: []byte("hi")},
		})

		Expect(res).To(Equal(map[string]interface{}{
			"metadata": map[string]interface{}{"user": "admin"},
			"tags":     []interface{}{"a", map[string]interface{}{"b": int32(1)}},
			"at":       at,
			"raw":      []byte("hi"),
		}))
	})
})
