package config

import (
	"context"
	"database/sql"
	"errors"

	// postgres driver
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/extension/mongodb"
	"github.com/hellofresh/cqrs/extension/postgres"
	"github.com/hellofresh/cqrs/projection"
)

// Store stores and loads events
type Store interface {
	cqrs.EventStorage
	projection.EventLoader
}

// NewStore connects the configured event store, the returned func releases the connection
func (c Config) NewStore(ctx context.Context, logger cqrs.Logger, zapLogger *zap.Logger) (Store, func(), error) {
	if c.StoreDriver == StorePostgres {
		return c.newPostgresStore(ctx, logger, zapLogger)
	}

	return c.newMongoStore(ctx, logger, zapLogger)
}

func (c Config) newMongoStore(ctx context.Context, logger cqrs.Logger, zapLogger *zap.Logger) (Store, func(), error) {
	client, err := mongo.Connect(options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			zapLogger.With(zap.Error(err)).Warn("mongo client Disconnect return an error")
		}
	}

	collection := client.Database(c.MongoDatabase).Collection(c.MongoCollection)
	strategy := mongodb.NewTimeoutContextStrategy()
	if err := mongodb.EnsureIndexes(ctx, collection.Indexes(), strategy); err != nil {
		closer()
		return nil, nil, err
	}

	return mongodb.NewEventStore(collection, logger, mongodb.ContextTimeout()), closer, nil
}

func (c Config) newPostgresStore(ctx context.Context, logger cqrs.Logger, zapLogger *zap.Logger) (Store, func(), error) {
	db, err := sql.Open("postgres", c.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if err := db.Close(); err != nil {
			zapLogger.With(zap.Error(err)).Warn("postgresDB.Close return an error")
		}
	}

	store, err := postgres.NewEventStore(db, c.PostgresTable, logger)
	if err != nil {
		closer()
		return nil, nil, err
	}

	if err := store.Create(ctx); err != nil && !errors.Is(err, postgres.ErrTableAlreadyExists) {
		closer()
		return nil, nil, err
	}

	return store, closer, nil
}
