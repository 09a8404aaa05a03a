// Package postgres stores events in a postgres table holding the structural form of every event as jsonb.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/projection"
)

const uniqueViolation = "23505"

var (
	// ErrTableAlreadyExists occurs when table cannot be created as it exists already
	ErrTableAlreadyExists = errors.New("cqrs: table already exists")

	// Ensure that we satisfy the cqrs.EventStorage interface
	_ cqrs.EventStorage = &EventStore{}
	// Ensure that we satisfy the projection.EventLoader interface
	_ projection.EventLoader = &EventStore{}
)

// EventStore a postgres event store implementation
type EventStore struct {
	db        *sql.DB
	table     string
	tableName string
	logger    cqrs.Logger
}

// NewEventStore return a new postgres.EventStore storing events in the given table
func NewEventStore(db *sql.DB, table string, logger cqrs.Logger) (*EventStore, error) {
	switch {
	case db == nil:
		return nil, cqrs.InvalidArgumentError("db")
	case strings.TrimSpace(table) == "":
		return nil, cqrs.InvalidArgumentError("table")
	}
	if logger == nil {
		logger = cqrs.NopLogger
	}

	return &EventStore{
		db:        db,
		table:     table,
		tableName: pq.QuoteIdentifier(table),
		logger:    logger,
	}, nil
}

// Create creates the database table and indexes needed to store events
func (e *EventStore) Create(ctx context.Context) error {
	if e.tableExists(ctx) {
		return ErrTableAlreadyExists
	}

	queries := []string{
		/* #nosec G201 */
		fmt.Sprintf(`CREATE TABLE %s (
	no BIGSERIAL,
	uuid UUID NOT NULL,
	name VARCHAR(150) NOT NULL,
	entity_uuid VARCHAR(36),
	data JSONB NOT NULL,
	created_at TIMESTAMP(0) WITH TIME ZONE NOT NULL,
	PRIMARY KEY (no),
	UNIQUE (uuid)
)`, e.tableName),
		/* #nosec G201 */
		fmt.Sprintf(`CREATE INDEX ON %s (entity_uuid, created_at, no)`, e.tableName),
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			if errRollback := tx.Rollback(); errRollback != nil {
				e.logger.Error("could not rollback transaction", func(e cqrs.LoggerEntry) {
					e.Error(errRollback)
					e.String("query", q)
				})
			}

			return err
		}
	}

	return tx.Commit()
}

// StoreEvent inserts the structural form of the event
func (e *EventStore) StoreEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return cqrs.InvalidArgumentError("event")
	}

	data, err := event.Serialize()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var entityUUID sql.NullString
	if id, ok := cqrs.EntityUUID(data); ok {
		entityUUID = sql.NullString{String: id, Valid: true}
	}

	_, err = e.db.ExecContext(
		ctx,
		/* #nosec G201 */
		fmt.Sprintf(
			"INSERT INTO %s (uuid, name, entity_uuid, data, created_at) VALUES ($1, $2, $3, $4, $5)",
			e.tableName,
		),
		event.UUID().String(),
		event.Name(),
		entityUUID,
		encoded,
		event.CreatedAt(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return cqrs.ErrDuplicateEvent
		}

		e.logger.Warn("failed to insert event", func(entry cqrs.LoggerEntry) {
			entry.Error(err)
			entry.String("table", e.table)
			entry.String("event_uuid", event.UUID().String())
		})

		return err
	}

	e.logger.Debug("event stored", func(entry cqrs.LoggerEntry) {
		entry.String("table", e.table)
		entry.String("event_uuid", event.UUID().String())
		entry.String("event_name", event.Name())
	})

	return nil
}

// LoadEntityEvents returns the events with the given payload uuid ordered by creation time and insertion order
func (e *EventStore) LoadEntityEvents(ctx context.Context, entityUUID string) ([]codec.Data, error) {
	rows, err := e.db.QueryContext(
		ctx,
		/* #nosec G201 */
		fmt.Sprintf("SELECT data FROM %s WHERE entity_uuid = $1 ORDER BY created_at, no", e.tableName),
		entityUUID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []codec.Data
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		var data map[string]interface{}
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		if typ, _ := data["type"].(string); typ != string(cqrs.EventType) {
			continue
		}

		events = append(events, data)
	}

	return events, rows.Err()
}

func (e *EventStore) tableExists(ctx context.Context) bool {
	var exists bool
	err := e.db.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		e.table,
	).Scan(&exists)

	if err != nil {
		e.logger.Warn("error on reading from information_schema", func(entry cqrs.LoggerEntry) {
			entry.Error(err)
			entry.String("table", e.table)
		})

		return false
	}

	return exists
}
