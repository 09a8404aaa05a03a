// Package projection reconstructs the current state of an entity by folding the events referencing it.
package projection

import (
	"context"
	"fmt"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
)

type (
	// EventLoader loads the structural form of the events referencing an entity
	EventLoader interface {
		// LoadEntityEvents returns the events whose payload uuid equals entityUUID ordered by ascending creation time
		LoadEntityEvents(ctx context.Context, entityUUID string) ([]codec.Data, error)
	}

	// EntityProjector projects entities from the events of an EventLoader
	EntityProjector struct {
		loader   EventLoader
		registry *cqrs.EventRegistry
		logger   cqrs.Logger
	}
)

// NewEntityProjector returns a new EntityProjector
func NewEntityProjector(loader EventLoader, registry *cqrs.EventRegistry, logger cqrs.Logger) (*EntityProjector, error) {
	switch {
	case loader == nil:
		return nil, cqrs.InvalidArgumentError("loader")
	case registry == nil:
		return nil, cqrs.InvalidArgumentError("registry")
	}

	if logger == nil {
		logger = cqrs.NopLogger
	}

	return &EntityProjector{
		loader:   loader,
		registry: registry,
		logger:   logger,
	}, nil
}

// FindEntity returns the projected payload of the entity
func (p *EntityProjector) FindEntity(ctx context.Context, entityUUID cqrs.UUID) (cqrs.Serializable, error) {
	event, err := p.FindEvent(ctx, entityUUID)
	if err != nil {
		return nil, err
	}

	return event.Payload(), nil
}

// FindEvent folds all events of the entity into a single event.
// Later values overwrite earlier ones while nested maps are merged.
func (p *EntityProjector) FindEvent(ctx context.Context, entityUUID cqrs.UUID) (*cqrs.Event, error) {
	id := entityUUID.String()
	logger := p.logger.WithFields(func(e cqrs.LoggerEntry) {
		e.String("entity_uuid", id)
	})

	fail := func(err error) (*cqrs.Event, error) {
		logger.Warn("failed to project entity", func(e cqrs.LoggerEntry) {
			e.Error(err)
		})
		return nil, &Error{EntityUUID: id, Err: err}
	}

	events, err := p.loader.LoadEntityEvents(ctx, id)
	if err != nil {
		return fail(err)
	}
	if len(events) == 0 {
		return fail(ErrNotFound)
	}

	state := map[string]interface{}{}
	for _, event := range events {
		state = MergeRecursive(state, event)
	}

	logger.Debug("events folded", func(e cqrs.LoggerEntry) {
		e.Int("events", len(events))
	})

	name, _ := state["name"].(string)
	if name == "" {
		return fail(ErrInvalidEventFormat)
	}
	if !p.registry.IsRegistered(name) {
		return fail(fmt.Errorf("%w: %s", ErrUnknownEvent, name))
	}

	event, err := p.registry.DecodeEvent(state)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidEventFormat, err))
	}

	return event, nil
}
