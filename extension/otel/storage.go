package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/hellofresh/cqrs"
)

// Ensure that we satisfy the cqrs.EventStorage interface
var _ cqrs.EventStorage = &EventStorage{}

// EventStorage traces every stored event
type EventStorage struct {
	next   cqrs.EventStorage
	tracer trace.Tracer
}

// NewEventStorage wraps storage with tracing
func NewEventStorage(next cqrs.EventStorage, opts ...Option) *EventStorage {
	return &EventStorage{next: next, tracer: newTracer(opts)}
}

// StoreEvent stores the event in a client span, a duplicate event is recorded as a span event
func (s *EventStorage) StoreEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return s.next.StoreEvent(ctx, event)
	}

	ctx, span := s.tracer.Start(ctx, "event.store "+event.Name(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(eventAttributes(event)...),
	)
	defer span.End()

	err := s.next.StoreEvent(ctx, event)
	if errors.Is(err, cqrs.ErrDuplicateEvent) {
		span.AddEvent("duplicate_event")
	}
	finish(span, err)

	return err
}
