package otel

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/commandbus"
)

type commandHandler struct {
	next   commandbus.Handler
	tracer trace.Tracer
}

// WithCommandTracing wraps a command handler so that every handled command runs in its own span
func WithCommandTracing(next commandbus.Handler, opts ...Option) commandbus.Handler {
	return &commandHandler{next: next, tracer: newTracer(opts)}
}

func (h *commandHandler) HandledCommands() []string {
	return h.next.HandledCommands()
}

func (h *commandHandler) Handle(ctx context.Context, command *cqrs.Command) error {
	ctx, span := h.tracer.Start(ctx, "command.handle "+command.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrCommandName.String(command.Name()),
			AttrCommandUUID.String(command.UUID().String()),
		),
	)
	defer span.End()

	err := h.next.Handle(ctx, command)
	finish(span, err)

	return err
}

// WithEventTracing wraps an event handler so that every received event is handled in a consumer span
func WithEventTracing(next cqrs.EventHandler, opts ...Option) cqrs.EventHandler {
	tracer := newTracer(opts)

	return func(ctx context.Context, event *cqrs.Event) error {
		ctx, span := tracer.Start(ctx, "event.handle "+event.Name(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(eventAttributes(event)...),
		)
		defer span.End()

		err := next(ctx, event)
		finish(span, err)

		return err
	}
}
