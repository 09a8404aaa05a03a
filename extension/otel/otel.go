// Package otel decorates command handlers, event handlers and event storage with OpenTelemetry spans.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hellofresh/cqrs"
)

const instrumentationName = "github.com/hellofresh/cqrs"

// Span attribute keys
const (
	AttrCommandName = attribute.Key("cqrs.command.name")
	AttrCommandUUID = attribute.Key("cqrs.command.uuid")

	AttrEventName       = attribute.Key("cqrs.event.name")
	AttrEventUUID       = attribute.Key("cqrs.event.uuid")
	AttrEventAction     = attribute.Key("cqrs.event.action")
	AttrEventTopic      = attribute.Key("cqrs.event.topic")
	AttrEventRoutingKey = attribute.Key("cqrs.event.routing_key")
	AttrEntityUUID      = attribute.Key("cqrs.entity.uuid")
)

type config struct {
	provider trace.TracerProvider
}

// Option configures the decorators
type Option func(*config)

// WithTracerProvider sets the provider used to create the tracer, the global provider is used by default
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		if provider != nil {
			c.provider = provider
		}
	}
}

func newTracer(opts []Option) trace.Tracer {
	c := &config{provider: otel.GetTracerProvider()}
	for _, o := range opts {
		o(c)
	}

	return c.provider.Tracer(instrumentationName)
}

func eventAttributes(event *cqrs.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrEventName.String(event.Name()),
		AttrEventUUID.String(event.UUID().String()),
		AttrEventAction.String(string(event.Action())),
	}
	if event.Topic() != "" {
		attrs = append(attrs, AttrEventTopic.String(event.Topic()))
	}
	if event.RoutingKey() != "" {
		attrs = append(attrs, AttrEventRoutingKey.String(event.RoutingKey()))
	}
	if data, err := event.Serialize(); err == nil {
		if id, ok := cqrs.EntityUUID(data); ok {
			attrs = append(attrs, AttrEntityUUID.String(id))
		}
	}

	return attrs
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetStatus(codes.Ok, "")
}
