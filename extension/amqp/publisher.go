package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mailru/easyjson"
	"github.com/streadway/amqp"

	"github.com/hellofresh/cqrs"
)

// ErrTopicRequired occurs when an event without topic is published by a bus without default exchange
var ErrTopicRequired = errors.New("cqrs: event topic is required")

// Ensure that we satisfy the cqrs.EventPublisher interface
var _ cqrs.EventPublisher = &EventBus{}

// PublishError is returned when the broker fails during the publication of an event
type PublishError struct {
	Event string
	Topic string
	Op    string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("cqrs: failed to publish event %s to %s (%s): %v", e.Event, e.Topic, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *PublishError) Unwrap() error {
	return e.Err
}

// EventBus publishes events to an exchange using a transaction and persistent delivery
type EventBus struct {
	dial     Dialer
	topology Topology
	logger   cqrs.Logger
	metrics  cqrs.Metrics

	connection Connection
	mux        sync.Mutex
}

// NewEventBus returns a new EventBus.
// The topology is declared before every publication and its exchange is used for events without topic.
func NewEventBus(dial Dialer, topology Topology, logger cqrs.Logger, metrics cqrs.Metrics) (*EventBus, error) {
	if dial == nil {
		return nil, cqrs.InvalidArgumentError("dial")
	}
	if logger == nil {
		logger = cqrs.NopLogger
	}
	if metrics == nil {
		metrics = cqrs.NopMetrics
	}

	return &EventBus{
		dial:     dial,
		topology: topology,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// PublishEvent publishes the event to its topic.
// Events without topic are published to the exchange of the bus topology.
func (b *EventBus) PublishEvent(ctx context.Context, event *cqrs.Event) error {
	if event == nil {
		return cqrs.InvalidArgumentError("event")
	}

	if event.Topic() == "" {
		event.SetTopic(b.topology.Exchange)
	}
	if event.Topic() == "" {
		return ErrTopicRequired
	}

	start := time.Now()
	err := b.publish(ctx, event)
	b.metrics.EventPublished(event.Name(), err == nil, time.Since(start))
	if err != nil {
		b.logger.Error("failed to publish event", func(e cqrs.LoggerEntry) {
			e.Error(err)
			e.String("event_name", event.Name())
			e.String("event_uuid", event.UUID().String())
			e.String("topic", event.Topic())
		})
		return err
	}

	b.logger.Debug("event published", func(e cqrs.LoggerEntry) {
		e.String("event_name", event.Name())
		e.String("event_uuid", event.UUID().String())
		e.String("topic", event.Topic())
	})

	return nil
}

// Close closes the broker connection if one is open
func (b *EventBus) Close() error {
	b.mux.Lock()
	defer b.mux.Unlock()

	if b.connection == nil {
		return nil
	}

	err := b.connection.Close()
	b.connection = nil

	return err
}

func (b *EventBus) publish(ctx context.Context, event *cqrs.Event) error {
	fail := func(op string, err error) error {
		return &PublishError{Event: event.Name(), Topic: event.Topic(), Op: op, Err: err}
	}

	env, err := newEnvelope(event)
	if err != nil {
		return fail("encode", err)
	}
	body, err := easyjson.Marshal(env)
	if err != nil {
		return fail("encode", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := b.channel()
	if err != nil {
		return fail("channel", err)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			b.logger.Warn("failed to close amqp channel", func(e cqrs.LoggerEntry) {
				e.Error(err)
			})
		}
	}()

	if err := b.topology.Declare(ch); err != nil {
		return fail("declare", err)
	}

	if err := ch.Tx(); err != nil {
		return fail("tx", err)
	}

	err = ch.Publish(event.Topic(), event.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.UUID().String(),
		Timestamp:    event.CreatedAt(),
		Type:         event.Name(),
		Body:         body,
	})
	if err != nil {
		b.rollback(ch)
		return fail("publish", err)
	}

	if err := ch.TxCommit(); err != nil {
		b.rollback(ch)
		return fail("commit", err)
	}

	return nil
}

func (b *EventBus) rollback(ch Channel) {
	if err := ch.TxRollback(); err != nil {
		b.logger.Warn("failed to rollback amqp transaction", func(e cqrs.LoggerEntry) {
			e.Error(err)
		})
	}
}

// channel opens a channel reconnecting when the connection was closed
func (b *EventBus) channel() (Channel, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	for attempt := 0; ; attempt++ {
		if b.connection == nil {
			conn, err := b.dial()
			if err != nil {
				return nil, err
			}
			b.connection = conn
		}

		ch, err := b.connection.Channel()
		if err == amqp.ErrClosed && attempt == 0 {
			if err := b.connection.Close(); err != nil && err != amqp.ErrClosed {
				b.logger.Error("failed to close amqp connection", func(e cqrs.LoggerEntry) {
					e.Error(err)
				})
			}
			b.connection = nil
			continue
		}

		return ch, err
	}
}
