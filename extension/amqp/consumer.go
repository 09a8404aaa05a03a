package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailru/easyjson"
	"github.com/streadway/amqp"
	"go.uber.org/atomic"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/metadata"
)

// Consumer states
const (
	StateIdle ConsumerState = iota
	StateListening
	StateReconnecting
	StateStopped
)

var (
	// ErrAlreadyListening occurs when Listen is called on a consumer that is listening
	ErrAlreadyListening = errors.New("cqrs: consumer is already listening")

	errWaitTimeout      = errors.New("timed out waiting for a delivery")
	errDeliveriesClosed = errors.New("delivery channel closed")
)

type (
	// ConsumerState is the lifecycle state of an EventConsumer
	ConsumerState int32

	// ConsumerConfig configures the consumption and reconnection of an EventConsumer
	ConsumerConfig struct {
		// WaitTimeout bounds the wait for a delivery before the connection is restarted, 0 waits forever
		WaitTimeout time.Duration
		// RestartAttempts is the number of reconnect attempts after a failure
		RestartAttempts int
		// RestartWaitTime is the wait between failed reconnect attempts
		RestartWaitTime time.Duration
		// ConsumerTag identifies the consumer on the broker, empty lets the broker generate one
		ConsumerTag string
		// Topology is declared on every (re)connect
		Topology Topology
	}

	// ConsumerError is returned when the consumer cannot subscribe to a resource
	ConsumerError struct {
		Resource string
		Err      error
	}

	// EventConsumer receives events from a queue and hands them to a callback.
	// Every delivery is either acknowledged or negatively acknowledged exactly once.
	EventConsumer struct {
		dial     Dialer
		registry *cqrs.EventRegistry
		config   ConsumerConfig
		logger   cqrs.Logger
		metrics  cqrs.Metrics
		waitFn   func(time.Duration)

		running   *atomic.Bool
		listening *atomic.Bool
		state     *atomic.Int32

		connection Connection
		channel    Channel
	}
)

func (s ConsumerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	}

	return fmt.Sprintf("ConsumerState(%d)", int32(s))
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("cqrs: consumer failed to subscribe to %s: %v", e.Resource, e.Err)
}

// Unwrap returns the underlying error
func (e *ConsumerError) Unwrap() error {
	return e.Err
}

// DefaultConsumerConfig returns a config waiting an hour for deliveries and restarting 5 times every 15 seconds
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		WaitTimeout:     time.Hour,
		RestartAttempts: 5,
		RestartWaitTime: 15 * time.Second,
		Topology:        DefaultTopology(),
	}
}

// NewEventConsumer returns a new EventConsumer decoding deliveries with the registry
func NewEventConsumer(
	dial Dialer,
	registry *cqrs.EventRegistry,
	config ConsumerConfig,
	logger cqrs.Logger,
	metrics cqrs.Metrics,
) (*EventConsumer, error) {
	switch {
	case dial == nil:
		return nil, cqrs.InvalidArgumentError("dial")
	case registry == nil:
		return nil, cqrs.InvalidArgumentError("registry")
	case config.WaitTimeout < 0:
		return nil, cqrs.InvalidArgumentError("config.WaitTimeout")
	case config.RestartAttempts < 0:
		return nil, cqrs.InvalidArgumentError("config.RestartAttempts")
	case config.RestartWaitTime < 0:
		return nil, cqrs.InvalidArgumentError("config.RestartWaitTime")
	}

	if logger == nil {
		logger = cqrs.NopLogger
	}
	if metrics == nil {
		metrics = cqrs.NopMetrics
	}

	return &EventConsumer{
		dial:      dial,
		registry:  registry,
		config:    config,
		logger:    logger,
		metrics:   metrics,
		waitFn:    time.Sleep,
		running:   atomic.NewBool(false),
		listening: atomic.NewBool(false),
		state:     atomic.NewInt32(int32(StateIdle)),
	}, nil
}

// WithWaitFn replaces the default function called to wait (time.Sleep)
func (c *EventConsumer) WithWaitFn(fn func(time.Duration)) {
	c.waitFn = fn
}

// State returns the current state of the consumer
func (c *EventConsumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// Stop asks the consumer to stop listening.
// A wait in progress is not interrupted, the consumer stops at the latest after WaitTimeout.
// Calling Stop before Listen has no effect.
func (c *EventConsumer) Stop() {
	c.listening.Store(false)
}

// Listen subscribes to the resource (queue) and calls callback for every received event until stopped.
// A failed initial subscription returns a ConsumerError, running out of reconnect attempts stops the consumer
// and returns nil. When ctx is done context.Canceled is returned.
func (c *EventConsumer) Listen(ctx context.Context, resource string, callback cqrs.EventHandler) error {
	switch {
	case resource == "":
		return cqrs.InvalidArgumentError("resource")
	case callback == nil:
		return cqrs.InvalidArgumentError("callback")
	}

	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	defer c.running.Store(false)

	// set before subscribing so that a Stop issued while connecting is honoured
	c.listening.Store(true)

	logger := c.logger.WithFields(func(e cqrs.LoggerEntry) {
		e.String("resource", resource)
	})

	deliveries, err := c.subscribe(resource)
	if err != nil {
		c.listening.Store(false)
		c.state.Store(int32(StateStopped))
		return &ConsumerError{Resource: resource, Err: err}
	}
	defer c.close(logger)

	if c.listening.Load() {
		c.state.Store(int32(StateListening))
		logger.Info("started listening", nil)
	}

	for c.listening.Load() {
		msg, err := c.wait(ctx, deliveries)

		timeoutOccurred := false
		switch {
		case err == nil:
			if !c.listening.Load() {
				c.release(logger, msg)
				continue
			}

			if err = c.process(ctx, logger, msg, callback); err == nil {
				continue
			}
			logger.Error("failed to settle delivery", func(e cqrs.LoggerEntry) {
				e.Error(err)
			})
		case ctx.Err() != nil:
			c.listening.Store(false)
			c.state.Store(int32(StateStopped))
			logger.Info("stopped listening", nil)
			return context.Canceled
		case err == errWaitTimeout:
			timeoutOccurred = true
			logger.Warn("timed out waiting for deliveries", func(e cqrs.LoggerEntry) {
				e.String("wait_timeout", c.config.WaitTimeout.String())
			})
		default:
			logger.Error("failed to receive deliveries", func(e cqrs.LoggerEntry) {
				e.Error(err)
			})
		}

		deliveries, err = c.reconnect(ctx, logger, resource, c.computeAttempts(timeoutOccurred))
		if err != nil {
			c.listening.Store(false)
			c.state.Store(int32(StateStopped))
			return context.Canceled
		}
		if deliveries == nil {
			logger.Error("unable to restart connection, stopping consumer", nil)
			c.Stop()
		}
	}

	c.state.Store(int32(StateStopped))
	logger.Info("stopped listening", nil)

	return nil
}

// computeAttempts returns the number of reconnect attempts, a timeout is always followed by at least one attempt
func (c *EventConsumer) computeAttempts(timeoutOccurred bool) int {
	attempts := c.config.RestartAttempts
	if timeoutOccurred && attempts == 0 {
		attempts = 1
	}

	return attempts
}

// wait blocks until a delivery arrives, the wait timeout expires, the deliveries are closed or ctx is done
func (c *EventConsumer) wait(ctx context.Context, deliveries <-chan amqp.Delivery) (amqp.Delivery, error) {
	var timeout <-chan time.Time
	if c.config.WaitTimeout > 0 {
		timer := time.NewTimer(c.config.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return amqp.Delivery{}, ctx.Err()
	case <-timeout:
		return amqp.Delivery{}, errWaitTimeout
	case msg, ok := <-deliveries:
		if !ok {
			return amqp.Delivery{}, errDeliveriesClosed
		}
		return msg, nil
	}
}

// process decodes the delivery, calls the callback and settles the delivery.
// The returned error is only set when the delivery could not be settled.
func (c *EventConsumer) process(ctx context.Context, logger cqrs.Logger, msg amqp.Delivery, callback cqrs.EventHandler) error {
	logger = logger.WithFields(func(e cqrs.LoggerEntry) {
		e.Any("delivery_tag", msg.DeliveryTag)
		e.String("message_id", msg.MessageId)
	})
	logger.Debug("delivery received", nil)

	event, err := c.decode(msg)
	if err != nil {
		c.metrics.EventReceived("", false)
		logger.Error("failed to decode delivery, rejecting message", func(e cqrs.LoggerEntry) {
			e.Error(err)
		})

		return msg.Nack(false, false)
	}
	c.metrics.EventReceived(event.Name(), true)

	logger = logger.WithFields(func(e cqrs.LoggerEntry) {
		e.String("event_name", event.Name())
		e.String("event_uuid", event.UUID().String())
	})

	start := time.Now()
	if err := invoke(ctx, callback, event); err != nil {
		c.metrics.EventHandled(event.Name(), false, time.Since(start))
		logger.Warn("failed to handle event, requeueing message", func(e cqrs.LoggerEntry) {
			e.Error(err)
		})

		return msg.Nack(false, true)
	}
	c.metrics.EventHandled(event.Name(), true, time.Since(start))

	return msg.Ack(false)
}

// release returns a delivery received after the consumer was stopped to the queue
func (c *EventConsumer) release(logger cqrs.Logger, msg amqp.Delivery) {
	if err := msg.Nack(false, true); err != nil {
		logger.Warn("failed to requeue message after stop", func(e cqrs.LoggerEntry) {
			e.Error(err)
		})
	}
}

// decode turns the delivery into an event adding the delivery information to its metadata
func (c *EventConsumer) decode(msg amqp.Delivery) (*cqrs.Event, error) {
	env := &envelope{}
	if err := easyjson.Unmarshal(msg.Body, env); err != nil {
		return nil, err
	}

	event, err := c.registry.DecodeEvent(env.data())
	if err != nil {
		return nil, err
	}

	event.AddMetadata(deliveryMetadata(msg))
	if msg.Exchange != "" {
		event.SetTopic(msg.Exchange)
	}
	if msg.RoutingKey != "" {
		event.SetRoutingKey(msg.RoutingKey)
	}

	return event, nil
}

// subscribe connects to the broker and starts consuming resource with a prefetch of one message
func (c *EventConsumer) subscribe(resource string) (<-chan amqp.Delivery, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	deliveries, err := func() (<-chan amqp.Delivery, error) {
		if err := c.config.Topology.Declare(ch); err != nil {
			return nil, err
		}

		// Only one unacknowledged message at a time
		if err := ch.Qos(1, 0, false); err != nil {
			return nil, err
		}

		return ch.Consume(resource, c.config.ConsumerTag, false, false, false, false, nil)
	}()
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	c.connection = conn
	c.channel = ch

	return deliveries, nil
}

// reconnect closes the current connection and tries to subscribe again.
// nil deliveries are returned when all attempts failed, an error only when ctx is done.
func (c *EventConsumer) reconnect(ctx context.Context, logger cqrs.Logger, resource string, attempts int) (<-chan amqp.Delivery, error) {
	c.state.Store(int32(StateReconnecting))
	c.close(logger)

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Info("restarting connection", func(e cqrs.LoggerEntry) {
			e.Int("attempt", attempt)
		})

		deliveries, err := c.subscribe(resource)
		if err == nil {
			c.metrics.ConsumerReconnected(resource, true)
			c.state.Store(int32(StateListening))
			return deliveries, nil
		}
		c.metrics.ConsumerReconnected(resource, false)

		logger.Error("failed to restart connection", func(e cqrs.LoggerEntry) {
			e.Error(err)
			e.Int("attempt", attempt)
		})

		if attempt < attempts && c.config.RestartWaitTime > 0 {
			logger.Info("waiting before restarting connection", func(e cqrs.LoggerEntry) {
				e.String("restart_wait_time", c.config.RestartWaitTime.String())
			})
			c.waitFn(c.config.RestartWaitTime)
		}
	}

	return nil, nil
}

func (c *EventConsumer) close(logger cqrs.Logger) {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && err != amqp.ErrClosed {
			logger.Warn("failed to close amqp channel", func(e cqrs.LoggerEntry) {
				e.Error(err)
			})
		}
		c.channel = nil
	}

	if c.connection != nil {
		if err := c.connection.Close(); err != nil && err != amqp.ErrClosed {
			logger.Error("failed to close amqp connection", func(e cqrs.LoggerEntry) {
				e.Error(err)
			})
		}
		c.connection = nil
	}
}

// invoke calls the callback turning a panic into an error
func invoke(ctx context.Context, callback cqrs.EventHandler, event *cqrs.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()

	return callback(ctx, event)
}

// deliveryMetadata returns the delivery information added to the metadata of received events
func deliveryMetadata(msg amqp.Delivery) *metadata.Metadata {
	md := metadata.New().
		Set("exchange", msg.Exchange).
		Set("routing_key", msg.RoutingKey).
		Set("consumer_tag", msg.ConsumerTag).
		Set("delivery_tag", msg.DeliveryTag).
		Set("redelivered", msg.Redelivered)

	if msg.ContentType != "" {
		md.Set("content_type", msg.ContentType)
	}
	if msg.DeliveryMode != 0 {
		md.Set("delivery_mode", msg.DeliveryMode)
	}
	if msg.MessageId != "" {
		md.Set("message_id", msg.MessageId)
	}
	if len(msg.Headers) > 0 {
		md.Set("headers", map[string]interface{}(msg.Headers))
	}

	return md
}
