// Package amqp publishes and consumes events through an AMQP 0.9.1 broker such as RabbitMQ.
package amqp

import (
	"time"

	"github.com/streadway/amqp"

	"github.com/hellofresh/cqrs"
)

// DefaultExchange is the exchange events are published to when they have no topic
const DefaultExchange = "app.events"

type (
	// Connection represents a connection to the broker
	Connection interface {
		Channel() (Channel, error)
		Close() error
	}

	// Channel represents the part of an amqp channel used to publish and consume events
	Channel interface {
		ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
		QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
		QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
		Qos(prefetchCount, prefetchSize int, global bool) error
		Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
		Tx() error
		TxCommit() error
		TxRollback() error
		Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
		Close() error
	}

	// Dialer returns a new connection to the broker
	Dialer func() (Connection, error)

	// Topology describes the exchange and the queues bound to it
	Topology struct {
		Exchange string
		Kind     string
		Queues   []string
	}

	connection struct {
		conn *amqp.Connection
	}
)

// NewDialer returns a Dialer connecting to url and identifying itself as connectionName
func NewDialer(url, connectionName string) (Dialer, error) {
	if _, err := amqp.ParseURI(url); err != nil {
		return nil, cqrs.InvalidArgumentError("url")
	}

	return func() (Connection, error) {
		return Dial(url, connectionName)
	}, nil
}

// Dial connects to the broker at url
func Dial(url, connectionName string) (Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": connectionName,
		},
	})
	if err != nil {
		return nil, err
	}

	return &connection{conn: conn}, nil
}

func (c *connection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}

	return ch, nil
}

func (c *connection) Close() error {
	return c.conn.Close()
}

// DefaultTopology returns a fanout topology on the default exchange with the given durable queues
func DefaultTopology(queues ...string) Topology {
	return Topology{
		Exchange: DefaultExchange,
		Kind:     amqp.ExchangeFanout,
		Queues:   queues,
	}
}

// Declare idempotently declares the exchange and the durable queues and binds them
func (t Topology) Declare(ch Channel) error {
	if t.Exchange == "" {
		return nil
	}

	kind := t.Kind
	if kind == "" {
		kind = amqp.ExchangeFanout
	}

	if err := ch.ExchangeDeclare(t.Exchange, kind, true, false, false, false, nil); err != nil {
		return err
	}

	for _, queue := range t.Queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return err
		}

		if err := ch.QueueBind(queue, "", t.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}
