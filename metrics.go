package cqrs

import "time"

// Metrics a structured metrics interface
type Metrics interface {
	// CommandDispatched is called after all handlers of a command ran
	CommandDispatched(name string, success bool, duration time.Duration)
	// EventPublished is called after an event publication attempt
	EventPublished(name string, success bool, duration time.Duration)
	// EventReceived is called for every delivery, name is empty when the delivery could not be decoded
	EventReceived(name string, decoded bool)
	// EventHandled is called after the consumer callback ran
	EventHandled(name string, acknowledged bool, duration time.Duration)
	// ConsumerReconnected is called after every reconnect attempt of a consumer
	ConsumerReconnected(resource string, success bool)
}
