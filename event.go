package cqrs

import (
	"context"

	"github.com/hellofresh/cqrs/codec"
)

// Actions an event can describe
const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type (
	// Action is the kind of change an event describes
	Action string

	// Event is a message describing something that happened to an entity
	Event struct {
		Message
		payload    Serializable
		action     Action
		topic      string
		routingKey string
	}

	// EventHandler handles a received event
	EventHandler func(ctx context.Context, event *Event) error

	// EventPublisher publishes events to the subscribers of their topic
	EventPublisher interface {
		PublishEvent(ctx context.Context, event *Event) error
	}
)

// IsValid returns true for the known actions
func (a Action) IsValid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}

	return false
}

// NewEvent returns a new event carrying payload
func NewEvent(name string, action Action, payload Serializable, opts ...MessageOption) (*Event, error) {
	switch {
	case payload == nil:
		return nil, ValidationError("payload cannot be nil")
	case !action.IsValid():
		return nil, ValidationError("action must be one of insert, update or delete")
	}

	m, err := newMessage(EventType, name, opts)
	if err != nil {
		return nil, err
	}

	return &Event{Message: m, payload: payload, action: action}, nil
}

// Payload returns the payload of the event
func (e *Event) Payload() Serializable {
	return e.payload
}

// Action returns the kind of change the event describes
func (e *Event) Action() Action {
	return e.action
}

// Topic returns the topic (exchange) the event is published to
func (e *Event) Topic() string {
	return e.topic
}

// SetTopic sets the topic (exchange) the event is published to
func (e *Event) SetTopic(topic string) {
	e.topic = topic
}

// RoutingKey returns the routing key used when publishing the event
func (e *Event) RoutingKey() string {
	return e.routingKey
}

// SetRoutingKey sets the routing key used when publishing the event
func (e *Event) SetRoutingKey(key string) {
	e.routingKey = key
}

// Serialize returns the structural form of the event
func (e *Event) Serialize() (codec.Data, error) {
	payload, err := e.payload.Serialize()
	if err != nil {
		return nil, err
	}

	data := e.serialize()
	data["payload"] = payload
	data["action"] = string(e.action)
	if e.topic != "" {
		data["topic"] = e.topic
	}
	if e.routingKey != "" {
		data["routing_key"] = e.routingKey
	}

	return data, nil
}

// EntityUUID returns the uuid of the entity the event is about, taken from the serialized payload
func EntityUUID(data codec.Data) (string, bool) {
	payload, ok := data["payload"].(map[string]interface{})
	if !ok {
		return "", false
	}

	id, ok := payload["uuid"].(string)
	return id, ok && id != ""
}
