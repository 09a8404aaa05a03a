package cqrs

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/metadata"
)

var (
	// ErrUnknownEvent occurs when an event name is not registered
	ErrUnknownEvent = errors.New("cqrs: unknown event")
	// ErrDuplicateEventName occurs when an event name is already registered
	ErrDuplicateEventName = errors.New("cqrs: event name is already registered")
	// ErrInitiatorInvalidResult occurs when a PayloadInitiator returns a reference to nil
	ErrInitiatorInvalidResult = errors.New("cqrs: initiator must return a pointer that is not nil")
	// ErrNotAnEvent occurs when decoding a message that is not of type event
	ErrNotAnEvent = errors.New("cqrs: message is not an event")
	// ErrEventNameMissing occurs when decoding an event without a name
	ErrEventNameMissing = errors.New("cqrs: event name is missing")
	// ErrInvalidEventData occurs when the event data is malformed
	ErrInvalidEventData = errors.New("cqrs: event data is malformed")
)

type (
	// PayloadInitiator creates a new empty instance of a payload
	// this instance is then used to Unserialize the payload data
	PayloadInitiator func() Serializable

	// EventRegistry is the table of supported events mapping an event name to its payload
	EventRegistry struct {
		initiators map[string]PayloadInitiator
	}
)

// NewEventRegistry returns a new and empty EventRegistry
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		initiators: map[string]PayloadInitiator{},
	}
}

// Register registers an event name and the way to initialize its payload
func (r *EventRegistry) Register(name string, initiator PayloadInitiator) error {
	switch {
	case name == "":
		return InvalidArgumentError("name")
	case initiator == nil:
		return InvalidArgumentError("initiator")
	}

	if _, known := r.initiators[name]; known {
		return ErrDuplicateEventName
	}

	checkPayload := initiator()
	if checkPayload == nil {
		return ErrInitiatorInvalidResult
	}
	if rv := reflect.ValueOf(checkPayload); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ErrInitiatorInvalidResult
	}

	r.initiators[name] = initiator

	return nil
}

// RegisterEvents registers multiple events
func (r *EventRegistry) RegisterEvents(events map[string]PayloadInitiator) error {
	for name, initiator := range events {
		if err := r.Register(name, initiator); err != nil {
			return err
		}
	}

	return nil
}

// IsRegistered returns true when the event name is known
func (r *EventRegistry) IsRegistered(name string) bool {
	_, known := r.initiators[name]
	return known
}

// NewPayload returns a new empty payload for the event name
func (r *EventRegistry) NewPayload(name string) (Serializable, error) {
	initiator, known := r.initiators[name]
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}

	return initiator(), nil
}

// DecodeEvent rebuilds an event from its structural form.
// The data must be of type event and carry a registered name.
func (r *EventRegistry) DecodeEvent(data codec.Data) (*Event, error) {
	if typ, _ := data["type"].(string); MessageType(typ) != EventType {
		return nil, ErrNotAnEvent
	}

	name, _ := data["name"].(string)
	if name == "" {
		return nil, ErrEventNameMissing
	}

	payload, err := r.NewPayload(name)
	if err != nil {
		return nil, err
	}

	payloadData, ok := data["payload"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: payload of %s is not a map", ErrInvalidEventData, name)
	}
	if err := payload.Unserialize(payloadData); err != nil {
		return nil, err
	}

	var opts []MessageOption
	if id, ok := data["uuid"].(string); ok && id != "" {
		opts = append(opts, WithUUIDString(id))
	}

	switch createdAt := data["createdAt"].(type) {
	case nil:
	case string:
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("%w: createdAt %v", ErrInvalidEventData, err)
		}
		opts = append(opts, WithCreatedAt(t))
	case time.Time:
		opts = append(opts, WithCreatedAt(createdAt))
	default:
		return nil, fmt.Errorf("%w: createdAt of type %T", ErrInvalidEventData, createdAt)
	}

	md, err := decodeMetadata(data["metadata"])
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithMetadata(md))

	action, _ := data["action"].(string)
	event, err := NewEvent(name, Action(action), payload, opts...)
	if err != nil {
		return nil, err
	}

	if topic, ok := data["topic"].(string); ok {
		event.SetTopic(topic)
	}
	if key, ok := data["routing_key"].(string); ok {
		event.SetRoutingKey(key)
	}

	return event, nil
}

func decodeMetadata(raw interface{}) (*metadata.Metadata, error) {
	switch md := raw.(type) {
	case nil:
		return metadata.New(), nil
	case *metadata.Metadata:
		return md, nil
	case map[string]interface{}:
		return metadata.FromMap(md), nil
	case []interface{}:
		// An empty object may have been encoded as an empty list
		m := metadata.New()
		for _, v := range md {
			m.Append(v)
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: metadata of type %T", ErrInvalidEventData, raw)
}
