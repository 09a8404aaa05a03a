package cqrs

import "github.com/hellofresh/cqrs/codec"

// Command is a message expressing the intent to change state
type Command struct {
	Message
	payload Serializable
}

// NewCommand returns a new command carrying payload
func NewCommand(name string, payload Serializable, opts ...MessageOption) (*Command, error) {
	if payload == nil {
		return nil, ValidationError("payload cannot be nil")
	}

	m, err := newMessage(CommandType, name, opts)
	if err != nil {
		return nil, err
	}

	return &Command{Message: m, payload: payload}, nil
}

// Payload returns the payload of the command
func (c *Command) Payload() Serializable {
	return c.payload
}

// Serialize returns the structural form of the command
func (c *Command) Serialize() (codec.Data, error) {
	payload, err := c.payload.Serialize()
	if err != nil {
		return nil, err
	}

	data := c.serialize()
	data["payload"] = payload

	return data, nil
}
