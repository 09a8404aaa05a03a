package cqrs

import (
	"time"

	"github.com/google/uuid"

	"github.com/hellofresh/cqrs/codec"
	reflectUtil "github.com/hellofresh/cqrs/internal/reflect"
	"github.com/hellofresh/cqrs/metadata"
)

// Types of messages
const (
	CommandType MessageType = "command"
	EventType   MessageType = "event"
)

type (
	// UUID is a 128 bit (16 byte) Universal Unique Identifier as defined in RFC4122
	UUID = uuid.UUID

	// Serializable is a payload that can be converted from and into its structural representation
	Serializable = codec.Serializable

	// MessageType is the kind of message carried by an envelope
	MessageType string

	// Message is the envelope shared by commands and events
	Message struct {
		uuid      UUID
		typ       MessageType
		name      string
		createdAt time.Time
		metadata  *metadata.Metadata
	}

	// MessageOption configures a Message on creation
	MessageOption func(m *Message) error
)

// GenerateUUID creates a new random UUID or panics
func GenerateUUID() UUID {
	return uuid.New()
}

// ParseUUID parses the canonical string form of a UUID
func ParseUUID(s string) (UUID, error) {
	return uuid.Parse(s)
}

// IsUUIDEmpty returns true if the UUID is empty
func IsUUIDEmpty(id UUID) bool {
	return id == uuid.Nil
}

// WithUUID sets the identifier of the message
func WithUUID(id UUID) MessageOption {
	return func(m *Message) error {
		if IsUUIDEmpty(id) {
			return ValidationError("uuid cannot be empty")
		}
		m.uuid = id
		return nil
	}
}

// WithUUIDString sets the identifier of the message based on its canonical string form
func WithUUIDString(id string) MessageOption {
	return func(m *Message) error {
		parsed, err := ParseUUID(id)
		if err != nil {
			return ValidationError("uuid is invalid: " + err.Error())
		}
		return WithUUID(parsed)(m)
	}
}

// WithCreatedAt sets the creation time of the message
func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) error {
		if t.IsZero() {
			return ValidationError("createdAt cannot be zero")
		}
		m.createdAt = t.UTC()
		return nil
	}
}

// WithMetadata merges the given metadata into the message metadata
func WithMetadata(md *metadata.Metadata) MessageOption {
	return func(m *Message) error {
		m.metadata.Merge(md)
		return nil
	}
}

func newMessage(typ MessageType, name string, opts []MessageOption) (Message, error) {
	switch {
	case typ == "":
		return Message{}, ValidationError("type cannot be empty")
	case name == "":
		return Message{}, ValidationError("name cannot be empty")
	}

	m := Message{
		uuid:      GenerateUUID(),
		typ:       typ,
		name:      name,
		createdAt: time.Now().UTC(),
		metadata:  metadata.New(),
	}
	for _, opt := range opts {
		if err := opt(&m); err != nil {
			return Message{}, err
		}
	}

	return m, nil
}

// UUID returns the identifier of this message
func (m *Message) UUID() UUID {
	return m.uuid
}

// Type returns the kind of message
func (m *Message) Type() MessageType {
	return m.typ
}

// Name returns the name of the message
func (m *Message) Name() string {
	return m.name
}

// CreatedAt returns the created time of the message
func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

// Metadata returns a copy of the message metadata
func (m *Message) Metadata() *metadata.Metadata {
	return m.metadata.Copy()
}

// AddMetadata merges entries into the message metadata.
// Keyed entries overwrite existing keys and positional entries are appended.
func (m *Message) AddMetadata(entries *metadata.Metadata) {
	if m.metadata == nil {
		m.metadata = metadata.New()
	}
	m.metadata.Merge(entries)
}

// serialize returns the structural form shared by all messages
func (m *Message) serialize() codec.Data {
	return codec.Data{
		"uuid":      m.uuid.String(),
		"type":      string(m.typ),
		"name":      m.name,
		"createdAt": m.createdAt.Format(time.RFC3339),
		"metadata":  m.SerializedMetadata().AsMap(),
	}
}

// SerializedMetadata returns a copy of the metadata holding the structural form of every value.
// Values without a structural form are replaced by their type name.
func (m *Message) SerializedMetadata() *metadata.Metadata {
	res := metadata.New()
	m.metadata.Each(func(k string, v interface{}) {
		sv, err := codec.SerializeValue(v)
		if err != nil {
			sv = reflectUtil.FullTypeNameOf(v)
		}
		res.Set(k, sv)
	})

	return res
}
