package amqp

import (
	"encoding/json"
	"time"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/metadata"
)

var (
	// Ensure envelope implements the easyjson.Marshaler interface
	_ easyjson.Marshaler = &envelope{}
	// Ensure envelope implements the easyjson.Unmarshaler interface
	_ easyjson.Unmarshaler = &envelope{}
)

// envelope is the wire representation of an event
type envelope struct {
	UUID       string
	Type       string
	Name       string
	CreatedAt  string
	Metadata   *metadata.Metadata
	Payload    map[string]interface{}
	Action     string
	Topic      string
	RoutingKey string
}

func newEnvelope(event *cqrs.Event) (*envelope, error) {
	payload, err := event.Payload().Serialize()
	if err != nil {
		return nil, err
	}

	return &envelope{
		UUID:       event.UUID().String(),
		Type:       string(event.Type()),
		Name:       event.Name(),
		CreatedAt:  event.CreatedAt().Format(time.RFC3339),
		Metadata:   event.SerializedMetadata(),
		Payload:    payload,
		Action:     string(event.Action()),
		Topic:      event.Topic(),
		RoutingKey: event.RoutingKey(),
	}, nil
}

// data returns the structural form understood by cqrs.EventRegistry.DecodeEvent
func (e *envelope) data() codec.Data {
	data := codec.Data{
		"uuid":      e.UUID,
		"type":      e.Type,
		"name":      e.Name,
		"createdAt": e.CreatedAt,
		"metadata":  e.Metadata,
		"payload":   e.Payload,
		"action":    e.Action,
	}
	if e.CreatedAt == "" {
		data["createdAt"] = nil
	}
	if e.Topic != "" {
		data["topic"] = e.Topic
	}
	if e.RoutingKey != "" {
		data["routing_key"] = e.RoutingKey
	}

	return data
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (e *envelope) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"uuid":`)
	out.String(e.UUID)
	out.RawString(`,"type":`)
	out.String(e.Type)
	out.RawString(`,"name":`)
	out.String(e.Name)
	out.RawString(`,"createdAt":`)
	out.String(e.CreatedAt)
	out.RawString(`,"metadata":`)
	if e.Metadata == nil {
		out.RawString("{}")
	} else {
		e.Metadata.MarshalEasyJSON(out)
	}
	out.RawString(`,"payload":`)
	if e.Payload == nil {
		out.RawString("{}")
	} else {
		out.Raw(json.Marshal(e.Payload))
	}
	out.RawString(`,"action":`)
	out.String(e.Action)
	if e.Topic != "" {
		out.RawString(`,"topic":`)
		out.String(e.Topic)
	}
	if e.RoutingKey != "" {
		out.RawString(`,"routing_key":`)
		out.String(e.RoutingKey)
	}
	out.RawByte('}')
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (e *envelope) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "uuid":
			e.UUID = in.String()
		case "type":
			e.Type = in.String()
		case "name":
			e.Name = in.String()
		case "createdAt":
			e.CreatedAt = in.String()
		case "metadata":
			if in.IsDelim('[') {
				// An empty metadata object may have been encoded as a list
				e.Metadata = metadata.New()
				for _, v := range asList(in.Interface()) {
					e.Metadata.Append(v)
				}
				break
			}
			e.Metadata = metadata.New()
			e.Metadata.UnmarshalEasyJSON(in)
		case "payload":
			if m, ok := in.Interface().(map[string]interface{}); ok {
				e.Payload = m
			} else {
				in.AddError(&jlexer.LexerError{Reason: "payload must be an object", Data: "payload"})
			}
		case "action":
			e.Action = in.String()
		case "topic":
			e.Topic = in.String()
		case "routing_key":
			e.RoutingKey = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func asList(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}
