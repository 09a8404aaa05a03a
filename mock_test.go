//go:build unit

package cqrs_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
)

type (
	authorPayload struct {
		UUID      cqrs.UUID
		FirstName string
		LastName  string
	}

	brokenPayload struct{}

	mockStorage struct {
		mock.Mock
	}
)

func (a *authorPayload) Serialize() (codec.Data, error) {
	return codec.Serialize(a)
}

func (a *authorPayload) Unserialize(data codec.Data) error {
	return codec.Deserialize(a, data)
}

func (brokenPayload) Serialize() (codec.Data, error) {
	return nil, codec.ErrNotSerializable
}

func (*brokenPayload) Unserialize(codec.Data) error {
	return codec.ErrNotSerializable
}

func (m *mockStorage) StoreEvent(ctx context.Context, event *cqrs.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newAuthorPayload() *authorPayload {
	return &authorPayload{
		UUID:      cqrs.UUID{0x06, 0x83, 0x32, 0xf0, 0x94, 0x65, 0x47, 0xc4, 0xa7, 0xc2, 0x40, 0x2e, 0x9c, 0xca, 0xbf, 0xdc},
		FirstName: "author_first_name",
		LastName:  "author_last_name",
	}
}
