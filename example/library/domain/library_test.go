//go:build unit

package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
	"github.com/hellofresh/cqrs/commandbus"
	"github.com/hellofresh/cqrs/example/library/domain"
	"github.com/hellofresh/cqrs/metadata"
)

const authorUUID = "068332f0-9465-47c4-a7c2-402e9ccabfdc"

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, event *cqrs.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestAuthor_Serialize(t *testing.T) {
	id, err := cqrs.ParseUUID(authorUUID)
	require.NoError(t, err)

	data, err := (&domain.Author{UUID: id, FirstName: "author_first_name", LastName: "author_last_name"}).Serialize()

	require.NoError(t, err)
	assert.Equal(t, codec.Data{
		"uuid":      authorUUID,
		"firstName": "author_first_name",
		"lastName":  "author_last_name",
	}, data)
}

func TestBook_Serialize(t *testing.T) {
	publishedAt := time.Date(1954, 7, 29, 0, 0, 0, 0, time.UTC)
	book := &domain.Book{
		UUID:        cqrs.GenerateUUID(),
		Title:       "The Fellowship of the Ring",
		Publisher:   &domain.Publisher{UUID: cqrs.GenerateUUID(), Name: "Allen & Unwin"},
		Authors:     []*domain.Author{{UUID: cqrs.GenerateUUID(), FirstName: "J. R. R.", LastName: "Tolkien"}},
		PublishedAt: publishedAt,
	}

	data, err := book.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "1954-07-29T00:00:00Z", data["publishedAt"])
	assert.Equal(t, "Allen & Unwin", data["publisher"].(codec.Data)["name"])
	require.Len(t, data["authors"], 1)

	decoded := &domain.Book{}
	require.NoError(t, decoded.Unserialize(data))
	assert.Equal(t, book, decoded)

	t.Run("Without publisher and authors", func(t *testing.T) {
		book := &domain.Book{UUID: cqrs.GenerateUUID(), Title: "Untitled", Authors: []*domain.Author{}, PublishedAt: publishedAt}

		data, err := book.Serialize()
		require.NoError(t, err)

		decoded := &domain.Book{}
		require.NoError(t, decoded.Unserialize(data))
		assert.Nil(t, decoded.Publisher)
		assert.Empty(t, decoded.Authors)
	})
}

func TestRegisterEvents(t *testing.T) {
	registry := cqrs.NewEventRegistry()

	require.NoError(t, domain.RegisterEvents(registry))

	for _, name := range []string{domain.AuthorCreated, domain.AuthorUpdated, domain.BookCreated} {
		assert.True(t, registry.IsRegistered(name), name)
	}
	assert.Equal(t, cqrs.ErrDuplicateEventName, domain.RegisterEvents(registry))
}

func TestNewAuthorHandler(t *testing.T) {
	handler, err := domain.NewAuthorHandler(nil, "", nil)

	assert.Equal(t, cqrs.InvalidArgumentError("publisher"), err)
	assert.Nil(t, handler)
}

func TestAuthorHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Publish the created author", func(t *testing.T) {
		publisher := &mockPublisher{}
		handler, err := domain.NewAuthorHandler(publisher, "library", nil)
		require.NoError(t, err)

		command, err := cqrs.NewCommand(
			domain.CreateAuthor,
			&domain.Author{FirstName: "J. R. R.", LastName: "Tolkien"},
			cqrs.WithMetadata(metadata.New().Set("user", "admin")),
		)
		require.NoError(t, err)

		var published *cqrs.Event
		publisher.On("PublishEvent", ctx, mock.AnythingOfType("*cqrs.Event")).
			Run(func(args mock.Arguments) { published = args.Get(1).(*cqrs.Event) }).
			Return(nil).
			Once()

		require.NoError(t, handler.Handle(ctx, command))
		publisher.AssertExpectations(t)

		require.NotNil(t, published)
		assert.Equal(t, domain.AuthorCreated, published.Name())
		assert.Equal(t, cqrs.ActionInsert, published.Action())
		assert.Equal(t, "library", published.Topic())
		assert.Equal(t, []string{"user", "command_uuid"}, published.Metadata().Keys())
		assert.Equal(t, command.UUID().String(), published.Metadata().Value("command_uuid"))

		author := published.Payload().(*domain.Author)
		assert.False(t, cqrs.IsUUIDEmpty(author.UUID))
		assert.Equal(t, "Tolkien", author.LastName)
		assert.True(t, cqrs.IsUUIDEmpty(command.Payload().(*domain.Author).UUID), "command payload is left untouched")
	})

	t.Run("Keep the given uuid", func(t *testing.T) {
		publisher := &mockPublisher{}
		handler, err := domain.NewAuthorHandler(publisher, "", nil)
		require.NoError(t, err)

		id, err := cqrs.ParseUUID(authorUUID)
		require.NoError(t, err)
		command, err := cqrs.NewCommand(domain.CreateAuthor, &domain.Author{UUID: id, LastName: "Tolkien"})
		require.NoError(t, err)

		publisher.On("PublishEvent", ctx, mock.MatchedBy(func(e *cqrs.Event) bool {
			return e.Payload().(*domain.Author).UUID == id && e.Topic() == ""
		})).Return(nil).Once()

		require.NoError(t, handler.Handle(ctx, command))
		publisher.AssertExpectations(t)
	})

	t.Run("Reject nameless author", func(t *testing.T) {
		handler, err := domain.NewAuthorHandler(&mockPublisher{}, "", nil)
		require.NoError(t, err)

		command, err := cqrs.NewCommand(domain.CreateAuthor, &domain.Author{})
		require.NoError(t, err)

		assert.Equal(t, cqrs.ValidationError("author must have a name"), handler.Handle(ctx, command))
	})

	t.Run("Reject unexpected payload", func(t *testing.T) {
		handler, err := domain.NewAuthorHandler(&mockPublisher{}, "", nil)
		require.NoError(t, err)

		command, err := cqrs.NewCommand(domain.CreateAuthor, &domain.Publisher{Name: "Allen & Unwin"})
		require.NoError(t, err)

		assert.EqualError(t, handler.Handle(ctx, command), "unexpected payload *domain.Publisher for library.author.create")
	})

	t.Run("Dispatch through the command bus", func(t *testing.T) {
		publisher := &mockPublisher{}
		publishErr := errors.New("broker unavailable")
		publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(publishErr).Once()

		handler, err := domain.NewAuthorHandler(publisher, "", nil)
		require.NoError(t, err)

		bus := commandbus.NewBus(nil, nil)
		require.NoError(t, bus.AddHandler("authors", handler))

		command, err := cqrs.NewCommand(domain.CreateAuthor, &domain.Author{LastName: "Tolkien"})
		require.NoError(t, err)
		require.NoError(t, bus.AddCommand(command))

		err = bus.Dispatch(ctx)

		var dispatchErr *commandbus.DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		assert.Equal(t, "authors", dispatchErr.Handler)
		assert.ErrorIs(t, err, publishErr)
	})
}
