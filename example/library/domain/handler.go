package domain

import (
	"context"
	"fmt"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/commandbus"
)

// Ensure that we satisfy the commandbus.Handler interface
var _ commandbus.Handler = &AuthorHandler{}

// AuthorHandler creates authors by publishing AuthorCreated events
type AuthorHandler struct {
	publisher cqrs.EventPublisher
	topic     string
	logger    cqrs.Logger
}

// NewAuthorHandler returns a handler publishing through publisher, an empty topic uses the publisher default
func NewAuthorHandler(publisher cqrs.EventPublisher, topic string, logger cqrs.Logger) (*AuthorHandler, error) {
	if publisher == nil {
		return nil, cqrs.InvalidArgumentError("publisher")
	}
	if logger == nil {
		logger = cqrs.NopLogger
	}

	return &AuthorHandler{publisher: publisher, topic: topic, logger: logger}, nil
}

// HandledCommands returns the names of the commands the handler accepts
func (h *AuthorHandler) HandledCommands() []string {
	return []string{CreateAuthor}
}

// Handle publishes the author carried by the command, a missing uuid is generated
func (h *AuthorHandler) Handle(ctx context.Context, command *cqrs.Command) error {
	author, ok := command.Payload().(*Author)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", command.Payload(), command.Name())
	}
	if author.FirstName == "" && author.LastName == "" {
		return cqrs.ValidationError("author must have a name")
	}

	created := *author
	if cqrs.IsUUIDEmpty(created.UUID) {
		created.UUID = cqrs.GenerateUUID()
	}

	md := command.Metadata().Copy().Set("command_uuid", command.UUID().String())

	event, err := cqrs.NewEvent(AuthorCreated, cqrs.ActionInsert, &created, cqrs.WithMetadata(md))
	if err != nil {
		return err
	}
	if h.topic != "" {
		event.SetTopic(h.topic)
	}

	if err := h.publisher.PublishEvent(ctx, event); err != nil {
		return err
	}

	h.logger.Info("author created", func(e cqrs.LoggerEntry) {
		e.String("author_uuid", created.UUID.String())
		e.String("event_uuid", event.UUID().String())
	})

	return nil
}
