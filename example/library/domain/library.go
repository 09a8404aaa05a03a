// Package domain holds the entities, events and commands of the library example.
package domain

import (
	"time"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/codec"
)

// Event and command names
const (
	AuthorCreated = "library.author.created"
	AuthorUpdated = "library.author.updated"
	BookCreated   = "library.book.created"

	CreateAuthor = "library.author.create"
)

type (
	// Author writes books, empty names are left out so that an update may carry the changed name only
	Author struct {
		UUID      cqrs.UUID
		FirstName string `codec:",omitempty"`
		LastName  string `codec:",omitempty"`
	}

	// Publisher publishes books
	Publisher struct {
		UUID cqrs.UUID
		Name string
	}

	// Book is written by one or more authors
	Book struct {
		UUID        cqrs.UUID
		Title       string
		Publisher   *Publisher
		Authors     []*Author
		PublishedAt time.Time
	}
)

// Serialize returns the structural form of the author
func (a *Author) Serialize() (codec.Data, error) {
	return codec.Serialize(a)
}

// Unserialize populates the author from its structural form
func (a *Author) Unserialize(data codec.Data) error {
	return codec.Deserialize(a, data)
}

// Serialize returns the structural form of the publisher
func (p *Publisher) Serialize() (codec.Data, error) {
	return codec.Serialize(p)
}

// Unserialize populates the publisher from its structural form
func (p *Publisher) Unserialize(data codec.Data) error {
	return codec.Deserialize(p, data)
}

// Serialize returns the structural form of the book
func (b *Book) Serialize() (codec.Data, error) {
	return codec.Serialize(b)
}

// Unserialize populates the book from its structural form
func (b *Book) Unserialize(data codec.Data) error {
	return codec.Deserialize(b, data)
}

// RegisterEvents registers the payloads of the library events
func RegisterEvents(registry *cqrs.EventRegistry) error {
	return registry.RegisterEvents(map[string]cqrs.PayloadInitiator{
		AuthorCreated: func() cqrs.Serializable { return &Author{} },
		AuthorUpdated: func() cqrs.Serializable { return &Author{} },
		BookCreated:   func() cqrs.Serializable { return &Book{} },
	})
}
