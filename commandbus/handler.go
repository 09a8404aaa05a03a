package commandbus

import (
	"context"

	"github.com/hellofresh/cqrs"
)

type (
	// Handler handles commands
	Handler interface {
		// HandledCommands returns the names of the commands the handler accepts
		HandledCommands() []string
		// Handle handles the command
		Handle(ctx context.Context, command *cqrs.Command) error
	}

	// HandlerFunc is a function that handles a command
	HandlerFunc func(ctx context.Context, command *cqrs.Command) error

	funcHandler struct {
		fn       HandlerFunc
		commands []string
	}
)

// NewHandler returns a Handler calling fn for the given command names
func NewHandler(fn HandlerFunc, commands ...string) Handler {
	return &funcHandler{fn: fn, commands: commands}
}

func (h *funcHandler) HandledCommands() []string {
	return h.commands
}

func (h *funcHandler) Handle(ctx context.Context, command *cqrs.Command) error {
	return h.fn(ctx, command)
}

// handles returns true when h accepts the command name
func handles(h Handler, name string) bool {
	for _, n := range h.HandledCommands() {
		if n == name {
			return true
		}
	}

	return false
}
