// Package commandbus dispatches commands synchronously to the handlers registered for them.
package commandbus

import (
	"context"
	"fmt"
	"time"

	"github.com/hellofresh/cqrs"
)

// DispatchError is returned when a handler fails to handle a command
type DispatchError struct {
	Command     string
	CommandUUID cqrs.UUID
	Handler     string
	Err         error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("cqrs: handler %s failed to handle command %s (%s): %v", e.Handler, e.Command, e.CommandUUID, e.Err)
}

// Unwrap returns the underlying error
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Bus queues commands and dispatches them to the registered handlers.
// A Bus is not safe for concurrent use.
type Bus struct {
	names    []string
	handlers map[string]Handler
	queue    []*cqrs.Command
	logger   cqrs.Logger
	metrics  cqrs.Metrics
}

// NewBus returns a new and empty Bus
func NewBus(logger cqrs.Logger, metrics cqrs.Metrics) *Bus {
	if logger == nil {
		logger = cqrs.NopLogger
	}
	if metrics == nil {
		metrics = cqrs.NopMetrics
	}

	return &Bus{
		handlers: map[string]Handler{},
		logger:   logger,
		metrics:  metrics,
	}
}

// AddHandler registers handler under name.
// Handlers are invoked in registration order, registering a known name replaces the handler keeping its position.
func (b *Bus) AddHandler(name string, handler Handler) error {
	switch {
	case name == "":
		return cqrs.InvalidArgumentError("name")
	case handler == nil:
		return cqrs.InvalidArgumentError("handler")
	}

	if _, known := b.handlers[name]; !known {
		b.names = append(b.names, name)
	}
	b.handlers[name] = handler

	return nil
}

// AddCommand appends the command to the queue
func (b *Bus) AddCommand(command *cqrs.Command) error {
	if command == nil {
		return cqrs.InvalidArgumentError("command")
	}

	b.queue = append(b.queue, command)

	return nil
}

// Pending returns the number of queued commands
func (b *Bus) Pending() int {
	return len(b.queue)
}

// Dispatch drains the queue in FIFO order invoking every handler that accepts the command.
// A failing handler stops the dispatch, commands queued after the failing command stay queued.
func (b *Bus) Dispatch(ctx context.Context) error {
	for len(b.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		command := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]

		if err := b.dispatch(ctx, command); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bus) dispatch(ctx context.Context, command *cqrs.Command) error {
	logger := b.logger.WithFields(func(e cqrs.LoggerEntry) {
		e.String("command_name", command.Name())
		e.String("command_uuid", command.UUID().String())
	})

	start := time.Now()
	handled := 0
	for _, name := range b.names {
		handler := b.handlers[name]
		if !handles(handler, command.Name()) {
			continue
		}
		handled++

		logger.Debug("dispatching command", func(e cqrs.LoggerEntry) {
			e.String("handler", name)
		})

		if err := invoke(ctx, handler, command); err != nil {
			b.metrics.CommandDispatched(command.Name(), false, time.Since(start))
			logger.Error("command handler failed", func(e cqrs.LoggerEntry) {
				e.Error(err)
				e.String("handler", name)
			})

			return &DispatchError{
				Command:     command.Name(),
				CommandUUID: command.UUID(),
				Handler:     name,
				Err:         err,
			}
		}
	}

	if handled == 0 {
		logger.Warn("no handlers registered for command", nil)
		return nil
	}

	b.metrics.CommandDispatched(command.Name(), true, time.Since(start))

	return nil
}

// invoke calls the handler turning a panic into an error
func invoke(ctx context.Context, handler Handler, command *cqrs.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, command)
}
