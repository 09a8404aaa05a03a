package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/commandbus"
	"github.com/hellofresh/cqrs/example/library/domain"
	"github.com/hellofresh/cqrs/extension/amqp"
	"github.com/hellofresh/cqrs/extension/otel"
)

func newCreateAuthorCommand(a *app) *cobra.Command {
	var (
		id        string
		firstName string
		lastName  string
	)

	cmd := &cobra.Command{
		Use:   "create-author",
		Short: "Dispatch a library.author.create command publishing the created author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			author := &domain.Author{FirstName: firstName, LastName: lastName}
			if id != "" {
				authorUUID, err := cqrs.ParseUUID(id)
				if err != nil {
					return err
				}
				author.UUID = authorUUID
			}

			dial, err := amqp.NewDialer(a.cfg.AMQPURL, a.cfg.ConnectionName+"-publisher")
			if err != nil {
				return err
			}

			eventBus, err := amqp.NewEventBus(dial, a.topology(), a.logger, a.metrics)
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					a.zapLogger.With(zap.Error(err)).Warn("eventBus.Close return an error")
				}
			}()

			handler, err := domain.NewAuthorHandler(eventBus, "", a.logger)
			if err != nil {
				return err
			}

			bus := commandbus.NewBus(a.logger, a.metrics)
			if err := bus.AddHandler("authors", otel.WithCommandTracing(handler)); err != nil {
				return err
			}

			command, err := cqrs.NewCommand(domain.CreateAuthor, author)
			if err != nil {
				return err
			}
			if err := bus.AddCommand(command); err != nil {
				return err
			}

			return bus.Dispatch(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&id, "uuid", "", "uuid of the author, generated when empty")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name of the author")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name of the author")

	return cmd
}
