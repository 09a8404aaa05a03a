package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/extension/amqp"
	"github.com/hellofresh/cqrs/extension/otel"
)

func newConsumeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Store the library events received from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := a.serveMetrics(ctx); err != nil {
				return err
			}

			store, closeStore, err := a.cfg.NewStore(ctx, a.logger, a.zapLogger)
			if err != nil {
				return err
			}
			defer closeStore()

			dial, err := amqp.NewDialer(a.cfg.AMQPURL, a.cfg.ConnectionName+"-consumer")
			if err != nil {
				return err
			}

			consumerConfig := amqp.DefaultConsumerConfig()
			consumerConfig.WaitTimeout = a.cfg.WaitTimeout
			consumerConfig.RestartAttempts = a.cfg.RestartAttempts
			consumerConfig.RestartWaitTime = a.cfg.RestartWaitTime
			consumerConfig.Topology = a.topology()

			consumer, err := amqp.NewEventConsumer(dial, a.registry, consumerConfig, a.logger, a.metrics)
			if err != nil {
				return err
			}

			handler := otel.WithEventTracing(cqrs.StoreEventHandler(otel.NewEventStorage(store), a.logger))

			err = consumer.Listen(ctx, a.cfg.Queue, handler)
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		},
	}
}
