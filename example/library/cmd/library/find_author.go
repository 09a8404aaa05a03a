package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hellofresh/cqrs"
	"github.com/hellofresh/cqrs/projection"
)

func newFindAuthorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find-author <uuid>",
		Short: "Print the author projected from the stored events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cqrs.ParseUUID(args[0])
			if err != nil {
				return err
			}

			store, closeStore, err := a.cfg.NewStore(cmd.Context(), a.logger, a.zapLogger)
			if err != nil {
				return err
			}
			defer closeStore()

			projector, err := projection.NewEntityProjector(store, a.registry, a.logger)
			if err != nil {
				return err
			}

			author, err := projector.FindEntity(cmd.Context(), id)
			if err != nil {
				return err
			}

			data, err := author.Serialize()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(data)
		},
	}
}
