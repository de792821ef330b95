package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the contacts schema to the PostgreSQL database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), open, func(b *Backend) error {
				if b.Migrate == nil {
					return fmt.Errorf("migrate: %w", ErrNoDatabase)
				}
				if err := b.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "contacts schema is up to date")
				return nil
			})
		},
	}
}
