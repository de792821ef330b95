package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	id "reconcile/pkg/domain"
)

func newShowCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show CONTACT_ID",
		Short: "Print the consolidated contact containing CONTACT_ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contactID, err := id.ParseContactID(args[0])
			if err != nil {
				return fmt.Errorf("invalid contact id %q: %w", args[0], err)
			}
			return withBackend(cmd.Context(), open, func(b *Backend) error {
				view, err := b.Service.View(cmd.Context(), contactID)
				if err != nil {
					return err
				}
				return writeView(cmd.OutOrStdout(), view)
			})
		},
	}
}
