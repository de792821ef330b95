package commands

import (
	"github.com/spf13/cobra"

	"reconcile/internal/contact/models"
)

func newIdentifyCmd(open Opener) *cobra.Command {
	var email, phone string
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Reconcile an email and/or phone number and print the consolidated contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			obs, err := models.NewObservation(email, phone)
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), open, func(b *Backend) error {
				view, err := b.Service.Identify(cmd.Context(), obs)
				if err != nil {
					return err
				}
				return writeView(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address observed for the customer")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number observed for the customer")
	return cmd
}
