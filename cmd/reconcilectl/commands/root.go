package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reconcile/internal/contact/handler"
	"reconcile/internal/contact/models"
)

var versionInfo = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// Execute runs the CLI against the backend selected by the environment.
func Execute() error {
	return NewRootCmd(OpenBackend).Execute()
}

// NewRootCmd builds the command tree. open resolves the contact backend for
// each command that needs one.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "reconcilectl",
		Short: "Operate the identity reconciliation store",
		Long: `reconcilectl runs identity reconciliation against the configured store.

The store is selected the same way as the server: DATABASE_URL selects
PostgreSQL, otherwise an empty in-memory store is used for the single
invocation.

Examples:
  # Apply the contacts schema
  reconcilectl migrate

  # Reconcile an observation and print the consolidated contact
  reconcilectl identify --email doc@hillvalley.edu --phone 1955

  # Print the consolidated contact for any member id
  reconcilectl show 42`,
		Version:       versionInfo,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(
		newMigrateCmd(open),
		newIdentifyCmd(open),
		newShowCmd(open),
	)
	return root
}

// writeView prints the consolidated view in the HTTP response shape.
func writeView(w io.Writer, view *models.ConsolidatedView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(handler.FromView(view))
}
