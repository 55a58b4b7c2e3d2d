package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/internal/app"
)

func newCleanupCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Re-sanitize every stored product name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), state.cfg, state.logger, app.Options{RequireStore: true})
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			summary, err := a.Catalog.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
