package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/internal/app"
)

func newCompareCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <product-id>",
		Short: "Show the same product in the other stores, cheapest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), state.cfg, state.logger, app.Options{RequireStore: true})
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			comparison, err := a.Comparison.Compare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), comparison)
		},
	}
}
