package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/internal/app"
)

func newCountCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of products in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), state.cfg, state.logger, app.Options{RequireStore: true})
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			n, err := a.Store.Count(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}
