package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/internal/domain"
	"github.com/superpoupe/backend/internal/usecase"
)

func newParseCmd(state *cliState) *cobra.Command {
	var store, category string

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a pasted listing and print the products without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			if store == "" {
				store = state.cfg.Import.DefaultStore
			}
			storeID, ok := domain.ParseStoreID(store)
			if !ok {
				return fmt.Errorf("%w: %q", domain.ErrInvalidStore, store)
			}

			parser := usecase.NewImportParser(usecase.ImportParserConfig{Lookback: state.cfg.Import.Lookback})
			result := parser.Parse(text, usecase.ParseContext{Store: storeID, Category: category})

			products := result.Products
			if products == nil {
				products = []domain.Product{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"found":    len(products),
				"anchors":  result.Anchors,
				"skipped":  result.Skipped,
				"rejected": result.Rejected,
				"products": products,
			})
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "store the listing was copied from (default from config)")
	cmd.Flags().StringVar(&category, "category", "", "category applied to every product")
	return cmd
}
