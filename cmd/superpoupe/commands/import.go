package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/internal/app"
	"github.com/superpoupe/backend/internal/domain"
	"github.com/superpoupe/backend/internal/usecase"
)

func newImportCmd(state *cliState) *cobra.Command {
	var store, category string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a pasted listing into the catalog",
		Long: `Import a pasted listing into the catalog in batches.
Interrupting the command stops it at the next batch boundary; batches already
written are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, state.cfg, state.logger, app.Options{RequireStore: true})
			if err != nil {
				return err
			}
			defer a.Shutdown(context.Background())

			if state.cfg.Store.Driver == "memory" {
				state.logger.Warn().Msg("in-memory store: imported products are discarded on exit")
			}

			var progress usecase.ProgressFunc
			if !state.noProgress {
				bar := newBatchBar(cmd)
				progress = bar.update
				defer bar.finish()
			}

			summary, err := a.Imports.Import(ctx, usecase.ImportRequest{
				Text:     text,
				Store:    domain.StoreID(store),
				Category: category,
			}, progress)
			if summary != nil {
				if printErr := printJSON(cmd.OutOrStdout(), summary); printErr != nil {
					return printErr
				}
			}
			if err != nil {
				return err
			}
			if summary.Status == domain.ImportFailed {
				return errors.New("every batch failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "store the listing was copied from (default from config)")
	cmd.Flags().StringVar(&category, "category", "", "category applied to every product")
	return cmd
}

// batchBar renders import progress snapshots
type batchBar struct {
	cmd *cobra.Command
	bar *progressbar.ProgressBar
}

func newBatchBar(cmd *cobra.Command) *batchBar {
	return &batchBar{cmd: cmd}
}

func (b *batchBar) update(p domain.ImportProgress) {
	if b.bar == nil {
		b.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(b.cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("importing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("products"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
		)
	}
	_ = b.bar.Set(p.Current + p.Failed)
	if p.Errors > 0 {
		b.bar.Describe(fmt.Sprintf("importing (%d batches failed)", p.Errors))
	}
}

func (b *batchBar) finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		_, _ = b.cmd.ErrOrStderr().Write([]byte("\n"))
	}
}
