// Package commands implements the superpoupe admin CLI.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/superpoupe/backend/config"
	"github.com/superpoupe/backend/internal/observability"
)

// cliState is shared by every subcommand of one invocation
type cliState struct {
	verbose    bool
	noProgress bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "superpoupe",
		Short: "SuperPoupe catalog administration",
		Long: `Administer the SuperPoupe price catalog: parse pasted retailer listings,
import them in batches, clean up stored product names and inspect the catalog.

Configuration is read from SUPERPOUPE_* environment variables, .env and config.yaml.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg

			level := cfg.Log.Level
			if state.verbose {
				level = "debug"
			}
			state.logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "console",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "superpoupe-cli",
			})
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&state.noProgress, "no-progress", false, "disable the progress bar")

	root.AddCommand(
		newParseCmd(state),
		newImportCmd(state),
		newCleanupCmd(state),
		newCountCmd(state),
		newCompareCmd(state),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// readInput reads a file, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
