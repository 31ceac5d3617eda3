package main

import (
	"alcyxob/workout-ledger/internal/config"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags and the state they produce.
type rootOptions struct {
	ConfigDir string

	cfg      config.Config
	fs       afero.Fs
	closeLog func() error
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:           "ledger",
		Short:         "Workout ledger with local cache and remote sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.ConfigDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			opts.closeLog, err = setupLogging(cfg.Log, cmd.ErrOrStderr())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closeLog != nil {
				return opts.closeLog()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", ".", "directory containing config.yaml")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
