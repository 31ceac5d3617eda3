package main

import (
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/service"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the ledger and print workout statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, opts.fs)
			if err != nil {
				return err
			}
			defer a.Close()

			a.load(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), a.ledger.Stats())
		},
	}
}

type syncReport struct {
	Workouts int               `json:"workouts"`
	Written  int               `json:"written"`
	Status   domain.SyncStatus `json:"status"`
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the whole local ledger to the remote",
		Long: `Pushes every workout in the local cache to the remote ledger in one
batch and waits for it to finish. Workouts that cannot be encoded are
skipped and logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, opts.fs)
			if err != nil {
				return err
			}
			defer a.Close()

			a.ledger.LoadCached()
			written, err := a.ledger.SyncAllWorkouts(cmd.Context())
			a.ledger.Wait()
			if err != nil {
				if errors.Is(err, service.ErrNotAuthenticated) {
					return errors.New("sync needs session.user_id or session.token")
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), syncReport{
				Workouts: len(a.ledger.Workouts()),
				Written:  written,
				Status:   a.ledger.Status(),
			})
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not configured")
			}
			token, err := service.IssueSessionToken(userID, opts.cfg.JWT.Secret, opts.cfg.JWT.Expiration)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
