package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KabriAcid/ScrynCard-sub001/internal/di"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withToolkit(func(tk *di.Toolkit) error {
				if err := repository.Migrate(tk.DB); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return err
			})
		},
	}
}

func newSweepCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one cleanup cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withToolkit(func(tk *di.Toolkit) error {
				res, err := tk.Sweeper.SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				if res.Skipped {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "sweep skipped: another instance holds the lock")
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired sessions=%d purged tombstones=%d\n", res.SessionsExpired, res.TombstonesPurged)
				return err
			})
		},
	}
}
