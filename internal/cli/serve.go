package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KabriAcid/ScrynCard-sub001/internal/di"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
)

func newServeCommand(opts *options) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the cleanup sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := opts.withToolkit(func(tk *di.Toolkit) error { return repository.Migrate(tk.DB) }); err != nil {
					return err
				}
			}
			a, cleanup, err := di.InitializeApp(ctx, opts.cfg, opts.logging)
			if err != nil {
				return err
			}
			defer cleanup()
			// The app shuts the log provider down with the rest of the runtime.
			opts.logging.Provider = nil
			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}
