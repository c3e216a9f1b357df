// Package cli implements the sessiond command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
	"github.com/KabriAcid/ScrynCard-sub001/internal/di"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
)

type options struct {
	cfg     *config.Config
	logging di.Logging
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "sessiond",
		Short:         "Session and refresh-token rotation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close(cmd.Context())
		},
	}
	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSweepCommand(opts),
		newAccountCommand(opts),
		newSessionsCommand(opts),
	)
	return cmd
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		// No logger or meter provider exists yet.
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil)).ErrorContext(cmd.Context(), "config.validation.failed",
				"profile", ve.Profile, "rules", ve.Rules)
		}
		return err
	}
	logger, lp, err := observability.NewLogger(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	o.cfg = cfg
	o.logging = di.Logging{Logger: logger, Provider: lp}
	return nil
}

func (o *options) close(ctx context.Context) error {
	if o.logging.Provider == nil {
		return nil
	}
	return o.logging.Provider.Shutdown(ctx)
}

// withToolkit builds the one-shot graph, runs fn and releases it.
func (o *options) withToolkit(fn func(tk *di.Toolkit) error) error {
	tk, cleanup, err := di.InitializeToolkit(o.cfg, o.logging)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(tk)
}
