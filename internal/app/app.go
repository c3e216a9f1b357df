package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
)

// BackgroundTask runs until its context is cancelled.
type BackgroundTask interface {
	Run(ctx context.Context) error
}

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Background      []BackgroundTask
	Observability   *observability.Runtime
	ShutdownTimeout time.Duration
	closers         []func() error
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, background ...BackgroundTask) *App {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Background:      background,
		Observability:   runtime,
		ShutdownTimeout: timeout,
	}
}

// OnClose registers fn to run after the server and background tasks stop.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run serves until ctx is cancelled or a component fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http.server.starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, task := range a.Background {
		g.Go(func() error { return task.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("http.server.stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	return errors.Join(runErr, a.close())
}

func (a *App) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	return errors.Join(errs...)
}
