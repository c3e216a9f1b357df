package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"

	"golang.org/x/sync/errgroup"
)

type SweepStore interface {
	DeleteExpiredTombstones(ctx context.Context, before time.Time) (int64, error)
	ExpireLapsedSessions(ctx context.Context, now time.Time) (int64, error)
}

// SweepLock keeps concurrent instances from sweeping the same store at once.
type SweepLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type NoopSweepLock struct{}

func (NoopSweepLock) TryAcquire(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

type SweepResult struct {
	TombstonesPurged int64
	SessionsExpired  int64
	Skipped          bool
}

type Sweeper struct {
	store    SweepStore
	lock     SweepLock
	interval time.Duration
	lockTTL  time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(store SweepStore, lock SweepLock, interval, lockTTL time.Duration, logger *slog.Logger) *Sweeper {
	if lock == nil {
		lock = NoopSweepLock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Sweeper{
		store:    store,
		lock:     lock,
		interval: interval,
		lockTTL:  lockTTL,
		timeout:  lockTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps immediately and then on every tick until ctx is done.
// Cycle failures are logged and never stop the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "session.sweep.failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	release, ok, err := s.lock.TryAcquire(ctx, s.lockTTL)
	if err != nil {
		return SweepResult{}, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "session.sweep.skipped", "reason", "lock_held")
		return SweepResult{Skipped: true}, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "session.sweep.release_failed", "error", err)
		}
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	now := s.now().UTC()

	var res SweepResult
	g, gctx := errgroup.WithContext(cycleCtx)
	g.Go(func() error {
		n, err := s.store.DeleteExpiredTombstones(gctx, now)
		res.TombstonesPurged = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.ExpireLapsedSessions(gctx, now)
		res.SessionsExpired = n
		return err
	})
	err = g.Wait()

	observability.RecordSweepPurged(ctx, "tombstone", res.TombstonesPurged)
	observability.RecordSweepPurged(ctx, "session", res.SessionsExpired)
	s.logger.InfoContext(ctx, "session.sweep.completed",
		"tombstones_purged", res.TombstonesPurged,
		"sessions_expired", res.SessionsExpired,
	)
	return res, err
}
