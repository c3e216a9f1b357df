package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
)

type recordingTask struct {
	started atomic.Bool
	err     error
}

func (r *recordingTask) Run(ctx context.Context) error {
	r.started.Store(true)
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return nil
}

func newTestApp(tasks ...BackgroundTask) *App {
	cfg := &config.Config{ShutdownTimeout: 2 * time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}
	return New(cfg, logger, server, nil, tasks...)
}

func TestNewAssignsDependenciesAndTimeout(t *testing.T) {
	task := &recordingTask{}
	a := newTestApp(task)
	if a.Server == nil || a.Logger == nil || len(a.Background) != 1 {
		t.Fatal("expected app dependencies to be assigned")
	}
	if a.ShutdownTimeout != 2*time.Second {
		t.Fatalf("expected shutdown timeout from config, got %s", a.ShutdownTimeout)
	}

	a = New(&config.Config{}, a.Logger, a.Server, nil)
	if a.ShutdownTimeout != 15*time.Second {
		t.Fatalf("expected default shutdown timeout, got %s", a.ShutdownTimeout)
	}
}

func TestRunStopsOnCancelAndRunsClosers(t *testing.T) {
	task := &recordingTask{}
	a := newTestApp(task)
	closed := false
	a.OnClose(func() error { closed = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
	if !task.started.Load() || !closed {
		t.Fatalf("expected task started and closer run, started=%v closed=%v", task.started.Load(), closed)
	}
}

func TestRunReturnsBackgroundFailure(t *testing.T) {
	boom := errors.New("sweeper crashed")
	a := newTestApp(&recordingTask{err: boom})

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected background error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after task failure")
	}
}
