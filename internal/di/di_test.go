package di

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:      "test",
		HTTPAddr: "127.0.0.1:0",
		Database: config.Database{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"},
		JWT: config.JWT{
			Issuer:        "iss",
			Audience:      "aud",
			AccessSecret:  "abcdefghijklmnopqrstuvwxyz123456",
			RefreshSecret: "abcdefghijklmnopqrstuvwxyz654321",
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		Session:         config.Session{Ceiling: 24 * time.Hour, TombstoneRetention: time.Minute, StoreTimeout: time.Second},
		Sweeper:         config.Sweeper{Enabled: true, Interval: time.Minute, LockTTL: 10 * time.Second},
		Limits:          config.Limits{LoginRPM: 10, RefreshRPM: 10},
		ShutdownTimeout: time.Second,
	}
}

func testLogging() Logging {
	return Logging{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestInitializeAppWiresRouter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.Addr = miniredis.RunT(t).Addr()

	a, cleanup, err := InitializeApp(context.Background(), cfg, testLogging())
	if err != nil {
		t.Fatalf("initialize app: %v", err)
	}
	t.Cleanup(cleanup)
	if len(a.Background) != 1 {
		t.Fatalf("expected sweeper registered, got %d tasks", len(a.Background))
	}

	rr := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected live 200, got %d", rr.Code)
	}
}

func TestInitializeToolkitRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"
	if _, _, err := InitializeToolkit(cfg, testLogging()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestInitializeToolkitMigratesAndSweeps(t *testing.T) {
	cfg := testConfig(t)
	tk, cleanup, err := InitializeToolkit(cfg, testLogging())
	if err != nil {
		t.Fatalf("initialize toolkit: %v", err)
	}
	t.Cleanup(cleanup)
	if err := repository.Migrate(tk.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := tk.Sweeper.SweepOnce(context.Background()); err != nil {
		t.Fatalf("sweep once: %v", err)
	}
}
