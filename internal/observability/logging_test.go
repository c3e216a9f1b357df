package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{LogLevel: "warn"}
	logger, lp, err := NewLogger(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if lp != nil {
		t.Fatal("expected no logger provider when otel logs are disabled")
	}
	logger.Info("dropped")
	logger.Warn("kept", "session_id", "s-1")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "kept" || rec["session_id"] != "s-1" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestFanoutHandlerDeliversToEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := fanoutHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("component", "sweeper")
	logger.Info("info only")
	logger.Error("both")

	if bytes.Count(a.Bytes(), []byte("\n")) != 2 {
		t.Fatalf("expected 2 records in first handler, got %q", a.String())
	}
	if bytes.Count(b.Bytes(), []byte("\n")) != 1 || !bytes.Contains(b.Bytes(), []byte(`"component":"sweeper"`)) {
		t.Fatalf("expected 1 error record with attrs in second handler, got %q", b.String())
	}
}
