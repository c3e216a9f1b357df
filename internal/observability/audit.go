package observability

import (
	"context"
	"log/slog"
)

// Audit writes a security event record. Level is chosen by the caller so
// anomalies can be raised above routine events.
func Audit(ctx context.Context, level slog.Level, event string, attrs ...any) {
	base := []any{"event", event}
	base = append(base, attrs...)
	slog.Log(ctx, level, "audit", base...)
}
