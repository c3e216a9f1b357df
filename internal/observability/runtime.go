package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Runtime, error) {
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx))
	}
	recordConfig(ctx, cfg, logger)
	return &Runtime{MeterProvider: mp, TracerProvider: tp, LoggerProvider: lp}, nil
}

// recordConfig runs once the meter provider exists; values recorded on the
// global meter before that are dropped.
func recordConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	profile := strings.ToLower(strings.TrimSpace(cfg.Env))
	RecordConfigValidation(ctx, profile, "success", "none")
	for _, w := range cfg.Warnings() {
		RecordConfigValidation(ctx, profile, "warning", w)
		logger.WarnContext(ctx, "config.warning", "rule", w, "profile", profile)
	}
}

func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.MeterProvider != nil {
		if err := r.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.TracerProvider != nil {
		if err := r.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.LoggerProvider != nil {
		if err := r.LoggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
