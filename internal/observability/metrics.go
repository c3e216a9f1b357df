package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KabriAcid/ScrynCard-sub001/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "sessiond"

type AppMetrics struct {
	sessionCreateCounter metric.Int64Counter
	sessionRotateCounter metric.Int64Counter
	sessionRevokeCounter metric.Int64Counter
	sweepPurgedCounter   metric.Int64Counter
	accessTokenCounter   metric.Int64Counter
	repositoryOpCounter  metric.Int64Counter
	rateLimitCounter     metric.Int64Counter
	configCounter        metric.Int64Counter
	rotateDurationMillis metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

// InitMetrics installs the global meter provider. Counters are registered
// against it even when export is disabled so tests can attach a reader.
func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTEL.MetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		if err := RegisterMetrics(mp); err != nil {
			return nil, err
		}
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTEL.ExporterEndpoint)}
	if cfg.OTEL.ExporterInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTEL.MetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	if err := RegisterMetrics(mp); err != nil {
		return nil, err
	}

	logger.Info("otel metrics initialized", "endpoint", cfg.OTEL.ExporterEndpoint)
	return mp, nil
}

func RegisterMetrics(provider metric.MeterProvider) error {
	meter := provider.Meter(meterName)
	m := &AppMetrics{}
	var err error
	if m.sessionCreateCounter, err = meter.Int64Counter("session.create"); err != nil {
		return err
	}
	if m.sessionRotateCounter, err = meter.Int64Counter("session.rotate"); err != nil {
		return err
	}
	if m.sessionRevokeCounter, err = meter.Int64Counter("session.revoke"); err != nil {
		return err
	}
	if m.sweepPurgedCounter, err = meter.Int64Counter("session.sweep.purged"); err != nil {
		return err
	}
	if m.accessTokenCounter, err = meter.Int64Counter("auth.access_token.validation"); err != nil {
		return err
	}
	if m.repositoryOpCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return err
	}
	if m.rateLimitCounter, err = meter.Int64Counter("http.rate_limit.decisions"); err != nil {
		return err
	}
	if m.configCounter, err = meter.Int64Counter("config.validation.events"); err != nil {
		return err
	}
	if m.rotateDurationMillis, err = meter.Float64Histogram("session.rotate.duration", metric.WithUnit("ms")); err != nil {
		return err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordSessionCreate(ctx context.Context, role, status string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionCreateCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("status", status),
	))
}

// RecordSessionRotate counts rotation outcomes by error code, or "success".
func RecordSessionRotate(ctx context.Context, outcome string, durationMillis float64) {
	m := current()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.sessionRotateCounter.Add(ctx, 1, attrs)
	m.rotateDurationMillis.Record(ctx, durationMillis, attrs)
}

func RecordSessionRevoke(ctx context.Context, reason string, count int64) {
	m := current()
	if m == nil || count <= 0 {
		return
	}
	m.sessionRevokeCounter.Add(ctx, count, metric.WithAttributes(attribute.String("reason", reason)))
}

func RecordSweepPurged(ctx context.Context, kind string, count int64) {
	m := current()
	if m == nil {
		return
	}
	m.sweepPurgedCounter.Add(ctx, count, metric.WithAttributes(attribute.String("kind", kind)))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := current()
	if m == nil {
		return
	}
	m.accessTokenCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

// RecordConfigValidation counts the startup configuration outcome. Rule is
// a config warning name, or "none".
func RecordConfigValidation(ctx context.Context, profile, outcome, rule string) {
	m := current()
	if m == nil {
		return
	}
	m.configCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profile),
		attribute.String("outcome", outcome),
		attribute.String("rule", rule),
	))
}
