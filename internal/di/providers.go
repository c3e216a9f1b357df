// Package di assembles the service graph with wire.
package di

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/KabriAcid/ScrynCard-sub001/internal/app"
	"github.com/KabriAcid/ScrynCard-sub001/internal/config"
	"github.com/KabriAcid/ScrynCard-sub001/internal/health"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/handler"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/router"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
	"github.com/KabriAcid/ScrynCard-sub001/internal/security"
	"github.com/KabriAcid/ScrynCard-sub001/internal/service"
)

// Logging is built before the graph so startup failures can be logged.
type Logging struct {
	Logger   *slog.Logger
	Provider *sdklog.LoggerProvider
}

// Toolkit is the subset of the graph used by one-shot CLI commands.
type Toolkit struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Auth     *service.AuthService
	Sessions *service.SessionManager
	Sweeper  *service.Sweeper
}

var loggingSet = wire.NewSet(
	wire.FieldsOf(new(Logging), "Logger", "Provider"),
)

var storageSet = wire.NewSet(
	provideDB,
	provideRedis,
	repository.NewSessionStore,
	wire.Bind(new(repository.SessionStore), new(*repository.GormSessionStore)),
	wire.Bind(new(service.SweepStore), new(*repository.GormSessionStore)),
	repository.NewAccountStore,
	wire.Bind(new(repository.AccountStore), new(*repository.GormAccountStore)),
)

var serviceSet = wire.NewSet(
	provideTokenCodec,
	wire.Bind(new(service.TokenCodec), new(*security.TokenCodec)),
	providePolicy,
	provideSessionManager,
	service.NewAuthService,
	provideSweepLock,
	provideSweeper,
)

var httpSet = wire.NewSet(
	provideCookieOptions,
	wire.Bind(new(handler.Authenticator), new(*service.AuthService)),
	wire.Bind(new(handler.SessionLifecycle), new(*service.SessionManager)),
	handler.NewAuthHandler,
	handler.NewSessionHandler,
	handler.NewAdminHandler,
	handler.NewPoliticianHandler,
	provideReadiness,
	provideRouter,
	provideHTTPServer,
)

var appSet = wire.NewSet(
	loggingSet,
	storageSet,
	serviceSet,
	httpSet,
	observability.InitRuntime,
	provideApp,
)

var toolkitSet = wire.NewSet(
	loggingSet,
	storageSet,
	serviceSet,
	wire.Struct(new(Toolkit), "*"),
)

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideRedis returns nil when no address is configured; callers fall back
// to process-local implementations.
func provideRedis(cfg *config.Config) (redis.UniversalClient, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return client, func() { _ = client.Close() }
}

func provideTokenCodec(cfg *config.Config) (*security.TokenCodec, error) {
	return security.NewTokenCodec(security.CodecOptions{
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
}

func providePolicy(cfg *config.Config) service.Policy {
	return service.Policy{
		SessionCeiling:     cfg.Session.Ceiling,
		TombstoneRetention: cfg.Session.TombstoneRetention,
		StoreTimeout:       cfg.Session.StoreTimeout,
	}
}

func provideSessionManager(store repository.SessionStore, codec service.TokenCodec, policy service.Policy, logger *slog.Logger) *service.SessionManager {
	return service.NewSessionManager(store, codec, policy, logger)
}

func provideSweepLock(client redis.UniversalClient) service.SweepLock {
	if client == nil {
		return service.NoopSweepLock{}
	}
	return service.NewRedisSweepLock(client, "")
}

func provideSweeper(cfg *config.Config, store service.SweepStore, lock service.SweepLock, logger *slog.Logger) *service.Sweeper {
	return service.NewSweeper(store, lock, cfg.Sweeper.Interval, cfg.Sweeper.LockTTL, logger)
}

func provideCookieOptions(cfg *config.Config) security.CookieOptions {
	return security.CookieOptions{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure}
}

func provideReadiness(db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(2*time.Second, checkers...)
}

func provideRouter(
	cfg *config.Config,
	logger *slog.Logger,
	codec *security.TokenCodec,
	client redis.UniversalClient,
	readiness *health.ProbeRunner,
	auth *handler.AuthHandler,
	sessions *handler.SessionHandler,
	admin *handler.AdminHandler,
	politician *handler.PoliticianHandler,
) http.Handler {
	dep := router.Dependencies{
		AuthHandler:         auth,
		SessionHandler:      sessions,
		AdminHandler:        admin,
		PoliticianHandler:   politician,
		Verifier:            codec,
		Logger:              logger,
		LoginRateLimitRPM:   cfg.Limits.LoginRPM,
		RefreshRateLimitRPM: cfg.Limits.RefreshRPM,
		Readiness:           readiness,
		EnableOTelHTTP:      cfg.OTEL.TracingEnabled || cfg.OTEL.MetricsEnabled,
	}
	if client != nil {
		limiter := middleware.NewRedisLimiter(client, "")
		dep.LoginRateLimiter = middleware.NewRateLimiter(limiter, cfg.Limits.LoginRPM, time.Minute, middleware.FailClosed, "login", logger).Middleware()
		dep.RefreshRateLimiter = middleware.NewRateLimiter(limiter, cfg.Limits.RefreshRPM, time.Minute, middleware.FailOpen, "refresh", logger).Middleware()
	}
	return router.NewRouter(dep)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideApp(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, sweeper *service.Sweeper) *app.App {
	if !cfg.Sweeper.Enabled {
		return app.New(cfg, logger, server, runtime)
	}
	return app.New(cfg, logger, server, runtime, sweeper)
}
