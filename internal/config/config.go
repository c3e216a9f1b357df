package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	minSecretLength = 32
	minAccessTTL    = 3 * time.Minute
	maxAccessTTL    = 15 * time.Minute
)

// Placeholder secrets shipped for local development only.
const (
	DevAccessSecret  = "dev-access-secret-change-me-0000000000"
	DevRefreshSecret = "dev-refresh-secret-change-me-000000000"
)

type Config struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	JWT      JWT      `envPrefix:"JWT_"`
	Session  Session  `envPrefix:"SESSION_"`
	Sweeper  Sweeper  `envPrefix:"SWEEPER_"`
	Limits   Limits   `envPrefix:"RATE_LIMIT_"`
	Cookie   Cookie   `envPrefix:"COOKIE_"`
	OTEL     OTEL     `envPrefix:"OTEL_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:sessiond.db?_foreign_keys=on"`
}

type Redis struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type JWT struct {
	Issuer        string        `env:"ISSUER" envDefault:"scryncard"`
	Audience      string        `env:"AUDIENCE" envDefault:"scryncard-web"`
	AccessSecret  string        `env:"ACCESS_SECRET" envDefault:"dev-access-secret-change-me-0000000000"`
	RefreshSecret string        `env:"REFRESH_SECRET" envDefault:"dev-refresh-secret-change-me-000000000"`
	AccessTTL     time.Duration `env:"ACCESS_TTL" envDefault:"10m"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

type Session struct {
	Ceiling            time.Duration `env:"CEILING" envDefault:"336h"`
	TombstoneRetention time.Duration `env:"TOMBSTONE_RETENTION" envDefault:"5m"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
}

type Sweeper struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"30s"`
}

type Limits struct {
	LoginRPM   int `env:"LOGIN_RPM" envDefault:"20"`
	RefreshRPM int `env:"REFRESH_RPM" envDefault:"60"`
}

type Cookie struct {
	Domain string `env:"DOMAIN"`
	Secure bool   `env:"SECURE" envDefault:"true"`
}

type OTEL struct {
	ServiceName           string        `env:"SERVICE_NAME" envDefault:"sessiond"`
	Environment           string        `env:"ENVIRONMENT" envDefault:"local"`
	ExporterEndpoint      string        `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ExporterInsecure      bool          `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	MetricsEnabled        bool          `env:"METRICS_ENABLED" envDefault:"false"`
	TracingEnabled        bool          `env:"TRACING_ENABLED" envDefault:"false"`
	LogsEnabled           bool          `env:"LOGS_ENABLED" envDefault:"false"`
	MetricsExportInterval time.Duration `env:"METRICS_EXPORT_INTERVAL" envDefault:"15s"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// ValidationError lists every rule a configuration broke.
type ValidationError struct {
	Profile string
	Rules   []string
	Err     error
}

func (e *ValidationError) Error() string { return "validate config: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Has(rule string) bool {
	return slices.Contains(e.Rules, rule)
}

// Validation rule names, also used as metric labels.
const (
	RuleSecretMissing     = "secret_missing"
	RuleSecretShared      = "secret_shared"
	RuleSecretShort       = "secret_short"
	RuleSecretPlaceholder = "secret_placeholder"
	RuleAccessTTLBounds   = "access_ttl_bounds"
	RuleRefreshTTLOrder   = "refresh_ttl_order"
	RuleSessionDurations  = "session_durations"
	RuleSweeperInterval   = "sweeper_interval"
	RuleDatabaseDriver    = "database_driver"
	RuleDatabaseDSN       = "database_dsn"
)

// Warning names for settings that are legal but weaken a deployment.
const (
	WarnCookieInsecure  = "cookie_insecure"
	WarnLocalRateLimits = "local_rate_limits"
	WarnSweeperDisabled = "sweeper_disabled"
)

func (c *Config) Validate() error {
	ve := &ValidationError{Profile: strings.ToLower(strings.TrimSpace(c.Env))}
	var errs []error
	fail := func(rule string, err error) {
		ve.Rules = append(ve.Rules, rule)
		errs = append(errs, err)
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		fail(RuleSecretMissing, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set"))
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		fail(RuleSecretShared, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if len(c.JWT.AccessSecret) < minSecretLength || len(c.JWT.RefreshSecret) < minSecretLength {
		fail(RuleSecretShort, fmt.Errorf("jwt secrets must be at least %d bytes", minSecretLength))
	}
	if !c.IsDevelopment() && (isPlaceholderSecret(c.JWT.AccessSecret) || isPlaceholderSecret(c.JWT.RefreshSecret)) {
		fail(RuleSecretPlaceholder, fmt.Errorf("placeholder jwt secrets are not allowed in %q", c.Env))
	}
	if c.JWT.AccessTTL < minAccessTTL || c.JWT.AccessTTL > maxAccessTTL {
		fail(RuleAccessTTLBounds, fmt.Errorf("JWT_ACCESS_TTL must be between %s and %s", minAccessTTL, maxAccessTTL))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		fail(RuleRefreshTTLOrder, errors.New("JWT_REFRESH_TTL must exceed JWT_ACCESS_TTL"))
	}
	if c.Session.Ceiling <= 0 || c.Session.TombstoneRetention <= 0 || c.Session.StoreTimeout <= 0 {
		fail(RuleSessionDurations, errors.New("SESSION_CEILING, SESSION_TOMBSTONE_RETENTION and SESSION_STORE_TIMEOUT must be positive"))
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		fail(RuleSweeperInterval, errors.New("SWEEPER_INTERVAL must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		fail(RuleDatabaseDriver, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		fail(RuleDatabaseDSN, errors.New("DATABASE_DSN is required"))
	}
	if len(errs) > 0 {
		ve.Err = errors.Join(errs...)
		return ve
	}
	return nil
}

// Warnings names the legal settings that should not reach production.
// Development profiles never warn.
func (c *Config) Warnings() []string {
	if c.IsDevelopment() {
		return nil
	}
	var warnings []string
	if !c.Cookie.Secure {
		warnings = append(warnings, WarnCookieInsecure)
	}
	if c.Redis.Addr == "" {
		warnings = append(warnings, WarnLocalRateLimits)
	}
	if !c.Sweeper.Enabled {
		warnings = append(warnings, WarnSweeperDisabled)
	}
	return warnings
}

func isPlaceholderSecret(secret string) bool {
	s := strings.ToLower(secret)
	return s == DevAccessSecret || s == DevRefreshSecret || strings.Contains(s, "change-me") || strings.Contains(s, "changeme")
}
