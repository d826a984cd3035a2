package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	// Upper bound for every single repository call.
	QueryTimeout time.Duration
	AutoMigrate  bool
	Seed         bool
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Global rate limit per client IP
	RequestsPerSecond float64
	BurstSize         int
	// Auth endpoints have stricter limits
	AuthRequestsPerMinute int
	// When set, limits are shared across instances through Redis.
	RedisAddr string
}

// BootstrapConfig describes the admin account created on first start.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the environment. Malformed values are
// reported together with the validation errors instead of silently falling
// back to defaults.
func Load() (*Config, error) {
	e := &env{}
	cfg := &Config{
		App: AppConfig{
			Name:        e.str("APP_NAME", "clinicflow-api"),
			Environment: e.str("APP_ENV", "development"),
			Version:     e.str("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            e.str("SERVER_HOST", "0.0.0.0"),
			Port:            e.integer("SERVER_PORT", 8080),
			ReadTimeout:     e.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    e.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     e.duration("SERVER_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout: e.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:               e.str("DB_HOST", "localhost"),
			Port:               e.integer("DB_PORT", 5432),
			Name:               e.str("DB_NAME", "clinicflow"),
			User:               e.str("DB_USER", "clinicflow"),
			Password:           e.str("DB_PASSWORD", ""),
			SSLMode:            e.str("DB_SSLMODE", "require"),
			MaxOpenConns:       e.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       e.integer("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    e.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:    e.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryThreshold: e.duration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
			QueryTimeout:       e.duration("DB_QUERY_TIMEOUT", 5*time.Second),
			AutoMigrate:        e.boolean("DB_AUTO_MIGRATE", true),
			Seed:               e.boolean("DB_SEED", false),
		},
		JWT: JWTConfig{
			Secret:          e.str("JWT_SECRET", ""),
			AccessTokenTTL:  e.duration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: e.duration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          e.str("JWT_ISSUER", "clinicflow-api"),
		},
		Log: LogConfig{
			Level:      e.str("LOG_LEVEL", "info"),
			Format:     e.str("LOG_FORMAT", "json"),
			OutputPath: e.str("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:      e.boolean("TRACING_ENABLED", false),
			ServiceName:  e.str("TRACING_SERVICE_NAME", "clinicflow-api"),
			OTLPEndpoint: e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318"),
			SampleRate:   e.number("TRACING_SAMPLE_RATE", 0.1),
		},
		CORS: CORSConfig{
			AllowedOrigins: e.list("CORS_ALLOWED_ORIGINS", "http://localhost:3000", "https://localhost:3000"),
			AllowedMethods: e.list("CORS_ALLOWED_METHODS", "GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"),
			AllowedHeaders: e.list("CORS_ALLOWED_HEADERS", "Authorization", "Content-Type", "X-Request-ID"),
			MaxAge:         e.duration("CORS_MAX_AGE", 12*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:     e.number("RATE_LIMIT_RPS", 100),
			BurstSize:             e.integer("RATE_LIMIT_BURST", 200),
			AuthRequestsPerMinute: e.integer("RATE_LIMIT_AUTH_RPM", 10),
			RedisAddr:             e.str("RATE_LIMIT_REDIS_ADDR", ""),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    e.str("BOOTSTRAP_ADMIN_EMAIL", ""),
			AdminPassword: e.str("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	problems := append(e.errs, validate(cfg)...)
	if len(problems) > 0 {
		return nil, fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

func validate(cfg *Config) []string {
	var errs []string
	prod := cfg.App.Environment == "production"

	switch {
	case cfg.JWT.Secret == "":
		errs = append(errs, "JWT_SECRET is required")
	case prod && len(cfg.JWT.Secret) < 32:
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}
	if prod && cfg.Database.SSLMode == "disable" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}
	if cfg.Database.QueryTimeout <= 0 {
		errs = append(errs, "DB_QUERY_TIMEOUT must be positive")
	}
	if cfg.RateLimit.BurstSize <= 0 || cfg.RateLimit.AuthRequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST and RATE_LIMIT_AUTH_RPM must be positive")
	}

	switch b := cfg.Bootstrap; {
	case (b.AdminEmail == "") != (b.AdminPassword == ""):
		errs = append(errs, "BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	case b.AdminPassword != "" && len(b.AdminPassword) < 12:
		errs = append(errs, "BOOTSTRAP_ADMIN_PASSWORD must be at least 12 characters")
	}

	return errs
}

// env reads typed variables and remembers the ones it could not parse.
type env struct {
	errs []string
}

func (e *env) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *env) invalid(key, v, want string) {
	e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a valid %s", key, v, want))
}

func (e *env) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, "integer")
		return fallback
	}
	return i
}

func (e *env) number(key string, fallback float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, "number")
		return fallback
	}
	return f
}

func (e *env) boolean(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v, "boolean")
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(key, v, "duration")
		return fallback
	}
	return d
}

// list splits a comma separated value, dropping empty entries.
func (e *env) list(key string, fallback ...string) []string {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
