package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	API      APIConfig
	Session  SessionConfig
	DevAPI   DevAPIConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for the session audit trail.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// APIConfig points at the remote management API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig defines browser session parameters.
type SessionConfig struct {
	Secret                string
	CookieName            string
	CookieSecure          bool
	CookieTTLHours        int
	NamespacePrefix       string
	NamespaceTTLHours     int
	IdleTimeoutMinutes    int
	SweepIntervalSeconds  int
	SweepRetentionMinutes int
	FreshRetentionSeconds int
	GuardInitWaitMillis   int
}

// DevAPIConfig configures the local authentication collaborator.
type DevAPIConfig struct {
	Host          string
	Port          string
	JWTSecret     string
	TokenTTLHours int
	BcryptCost    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "dairy-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL:        getEnv("PORTAL_API_BASE_URL", "http://127.0.0.1:8090"),
			TimeoutSeconds: getEnvAsInt("PORTAL_API_TIMEOUT_SECONDS", 15),
		},
		Session: SessionConfig{
			Secret:                getEnv("SESSION_SECRET", "dev-session-secret"),
			CookieName:            getEnv("SESSION_COOKIE_NAME", "portal_sid"),
			CookieSecure:          getEnvAsBool("SESSION_COOKIE_SECURE", false),
			CookieTTLHours:        getEnvAsInt("SESSION_COOKIE_TTL_HOURS", 24),
			NamespacePrefix:       getEnv("SESSION_NAMESPACE_PREFIX", "portal"),
			NamespaceTTLHours:     getEnvAsInt("SESSION_NAMESPACE_TTL_HOURS", 24),
			IdleTimeoutMinutes:    getEnvAsInt("SESSION_IDLE_TIMEOUT_MINUTES", 10),
			SweepIntervalSeconds:  getEnvAsInt("SESSION_SWEEP_INTERVAL_SECONDS", 60),
			SweepRetentionMinutes: getEnvAsInt("SESSION_SWEEP_RETENTION_MINUTES", 30),
			FreshRetentionSeconds: getEnvAsInt("SESSION_SWEEP_FRESH_RETENTION_SECONDS", 60),
			GuardInitWaitMillis:   getEnvAsInt("GUARD_INIT_WAIT_MS", 2000),
		},
		DevAPI: DevAPIConfig{
			Host:          getEnv("DEVAPI_HOST", "127.0.0.1"),
			Port:          getEnv("DEVAPI_PORT", "8090"),
			JWTSecret:     getEnv("DEVAPI_JWT_SECRET", "dev-api-secret"),
			TokenTTLHours: getEnvAsInt("DEVAPI_TOKEN_TTL_HOURS", 8),
			BcryptCost:    getEnvAsInt("DEVAPI_BCRYPT_COST", 10),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the outbound request timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// IdleTimeout returns the inactivity window after which a session is closed.
func (s SessionConfig) IdleTimeout() time.Duration {
	if s.IdleTimeoutMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// CookieTTL returns the lifetime of the signed session cookie.
func (s SessionConfig) CookieTTL() time.Duration {
	if s.CookieTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.CookieTTLHours) * time.Hour
}

// NamespaceTTL bounds how long an abandoned namespace survives in Redis.
func (s SessionConfig) NamespaceTTL() time.Duration {
	if s.NamespaceTTLHours <= 0 {
		return 0
	}
	return time.Duration(s.NamespaceTTLHours) * time.Hour
}

// SweepInterval returns how often the registry janitor runs.
func (s SessionConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// SweepRetention returns how long an unauthenticated entry is kept after its last request.
func (s SessionConfig) SweepRetention() time.Duration {
	if s.SweepRetentionMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.SweepRetentionMinutes) * time.Minute
}

// FreshRetention returns how long an entry minted for a cookieless request is
// kept when the browser never presents its cookie again.
func (s SessionConfig) FreshRetention() time.Duration {
	if s.FreshRetentionSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.FreshRetentionSeconds) * time.Second
}

// GuardInitWait bounds how long the guard waits for session restoration.
func (s SessionConfig) GuardInitWait() time.Duration {
	if s.GuardInitWaitMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(s.GuardInitWaitMillis) * time.Millisecond
}

// Addr returns the dev API bind address.
func (d DevAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
