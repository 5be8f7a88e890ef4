package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// App
	Env string // dev / staging / prod

	// HTTP
	HTTPAddr string

	// Auth / Security
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	InternalSecret  string

	// Infrastructure
	DBAddr        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string

	// Cache tuning
	KeyCacheTTL time.Duration // internal/store/rediscache.CachedKeyRepo TTL

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Token lifetimes beyond Access/Refresh (§4.3's "short" class: reset,
	// email/password update confirms, revoke confirms)
	ShortTokenTTL time.Duration

	// OAuth Providers
	GitHubClientID         string
	GitHubClientSecret     string
	GitHubRedirectURI      string
	MicrosoftClientID      string
	MicrosoftClientSecret  string
	MicrosoftTenant        string
	MicrosoftRedirectURI   string
	OAuthStateTTL          time.Duration // default 10m

	// Mail
	MailFromName string
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string

	// Bootstrap
	RootKeySeed       string        // root key value minted at startup unless a root key with this value exists
	CsrfSweepInterval time.Duration // how often the advisory-locked CSRF sweep runs
	AuditUpdateGrace  time.Duration // §4.4 bounded-update window

	// Password policy
	PwnedPasswordsEnabled bool
	Argon2Memory          uint32
	Argon2Iterations      uint32
	Argon2Parallelism     uint8

	// Debug toggles
	DBDebug bool
}

func Load() (*Config, error) {
	cfg := &Config{}

	// ✅ Env (support both APP_ENV and ENV)
	cfg.Env = getEnvFirst([]string{"APP_ENV", "ENV"}, "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// required values
	cfg.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	cfg.InternalSecret = getEnv("INTERNAL_SECRET_KEY", "dev-secret-key")
	if cfg.Env == "prod" && cfg.InternalSecret == "dev-secret-key" {
		return nil, fmt.Errorf("INTERNAL_SECRET_KEY must be set in prod")
	}

	// optional with defaults
	var err error
	cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.ShortTokenTTL, err = getDuration("SHORT_TOKEN_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	// Infrastructure DSNs (required)
	cfg.DBAddr = strings.TrimSpace(os.Getenv("DB_ADDR"))
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	// ✅ Basic DSN sanity check (catches \r and broken url)
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, fmt.Errorf("invalid DB_ADDR: %w", err)
	}

	// ✅ Redis (addr required in your current design)
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
	}
	cfg.RedisPassword = strings.TrimSpace(os.Getenv("REDIS_PASSWORD")) // optional, can be empty

	cfg.RedisDB, err = getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	// ✅ Key cache TTL (optional)
	cfg.KeyCacheTTL, err = getDuration("KEY_CACHE_TTL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	// Timeouts (optional)
	cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}

	// Debug flags
	cfg.DBDebug = parseBool(getEnv("DB_DEBUG", "false"))

	// OAuth configuration (optional - only required if a given provider is used)
	cfg.GitHubClientID = getEnv("GITHUB_CLIENT_ID", "")
	cfg.GitHubClientSecret = getEnv("GITHUB_CLIENT_SECRET", "")
	cfg.GitHubRedirectURI = getEnv("GITHUB_REDIRECT_URI", "http://localhost:8080/v1/oauth/github/callback")
	cfg.MicrosoftClientID = getEnv("MICROSOFT_CLIENT_ID", "")
	cfg.MicrosoftClientSecret = getEnv("MICROSOFT_CLIENT_SECRET", "")
	cfg.MicrosoftTenant = getEnv("MICROSOFT_TENANT", "common")
	cfg.MicrosoftRedirectURI = getEnv("MICROSOFT_REDIRECT_URI", "http://localhost:8080/v1/oauth/microsoft/callback")
	cfg.OAuthStateTTL, err = getDuration("OAUTH_STATE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.MailFromName = getEnv("MAIL_FROM_NAME", "sso")
	cfg.SMTPAddr = getEnv("SMTP_ADDR", "localhost:1025")
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")

	// Bootstrap
	cfg.RootKeySeed = strings.TrimSpace(os.Getenv("ROOT_KEY_SEED"))
	cfg.CsrfSweepInterval, err = getDuration("CSRF_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.AuditUpdateGrace, err = getDuration("AUDIT_UPDATE_GRACE", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	// Password policy
	cfg.PwnedPasswordsEnabled = parseBool(getEnv("PWNED_PASSWORDS_ENABLED", "false"))
	argon2Memory, err := getInt("ARGON2_MEMORY_KIB", 64*1024)
	if err != nil {
		return nil, err
	}
	cfg.Argon2Memory = uint32(argon2Memory)
	argon2Iterations, err := getInt("ARGON2_ITERATIONS", 3)
	if err != nil {
		return nil, err
	}
	cfg.Argon2Iterations = uint32(argon2Iterations)
	argon2Parallelism, err := getInt("ARGON2_PARALLELISM", 2)
	if err != nil {
		return nil, err
	}
	cfg.Argon2Parallelism = uint8(argon2Parallelism)

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFirst(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("scheme must be postgres/postgresql, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	// must have db name path like /app
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("missing database name in path, expected /<db>")
	}
	return nil
}

