package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Cache     CacheConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SourceConfig points at the remote products endpoint.
type SourceConfig struct {
	URL          string
	Timeout      time.Duration
	RetryBackoff time.Duration
}

type CacheConfig struct {
	Enabled  bool
	TTL      time.Duration
	RedisURL string
}

type DashboardConfig struct {
	TopStates      int
	DefaultSellers int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Source: SourceConfig{
			URL:          getEnvString("SOURCE_URL", "https://labdados.com/produtos"),
			Timeout:      getEnvDuration("SOURCE_TIMEOUT", 15*time.Second),
			RetryBackoff: getEnvDuration("SOURCE_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", true),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
			RedisURL: getEnvString("REDIS_URL", ""),
		},
		Dashboard: DashboardConfig{
			TopStates:      getEnvInt("DASHBOARD_TOP_STATES", 5),
			DefaultSellers: getEnvInt("DASHBOARD_DEFAULT_SELLERS", 5),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "SERVER_READ_TIMEOUT must be positive")
	check(c.Server.WriteTimeout > 0, "SERVER_WRITE_TIMEOUT must be positive")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	check(isHTTPURL(c.Source.URL), "SOURCE_URL must be an absolute http(s) URL, got %q", c.Source.URL)
	check(c.Source.Timeout > 0, "SOURCE_TIMEOUT must be positive")
	check(c.Source.RetryBackoff >= 0, "SOURCE_RETRY_BACKOFF cannot be negative")

	if c.Cache.Enabled {
		check(c.Cache.TTL > 0, "CACHE_TTL must be positive when the cache is enabled")
		if c.Cache.RedisURL != "" {
			u, err := url.Parse(c.Cache.RedisURL)
			check(err == nil && (u.Scheme == "redis" || u.Scheme == "rediss"),
				"REDIS_URL must use the redis:// or rediss:// scheme, got %q", c.Cache.RedisURL)
		}
	}

	check(c.Dashboard.TopStates > 0, "DASHBOARD_TOP_STATES must be positive")
	check(c.Dashboard.DefaultSellers >= 1 && c.Dashboard.DefaultSellers <= 10,
		"DASHBOARD_DEFAULT_SELLERS must be between 1 and 10, got %d", c.Dashboard.DefaultSellers)

	check(slices.Contains(logLevels, strings.ToLower(c.Logger.Level)),
		"LOG_LEVEL %q must be one of: %s", c.Logger.Level, strings.Join(logLevels, ", "))
	check(slices.Contains(logFormats, strings.ToLower(c.Logger.Format)),
		"LOG_FORMAT %q must be one of: %s", c.Logger.Format, strings.Join(logFormats, ", "))

	if c.Security.EnableRateLimit {
		check(c.Security.RateLimitRPS > 0, "SECURITY_RATE_LIMIT_RPS must be positive")
		check(c.Security.RateLimitBurst > 0, "SECURITY_RATE_LIMIT_BURST must be positive")
	}

	return errors.Join(errs...)
}

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"json", "text"}
)

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnvString(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

// getEnvStringSlice splits a comma separated variable, dropping blanks.
func getEnvStringSlice(key string, defaultValue []string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
