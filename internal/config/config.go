package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request handler timeout

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote API
	APIBaseURL    string        // ex: "https://api.hellogithub.com/v1"
	APITimeout    time.Duration // per attempt
	APIRateLimit  float64       // requests per second towards the API
	APIBurst      int
	APIMaxRetries int
	UserAgent     string

	// Response cache
	TagCacheTTL     time.Duration
	LicenseCacheTTL time.Duration

	// Comment feeds and ui sessions kept in memory per viewer
	FeedIdleTTL   time.Duration // idle feeds are closed after this
	SweepInterval time.Duration

	// Site description file (header navigation, footer links)
	SiteFile           string
	SiteReloadInterval time.Duration

	// Sessions
	SessionCookie string
	SessionTTL    time.Duration
	SecureCookie  bool

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	OpsCIDRS        []string // restrict ops endpoints (healthz, infra, reload, metrics)
	OpsHosts        []string // Host headers accepted on ops endpoints, "*.example.com" allowed
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimitBurst  int      // public routes, per client IP
	RateLimitPerMin int
}

// Load reads .env (when present) then the process environment.
// Variables already set in the environment win over .env entries.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] failed to read .env: %v", err)
	}

	cfg := &Config{
		ListenPort:      getenv("HUBFEED_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("HUBFEED_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("HUBFEED_REQUEST_TIMEOUT", 10*time.Second),

		LogLevel:  getenv("HUBFEED_LOG_LEVEL", "info"),
		PrettyLog: mustBool("HUBFEED_PRETTY_LOG", true),

		APIBaseURL:    strings.TrimRight(requireEnv("HUBFEED_API_BASE_URL"), "/"),
		APITimeout:    mustDuration("HUBFEED_API_TIMEOUT", 5*time.Second),
		APIRateLimit:  getenvFloat("HUBFEED_API_RATE_LIMIT", 20),
		APIBurst:      getenvInt("HUBFEED_API_BURST", 40),
		APIMaxRetries: getenvInt("HUBFEED_API_MAX_RETRIES", 2),
		UserAgent:     getenv("HUBFEED_USER_AGENT", "hubfeed/1.0"),

		TagCacheTTL:     mustDuration("HUBFEED_TAG_CACHE_TTL", 10*time.Minute),
		LicenseCacheTTL: mustDuration("HUBFEED_LICENSE_CACHE_TTL", 24*time.Hour),

		FeedIdleTTL:   mustDuration("HUBFEED_FEED_IDLE_TTL", 30*time.Minute),
		SweepInterval: mustDuration("HUBFEED_SWEEP_INTERVAL", time.Minute),

		SiteFile:           getenv("HUBFEED_SITE_FILE", "/app/site.yaml"),
		SiteReloadInterval: mustDuration("HUBFEED_SITE_RELOAD_INTERVAL", time.Hour),

		SessionCookie: getenv("HUBFEED_SESSION_COOKIE", "hubfeed_sid"),
		SessionTTL:    mustDuration("HUBFEED_SESSION_TTL", 7*24*time.Hour),
		SecureCookie:  mustBool("HUBFEED_SECURE_COOKIE", true),

		RedisAddr:             requireEnv("HUBFEED_REDIS_ADDR"),
		RedisUser:             getenv("HUBFEED_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("HUBFEED_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("HUBFEED_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("HUBFEED_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		OpsCIDRS:        splitAndTrim(getenv("HUBFEED_OPS_CIDRS", "")),
		OpsHosts:        splitAndTrim(getenv("HUBFEED_OPS_HOSTS", "")),
		TrustProxy:      mustBool("HUBFEED_TRUST_PROXY", true),
		RateLimitBurst:  getenvInt("HUBFEED_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("HUBFEED_RATE_LIMIT_PER_MIN", 120),
	}

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: HUBFEED_REDIS_PASSWORD is required when HUBFEED_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := requireEnv(key)
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		// Remove surrounding quotes if present
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
