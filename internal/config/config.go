package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	Redis RedisConfig

	RateLimit RateLimitConfig

	Scheduler SchedulerConfig

	Metrics MetricsPushConfig

	Admin AdminConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// ObservabilityConfig drives logging, tracing and SQL statement logging.
// SQLLogLevel takes silent, error, warn or info.
type ObservabilityConfig struct {
	LogLevel           string
	LogFormat          string
	SQLLogLevel        string
	SlowQueryThreshold time.Duration
	OtelEnabled        bool
	OtelProtocol       string
	OtelSamplingRatio  float64
}

// RateLimitConfig throttles report downloads per admin user. Rate is in
// downloads per second.
type RateLimitConfig struct {
	Enabled     bool
	ExportRate  float64
	ExportBurst int
}

// SchedulerConfig controls the in-process monthly close. CloseDay is the day
// of month from which the previous month is generated.
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	CloseDay   int
	JobTimeout time.Duration
}

// MetricsPushConfig controls where batch report metrics are pushed.
type MetricsPushConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	Job       string
	Interval  time.Duration
}

type AdminConfig struct {
	// Header carries the authenticated admin user id set by the upstream gateway.
	Header string
	// Bootstrap users are granted the admin role on startup.
	Bootstrap []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "loobook-reporting"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "loobook"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),
		Observability: ObservabilityConfig{
			LogLevel:           strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:          strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			SQLLogLevel:        strings.ToLower(strings.TrimSpace(getenv("DATABASE_LOG_LEVEL", "warn"))),
			SlowQueryThreshold: getenvDuration("DATABASE_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
			OtelEnabled:        getenvBool("OTEL_ENABLED", true),
			OtelProtocol:       strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
			OtelSamplingRatio:  getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			ExportRate:  getenvFloat("RATE_LIMIT_EXPORT_RATE", 0.5),
			ExportBurst: getenvInt("RATE_LIMIT_EXPORT_BURST", 10),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getenvBool("SCHEDULER_ENABLED", false),
			Interval:   getenvDuration("SCHEDULER_INTERVAL", time.Hour),
			CloseDay:   getenvInt("SCHEDULER_CLOSE_DAY", 1),
			JobTimeout: getenvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Minute),
		},
		Metrics: MetricsPushConfig{
			Enabled:   getenvBool("METRICS_PUSH_ENABLED", false),
			Exporter:  strings.ToLower(getenv("METRICS_PUSH_EXPORTER", "pushgateway")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
			Job:       getenv("METRICS_PUSH_JOB", "loobook_reporting"),
			Interval:  getenvDuration("METRICS_PUSH_INTERVAL", time.Minute),
		},
		Admin: AdminConfig{
			Header:    getenv("ADMIN_USER_HEADER", "X-Admin-User"),
			Bootstrap: parseList(getenv("ADMIN_BOOTSTRAP_USERS", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
