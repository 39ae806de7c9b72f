package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the full process configuration, loaded once at startup.
type Config struct {
	Port      string
	LogLevel  slog.Level
	LogFormat string
	Store     StoreConfig
	Database  DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Documents DocumentsConfig
	Ledger    LedgerConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// StoreConfig picks the storage backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	SecretKey string
}

type DocumentsConfig struct {
	Dir            string
	MaxUploadBytes int64
}

// RateLimitConfig bounds API throughput. RPS <= 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type MetricsConfig struct {
	Enabled bool
}

// LedgerConfig tunes the ledger engine.
type LedgerConfig struct {
	// StatsSanityThreshold: an aggregate above this is treated as corrupted data.
	StatsSanityThreshold decimal.Decimal
	// StatsRowCap: rows above this amount are ignored when recomputing suspicious stats.
	StatsRowCap   decimal.Decimal
	StatsCacheTTL time.Duration
}

// DefaultLedgerConfig is used by tests and when nothing is configured.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		StatsSanityThreshold: decimal.New(1, 12),
		StatsRowCap:          decimal.New(1, 9),
		StatsCacheTTL:        5 * time.Minute,
	}
}

var envBindings = map[string]string{
	"port":                          "PORT",
	"log.level":                     "LOG_LEVEL",
	"log.format":                    "LOG_FORMAT",
	"store.driver":                  "STORE_DRIVER",
	"database.host":                 "DATABASE_HOST",
	"database.port":                 "DATABASE_PORT",
	"database.user":                 "DATABASE_USER",
	"database.password":             "DATABASE_PASSWORD",
	"database.name":                 "DATABASE_NAME",
	"database.ssl_mode":             "DATABASE_SSL_MODE",
	"redis.enabled":                 "REDIS_ENABLED",
	"redis.host":                    "REDIS_HOST",
	"redis.port":                    "REDIS_PORT",
	"redis.password":                "REDIS_PASSWORD",
	"redis.db":                      "REDIS_DB",
	"auth.enabled":                  "AUTH_ENABLED",
	"jwt.secret_key":                "JWT_SECRET_KEY",
	"documents.dir":                 "DOCUMENTS_DIR",
	"documents.max_upload_bytes":    "DOCUMENTS_MAX_UPLOAD_BYTES",
	"ledger.stats_sanity_threshold": "LEDGER_STATS_SANITY_THRESHOLD",
	"ledger.stats_row_cap":          "LEDGER_STATS_ROW_CAP",
	"ledger.stats_cache_ttl":        "LEDGER_STATS_CACHE_TTL",
	"rate_limit.rps":                "RATE_LIMIT_RPS",
	"rate_limit.burst":              "RATE_LIMIT_BURST",
	"metrics.enabled":               "METRICS_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "postgres")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "tresorerie")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("jwt.secret_key", "")

	v.SetDefault("documents.dir", "./data/documents")
	v.SetDefault("documents.max_upload_bytes", 10<<20)

	v.SetDefault("ledger.stats_sanity_threshold", "1000000000000")
	v.SetDefault("ledger.stats_row_cap", "1000000000")
	v.SetDefault("ledger.stats_cache_ttl", 5*time.Minute)

	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("metrics.enabled", true)
}

// Load reads the optional env file, then environment variables, on top of defaults.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// missing env file is fine, environment variables still apply
		if err := v.ReadInConfig(); err == nil {
			applyEnvFile(v)
		}
	}

	return fromViper(v)
}

// applyEnvFile maps FOO_BAR entries of the env file onto their dotted keys.
// Real environment variables keep precedence.
func applyEnvFile(v *viper.Viper) {
	for key, env := range envBindings {
		if _, ok := os.LookupEnv(env); ok {
			continue
		}
		if fileKey := strings.ToLower(env); v.InConfig(fileKey) {
			v.Set(key, v.Get(fileKey))
		}
	}
}

func fromViper(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return nil, err
	}

	threshold, err := decimal.NewFromString(v.GetString("ledger.stats_sanity_threshold"))
	if err != nil {
		return nil, err
	}
	rowCap, err := decimal.NewFromString(v.GetString("ledger.stats_row_cap"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:      v.GetString("port"),
		LogLevel:  level,
		LogFormat: v.GetString("log.format"),
		Store:     StoreConfig{Driver: v.GetString("store.driver")},
		Database: DBConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("auth.enabled"),
			SecretKey: v.GetString("jwt.secret_key"),
		},
		Documents: DocumentsConfig{
			Dir:            v.GetString("documents.dir"),
			MaxUploadBytes: v.GetInt64("documents.max_upload_bytes"),
		},
		Ledger: LedgerConfig{
			StatsSanityThreshold: threshold,
			StatsRowCap:          rowCap,
			StatsCacheTTL:        v.GetDuration("ledger.stats_cache_ttl"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rate_limit.rps"),
			Burst: v.GetInt("rate_limit.burst"),
		},
		Metrics: MetricsConfig{Enabled: v.GetBool("metrics.enabled")},
	}, nil
}
