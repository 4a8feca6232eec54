package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

type Config struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`
	Timezone      string `yaml:"timezone"`

	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	// StoreQuotaBytes caps the memory backend; 0 is unlimited.
	StoreQuotaBytes int    `yaml:"store_quota_bytes"`
	SeedDemoData    bool   `yaml:"seed_demo_data"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisPrefix     string `yaml:"redis_prefix"`

	AMQPURL      string `yaml:"amqp_url"`
	RemoteAPIURL string `yaml:"remote_api_url"`

	KitchenSLAMinutes   int `yaml:"kitchen_sla_minutes"`
	DeliverySLAMinutes  int `yaml:"delivery_sla_minutes"`
	ReportTTLSeconds    int `yaml:"report_ttl_seconds"`
	KitchenPollSeconds  int `yaml:"kitchen_poll_seconds"`
	SellerPollSeconds   int `yaml:"seller_poll_seconds"`
	StatsRebuildMinutes int `yaml:"stats_rebuild_minutes"`
	RemotePollMinutes   int `yaml:"remote_poll_minutes"`
	AutosaveMillis      int `yaml:"autosave_millis"`
}

func defaults() Config {
	return Config{
		Port:                "8080",
		AllowedOrigin:       "http://127.0.0.1:3000",
		Timezone:            "Asia/Jakarta",
		Backend:             BackendMemory,
		SQLitePath:          "restodesk.db",
		SeedDemoData:        true,
		RedisPrefix:         "restodesk",
		KitchenSLAMinutes:   20,
		DeliverySLAMinutes:  45,
		ReportTTLSeconds:    15,
		KitchenPollSeconds:  20,
		SellerPollSeconds:   60,
		StatsRebuildMinutes: 5,
		AutosaveMillis:      1000,
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE, then the environment. A .env file in the working directory
// is read into the environment first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] WARN: ignoring unreadable .env: %v", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.Timezone = getEnv("TZ_NAME", cfg.Timezone)
	cfg.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.Backend))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.StoreQuotaBytes = getEnvInt("STORE_QUOTA_BYTES", cfg.StoreQuotaBytes, 0)
	cfg.SeedDemoData = getEnvBool("SEED_DEMO_DATA", cfg.SeedDemoData)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB, 0)
	cfg.RedisPrefix = getEnv("REDIS_PREFIX", cfg.RedisPrefix)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.RemoteAPIURL = getEnv("REMOTE_API_URL", cfg.RemoteAPIURL)
	cfg.KitchenSLAMinutes = getEnvInt("KITCHEN_SLA_MINUTES", cfg.KitchenSLAMinutes, 1)
	cfg.DeliverySLAMinutes = getEnvInt("DELIVERY_SLA_MINUTES", cfg.DeliverySLAMinutes, 1)
	cfg.ReportTTLSeconds = getEnvInt("REPORT_TTL_SECONDS", cfg.ReportTTLSeconds, 1)
	cfg.KitchenPollSeconds = getEnvInt("KITCHEN_POLL_SECONDS", cfg.KitchenPollSeconds, 1)
	cfg.SellerPollSeconds = getEnvInt("SELLER_POLL_SECONDS", cfg.SellerPollSeconds, 1)
	cfg.StatsRebuildMinutes = getEnvInt("STATS_REBUILD_MINUTES", cfg.StatsRebuildMinutes, 1)
	cfg.RemotePollMinutes = getEnvInt("REMOTE_POLL_MINUTES", cfg.RemotePollMinutes, 0)
	cfg.AutosaveMillis = getEnvInt("AUTOSAVE_MILLIS", cfg.AutosaveMillis, 1)

	return cfg, nil
}

// Validate reports settings that would stop the server from starting.
func (c Config) Validate() error {
	var problems []string
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_BACKEND %q", c.Backend))
	}
	if strings.TrimSpace(c.AllowedOrigin) == "*" {
		problems = append(problems, "ALLOWED_ORIGIN must name a concrete origin")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("unknown timezone %q", c.Timezone))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) KitchenSLA() time.Duration {
	return time.Duration(c.KitchenSLAMinutes) * time.Minute
}

func (c Config) DeliverySLA() time.Duration {
	return time.Duration(c.DeliverySLAMinutes) * time.Minute
}

func (c Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

func (c Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveMillis) * time.Millisecond
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int, minimum int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < minimum {
		log.Printf("[config] WARN: invalid %s=%q, using %d", key, val, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
