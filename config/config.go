package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration, read from the environment.
type Config struct {
	Env          string
	Port         string
	CORSOrigins  []string
	DBTimeout    time.Duration
	Mongo        MongoConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RabbitMQ     RabbitMQConfig
	IssueLimiter IssueLimiterConfig
}

// MongoDB configuration. An empty URI selects the in-memory demo store.
type MongoConfig struct {
	URI      string
	Database string
}

// Redis configuration. An empty address selects the in-memory cache.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RabbitMQ configuration. An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type IssueLimiterConfig struct {
	KeyPrefix  string
	DailyLimit int
}

// Default configuration values
const (
	DefaultEnv            = "development"
	DefaultPort           = "8080"
	DefaultMongoDB        = "wastewise"
	DefaultRedisDB        = 0
	DefaultJWTTTL         = 72 * time.Hour
	DefaultDevJWTSecret   = "wastewise-dev-secret"
	DefaultExchange       = "wastewise.events"
	DefaultIssueKeyPrefix = "issue_limit"
	DefaultIssueLimit     = 10
	DefaultDBTimeout      = 10 * time.Second
	DefaultCORSOrigins    = "http://localhost:3000"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is not set")

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("GO_ENV", DefaultEnv),
		Port:        getEnv("PORT", DefaultPort),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", DefaultCORSOrigins)),
		DBTimeout:   getEnvDuration("DB_TIMEOUT", DefaultDBTimeout),
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", ""),
			Database: getEnv("MONGODB_DB", DefaultMongoDB),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", DefaultRedisDB),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvDuration("JWT_TTL", DefaultJWTTTL),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", DefaultExchange),
		},
		IssueLimiter: IssueLimiterConfig{
			KeyPrefix:  getEnv("REDIS_QUEUE_FOR_ISSUE_LIMIT", DefaultIssueKeyPrefix),
			DailyLimit: getEnvInt("ISSUE_DAILY_LIMIT", DefaultIssueLimit),
		},
	}

	if cfg.JWT.Secret == "" {
		if !cfg.IsDevelopment() {
			return nil, ErrMissingJWTSecret
		}
		cfg.JWT.Secret = DefaultDevJWTSecret
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DemoMode reports whether no database is configured.
func (c *Config) DemoMode() bool {
	return c.Mongo.URI == ""
}

func (c *Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
