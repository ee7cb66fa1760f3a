package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Kafka    KafkaConfig
	Activity ActivityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins []string // "*" allows every origin
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StoreConfig selects the poll store backend and bounds its calls.
type StoreConfig struct {
	Backend     string // postgres, redis, mongo or memory
	Timeout     time.Duration
	MaxAttempts int
}

// MongoConfig holds MongoDB connection settings for the mongo poll store.
type MongoConfig struct {
	URI      string
	Database string
}

// KafkaConfig holds the activity stream settings used by the worker. Empty Brokers disables forwarding.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ActivityConfig toggles enqueueing of poll activity jobs by the server.
type ActivityConfig struct {
	Enabled bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	backend := strings.ToLower(getEnv("STORE_BACKEND", "postgres"))
	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "polls"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168),
		},
		Store: StoreConfig{
			Backend:     backend,
			Timeout:     time.Duration(getEnvInt("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
			MaxAttempts: getEnvInt("STORE_MAX_ATTEMPTS", 3),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "polls"),
		},
		Kafka: KafkaConfig{
			Brokers: splitTrim(getEnv("KAFKA_BROKERS", ""), ","),
			Topic:   getEnv("KAFKA_TOPIC", "poll-activity"),
		},
		Activity: ActivityConfig{
			// The worker cannot read an in-memory store, so nobody would drain the queue.
			Enabled: getEnvBool("ACTIVITY_QUEUE_ENABLED", backend != "memory"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "postgres", "redis", "mongo", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS must be positive")
	}
	if c.Store.MaxAttempts < 1 {
		return fmt.Errorf("STORE_MAX_ATTEMPTS must be at least 1")
	}
	if c.Store.Backend == "memory" && c.Activity.Enabled {
		return fmt.Errorf("ACTIVITY_QUEUE_ENABLED requires a shared store, not STORE_BACKEND=memory")
	}
	if c.JWT.ExpireHours < 1 {
		return fmt.Errorf("JWT_EXPIRE_HOURS must be at least 1")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
