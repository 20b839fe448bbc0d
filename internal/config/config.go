package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures the movie directory API configuration derived from environment variables.
type Config struct {
	Port              string
	GRPCHealthPort    string
	DBURL             string
	AMQPURL           string
	NotifyQueue       string
	NotifyRecipient   string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	MaxUploadBytes    int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	DBMigrate         bool
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		GRPCHealthPort:    os.Getenv("GRPC_HEALTH_PORT"),
		DBURL:             os.Getenv("DB_URL"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		NotifyQueue:       getEnv("NOTIFY_QUEUE", "email_queue"),
		NotifyRecipient:   getEnv("NOTIFY_RECIPIENT", "admin@movieapi.com"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		MaxUploadBytes:    getEnvInt("MAX_UPLOAD_BYTES", 10<<20),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		DBMigrate:         getEnvBool("DB_MIGRATE"),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.AMQPURL != "" && cfg.NotifyQueue == "" {
		return Config{}, fmt.Errorf("NOTIFY_QUEUE cannot be empty when AMQP_URL is set")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if err := validatePort("GRPC_HEALTH_PORT", cfg.GRPCHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func validatePort(key, val string) error {
	if val == "" {
		return nil
	}
	port, err := strconv.Atoi(val)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be a valid port number", key)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
