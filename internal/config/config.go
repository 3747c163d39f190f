package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort    string
	MetricsPort string

	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	MigrationsDirPath string

	RedisAddr    string
	KafkaBrokers []string

	OrdersBaseURL   string
	PaymentsBaseURL string

	PollInterval    time.Duration
	PollMaxAttempts int

	BankCode          string
	BankAccountNumber string
	BankAccountName   string
}

// Load reads the configuration from a .env file when present, falling back
// to the process environment and then to local-development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	return &Config{
		HTTPPort:    ":" + getEnv("HTTP_PORT", "8084"),
		MetricsPort: ":" + getEnv("METRICS_PORT", "9090"),

		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:        getEnv("POSTGRES_DB", "checkout"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "internal/repository/migrations"),

		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: []string{getEnv("KAFKA_BROKER", "localhost:9092")},

		OrdersBaseURL:   getEnv("ORDERS_BASE_URL", "http://localhost:8082"),
		PaymentsBaseURL: getEnv("PAYMENTS_BASE_URL", "http://localhost:8083"),

		PollInterval:    getEnvAsDuration("PAYMENT_POLL_INTERVAL", 3*time.Second),
		PollMaxAttempts: getEnvAsInt("PAYMENT_POLL_MAX_ATTEMPTS", 40),

		BankCode:          getEnv("BANK_CODE", "VCB"),
		BankAccountNumber: getEnv("BANK_ACCOUNT_NUMBER", ""),
		BankAccountName:   getEnv("BANK_ACCOUNT_NAME", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn(fmt.Sprintf("Invalid value for env var '%s', using default value.", key))
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn(fmt.Sprintf("Invalid value for env var '%s', using default value.", key))
		return fallback
	}
	return value
}
