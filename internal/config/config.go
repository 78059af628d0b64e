package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for STORE_DRIVER.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      int
	StoreDriver     string
	DatabaseURL     string // MongoDB connection string
	DatabaseName    string
	SQLitePath      string
	AllowedOrigins  []string
	NATSURL         string // Empty disables NATS publishing
	NATSSubject     string
	ReconcileSpec   string // Cron spec for the comment reconciler, empty disables it
	BcryptCost      int
	LogLevel        string
	LogPretty       bool
	ShutdownTimeout time.Duration
}

// Load loads configuration from an optional .env file and environment variables,
// falling back to defaults.
func Load() (*Config, error) {
	// A missing .env file is fine, the environment is authoritative.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cost, err := strconv.Atoi(getEnv("BCRYPT_COST", "13"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	shutdown, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", DriverMongo))
	if driver != DriverMongo && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	return &Config{
		ServerPort:      port,
		StoreDriver:     driver,
		DatabaseURL:     getEnv("DB_URL", "mongodb://localhost:27017"),
		DatabaseName:    getEnv("DB_NAME", "pinboard"),
		SQLitePath:      getEnv("SQLITE_PATH", "./pinboard.db"),
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		NATSURL:         getEnv("NATS_URL", ""),
		NATSSubject:     getEnv("NATS_SUBJECT_PREFIX", "pinboard"),
		ReconcileSpec:   getEnv("RECONCILE_SCHEDULE", "*/5 * * * *"),
		BcryptCost:      cost,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnv("LOG_PRETTY", "false") == "true",
		ShutdownTimeout: shutdown,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
