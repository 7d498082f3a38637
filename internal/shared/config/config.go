package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string        `validate:"required,numeric"`
	GinMode        string        `validate:"oneof=debug release test"`
	APIVersion     string        `validate:"required"`
	APIPrefix      string        `validate:"required,startswith=/"`
	ReadTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout   time.Duration `validate:"gte=0"`
	IdleTimeout    time.Duration `validate:"gt=0"`
	MaxHeaderBytes int           `validate:"gt=0"`

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Kafka event publishing
	Kafka KafkaConfig

	// Booking rules
	Booking BookingConfig

	// Logging
	LogLevel string `validate:"oneof=debug info warn warning error"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	DSN      string

	SlowQueryThreshold time.Duration
	MaxOpenConns       int `validate:"gte=1"`
	MaxIdleConns       int `validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
	DB       int `validate:"gte=0"`
	PoolSize int `validate:"gte=1"`
	Addr     string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string `validate:"required,min=16"`
	JWTExpiresIn     time.Duration
	RefreshExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled             bool          `json:"enabled"`
	WindowDuration      time.Duration `json:"window_duration" validate:"gt=0"`
	DefaultRequests     int           `json:"default_requests" validate:"gt=0"`
	PublicRequests      int           `json:"public_requests" validate:"gt=0"`
	BookingRequests     int           `json:"booking_requests" validate:"gt=0"`
	BookingEditRequests int           `json:"booking_edit_requests" validate:"gt=0"`
	InvoiceRequests     int           `json:"invoice_requests" validate:"gt=0"`
	AdminRequests       int           `json:"admin_requests" validate:"gt=0"`
	HealthRequests      int           `json:"health_requests" validate:"gt=0"`
	WhitelistedIPs      []string      `json:"whitelisted_ips" validate:"dive,ip"`
}

// KafkaConfig holds the ledger event producer settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string `validate:"required_if=Enabled true,dive,hostname_port"`
	Topic    string   `validate:"required_if=Enabled true"`
	ClientID string
}

// BookingConfig holds the deposit rule and the booking timezone
type BookingConfig struct {
	DepositCancelWindow    time.Duration `validate:"gte=0"`
	DepositRatio           float64       `validate:"gte=0,lte=1"`
	DepositRefreshInterval time.Duration `validate:"gt=0"`
	Timezone               string        `validate:"required,timezone"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 0), // SSE streams stay open
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			Name:               getEnv("DB_NAME", "courtly_db"),
			User:               getEnv("DB_USER", "courtly_user"),
			Password:           getEnv("DB_PASSWORD", "courtly_password"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
			MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn:     getDurationEnvSeconds("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshExpiresIn: getDurationEnvSeconds("JWT_REFRESH_EXPIRES_IN", 24*time.Hour),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:             getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:      getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:     getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:      getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:     getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 60),
			BookingEditRequests: getIntEnv("RATE_LIMIT_BOOKING_EDIT_REQUESTS", 20),
			InvoiceRequests:     getIntEnv("RATE_LIMIT_INVOICE_REQUESTS", 30),
			AdminRequests:       getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:      getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:      getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_TOPIC", "courtly.ledger"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "courtly-api"),
		},

		// Booking rules
		Booking: BookingConfig{
			DepositCancelWindow:    time.Duration(getIntEnv("DEPOSIT_CANCEL_WINDOW_MINUTES", 1440)) * time.Minute,
			DepositRatio:           getFloatEnv("DEPOSIT_RATIO", 0.3),
			DepositRefreshInterval: getDurationEnv("DEPOSIT_REFRESH_INTERVAL", 60*time.Second),
			Timezone:               getEnv("BOOKING_TIMEZONE", "UTC"),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// Validate checks the loaded values against their struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location returns the booking timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getDurationEnvSeconds gets an environment variable as seconds (int) and converts to time.Duration
func getDurationEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
