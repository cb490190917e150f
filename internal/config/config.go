package config

import (
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// HTTP surface
	HTTPPort int `env:"HTTP_PORT" default:"5000"`

	// Producer link
	IngestAddr            string        `env:"INGEST_ADDR" default:"127.0.0.1:5001"`
	IngestMaxMessageBytes int           `env:"INGEST_MAX_MESSAGE_BYTES" default:"16777216"`
	IngestReconnect       bool          `env:"INGEST_RECONNECT" default:"false"`
	IngestReconnectDelay  time.Duration `env:"INGEST_RECONNECT_DELAY" default:"1s"`
	CommandWriteTimeout   time.Duration `env:"COMMAND_WRITE_TIMEOUT" default:"2s"`
	CommandRateLimit      float64       `env:"COMMAND_RATE_LIMIT" default:"5"`
	CommandRateBurst      int           `env:"COMMAND_RATE_BURST" default:"10"`

	// Streaming
	StreamInterval time.Duration `env:"STREAM_INTERVAL" default:"50ms"`

	// Database, empty means in-memory
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis Cache, empty means no cache
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" default:"3600"`

	// File Storage
	LogsDir string `env:"LOGS_DIR" default:"logs"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`

	// Producer (camera-streamer)
	CameraWidth  int `env:"CAMERA_WIDTH" default:"640"`
	CameraHeight int `env:"CAMERA_HEIGHT" default:"480"`
	CameraFPS    int `env:"CAMERA_FPS" default:"20"`
	JPEGQuality  int `env:"JPEG_QUALITY" default:"80"`
}

// LoadConfig loads configuration from a .env file, if present, and the process environment
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	_ = godotenv.Load(".env")
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 5000); err != nil {
		return nil, err
	}

	// Producer link
	if err := loadEnvString(&config.IngestAddr, "INGEST_ADDR", "127.0.0.1:5001"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.IngestMaxMessageBytes, "INGEST_MAX_MESSAGE_BYTES", 16*1024*1024); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.IngestReconnect, "INGEST_RECONNECT", false); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.IngestReconnectDelay, "INGEST_RECONNECT_DELAY", time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.CommandWriteTimeout, "COMMAND_WRITE_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.CommandRateLimit, "COMMAND_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.CommandRateBurst, "COMMAND_RATE_BURST", 10); err != nil {
		return nil, err
	}

	// Streaming
	if err := loadEnvDuration(&config.StreamInterval, "STREAM_INTERVAL", 50*time.Millisecond); err != nil {
		return nil, err
	}

	// Database
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", ""); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.CacheTTL, "CACHE_TTL", 3600); err != nil {
		return nil, err
	}

	// File Storage
	if err := loadEnvString(&config.LogsDir, "LOGS_DIR", "logs"); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "json"); err != nil {
		return nil, err
	}

	// Producer
	if err := loadEnvInt(&config.CameraWidth, "CAMERA_WIDTH", 640); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.CameraHeight, "CAMERA_HEIGHT", 480); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.CameraFPS, "CAMERA_FPS", 20); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.JPEGQuality, "JPEG_QUALITY", 80); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}
	if _, port, err := net.SplitHostPort(c.IngestAddr); err != nil {
		errors = append(errors, fmt.Sprintf("INGEST_ADDR must be host:port: %v", err))
	} else if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		errors = append(errors, "INGEST_ADDR port must be between 0 and 65535")
	} else if p == c.HTTPPort {
		errors = append(errors, "INGEST_ADDR port must differ from HTTP_PORT")
	}
	if c.IngestMaxMessageBytes < 1 || int64(c.IngestMaxMessageBytes) > math.MaxUint32 {
		errors = append(errors, "INGEST_MAX_MESSAGE_BYTES must be between 1 and 4294967295")
	}
	if c.StreamInterval <= 0 {
		errors = append(errors, "STREAM_INTERVAL must be positive")
	}
	if c.CommandRateLimit <= 0 || c.CommandRateBurst < 1 {
		errors = append(errors, "COMMAND_RATE_LIMIT and COMMAND_RATE_BURST must be positive")
	}
	if c.CameraFPS < 1 {
		errors = append(errors, "CAMERA_FPS must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errors = append(errors, "JPEG_QUALITY must be between 1 and 100")
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	// Validate log format
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// HTTPAddr is the listen address of the web surface, all interfaces.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.HTTPPort)
}

// CacheExpiry converts CACHE_TTL seconds to a duration.
func (c *Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
