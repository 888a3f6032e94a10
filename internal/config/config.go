// Package config provides configuration management for the Pizoo client
// engine. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration
type Config struct {
	Backend  BackendConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	Discover DiscoverConfig
	Chat     ChatConfig
	Logging  LoggingConfig
}

// BackendConfig holds the remote REST backend configuration
type BackendConfig struct {
	BaseURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond int
	RequestBurst      int
}

// GatewayConfig holds the local HTTP gateway configuration
type GatewayConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds the durable flag store configuration. An empty Addr
// selects the in-memory store (flags then survive only for the process
// lifetime).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DiscoverConfig holds profile discovery configuration
type DiscoverConfig struct {
	FetchLimit int
}

// ChatConfig holds conversation polling configuration
type ChatConfig struct {
	PollInterval    time.Duration
	MatchOverlayTTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Backend: BackendConfig{
			BaseURL:           getEnv("BACKEND_BASE_URL", "http://localhost:8000/api"),
			RequestTimeout:    getEnvAsDuration("BACKEND_REQUEST_TIMEOUT", 30*time.Second),
			RequestsPerSecond: getEnvAsInt("BACKEND_REQUESTS_PER_SECOND", 10),
			RequestBurst:      getEnvAsInt("BACKEND_REQUEST_BURST", 20),
		},
		Gateway: GatewayConfig{
			Host:            getEnv("GATEWAY_HOST", "127.0.0.1"),
			Port:            getEnv("GATEWAY_PORT", "8090"),
			ReadTimeout:     getEnvAsDuration("GATEWAY_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("GATEWAY_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("GATEWAY_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("GATEWAY_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Discover: DiscoverConfig{
			FetchLimit: getEnvAsInt("DISCOVER_FETCH_LIMIT", 50),
		},
		Chat: ChatConfig{
			PollInterval:    getEnvAsDuration("CHAT_POLL_INTERVAL", 5*time.Second),
			MatchOverlayTTL: getEnvAsDuration("MATCH_OVERLAY_TTL", 3*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL cannot be empty")
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
