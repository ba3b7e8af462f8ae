package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	APIPort           int
	LegacyStatusCodes bool
	AllowedOrigins    []string

	// Device configuration
	E3DCIPAddress string
	E3DCUsername  string
	E3DCPassword  string
	E3DCKey       string
	E3DCConfig    json.RawMessage
	BridgeURL     string
	BridgeTimeout time.Duration

	// Admin credential for the HTTP API
	AdminPassword string

	// Database configuration, empty disables the command audit log
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

var requiredEnv = []string{
	"E3DC_IP_ADDRESS",
	"E3DC_USERNAME",
	"E3DC_PASSWORD",
	"E3DC_KEY",
	"ADMIN_PASSWORD",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var missing []string
	for _, key := range requiredEnv {
		if getEnv(key, "") == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	apiPort, err := strconv.Atoi(getEnv("API_PORT", "8888"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_PORT: %v", err)
	}

	legacy, err := strconv.ParseBool(getEnv("LEGACY_STATUS_CODES", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEGACY_STATUS_CODES: %v", err)
	}

	bridgeTimeout, err := time.ParseDuration(getEnv("E3DC_BRIDGE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid E3DC_BRIDGE_TIMEOUT: %v", err)
	}

	var deviceConfig json.RawMessage
	if raw := strings.TrimSpace(getEnv("E3DC_CONFIG", "")); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("invalid E3DC_CONFIG: not valid JSON")
		}
		deviceConfig = json.RawMessage(raw)
	}

	logFormat := strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want text or json", logFormat)
	}

	return &Config{
		// Server configuration
		APIPort:           apiPort,
		LegacyStatusCodes: legacy,
		AllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		// Device configuration
		E3DCIPAddress: getEnv("E3DC_IP_ADDRESS", ""),
		E3DCUsername:  getEnv("E3DC_USERNAME", ""),
		E3DCPassword:  getEnv("E3DC_PASSWORD", ""),
		E3DCKey:       getEnv("E3DC_KEY", ""),
		E3DCConfig:    deviceConfig,
		BridgeURL:     getEnv("E3DC_BRIDGE_URL", "http://127.0.0.1:8090"),
		BridgeTimeout: bridgeTimeout,

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		// Database configuration
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: logFormat,
		LogFile:   getEnv("LOG_FILE", ""),
	}, nil
}

// SetupLogger configures the global logger
func (c *Config) SetupLogger() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if c.LogFile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}
}

// Helper function to get environment variables with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
