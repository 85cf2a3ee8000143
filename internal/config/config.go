// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all client configuration.
type Config struct {
	Endpoint          string // websocket endpoint of the messaging backend
	APIKey            string // capability token; validated at connect time, not here
	OperatorID        string
	OperatorName      string
	DBPath            string
	HeartbeatInterval time.Duration
	PresenceDisabled  bool // degraded mode: operator treated as always online
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Endpoint:          getEnv("CHAT_ENDPOINT", "ws://localhost:8000/sockets"),
		APIKey:            getEnv("CHAT_API_KEY", ""),
		OperatorID:        getEnv("CHAT_OPERATOR_ID", ""),
		OperatorName:      getEnv("CHAT_OPERATOR_NAME", "Pascal"),
		DBPath:            getEnv("DB_PATH", "./data/sitechat.db"),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		PresenceDisabled:  getEnvBool("PRESENCE_DISABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields the client cannot start without. The capability
// token is deliberately not required here: an empty token surfaces later as
// a configuration error system message when a connection is attempted.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("CHAT_ENDPOINT cannot be empty")
	}
	if c.OperatorID == "" {
		return fmt.Errorf("CHAT_OPERATOR_ID cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
