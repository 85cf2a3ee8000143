package config

import (
	"testing"
	"time"
)

func TestLoadRequiresOperatorID(t *testing.T) {
	t.Setenv("CHAT_OPERATOR_ID", "")

	if _, err := Load(); err == nil {
		t.Error("Expected Load to fail without an operator id")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_OPERATOR_ID", "operator")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Endpoint == "" {
		t.Error("Expected a default endpoint")
	}
	if cfg.OperatorName != "Pascal" {
		t.Errorf("Expected default operator name, got %q", cfg.OperatorName)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("Expected 30s heartbeat interval, got %s", cfg.HeartbeatInterval)
	}
	if cfg.PresenceDisabled {
		t.Error("Expected presence to be enabled by default")
	}
	// The capability token is deliberately allowed to be empty at load time.
	if cfg.APIKey != "" {
		t.Errorf("Expected an empty token by default, got %q", cfg.APIKey)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CHAT_OPERATOR_ID", "operator")
	t.Setenv("HEARTBEAT_INTERVAL", "5s")
	t.Setenv("PRESENCE_DISABLED", "true")
	t.Setenv("CHAT_OPERATOR_NAME", "Grace")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("Expected 5s heartbeat interval, got %s", cfg.HeartbeatInterval)
	}
	if !cfg.PresenceDisabled {
		t.Error("Expected presence to be disabled")
	}
	if cfg.OperatorName != "Grace" {
		t.Errorf("Expected operator name Grace, got %q", cfg.OperatorName)
	}
}

func TestLoadFallsBackOnGarbageDuration(t *testing.T) {
	t.Setenv("CHAT_OPERATOR_ID", "operator")
	t.Setenv("HEARTBEAT_INTERVAL", "soon-ish")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("Expected the fallback interval, got %s", cfg.HeartbeatInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(_ *Config) {}, false},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"empty operator", func(c *Config) { c.OperatorID = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"zero heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }, true},
		{"empty token ok", func(c *Config) { c.APIKey = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Endpoint:          "ws://localhost:8000/sockets",
				APIKey:            "key",
				OperatorID:        "operator",
				OperatorName:      "Pascal",
				DBPath:            "./data/chat.db",
				HeartbeatInterval: 30 * time.Second,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
