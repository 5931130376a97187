package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/tlvctl/internal/agent"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigKeepsDefaultsForAbsentKeys(t *testing.T) {
	path := writeConfig(t, `controller_addr = "10.0.0.5:8000"`)

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := agent.DefaultServiceConfig()
	if cfg.AgentID != def.AgentID || cfg.Mode != def.Mode {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.PollInterval != def.PollInterval || cfg.HeartbeatInterval != def.HeartbeatInterval {
		t.Fatalf("interval defaults lost: %+v", cfg)
	}
	if cfg.ControllerAddr != "10.0.0.5:8000" {
		t.Fatalf("controller_addr: %q", cfg.ControllerAddr)
	}
}

func TestLoadServiceConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
id = "edge-07"
mode = "http"
controller_url = "http://controller:8000/updates"
poll_interval = "250ms"
heartbeat_interval = "10s"
http_timeout = "3s"
dial_timeout = "2s"
max_connect_attempts = 5
`)

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentID != "edge-07" || cfg.Mode != agent.ModeHTTP {
		t.Fatalf("identity: %+v", cfg)
	}
	if cfg.ControllerURL != "http://controller:8000/updates" {
		t.Fatalf("controller_url: %q", cfg.ControllerURL)
	}
	if cfg.PollInterval != 250*time.Millisecond || cfg.HeartbeatInterval != 10*time.Second {
		t.Fatalf("intervals: %+v", cfg)
	}
	if cfg.HTTPTimeout != 3*time.Second || cfg.Dialer.Timeout != 2*time.Second || cfg.Dialer.MaxAttempts != 5 {
		t.Fatalf("timeouts: %+v", cfg)
	}
}

func TestLoadServiceConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `poll_interval = "soon"`)
	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
