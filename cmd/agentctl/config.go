package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/tlvctl/internal/agent"
)

type fileConfig struct {
	ID                 string `toml:"id"`
	Mode               string `toml:"mode"`
	ControllerAddr     string `toml:"controller_addr"`
	ControllerURL      string `toml:"controller_url"`
	PollInterval       string `toml:"poll_interval"`
	HeartbeatInterval  string `toml:"heartbeat_interval"`
	HTTPTimeout        string `toml:"http_timeout"`
	DialTimeout        string `toml:"dial_timeout"`
	MaxConnectAttempts int    `toml:"max_connect_attempts"`
}

// loadServiceConfig overlays the config file on runtime defaults. Only
// keys actually present in the file override a default.
func loadServiceConfig(path string) (agent.ServiceConfig, error) {
	cfg := agent.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return agent.ServiceConfig{}, fmt.Errorf("load agent config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.AgentID = id
		}
	}

	if meta.IsDefined("mode") {
		cfg.Mode = agent.Mode(strings.ToLower(strings.TrimSpace(raw.Mode)))
	}

	if meta.IsDefined("controller_addr") {
		cfg.ControllerAddr = strings.TrimSpace(raw.ControllerAddr)
	}

	if meta.IsDefined("controller_url") {
		cfg.ControllerURL = strings.TrimSpace(raw.ControllerURL)
	}

	if meta.IsDefined("poll_interval") {
		d, err := parseInterval(raw.PollInterval)
		if err != nil {
			return agent.ServiceConfig{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}

	if meta.IsDefined("heartbeat_interval") {
		d, err := parseInterval(raw.HeartbeatInterval)
		if err != nil {
			return agent.ServiceConfig{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	if meta.IsDefined("http_timeout") {
		d, err := parseInterval(raw.HTTPTimeout)
		if err != nil {
			return agent.ServiceConfig{}, fmt.Errorf("parse http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	if meta.IsDefined("dial_timeout") {
		d, err := parseInterval(raw.DialTimeout)
		if err != nil {
			return agent.ServiceConfig{}, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.Dialer.Timeout = d
	}

	if meta.IsDefined("max_connect_attempts") {
		cfg.Dialer.MaxAttempts = raw.MaxConnectAttempts
	}

	return cfg, nil
}

func parseInterval(raw string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(raw))
}
