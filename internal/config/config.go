package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type ControllerConfig struct {
	Name           string `toml:"name"`
	ListenAddr     string `toml:"listen_addr"`
	AdminAddr      string `toml:"admin_addr"`
	URLPath        string `toml:"url_path"`
	MaxEgressBytes int    `toml:"max_egress_bytes"`
	OverflowPolicy string `toml:"overflow_policy"`
	InboxLimit     int    `toml:"inbox_limit"`
}

func LoadControllerConfig(path string) (ControllerConfig, error) {
	var cfg ControllerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ControllerConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "tlv-ctl"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":8100"
	}
	if cfg.URLPath == "" {
		cfg.URLPath = "/"
	}
	if cfg.OverflowPolicy == "" {
		cfg.OverflowPolicy = "reject"
	}
	if cfg.InboxLimit == 0 {
		cfg.InboxLimit = 256
	}
	if err := ValidateControllerConfig(cfg); err != nil {
		return ControllerConfig{}, err
	}
	return cfg, nil
}

func ValidateControllerConfig(cfg ControllerConfig) error {
	if !strings.HasPrefix(cfg.URLPath, "/") {
		return fmt.Errorf("config: url_path must start with '/': %q", cfg.URLPath)
	}
	if cfg.MaxEgressBytes < 0 {
		return fmt.Errorf("config: max_egress_bytes must be >= 0: %d", cfg.MaxEgressBytes)
	}
	switch cfg.OverflowPolicy {
	case "reject", "drop_oldest":
	default:
		return fmt.Errorf("config: unknown overflow_policy: %q", cfg.OverflowPolicy)
	}
	if cfg.InboxLimit < 0 {
		return fmt.Errorf("config: inbox_limit must be >= 0: %d", cfg.InboxLimit)
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
