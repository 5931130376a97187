package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controlctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadControllerConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadControllerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "tlv-ctl" || cfg.ListenAddr != ":8000" || cfg.AdminAddr != ":8100" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.URLPath != "/" || cfg.OverflowPolicy != "reject" || cfg.InboxLimit != 256 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadControllerConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
name = "ops-controller"
listen_addr = ":9000"
admin_addr = ":9100"
url_path = "/updates"
max_egress_bytes = 65536
overflow_policy = "drop_oldest"
inbox_limit = 32
`)

	cfg, err := LoadControllerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "ops-controller" || cfg.URLPath != "/updates" {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.MaxEgressBytes != 65536 || cfg.OverflowPolicy != "drop_oldest" || cfg.InboxLimit != 32 {
		t.Fatalf("overrides: %+v", cfg)
	}
}

func TestLoadControllerConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		substr  string
	}{
		{"relative path", `url_path = "sync"`, "url_path"},
		{"negative cap", `max_egress_bytes = -1`, "max_egress_bytes"},
		{"unknown policy", `overflow_policy = "explode"`, "overflow_policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := LoadControllerConfig(path)
			if err == nil || !strings.Contains(err.Error(), tc.substr) {
				t.Fatalf("expected %q error, got %v", tc.substr, err)
			}
		})
	}
}

func TestLoadControllerConfigMissingFile(t *testing.T) {
	_, err := LoadControllerConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatalf("expected load error")
	}
}
