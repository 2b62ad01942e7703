package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend.Timeout != 10*time.Second || cfg.Backend.ChatTimeout != 30*time.Second {
		t.Fatalf("unexpected backend timeouts: %+v", cfg.Backend)
	}
	if cfg.Polling.HeaderInterval != 30*time.Second || cfg.Polling.MapInterval != 30*time.Second {
		t.Fatalf("unexpected polling intervals: %+v", cfg.Polling)
	}
	if cfg.Polling.AnalyticsHours != 24 || cfg.Polling.TableLimit != 100 {
		t.Fatalf("unexpected polling params: %+v", cfg.Polling)
	}
	if cfg.Agent.Mode != "rest" {
		t.Fatalf("default agent mode=%q", cfg.Agent.Mode)
	}
	if cfg.Map.APIKey != "" {
		t.Fatalf("map key must not have a built-in value")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
backend:
  base_url: http://ran-backend:8000
agent:
  mode: invoke
  runtime_address: arn:runtime/from-file
polling:
  heatmap_kpis: [rsrp, sinr]
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAP_API_KEY", "key-from-env")
	t.Setenv("AGENT_RUNTIME_ADDRESS", "arn:runtime/from-env")

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend.BaseURL != "http://ran-backend:8000" {
		t.Fatalf("base_url=%q", cfg.Backend.BaseURL)
	}
	if cfg.Agent.RuntimeAddress != "arn:runtime/from-env" {
		t.Fatalf("env did not override runtime address: %q", cfg.Agent.RuntimeAddress)
	}
	if cfg.Map.APIKey != "key-from-env" {
		t.Fatalf("map key=%q", cfg.Map.APIKey)
	}
	if len(cfg.Polling.HeatmapKPIs) != 2 || cfg.Polling.HeatmapKPIs[1] != "sinr" {
		t.Fatalf("heatmap kpis=%v", cfg.Polling.HeatmapKPIs)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := Config{Backend: BackendConfig{BaseURL: "http://x"}, Agent: AgentConfig{Mode: "rest"}}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	invoke := base
	invoke.Agent.Mode = "invoke"
	if err := invoke.Validate(); err == nil {
		t.Fatalf("invoke mode without runtime address accepted")
	}

	unknown := base
	unknown.Agent.Mode = "grpc"
	if err := unknown.Validate(); err == nil {
		t.Fatalf("unknown mode accepted")
	}

	noURL := base
	noURL.Backend.BaseURL = ""
	if err := noURL.Validate(); err == nil {
		t.Fatalf("empty base url accepted")
	}
}

func TestLoadKeyResource_PrefersEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte("from-file"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := loadKeyResource(path, "TEST_KEY_DATA")
	if err != nil || string(got) != "from-file" {
		t.Fatalf("got %q, %v", got, err)
	}
	t.Setenv("TEST_KEY_DATA", "from-env")
	got, err = loadKeyResource(path, "TEST_KEY_DATA")
	if err != nil || string(got) != "from-env" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err = loadKeyResource("", "MISSING_KEY_DATA")
	if err != nil || got != nil {
		t.Fatalf("expected nil without sources, got %q, %v", got, err)
	}
}

func TestLoadKeyResource_ConfiguredButBroken(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"/nonexistent/idp.pem", empty} {
		if key, err := loadKeyResource(path, "MISSING_KEY_DATA"); err == nil {
			t.Fatalf("%s: expected error, got key %q", path, key)
		}
	}
}

func TestLoadConfig_UnreadableKeyPathFails(t *testing.T) {
	t.Setenv("AUTH_PUBLIC_KEY_PATH", "/nonexistent/idp.pem")
	cfg, err := loadConfig(t.TempDir())
	if err == nil {
		t.Fatalf("config with broken key path accepted: key len=%d", len(cfg.Auth.PublicKey))
	}
}

func TestLoadConfig_AuthClaimsFromEnv(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "https://idp.example.net")
	t.Setenv("AUTH_AUDIENCE", "ran-copilot")
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Auth.Issuer != "https://idp.example.net" || cfg.Auth.Audience != "ran-copilot" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"}); err != nil {
		t.Fatalf("console logger: %v", err)
	}
	if _, err := NewLogger(LoggerConfig{Level: "loud"}); err == nil {
		t.Fatalf("bad level accepted")
	}
}
