package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	loader := NewLoader().
		WithPath(filepath.Join(t.TempDir(), "nope.yaml")).
		WithDotEnv(false)

	res, err := loader.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty path for missing file, got %q", res.Path)
	}
	if res.Config.Server.Port != 8090 {
		t.Errorf("unexpected default port: %d", res.Config.Server.Port)
	}
	if res.Config.Token.RefreshThreshold.Std() != 15*time.Second {
		t.Errorf("unexpected default threshold: %v", res.Config.Token.RefreshThreshold.Std())
	}
	if res.Config.Store.Driver != "memory" {
		t.Errorf("unexpected default store driver: %s", res.Config.Store.Driver)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  api_key: sekrit
issuer:
  secret: hmac-secret
  ttl: 30m
token:
  refresh_threshold: 20s
store:
  driver: redis
  redis:
    addr: localhost:6379
    prefix: "gate:token:"
upstream:
  allowed_hosts:
    - cdn.example.com
  timeout: 5s
`)

	res, err := NewLoader().WithPath(path).WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg := res.Config
	if cfg.Server.Port != 9000 || cfg.Server.APIKey != "sekrit" {
		t.Errorf("server config not applied: %+v", cfg.Server)
	}
	if cfg.Issuer.TTL.Std() != 30*time.Minute {
		t.Errorf("issuer ttl not applied: %v", cfg.Issuer.TTL.Std())
	}
	if cfg.Token.RefreshThreshold.Std() != 20*time.Second {
		t.Errorf("threshold not applied: %v", cfg.Token.RefreshThreshold.Std())
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "localhost:6379" {
		t.Errorf("store config not applied: %+v", cfg.Store)
	}
	if len(cfg.Upstream.AllowedHosts) != 1 || cfg.Upstream.AllowedHosts[0] != "cdn.example.com" {
		t.Errorf("upstream hosts not applied: %+v", cfg.Upstream)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("STREAMGATE_SERVER_PORT", "9100")
	t.Setenv("STREAMGATE_ISSUER_SECRET", "env-secret")

	res, err := NewLoader().WithPath(path).WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if res.Config.Server.Port != 9100 {
		t.Errorf("env port override not applied: %d", res.Config.Server.Port)
	}
	if res.Config.Issuer.Secret != "env-secret" {
		t.Errorf("env secret override not applied")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, "server:\n  port: -1\n")
	if _, err := NewLoader().WithPath(path).WithDotEnv(false).Load(); err == nil {
		t.Fatal("expected validation error for negative port")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "issuer:\n  ttl: banana\n")
	if _, err := NewLoader().WithPath(path).WithDotEnv(false).Load(); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}
