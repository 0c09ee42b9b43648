package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	body := `{
		"server": {"port": 9090, "log_level": "debug"},
		"draw": {"fee_rate": 0.05, "order_expire_seconds": 300, "cache_version": 2}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.LogLevel != "debug" {
		t.Fatalf("server section: %+v", cfg.Server)
	}
	if cfg.FeeRate() != 0.05 || cfg.OrderExpireSeconds() != 300 || cfg.CacheVersion() != 2 {
		t.Fatalf("draw section: %+v", cfg.Draw)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	body := "server:\n  port: 8081\ndraw:\n  fee_rate: 0.1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if cfg.Server.Port != 8081 || cfg.FeeRate() != 0.1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := loadFromFile("/nonexistent/cfg.json"); err == nil {
		t.Fatal("missing file should error")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFromFile(path); err == nil {
		t.Fatal("unsupported extension should error")
	}
}

func TestNilSafeDefaults(t *testing.T) {
	var c *Config
	if c.FeeRate() != 0 {
		t.Fatal("nil config fee rate should be 0")
	}
	if c.OrderExpireSeconds() != 600 {
		t.Fatal("nil config order expiry should default to 600s")
	}
	if c.CacheVersion() != 1 {
		t.Fatal("nil config cache version should default to 1")
	}

	bad := &Config{}
	bad.Draw.FeeRate = 1.5
	if bad.FeeRate() != 0 {
		t.Fatal("out-of-range fee rate should fall back to 0")
	}
}
