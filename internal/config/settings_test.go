package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:7717" {
		t.Fatalf("unexpected daemon address: %q", cfg.DaemonAddress())
	}
	if cfg.DaemonBaseURL() != "http://127.0.0.1:7717" {
		t.Fatalf("unexpected daemon base url: %q", cfg.DaemonBaseURL())
	}
	if cfg.RunnerName() != "echo" {
		t.Fatalf("unexpected runner: %q", cfg.RunnerName())
	}
	if cfg.StoreBackend() != "bbolt" {
		t.Fatalf("unexpected store backend: %q", cfg.StoreBackend())
	}
	if cfg.LogLevel() != "info" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}
	fixture, err := cfg.RunnerFixture()
	if err != nil {
		t.Fatalf("RunnerFixture: %v", err)
	}
	if fixture != "" {
		t.Fatalf("unexpected fixture: %q", fixture)
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, ".lightcode")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte("[daemon]\naddress = \"http://127.0.0.1:9999/\"\n\n" +
		"[runner]\nname = \" Scripted \"\nfixture = \"turns/basic.json\"\n\n" +
		"[store]\nbackend = \"File\"\n\n" +
		"[logging]\nlevel = \"debug\"\n")
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:9999" {
		t.Fatalf("unexpected daemon address: %q", cfg.DaemonAddress())
	}
	if cfg.RunnerName() != "scripted" {
		t.Fatalf("unexpected runner: %q", cfg.RunnerName())
	}
	if cfg.StoreBackend() != "file" {
		t.Fatalf("unexpected store backend: %q", cfg.StoreBackend())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}

	fixture, err := cfg.RunnerFixture()
	if err != nil {
		t.Fatalf("RunnerFixture: %v", err)
	}
	if want := filepath.Join(dataDir, "turns", "basic.json"); fixture != want {
		t.Fatalf("fixture = %q, want %q", fixture, want)
	}
}

func TestRunnerFixtureAbsoluteAndHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	cfg := Config{Runner: RunnerConfig{Fixture: "/var/fixtures/turn.json"}}
	fixture, err := cfg.RunnerFixture()
	if err != nil {
		t.Fatalf("RunnerFixture absolute: %v", err)
	}
	if fixture != "/var/fixtures/turn.json" {
		t.Fatalf("fixture = %q", fixture)
	}

	cfg.Runner.Fixture = "~/turns/home.json"
	fixture, err = cfg.RunnerFixture()
	if err != nil {
		t.Fatalf("RunnerFixture home: %v", err)
	}
	if want := filepath.Join(home, "turns", "home.json"); fixture != want {
		t.Fatalf("fixture = %q, want %q", fixture, want)
	}
}

func TestLoadConfigIgnoresEmptyFile(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	dataDir := filepath.Join(home, ".lightcode")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte("  \n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:7717" {
		t.Fatalf("unexpected daemon address: %q", cfg.DaemonAddress())
	}
}
