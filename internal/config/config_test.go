package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("CLI_HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestDefaults(t *testing.T) {
	setup(t)
	Load()

	if got := RegistryTimeout(); got != DefaultRegistryTimeout {
		t.Errorf("RegistryTimeout() = %v, want %v", got, DefaultRegistryTimeout)
	}
	if got := MinNodeVersion(); got != DefaultMinNodeVersion {
		t.Errorf("MinNodeVersion() = %q, want %q", got, DefaultMinNodeVersion)
	}
	if RegistryOrigin() {
		t.Error("RegistryOrigin() should default to false")
	}
	if got := Registry(); got != "" {
		t.Errorf("Registry() = %q, want empty", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := setup(t)
	content := `registry: https://registry.example.com
registry_timeout: 2s
log_level: debug
packages:
  init: "@acme/init"
`
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	Load()

	if got := Registry(); got != "https://registry.example.com" {
		t.Errorf("Registry() = %q", got)
	}
	if got := RegistryTimeout(); got != 2*time.Second {
		t.Errorf("RegistryTimeout() = %v, want 2s", got)
	}
	if got := LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q", got)
	}
	if got := PackageFor("init"); got != "@acme/init" {
		t.Errorf("PackageFor(init) = %q", got)
	}
}

func TestEnvOverride(t *testing.T) {
	setup(t)
	t.Setenv("CLI_REGISTRY", "https://env.example.com")
	Load()

	if got := Registry(); got != "https://env.example.com" {
		t.Errorf("Registry() = %q, want env override", got)
	}
}

func TestSetWritesFile(t *testing.T) {
	home := setup(t)
	Load()

	if err := Set(KeyLogLevel, "warn"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if len(data) == 0 {
		t.Error("config file is empty")
	}
	if got := Get(KeyLogLevel); got != "warn" {
		t.Errorf("Get(log_level) = %q, want warn", got)
	}
}
