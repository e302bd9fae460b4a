package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SMARTBIN_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_InvalidConfigValues verifies validation errors stop startup
// before anything is opened.
func TestRun_InvalidConfigValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
database:
  path: ""

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
  qos: 3
  topics:
    - "bins/level"

telemetry:
  bin_types: []

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("SMARTBIN_CONFIG", configPath)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with invalid config values")
	}
	for _, want := range []string{"database.path", "mqtt.qos", "bins/level", "telemetry.bin_types"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("run() error = %v, want mention of %s", err, want)
		}
	}
}

// TestRun_BrokerUnreachable verifies startup fails when the initial MQTT
// handshake cannot complete.
func TestRun_BrokerUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the MQTT connect timeout")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	configContent := `
database:
  path: "` + filepath.Join(tmpDir, "smartbin.db") + `"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("SMARTBIN_CONFIG", configPath)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connecting to MQTT") {
		t.Errorf("run() error = %v, want MQTT connect failure", err)
	}
}

// TestRun_UnknownBinType verifies an unknown compartment type stops startup
// before the broker is contacted.
func TestRun_UnknownBinType(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	configContent := `
database:
  path: "` + filepath.Join(tmpDir, "smartbin.db") + `"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
telemetry:
  bin_types: ["plastic", "glass"]
logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("SMARTBIN_CONFIG", configPath)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "telemetry.bin_types") || !strings.Contains(err.Error(), "glass") {
		t.Errorf("run() error = %v, want unknown bin type failure", err)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("SMARTBIN_CONFIG", "")

	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("SMARTBIN_CONFIG", expected)

	if got := getConfigPath(); got != expected {
		t.Errorf("getConfigPath() = %q, want %q", got, expected)
	}
}
