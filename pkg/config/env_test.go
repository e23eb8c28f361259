package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvGravity, "0.5")
	t.Setenv(EnvArmCount, "8")
	t.Setenv(EnvTickRate, "30")
	t.Setenv(EnvSeed, "42")
	t.Setenv(EnvCellSize, "150")
	t.Setenv(EnvStreamEnabled, "true")
	t.Setenv(EnvStreamAddr, "0.0.0.0:9000")
	t.Setenv(EnvAudioVolume, "0.25")
	t.Setenv(EnvBreakerTimeout, "2s")
	t.Setenv(EnvMaxMemoryMB, "256")
	t.Setenv(EnvDamping, "not-a-number")

	config := DefaultConfig()
	if err := ApplyEnvironmentOverrides(config); err != nil {
		t.Fatalf("ApplyEnvironmentOverrides failed: %v", err)
	}

	if config.Physics.Gravity != 0.5 {
		t.Errorf("Expected Gravity 0.5, got %f", config.Physics.Gravity)
	}
	if config.Arms.Count != 8 {
		t.Errorf("Expected arm count 8, got %d", config.Arms.Count)
	}
	if config.Physics.TickRate != 30 {
		t.Errorf("Expected TickRate 30, got %d", config.Physics.TickRate)
	}
	if config.Blob.Seed != 42 {
		t.Errorf("Expected Seed 42, got %d", config.Blob.Seed)
	}
	if config.Grid.CellSize != 150 {
		t.Errorf("Expected CellSize 150, got %f", config.Grid.CellSize)
	}
	if !config.Stream.Enabled || config.Stream.Addr != "0.0.0.0:9000" {
		t.Errorf("Unexpected stream config %+v", config.Stream)
	}
	if config.Audio.Volume != 0.25 {
		t.Errorf("Expected Volume 0.25, got %f", config.Audio.Volume)
	}
	if config.Audio.Breaker.Timeout != 2*time.Second {
		t.Errorf("Expected breaker timeout 2s, got %v", config.Audio.Breaker.Timeout)
	}
	if config.Runtime.MaxMemoryMB != 256 {
		t.Errorf("Expected MaxMemoryMB 256, got %d", config.Runtime.MaxMemoryMB)
	}
	if config.Physics.Damping != DefaultConfig().Physics.Damping {
		t.Errorf("Unparseable damping should be ignored, got %f", config.Physics.Damping)
	}
}

func TestApplyEnvironmentOverrides_InvalidResult(t *testing.T) {
	t.Setenv(EnvArmCount, "-3")

	err := ApplyEnvironmentOverrides(DefaultConfig())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetEnvHelperFunctions(t *testing.T) {
	os.Setenv("TEST_STRING", "test_value")
	if result := getEnvOrDefault("TEST_STRING", "default"); result != "test_value" {
		t.Errorf("getEnvOrDefault: expected 'test_value', got '%s'", result)
	}
	if result := getEnvOrDefault("NONEXISTENT", "default"); result != "default" {
		t.Errorf("getEnvOrDefault: expected 'default', got '%s'", result)
	}
	os.Unsetenv("TEST_STRING")

	os.Setenv("TEST_INT", "42")
	if result := getEnvAsIntOrDefault("TEST_INT", 10); result != 42 {
		t.Errorf("getEnvAsIntOrDefault: expected 42, got %d", result)
	}
	os.Setenv("TEST_INT", "invalid")
	if result := getEnvAsIntOrDefault("TEST_INT", 10); result != 10 {
		t.Errorf("getEnvAsIntOrDefault with invalid value: expected 10, got %d", result)
	}
	os.Unsetenv("TEST_INT")

	os.Setenv("TEST_UINT", "18446744073709551615")
	if result := getEnvAsUint64OrDefault("TEST_UINT", 1); result != 18446744073709551615 {
		t.Errorf("getEnvAsUint64OrDefault: expected max uint64, got %d", result)
	}
	os.Setenv("TEST_UINT", "-1")
	if result := getEnvAsUint64OrDefault("TEST_UINT", 1); result != 1 {
		t.Errorf("getEnvAsUint64OrDefault with negative value: expected 1, got %d", result)
	}
	os.Unsetenv("TEST_UINT")

	os.Setenv("TEST_BOOL", "true")
	if result := getEnvAsBoolOrDefault("TEST_BOOL", false); result != true {
		t.Errorf("getEnvAsBoolOrDefault: expected true, got %v", result)
	}
	os.Setenv("TEST_BOOL", "invalid")
	if result := getEnvAsBoolOrDefault("TEST_BOOL", false); result != false {
		t.Errorf("getEnvAsBoolOrDefault with invalid value: expected false, got %v", result)
	}
	os.Unsetenv("TEST_BOOL")

	os.Setenv("TEST_FLOAT", "3.14")
	if result := getEnvAsFloatOrDefault("TEST_FLOAT", 1.0); result != 3.14 {
		t.Errorf("getEnvAsFloatOrDefault: expected 3.14, got %f", result)
	}
	os.Setenv("TEST_FLOAT", "invalid")
	if result := getEnvAsFloatOrDefault("TEST_FLOAT", 1.0); result != 1.0 {
		t.Errorf("getEnvAsFloatOrDefault with invalid value: expected 1.0, got %f", result)
	}
	os.Unsetenv("TEST_FLOAT")

	os.Setenv("TEST_DURATION", "5s")
	if result := getEnvAsDurationOrDefault("TEST_DURATION", time.Second); result != 5*time.Second {
		t.Errorf("getEnvAsDurationOrDefault: expected 5s, got %v", result)
	}
	os.Setenv("TEST_DURATION", "invalid")
	if result := getEnvAsDurationOrDefault("TEST_DURATION", time.Second); result != time.Second {
		t.Errorf("getEnvAsDurationOrDefault with invalid value: expected 1s, got %v", result)
	}
	os.Unsetenv("TEST_DURATION")
}
