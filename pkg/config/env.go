package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by ApplyEnvironmentOverrides
const (
	EnvGravity        = "BLOB_GRAVITY"
	EnvDamping        = "BLOB_DAMPING"
	EnvTickRate       = "BLOB_TICK_RATE"
	EnvArmCount       = "BLOB_ARM_COUNT"
	EnvMinReach       = "BLOB_MIN_REACH"
	EnvMaxReach       = "BLOB_MAX_REACH"
	EnvSeed           = "BLOB_SEED"
	EnvCellSize       = "BLOB_CELL_SIZE"
	EnvStreamEnabled  = "BLOB_STREAM_ENABLED"
	EnvStreamAddr     = "BLOB_STREAM_ADDR"
	EnvAudioEnabled   = "BLOB_AUDIO_ENABLED"
	EnvAudioVolume    = "BLOB_AUDIO_VOLUME"
	EnvBreakerTimeout = "BLOB_BREAKER_TIMEOUT"
	EnvMaxMemoryMB    = "BLOB_MAX_MEMORY_MB"
)

// ApplyEnvironmentOverrides overlays BLOB_* environment variables on config
// and validates the result. Unparseable values are ignored.
func ApplyEnvironmentOverrides(config *Config) error {
	config.Physics.Gravity = getEnvAsFloatOrDefault(EnvGravity, config.Physics.Gravity)
	config.Physics.Damping = getEnvAsFloatOrDefault(EnvDamping, config.Physics.Damping)
	config.Physics.TickRate = getEnvAsIntOrDefault(EnvTickRate, config.Physics.TickRate)

	config.Arms.Count = getEnvAsIntOrDefault(EnvArmCount, config.Arms.Count)
	config.Arms.MinReach = getEnvAsFloatOrDefault(EnvMinReach, config.Arms.MinReach)
	config.Arms.MaxReach = getEnvAsFloatOrDefault(EnvMaxReach, config.Arms.MaxReach)
	config.Blob.Seed = getEnvAsUint64OrDefault(EnvSeed, config.Blob.Seed)

	config.Grid.CellSize = getEnvAsFloatOrDefault(EnvCellSize, config.Grid.CellSize)

	config.Stream.Enabled = getEnvAsBoolOrDefault(EnvStreamEnabled, config.Stream.Enabled)
	config.Stream.Addr = getEnvOrDefault(EnvStreamAddr, config.Stream.Addr)

	config.Audio.Enabled = getEnvAsBoolOrDefault(EnvAudioEnabled, config.Audio.Enabled)
	config.Audio.Volume = getEnvAsFloatOrDefault(EnvAudioVolume, config.Audio.Volume)
	config.Audio.Breaker.Timeout = getEnvAsDurationOrDefault(EnvBreakerTimeout, config.Audio.Breaker.Timeout)

	config.Runtime.MaxMemoryMB = int64(getEnvAsIntOrDefault(EnvMaxMemoryMB, int(config.Runtime.MaxMemoryMB)))

	return config.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64OrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
