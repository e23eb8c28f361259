// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-blob/pkg/effects"
	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// Config contains everything needed to run a blob simulation
type Config struct {
	Physics PhysicsConfig `json:"physics" yaml:"physics"`
	Blob    BlobConfig    `json:"blob" yaml:"blob"`
	Arms    ArmsConfig    `json:"arms" yaml:"arms"`
	Grid    GridConfig    `json:"grid" yaml:"grid"`
	Map     world.MapData `json:"map" yaml:"map"`
	Script  ScriptConfig  `json:"script" yaml:"script"`
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Audio   AudioConfig   `json:"audio" yaml:"audio"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// PhysicsConfig contains physics-related configuration
type PhysicsConfig struct {
	Gravity float64 `json:"gravity" yaml:"gravity"`
	Damping float64 `json:"damping" yaml:"damping"`
	// TickRate is the number of simulation ticks per second
	TickRate int `json:"tickRate" yaml:"tickRate"`
}

// BlobConfig contains the body settings
type BlobConfig struct {
	Radius     float64 `json:"radius" yaml:"radius"`
	ForceScale float64 `json:"forceScale" yaml:"forceScale"`
	MaxStep    float64 `json:"maxStep" yaml:"maxStep"`
	Seed       uint64  `json:"seed" yaml:"seed"`
}

// ArmsConfig contains the arm count and the reach range they are rolled from
type ArmsConfig struct {
	Count    int     `json:"count" yaml:"count"`
	MinReach float64 `json:"minReach" yaml:"minReach"`
	MaxReach float64 `json:"maxReach" yaml:"maxReach"`
}

// GridConfig contains spatial partition settings
type GridConfig struct {
	CellSize float64 `json:"cellSize" yaml:"cellSize"`
}

// ScriptConfig is the scripted input used by headless runs
type ScriptConfig struct {
	Loop  bool         `json:"loop" yaml:"loop"`
	Steps []input.Step `json:"steps" yaml:"steps"`
}

// StreamConfig contains settings for the websocket observer feed
type StreamConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Addr         string        `json:"addr" yaml:"addr"`
	Path         string        `json:"path" yaml:"path"`
	QueueSize    int           `json:"queueSize" yaml:"queueSize"`
	MaxClients   int           `json:"maxClients" yaml:"maxClients"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`

	// ConnectsPerMinute limits new viewers per remote host, 0 disables
	ConnectsPerMinute int `json:"connectsPerMinute" yaml:"connectsPerMinute"`
}

// RuntimeConfig bounds the background tasks of the headless runner
type RuntimeConfig struct {
	MaxMemoryMB     int64         `json:"maxMemoryMB" yaml:"maxMemoryMB"`
	MaxTasks        int           `json:"maxTasks" yaml:"maxTasks"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	CheckInterval   time.Duration `json:"checkInterval" yaml:"checkInterval"`
}

// AudioConfig contains settings for the anchor sound
type AudioConfig struct {
	Enabled    bool                    `json:"enabled" yaml:"enabled"`
	Volume     float64                 `json:"volume" yaml:"volume"`
	SampleRate int                     `json:"sampleRate" yaml:"sampleRate"`
	Breaker    effects.BreakerSettings `json:"breaker" yaml:"breaker"`
}

// LoadConfig loads a configuration from a JSON or YAML file, chosen by
// extension. Fields missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file, as YAML for .yaml/.yml paths
// and JSON otherwise
func SaveConfig(config *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadMap implements world.MapProvider with a validated copy of the map section
func (c *Config) LoadMap() (*world.MapData, error) {
	m := c.Map
	m.Walls = append([]world.WallData(nil), c.Map.Walls...)
	m.Blocks = append([]world.BlockData(nil), c.Map.Blocks...)
	m.Fog = append([]physics.Bbox(nil), c.Map.Fog...)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	return &m, nil
}

// EntityConfig converts the physics, blob and arm sections for entity.NewBlob
func (c *Config) EntityConfig() entity.BlobConfig {
	return entity.BlobConfig{
		Arms:       c.Arms.Count,
		MinReach:   c.Arms.MinReach,
		MaxReach:   c.Arms.MaxReach,
		Radius:     c.Blob.Radius,
		Gravity:    c.Physics.Gravity,
		Damping:    c.Physics.Damping,
		ForceScale: c.Blob.ForceScale,
		MaxStep:    c.Blob.MaxStep,
		Seed:       c.Blob.Seed,
	}
}

// InputScript builds a fresh scripted input provider from the script section
func (c *Config) InputScript() *input.Script {
	return input.NewScript(c.Script.Steps, c.Script.Loop)
}

// TickInterval is the wall-clock time between two ticks
func (c *Config) TickInterval() time.Duration {
	if c.Physics.TickRate <= 0 {
		return time.Second / DefaultTickRate
	}
	return time.Second / time.Duration(c.Physics.TickRate)
}

// DefaultTickRate matches a 60 Hz display
const DefaultTickRate = 60

// DefaultConfig returns the standard configuration: sixteen arms on the
// five-wall test level, with a looping climb script
func DefaultConfig() *Config {
	blob := entity.DefaultBlobConfig()

	return &Config{
		Physics: PhysicsConfig{
			Gravity:  blob.Gravity,
			Damping:  blob.Damping,
			TickRate: DefaultTickRate,
		},
		Blob: BlobConfig{
			Radius:     blob.Radius,
			ForceScale: blob.ForceScale,
			MaxStep:    blob.MaxStep,
			Seed:       blob.Seed,
		},
		Arms: ArmsConfig{
			Count:    blob.Arms,
			MinReach: blob.MinReach,
			MaxReach: blob.MaxReach,
		},
		Grid: GridConfig{
			CellSize: world.DefaultCellSize,
		},
		Map: *world.DefaultMap(),
		Script: ScriptConfig{
			Loop: true,
			Steps: []input.Step{
				{Ticks: 60, Scan: true},
				{Ticks: 120, Scan: true, Move: physics.Vector2D{X: 1}},
				{Ticks: 120, Scan: true, Move: physics.Vector2D{X: 1, Y: 1}},
				{Ticks: 1, Release: true},
				{Ticks: 60},
				{Ticks: 120, Scan: true, Move: physics.Vector2D{X: -1}},
			},
		},
		Stream: StreamConfig{
			Enabled:      false,
			Addr:         "localhost:4570",
			Path:         "/ws",
			QueueSize:    32,
			MaxClients:   16,
			WriteTimeout: 5 * time.Second,

			ConnectsPerMinute: 30,
		},
		Audio: AudioConfig{
			Enabled:    false,
			Volume:     0.8,
			SampleRate: int(effects.DefaultSampleRate),
			Breaker:    effects.DefaultBreakerSettings("blob-audio"),
		},
		Runtime: RuntimeConfig{
			MaxMemoryMB:     500,
			MaxTasks:        16,
			ShutdownTimeout: 10 * time.Second,
			CheckInterval:   30 * time.Second,
		},
	}
}
