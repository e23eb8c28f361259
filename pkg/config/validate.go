package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrInvalidConfig and the underlying cause
func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidConfig, e.Err}
	}
	return []error{ErrInvalidConfig}
}

// Validate checks every section. The first problem found is returned as a
// *ValidationError.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validatePhysics,
		c.validateBody,
		c.validateArms,
		c.validateGrid,
		c.validateMap,
		c.validateScript,
		c.validateStream,
		c.validateAudio,
		c.validateRuntime,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field string, value interface{}, msg string) error {
	return &ValidationError{Field: field, Value: value, Message: msg}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c *Config) validatePhysics() error {
	p := c.Physics
	if !isFinite(p.Gravity) || p.Gravity < 0 {
		return invalid("Physics.Gravity", p.Gravity, "must be a finite non-negative number")
	}
	if !isFinite(p.Damping) || p.Damping < 0 || p.Damping > 1 {
		return invalid("Physics.Damping", p.Damping, "must be between 0 and 1")
	}
	if p.TickRate < 1 || p.TickRate > 1000 {
		return invalid("Physics.TickRate", p.TickRate, "must be between 1 and 1000")
	}
	return nil
}

func (c *Config) validateBody() error {
	b := c.Blob
	if !isFinite(b.Radius) || b.Radius <= 0 {
		return invalid("Blob.Radius", b.Radius, "must be positive")
	}
	if !isFinite(b.ForceScale) || b.ForceScale < 0 {
		return invalid("Blob.ForceScale", b.ForceScale, "must be non-negative")
	}
	if !isFinite(b.MaxStep) || b.MaxStep <= 0 {
		return invalid("Blob.MaxStep", b.MaxStep, "must be positive")
	}
	return nil
}

func (c *Config) validateArms() error {
	a := c.Arms
	if a.Count < 0 || a.Count > 256 {
		return invalid("Arms.Count", a.Count, "must be between 0 and 256")
	}
	if !isFinite(a.MinReach) || a.MinReach <= 0 {
		return invalid("Arms.MinReach", a.MinReach, "must be positive")
	}
	if !isFinite(a.MaxReach) || a.MaxReach < a.MinReach {
		return invalid("Arms.MaxReach", a.MaxReach, "must not be below MinReach")
	}
	return nil
}

func (c *Config) validateGrid() error {
	if !isFinite(c.Grid.CellSize) || c.Grid.CellSize <= 0 {
		return invalid("Grid.CellSize", c.Grid.CellSize, "must be positive")
	}
	return nil
}

func (c *Config) validateMap() error {
	if err := c.Map.Validate(); err != nil {
		return &ValidationError{Field: "Map", Value: len(c.Map.Walls), Message: "map rejected", Err: err}
	}
	return nil
}

func (c *Config) validateScript() error {
	for i, st := range c.Script.Steps {
		if st.Ticks < 0 {
			return invalid(fmt.Sprintf("Script.Steps[%d].Ticks", i), st.Ticks, "must not be negative")
		}
		if !isFinite(st.Move.X) || !isFinite(st.Move.Y) {
			return invalid(fmt.Sprintf("Script.Steps[%d].Move", i), st.Move, "must be finite")
		}
	}
	return nil
}

func (c *Config) validateStream() error {
	s := c.Stream
	if !s.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		return &ValidationError{Field: "Stream.Addr", Value: s.Addr, Message: "must be host:port", Err: err}
	}
	if !strings.HasPrefix(s.Path, "/") {
		return invalid("Stream.Path", s.Path, "must start with /")
	}
	if s.QueueSize < 1 {
		return invalid("Stream.QueueSize", s.QueueSize, "must be at least 1")
	}
	if s.MaxClients < 0 {
		return invalid("Stream.MaxClients", s.MaxClients, "must not be negative")
	}
	if s.WriteTimeout <= 0 {
		return invalid("Stream.WriteTimeout", s.WriteTimeout, "must be positive")
	}
	if s.ConnectsPerMinute < 0 {
		return invalid("Stream.ConnectsPerMinute", s.ConnectsPerMinute, "must not be negative")
	}
	return nil
}

func (c *Config) validateAudio() error {
	a := c.Audio
	if !isFinite(a.Volume) || a.Volume < 0 || a.Volume > 4 {
		return invalid("Audio.Volume", a.Volume, "must be between 0 and 4")
	}
	if a.Enabled && (a.SampleRate < 8000 || a.SampleRate > 192000) {
		return invalid("Audio.SampleRate", a.SampleRate, "must be between 8000 and 192000")
	}
	if a.Breaker.Timeout < 0 || a.Breaker.Interval < 0 {
		return invalid("Audio.Breaker", a.Breaker.Timeout, "durations must not be negative")
	}
	return nil
}

func (c *Config) validateRuntime() error {
	r := c.Runtime
	if r.MaxMemoryMB <= 0 {
		return invalid("Runtime.MaxMemoryMB", r.MaxMemoryMB, "must be positive")
	}
	if r.MaxTasks < 1 {
		return invalid("Runtime.MaxTasks", r.MaxTasks, "must be at least 1")
	}
	if r.ShutdownTimeout <= 0 {
		return invalid("Runtime.ShutdownTimeout", r.ShutdownTimeout, "must be positive")
	}
	if r.CheckInterval <= 0 {
		return invalid("Runtime.CheckInterval", r.CheckInterval, "must be positive")
	}
	return nil
}
