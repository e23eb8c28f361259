// pkg/input/input.go
package input

import (
	"math"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Snapshot is everything the simulation reads from the player in one tick
type Snapshot struct {
	// Move is the movement intent, each axis in [-1, 1]
	Move physics.Vector2D `json:"move" yaml:"move" msgpack:"move"`
	// Release asks every anchored arm to let go. It is edge triggered:
	// true for exactly one tick per press.
	Release bool `json:"release,omitempty" yaml:"release,omitempty" msgpack:"release"`
	// Scan enables wall probing for as long as it stays true
	Scan bool `json:"scan,omitempty" yaml:"scan,omitempty" msgpack:"scan"`
}

// Clamped returns a copy with both move axes limited to [-1, 1]. NaN axes
// become 0.
func (s Snapshot) Clamped() Snapshot {
	s.Move = physics.Vector2D{X: clampAxis(s.Move.X), Y: clampAxis(s.Move.Y)}
	return s
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// Provider supplies one snapshot per tick
type Provider interface {
	Poll() Snapshot
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func() Snapshot

// Poll implements Provider
func (f ProviderFunc) Poll() Snapshot { return f() }

// Idle is a provider that never asks for anything
var Idle Provider = ProviderFunc(func() Snapshot { return Snapshot{} })

// Keys is the directional key state as held by a keyboard or gamepad
type Keys struct {
	Left, Right, Up, Down bool
}

// Intent converts held keys into a movement vector. Opposite keys cancel.
func (k Keys) Intent() physics.Vector2D {
	return physics.Vector2D{
		X: boolAxis(k.Right) - boolAxis(k.Left),
		Y: boolAxis(k.Up) - boolAxis(k.Down),
	}
}

func boolAxis(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// EdgeTrigger turns a level signal into a one-tick pulse on each rising
// edge
type EdgeTrigger struct {
	last bool
}

// Update feeds the current level and reports whether it just went high
func (e *EdgeTrigger) Update(level bool) bool {
	rising := level && !e.last
	e.last = level
	return rising
}
