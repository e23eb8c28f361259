package engine

import (
	"fmt"
	"strings"

	"github.com/opd-ai/go-blob/pkg/effects"
	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/physics"
)

// Snapshot is an immutable copy of the simulation after one tick
type Snapshot struct {
	RunID string         `json:"run_id" msgpack:"run_id"`
	Tick  uint64         `json:"tick" msgpack:"tick"`
	Blob  BlobState      `json:"blob" msgpack:"blob"`
	Arms  []ArmState     `json:"arms" msgpack:"arms"`
	Marks []effects.Mark `json:"marks,omitempty" msgpack:"marks,omitempty"`
	Step  StepSummary    `json:"step" msgpack:"step"`
	View  physics.Bbox   `json:"view" msgpack:"view"`
}

// BlobState is the body part of a snapshot
type BlobState struct {
	Position    physics.Vector2D `json:"position" msgpack:"position"`
	Velocity    physics.Vector2D `json:"velocity" msgpack:"velocity"`
	Translation physics.Vector2D `json:"translation" msgpack:"translation"`
	Radius      float64          `json:"radius" msgpack:"radius"`
	Size        float64          `json:"size" msgpack:"size"`
	Anchored    int              `json:"anchored" msgpack:"anchored"`
	Scanning    bool             `json:"scanning" msgpack:"scanning"`
	Blocked     bool             `json:"blocked" msgpack:"blocked"`
	InFog       bool             `json:"in_fog" msgpack:"in_fog"`
}

// ArmState is one limb in a snapshot
type ArmState struct {
	Index  int                   `json:"index" msgpack:"index"`
	State  string                `json:"state" msgpack:"state"`
	Origin physics.Vector2D      `json:"origin" msgpack:"origin"`
	Target physics.Vector2D      `json:"target" msgpack:"target"`
	Length float64               `json:"length" msgpack:"length"`
	Width  float64               `json:"width" msgpack:"width"`
	Curve  []entity.CurveSegment `json:"curve" msgpack:"curve"`
}

// StepSummary counts what happened during the tick
type StepSummary struct {
	Transitions int `json:"transitions" msgpack:"transitions"`
	Released    int `json:"released" msgpack:"released"`
}

// snapshotLocked copies the blob state. Marks carries only the anchors
// recorded since the previous snapshot. Called with s.mu held.
func (s *Simulation) snapshotLocked() *Snapshot {
	b := s.Blob
	snap := &Snapshot{
		RunID: s.runID,
		Tick:  s.currentTick,
		Blob: BlobState{
			Position:    b.Position,
			Velocity:    b.Velocity,
			Translation: b.Translation(),
			Radius:      b.Radius(),
			Size:        b.Size(),
			Anchored:    b.Anchored(),
			Scanning:    b.Scanning(),
			Blocked:     b.Blocked(),
			InFog:       s.Surface.InFog(b.Position),
		},
		Arms: make([]ArmState, len(b.Arms)),
		Step: StepSummary{
			Transitions: len(s.lastStep.Transitions),
			Released:    s.lastStep.Released,
		},
		View: b.Bbox(),
	}

	for i, a := range b.Arms {
		snap.Arms[i] = ArmState{
			Index:  a.Index,
			State:  a.State().String(),
			Origin: a.Origin(),
			Target: a.Target(),
			Length: a.Length(),
			Width:  a.Width(),
			Curve:  append([]entity.CurveSegment(nil), a.Segments()...),
		}
	}

	snap.Marks = s.Marks.Since(s.lastMarkSeq)
	if n := len(snap.Marks); n > 0 {
		s.lastMarkSeq = snap.Marks[n-1].Seq
	}
	return snap
}

// Summary renders the tick, position, anchored count, the first letter of
// every arm state and the body flags on one line
func (s *Snapshot) Summary() string {
	states := make([]string, len(s.Arms))
	for i, a := range s.Arms {
		states[i] = "?"
		if a.State != "" {
			states[i] = a.State[:1]
		}
	}

	flags := ""
	if s.Blob.Scanning {
		flags += " scan"
	}
	if s.Blob.Blocked {
		flags += " blocked"
	}
	if s.Blob.InFog {
		flags += " fog"
	}

	return fmt.Sprintf("tick %d  pos %.0f,%.0f  anchored %d/%d [%s]%s",
		s.Tick,
		s.Blob.Position.X, s.Blob.Position.Y,
		s.Blob.Anchored, len(s.Arms),
		strings.Join(states, ""),
		flags,
	)
}
