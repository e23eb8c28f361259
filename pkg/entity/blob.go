// pkg/entity/blob.go
package entity

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/physics"
)

// BlobConfig sets up a blob and its arms
type BlobConfig struct {
	Arms     int
	MinReach float64
	MaxReach float64
	Radius   float64
	// Gravity is subtracted from the vertical speed every free-falling tick
	Gravity float64
	// Damping multiplies the horizontal speed every free-falling tick
	Damping    float64
	ForceScale float64
	// MaxStep caps the distance anchored arms can drag the body per tick
	MaxStep float64
	Seed    uint64
}

// DefaultBlobConfig returns the standard sixteen-armed blob
func DefaultBlobConfig() BlobConfig {
	return BlobConfig{
		Arms:       16,
		MinReach:   100,
		MaxReach:   200,
		Radius:     20,
		Gravity:    0.2,
		Damping:    0.95,
		ForceScale: 50,
		MaxStep:    3,
		Seed:       1,
	}
}

// Environment is what the blob needs from the world during a tick
type Environment struct {
	Surface CollisionQuerier
	Sink    AnchorSink
}

// Step summarizes one tick of a blob
type Step struct {
	Transitions []ArmTransition
	Translation physics.Vector2D
	Blocked     bool
	// Attempted is the rejected position when Blocked is set
	Attempted physics.Vector2D
	Released  int
	// SinkErrors holds the anchor notifications lost to a panicking sink
	SinkErrors []error
}

// Blob is the creature: a round body with arms spread evenly around it
type Blob struct {
	BaseEntity
	Arms []*Arm

	Gravity    float64
	Damping    float64
	ForceScale float64
	MaxStep    float64

	reach       physics.Bbox
	translation physics.Vector2D
	intent      physics.Vector2D
	scanning    bool
	blocked     bool
	ticks       uint64

	pendingRelease atomic.Bool
}

// NewBlob creates a blob at start with cfg.Arms randomly tuned arms. The
// same seed always produces the same arms.
func NewBlob(cfg BlobConfig, start physics.Vector2D) *Blob {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	arms := make([]*Arm, 0, max(0, cfg.Arms))
	if cfg.Arms > 0 {
		step := 2 * math.Pi / float64(cfg.Arms)
		for i := 0; i < cfg.Arms; i++ {
			arms = append(arms, NewRandomArm(rng, step*float64(i), cfg.MinReach, cfg.MaxReach))
		}
	}

	return NewBlobWithArms(cfg, start, arms...)
}

// NewBlobWithArms creates a blob around pre-built arms. cfg.Arms and the
// reach bounds are ignored.
func NewBlobWithArms(cfg BlobConfig, start physics.Vector2D, arms ...*Arm) *Blob {
	b := &Blob{
		BaseEntity: BaseEntity{
			ID:       GenerateID(),
			Body:     physics.Body{Position: start},
			Collider: physics.Circle{Center: start, Radius: cfg.Radius},
		},
		Arms:       arms,
		Gravity:    cfg.Gravity,
		Damping:    cfg.Damping,
		ForceScale: cfg.ForceScale,
		MaxStep:    cfg.MaxStep,
	}

	for i, a := range arms {
		a.Index = i
		a.Reset(start)
	}
	b.reach = physics.BboxAround(start, 2*b.reachRadius(), 2*b.reachRadius())

	return b
}

// reachRadius bounds how far from the center any arm can probe
func (b *Blob) reachRadius() float64 {
	r := b.Collider.Radius
	for _, a := range b.Arms {
		r = math.Max(r, ArmStartOffset+math.Max(a.MaxLength, a.ViewLength))
	}
	return r
}

// Radius is the size of the body collider
func (b *Blob) Radius() float64 { return b.Collider.Radius }

// Translation is how far the body moved during the last tick
func (b *Blob) Translation() physics.Vector2D { return b.translation }

// Bbox is the area arms may search, centered on the body
func (b *Blob) Bbox() physics.Bbox { return b.reach }

// Intent is the movement intent of the last tick
func (b *Blob) Intent() physics.Vector2D { return b.intent }

// Scanning reports whether arms probed for walls during the last tick
func (b *Blob) Scanning() bool { return b.scanning }

// Blocked reports whether the last move was rejected by a wall
func (b *Blob) Blocked() bool { return b.blocked }

// Ticks returns how many times Update ran
func (b *Blob) Ticks() uint64 { return b.ticks }

// RequestRelease asks every anchored arm to let go on the next tick. It is
// safe to call from any goroutine.
func (b *Blob) RequestRelease() {
	b.pendingRelease.Store(true)
}

// Anchored returns how many arms are holding a wall
func (b *Blob) Anchored() int {
	n := 0
	for _, a := range b.Arms {
		if a.State() == ArmAnchored {
			n++
		}
	}
	return n
}

// Size shrinks as the arms stretch out
func (b *Blob) Size() float64 {
	total := 0.0
	for _, a := range b.Arms {
		total += a.Length()
	}
	return (2000 - total) / 50
}

// Update advances the blob and all of its arms by one tick
func (b *Blob) Update(in input.Snapshot, env Environment) Step {
	var step Step
	b.ticks++

	frame := ArmFrame{
		Surface: env.Surface,
		Sink:    env.Sink,
		OnTransition: func(a *Arm, from, to ArmState, point physics.Vector2D) {
			step.Transitions = append(step.Transitions, ArmTransition{Arm: a.Index, From: from, To: to, Point: point})
		},
		OnSinkFailure: func(a *Arm, err error) {
			step.SinkErrors = append(step.SinkErrors, fmt.Errorf("arm %d: %w", a.Index, err))
		},
	}

	if b.pendingRelease.Swap(false) || in.Release {
		for _, a := range b.Arms {
			if a.release(&frame) {
				step.Released++
			}
		}
	}

	in = in.Clamped()
	b.intent = in.Move
	b.scanning = in.Scan

	if b.Anchored() > 0 {
		b.Velocity = b.attraction(b.intent)
	} else {
		b.ApplyFreeFall(b.Gravity, b.Damping)
	}

	next := b.Position
	b.blocked = false
	if !b.Velocity.IsZero() {
		candidate := b.Candidate()
		if b.collides(candidate, env.Surface) {
			b.Stop()
			b.blocked = true
			step.Attempted = candidate
		} else {
			next = candidate
		}
	}

	b.translation = b.Commit(next)
	b.Collider.Center = b.Position
	b.reach.Translate(b.Position.X, b.Position.Y)

	frame.Body = b.Position
	frame.Forced = b.intent
	frame.Scan = b.scanning
	frame.Reach = b.reach
	for _, a := range b.Arms {
		a.Update(frame)
	}

	step.Translation = b.translation
	step.Blocked = b.blocked
	return step
}

// attraction sums what the arms pull along intent into a capped per-tick
// displacement
func (b *Blob) attraction(intent physics.Vector2D) physics.Vector2D {
	if intent.ManhattanLength() == 0 {
		return physics.Vector2D{}
	}

	total := 0.0
	for _, a := range b.Arms {
		total += a.AttractForce(intent)
	}

	magnitude := math.Max(-b.MaxStep, math.Min(b.MaxStep, total*b.ForceScale))
	return intent.Scale(magnitude).ClampLength(b.MaxStep)
}

// collides reports whether the body cannot move to candidate: either the
// circle there touches a wall or the straight path crosses one
func (b *Blob) collides(candidate physics.Vector2D, surface CollisionQuerier) bool {
	if surface == nil {
		return false
	}

	query := b.reach.Translated(candidate)
	query.ResizeToInclude(b.reach)

	if surface.CircleOverlapsAny(candidate, b.Collider.Radius, query) {
		return true
	}
	_, crosses := surface.NearestIntersection(physics.NewSegment(b.Position, candidate), query)
	return crosses
}

// Render draws the blob and its arms
func (b *Blob) Render(r Renderer) {
	r.RenderBlob(b)
	for _, a := range b.Arms {
		r.RenderArm(a)
	}
}

var _ Entity = (*Blob)(nil)
