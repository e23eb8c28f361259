// pkg/entity/arm.go
package entity

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// Arm tuning. Lengths are in world units, angles in radians.
const (
	ArmStartOffset      = 2.0
	ArmBaseLength       = 5.0
	ArmMaxAngleDiff     = 1.0
	ArmWobble           = 0.1
	ArmCurveSegments    = 10
	ArmViewRatio        = 0.8
	DefaultArmBaseWidth = 10.0
	DefaultArmSoftness  = 0.4

	idleBlend         = 0.2
	idleWaveScale     = 5.0
	idleWaveRate      = 0.01
	deployLerp        = 0.5
	anchorEpsilon     = 5.0
	retractRate       = 0.5
	retractLengthGap  = 0.1
	retractAngleGap   = 0.001
	attractHeadroom   = 1.1
	idleWidthFactor   = 0.9
	minStretchedWidth = 0.3
)

// CollisionQuerier is the part of the map surface an arm or blob queries
type CollisionQuerier interface {
	NearestIntersection(ray physics.Segment, query physics.Bbox) (world.Hit, bool)
	CircleOverlapsAny(center physics.Vector2D, radius float64, query physics.Bbox) bool
}

// AnchorSink is told about every new anchor, for stains and splats. It
// must not block.
type AnchorSink interface {
	OnAnchor(point, direction physics.Vector2D)
}

// ArmFrame is what an arm reads from its blob during one tick
type ArmFrame struct {
	Body physics.Vector2D
	// Forced is the movement intent
	Forced  physics.Vector2D
	Scan    bool
	Reach   physics.Bbox
	Surface CollisionQuerier
	Sink    AnchorSink
	// OnTransition, when set, is called after every state change
	OnTransition func(arm *Arm, from, to ArmState, point physics.Vector2D)
	// OnSinkFailure, when set, is called when Sink panics
	OnSinkFailure func(arm *Arm, err error)
}

// Arm is one limb of a blob. The exported tuning fields may be changed
// between ticks; everything else is driven by Update.
type Arm struct {
	Index      int
	BaseAngle  float64
	ViewAngle  float64
	Angle      float64
	BaseLength float64
	MaxLength  float64
	ViewLength float64
	// MaxAngleDiff is how far an anchored arm may be bent away from the
	// direction the blob wants before it lets go
	MaxAngleDiff float64
	Wobble       float64
	Phase        float64
	PhaseStep    float64
	BaseWidth    float64
	Softness     float64

	state      ArmState
	origin     physics.Vector2D
	target     physics.Vector2D
	length     float64
	hit        world.Hit
	hasHit     bool
	attract    physics.Vector2D
	elongation float64
	width      float64
	segments   []CurveSegment

	sinkFailures uint64
}

// NewArm creates an idle arm at rest around a body at the world origin.
// Call Reset to place it around the actual body.
func NewArm(baseAngle, maxLength float64) *Arm {
	a := &Arm{
		BaseAngle:    baseAngle,
		ViewAngle:    baseAngle,
		Angle:        baseAngle,
		BaseLength:   ArmBaseLength,
		MaxLength:    maxLength,
		ViewLength:   maxLength * ArmViewRatio,
		MaxAngleDiff: ArmMaxAngleDiff,
		Wobble:       ArmWobble,
		BaseWidth:    DefaultArmBaseWidth,
		Softness:     DefaultArmSoftness,
	}
	a.Reset(physics.Vector2D{})
	return a
}

// NewRandomArm rolls an arm with its own reach, width, softness and wave
// timing. maxReach below minReach is raised to minReach.
func NewRandomArm(rng *rand.Rand, baseAngle, minReach, maxReach float64) *Arm {
	maxReach = math.Max(minReach, maxReach)
	a := NewArm(baseAngle, minReach+rng.Float64()*(maxReach-minReach))

	a.BaseWidth = randomize(rng, DefaultArmBaseWidth, 5)
	a.Softness = randomize(rng, 4, 2) / a.BaseWidth
	a.Phase = math.Round(rng.Float64() * 100)
	a.PhaseStep = rng.Float64()*0.2 - 0.1
	a.refreshShape()
	return a
}

// randomize returns value ± spread
func randomize(rng *rand.Rand, value, spread float64) float64 {
	return value - spread + rng.Float64()*2*spread
}

// Reset puts the arm back to rest around body, idle and pointing along its
// base angle
func (a *Arm) Reset(body physics.Vector2D) {
	a.state = ArmIdle
	a.ViewAngle = a.BaseAngle
	a.Angle = a.BaseAngle
	a.hit, a.hasHit = world.Hit{}, false
	a.attract = physics.Vector2D{}
	a.origin = body.Add(physics.FromAngle(a.Angle, ArmStartOffset))
	a.target = a.origin.Add(physics.FromAngle(a.Angle, a.BaseLength))
	a.length = a.origin.Distance(a.target)
	a.refreshShape()
}

// State returns the current phase of the grab cycle
func (a *Arm) State() ArmState { return a.state }

// Origin is where the limb leaves the body
func (a *Arm) Origin() physics.Vector2D { return a.origin }

// Target is the tip of the limb
func (a *Arm) Target() physics.Vector2D { return a.target }

// Length is always the distance from Origin to Target
func (a *Arm) Length() float64 { return a.length }

// WallHit returns the wall point the arm is reaching for or holding
func (a *Arm) WallHit() (world.Hit, bool) { return a.hit, a.hasHit }

// AttractDirection is the unit vector toward the anchor; zero unless
// anchored
func (a *Arm) AttractDirection() physics.Vector2D { return a.attract }

// Elongation is how much of the reach beyond rest length is in use
func (a *Arm) Elongation() float64 { return a.elongation }

// Width is the current drawn thickness
func (a *Arm) Width() float64 { return a.width }

// Segments returns the drawn curve of the limb
func (a *Arm) Segments() []CurveSegment { return a.segments }

// SinkFailures is the number of anchor notifications whose sink panicked
func (a *Arm) SinkFailures() uint64 { return a.sinkFailures }

// Update advances the arm by one tick
func (a *Arm) Update(f ArmFrame) {
	a.origin = f.Body.Add(physics.FromAngle(a.Angle, ArmStartOffset))
	a.Phase += a.PhaseStep
	a.length = a.origin.Distance(a.target)
	a.refreshShape()

	switch a.state {
	case ArmAnchored:
		a.updateAnchored(f)
	case ArmRetracting:
		a.retract(f)
	case ArmDeploying:
		a.deploy(f)
	default:
		a.idle(f)
	}

	a.length = a.origin.Distance(a.target)
	a.segments = buildCurve(curveShape{
		origin:     a.origin,
		target:     a.target,
		phase:      a.Phase,
		elongation: a.elongation,
		width:      a.width,
		softness:   a.Softness,
		anchored:   a.state == ArmAnchored,
		segments:   ArmCurveSegments,
	})
}

// AttractForce is how strongly this arm helps the body move along intent.
// Only anchored arms pull. An arm already straining that way returns the
// alignment as is; otherwise the result is never positive and shrinks as
// the arm runs out of reach.
func (a *Arm) AttractForce(intent physics.Vector2D) float64 {
	if a.state != ArmAnchored {
		return 0
	}

	value := a.attract.Dot(intent)
	if value > 0 {
		return value
	}
	if value == 0 || a.MaxLength <= 0 {
		return 0
	}

	headroom := attractHeadroom - a.length/a.MaxLength
	if headroom == 0 {
		return 0
	}

	return math.Min(0, value*headroom)
}

// ReleaseWall lets go of the wall. It only affects anchored arms and
// reports whether the arm was released.
func (a *Arm) ReleaseWall() bool {
	return a.release(nil)
}

func (a *Arm) release(f *ArmFrame) bool {
	if a.state != ArmAnchored {
		return false
	}
	a.hit, a.hasHit = world.Hit{}, false
	a.attract = physics.Vector2D{}
	a.setState(f, ArmRetracting, a.target)
	return true
}

func (a *Arm) setState(f *ArmFrame, to ArmState, point physics.Vector2D) {
	from := a.state
	a.state = to
	if f != nil && f.OnTransition != nil && from != to {
		f.OnTransition(a, from, to, point)
	}
}

// desiredDirection is the base direction bent by the movement intent
func (a *Arm) desiredDirection(forced physics.Vector2D) physics.Vector2D {
	base := physics.FromAngle(a.BaseAngle, 1)
	dir := base.Add(forced).Normalize()
	if dir.IsZero() {
		return base
	}
	return dir
}

func (a *Arm) idle(f ArmFrame) {
	current := physics.FromAngle(a.ViewAngle, 1)
	blended := current.Lerp(a.desiredDirection(f.Forced), idleBlend)
	if !blended.IsZero() {
		a.ViewAngle = blended.Angle()
	}
	a.ViewAngle += math.Cos(a.Phase) * a.Wobble

	wave := math.Abs(math.Cos(a.Phase*idleWaveRate) * a.BaseLength * idleWaveScale)
	a.target = a.origin.Add(physics.FromAngle(a.ViewAngle, wave))

	if !f.Scan || f.Surface == nil {
		return
	}

	ray := physics.NewSegment(a.origin, a.origin.Add(physics.FromAngle(a.ViewAngle, a.ViewLength)))
	hit, ok := f.Surface.NearestIntersection(ray, f.Reach)
	if !ok {
		return
	}
	a.hit, a.hasHit = hit, true
	a.setState(&f, ArmDeploying, hit.Point)
}

func (a *Arm) deploy(f ArmFrame) {
	if a.origin.Distance(a.hit.Point) > a.MaxLength {
		a.hit, a.hasHit = world.Hit{}, false
		a.setState(&f, ArmRetracting, a.target)
		return
	}

	a.target = a.target.Lerp(a.hit.Point, deployLerp)
	if a.target.Distance(a.hit.Point) >= anchorEpsilon {
		return
	}

	preSnap := a.target
	a.target = a.hit.Point
	a.Angle = a.target.Sub(a.origin).Angle()
	a.attract = physics.FromAngle(a.Angle, 1)
	a.setState(&f, ArmAnchored, a.hit.Point)

	a.notifyAnchor(&f, a.hit.Point, a.hit.Point.Sub(preSnap))
}

// notifyAnchor never lets a misbehaving sink break the tick. A panic is
// counted and handed to OnSinkFailure.
func (a *Arm) notifyAnchor(f *ArmFrame, point, direction physics.Vector2D) {
	if f.Sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.sinkFailures++
			if f.OnSinkFailure != nil {
				f.OnSinkFailure(a, fmt.Errorf("anchor sink: %v", r))
			}
		}
	}()
	f.Sink.OnAnchor(point, direction)
}

func (a *Arm) updateAnchored(f ArmFrame) {
	a.length = a.origin.Distance(a.target)
	a.Angle = a.target.Sub(a.origin).Angle()
	a.attract = physics.FromAngle(a.Angle, 1)

	overExtended := a.length > a.MaxLength
	bent := math.Abs(physics.AngleDiff(a.desiredDirection(f.Forced).Angle(), a.Angle)) > a.MaxAngleDiff
	if overExtended || bent {
		a.release(&f)
	}
}

func (a *Arm) retract(f ArmFrame) {
	settled := true

	if gap := a.length - a.BaseLength; math.Abs(gap) > retractLengthGap {
		a.length = a.BaseLength + gap*retractRate
		settled = false
	}
	a.target = a.origin.Add(physics.FromAngle(a.Angle, a.length))

	if d := physics.AngleDiff(a.BaseAngle, a.Angle); math.Abs(d) > retractAngleGap {
		a.Angle += d * retractRate
		settled = false
	}

	if settled {
		a.setState(&f, ArmIdle, a.target)
	}
}

// refreshShape recomputes elongation and drawn width from the length
func (a *Arm) refreshShape() {
	if gap := a.MaxLength - a.BaseLength; gap > 0 {
		a.elongation = (a.length - a.BaseLength) / gap
	} else {
		a.elongation = 0
	}

	if a.state == ArmIdle {
		a.width = a.BaseWidth * idleWidthFactor
		return
	}
	a.width = math.Max(1-a.elongation, minStretchedWidth) * a.BaseWidth
}
