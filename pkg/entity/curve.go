package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-blob/pkg/physics"
)

const (
	maxCurveWidth  = 15.0
	widthFalloff   = 0.8
	idleWaveFactor = 5.0
	idleWaveGrowth = 1.1
	stuckWaveScale = 50.0
	stuckWaveDecay = 0.7
)

// CurveSegment is one piece of the drawn limb
type CurveSegment struct {
	Start physics.Vector2D `json:"start" msgpack:"start"`
	End   physics.Vector2D `json:"end" msgpack:"end"`
	Width float64          `json:"width" msgpack:"width"`
}

// curveShape carries what buildCurve needs from the arm
type curveShape struct {
	origin     physics.Vector2D
	target     physics.Vector2D
	phase      float64
	elongation float64
	width      float64
	softness   float64
	anchored   bool
	segments   int
}

// buildCurve splits origin→target into count pieces and pushes each joint
// sideways by a travelling wave. Anchored limbs wave with their softness
// and calm down toward the tip; free limbs wiggle more toward the tip.
// The further the limb is stretched, the flatter it gets.
func buildCurve(s curveShape) []CurveSegment {
	if s.segments <= 0 {
		return nil
	}

	origin := mgl64.Vec2{s.origin.X, s.origin.Y}
	target := mgl64.Vec2{s.target.X, s.target.Y}
	span := target.Sub(origin)

	angle := math.Atan2(span.Y(), span.X())
	perp := mgl64.Rotate2D(angle + math.Pi/2).Mul2x1(mgl64.Vec2{1, 0})

	waveFactor, waveReduction := idleWaveFactor, idleWaveGrowth
	if s.anchored {
		waveFactor, waveReduction = stuckWaveScale*s.softness, stuckWaveDecay
	}

	step := 1 / float64(s.segments)
	widthStep := math.Pi / float64(s.segments)
	distanceWidth := 1.0
	flatten := 1 - s.elongation

	out := make([]CurveSegment, s.segments)
	prev := origin
	for i := 0; i < s.segments; i++ {
		point := origin.Add(span.Mul(step * float64(i+1)))
		offset := math.Cos((5*s.phase+float64(i)*10)*0.08) * waveFactor * flatten
		end := point.Add(perp.Mul(offset))
		waveFactor *= waveReduction

		widthFactor := (math.Abs(math.Cos(widthStep*float64(i))) + 0.5) * distanceWidth * 2
		distanceWidth *= widthFalloff

		out[i] = CurveSegment{
			Start: physics.Vector2D{X: prev.X(), Y: prev.Y()},
			End:   physics.Vector2D{X: end.X(), Y: end.Y()},
			Width: math.Min(widthFactor*s.width, maxCurveWidth),
		}
		prev = end
	}

	return out
}
