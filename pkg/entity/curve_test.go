package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-blob/pkg/physics"
)

func TestBuildCurve(t *testing.T) {
	base := curveShape{
		origin:   physics.Vector2D{X: 0, Y: 0},
		target:   physics.Vector2D{X: 100, Y: 0},
		phase:    3,
		width:    10,
		softness: 0.4,
		segments: ArmCurveSegments,
	}

	t.Run("segments_are_chained_from_origin", func(t *testing.T) {
		curve := buildCurve(base)
		require.Len(t, curve, ArmCurveSegments)
		assert.Equal(t, base.origin, curve[0].Start)
		for i := 1; i < len(curve); i++ {
			assert.Equal(t, curve[i-1].End, curve[i].Start, "segment %d", i)
		}
	})

	t.Run("fully_stretched_limb_is_straight", func(t *testing.T) {
		s := base
		s.elongation = 1
		curve := buildCurve(s)
		for i, seg := range curve {
			assert.InDelta(t, 0, seg.End.Y, 1e-9, "joint %d", i)
			assert.InDelta(t, float64(i+1)*10, seg.End.X, 1e-9, "joint %d", i)
		}
		assert.InDelta(t, 100, curve[len(curve)-1].End.X, 1e-9)
	})

	t.Run("width_tapers_and_is_capped", func(t *testing.T) {
		s := base
		s.width = 100
		curve := buildCurve(s)
		for _, seg := range curve {
			assert.LessOrEqual(t, seg.Width, maxCurveWidth)
		}

		s.width = 1
		curve = buildCurve(s)
		assert.Greater(t, curve[0].Width, curve[len(curve)-1].Width)
	})

	t.Run("anchored_wave_follows_softness", func(t *testing.T) {
		s := base
		s.anchored = true
		s.softness = 0
		for i, seg := range buildCurve(s) {
			assert.InDelta(t, 0, seg.End.Y, 1e-9, "a rigid anchored limb has no wave at joint %d", i)
		}
	})

	t.Run("no_segments", func(t *testing.T) {
		s := base
		s.segments = 0
		assert.Nil(t, buildCurve(s))
	})
}
