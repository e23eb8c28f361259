// pkg/physics/vector_test.go
package physics

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func vectorsClose(a, b Vector2D) bool {
	return math.Abs(a.X-b.X) < floatTolerance && math.Abs(a.Y-b.Y) < floatTolerance
}

func TestVector2D_Arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		got      Vector2D
		expected Vector2D
	}{
		{"add_mixed_signs", Vector2D{X: 5, Y: -3}.Add(Vector2D{X: -2, Y: 7}), Vector2D{X: 3, Y: 4}},
		{"sub_negative_result", Vector2D{X: 2, Y: 3}.Sub(Vector2D{X: 5, Y: 7}), Vector2D{X: -3, Y: -4}},
		{"scale_fraction", Vector2D{X: 4, Y: 8}.Scale(0.5), Vector2D{X: 2, Y: 4}},
		{"scale_zero", Vector2D{X: 3, Y: 4}.Scale(0), Vector2D{}},
		{"lerp_half", Vector2D{X: 0, Y: 0}.Lerp(Vector2D{X: 10, Y: -4}, 0.5), Vector2D{X: 5, Y: -2}},
		{"lerp_zero_keeps_origin", Vector2D{X: 1, Y: 1}.Lerp(Vector2D{X: 9, Y: 9}, 0), Vector2D{X: 1, Y: 1}},
		{"clamp_long_vector", Vector2D{X: 6, Y: 8}.ClampLength(5), Vector2D{X: 3, Y: 4}},
		{"clamp_short_vector", Vector2D{X: 1, Y: 0}.ClampLength(5), Vector2D{X: 1, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !vectorsClose(tt.got, tt.expected) {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestVector2D_Length(t *testing.T) {
	tests := []struct {
		name     string
		vector   Vector2D
		expected float64
	}{
		{"zero_vector", Vector2D{}, 0},
		{"pythagorean_triple", Vector2D{X: 3, Y: 4}, 5},
		{"negative_components", Vector2D{X: -3, Y: -4}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.vector.Length()-tt.expected) > floatTolerance {
				t.Errorf("Length() = %v, expected %v", tt.vector.Length(), tt.expected)
			}
			if math.Abs(tt.vector.LengthSquared()-tt.expected*tt.expected) > floatTolerance {
				t.Errorf("LengthSquared() = %v, expected %v", tt.vector.LengthSquared(), tt.expected*tt.expected)
			}
		})
	}
}

func TestVector2D_Normalize(t *testing.T) {
	n := Vector2D{X: 3, Y: 4}.Normalize()
	if !vectorsClose(n, Vector2D{X: 0.6, Y: 0.8}) {
		t.Errorf("Normalize() = %v", n)
	}

	zero := Vector2D{}.Normalize()
	if !zero.IsZero() {
		t.Errorf("zero vector should normalize to zero, got %v", zero)
	}
}

func TestVector2D_DotCross(t *testing.T) {
	a := Vector2D{X: 1, Y: 0}
	b := Vector2D{X: 0, Y: 1}

	if a.Dot(b) != 0 {
		t.Errorf("perpendicular dot = %v", a.Dot(b))
	}
	if a.Cross(b) != 1 {
		t.Errorf("Cross() = %v, expected 1", a.Cross(b))
	}
	if a.Dot(a.Scale(-1)) != -1 {
		t.Errorf("anti-parallel dot = %v", a.Dot(a.Scale(-1)))
	}
}

func TestFromAngle(t *testing.T) {
	v := FromAngle(math.Pi/2, 2)
	if !vectorsClose(v, Vector2D{X: 0, Y: 2}) {
		t.Errorf("FromAngle(pi/2, 2) = %v", v)
	}
	if math.Abs(v.Angle()-math.Pi/2) > floatTolerance {
		t.Errorf("Angle() = %v", v.Angle())
	}
}

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		name     string
		to, from float64
		expected float64
	}{
		{"same_angle", 1, 1, 0},
		{"small_positive", 0.5, 0.25, 0.25},
		{"wraps_across_pi", -math.Pi + 0.1, math.Pi - 0.1, 0.2},
		{"wraps_backwards", math.Pi - 0.1, -math.Pi + 0.1, -0.2},
		{"full_turn_is_zero", 2 * math.Pi, 0, 0},
		{"half_turn_is_positive_pi", math.Pi, 0, math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngleDiff(tt.to, tt.from)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("AngleDiff(%v, %v) = %v, expected %v", tt.to, tt.from, got, tt.expected)
			}
		})
	}
}

func BenchmarkVector2D_Normalize(b *testing.B) {
	v := Vector2D{X: 3, Y: 4}
	for i := 0; i < b.N; i++ {
		_ = v.Normalize()
	}
}
