package physics

import (
	"testing"
)

func TestBody_ApplyFreeFall(t *testing.T) {
	tests := []struct {
		name     string
		initial  Vector2D
		gravity  float64
		damping  float64
		frames   int
		expected Vector2D
	}{
		{
			name:     "falls_from_rest",
			gravity:  0.5,
			damping:  0.9,
			frames:   4,
			expected: Vector2D{X: 0, Y: -2},
		},
		{
			name:     "horizontal_speed_decays",
			initial:  Vector2D{X: 10, Y: 0},
			gravity:  0,
			damping:  0.5,
			frames:   2,
			expected: Vector2D{X: 2.5, Y: 0},
		},
		{
			name:     "zero_gravity_keeps_vertical_speed",
			initial:  Vector2D{X: 0, Y: 3},
			gravity:  0,
			damping:  1,
			frames:   10,
			expected: Vector2D{X: 0, Y: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := Body{Velocity: tt.initial}
			for i := 0; i < tt.frames; i++ {
				body.ApplyFreeFall(tt.gravity, tt.damping)
			}
			if !vectorsClose(body.Velocity, tt.expected) {
				t.Errorf("Velocity = %v, expected %v", body.Velocity, tt.expected)
			}
		})
	}
}

func TestBody_Commit(t *testing.T) {
	body := Body{Position: Vector2D{X: 1, Y: 1}, Velocity: Vector2D{X: 2, Y: -1}}

	candidate := body.Candidate()
	if candidate != (Vector2D{X: 3, Y: 0}) {
		t.Fatalf("Candidate() = %v", candidate)
	}
	if body.Position != (Vector2D{X: 1, Y: 1}) {
		t.Errorf("Candidate must not move the body, position = %v", body.Position)
	}

	delta := body.Commit(candidate)
	if delta != (Vector2D{X: 2, Y: -1}) {
		t.Errorf("Commit() delta = %v", delta)
	}
	if body.Position != candidate {
		t.Errorf("Position = %v, expected %v", body.Position, candidate)
	}

	body.Stop()
	if !body.Velocity.IsZero() {
		t.Errorf("Stop() left velocity %v", body.Velocity)
	}
}
