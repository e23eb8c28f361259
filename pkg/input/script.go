package input

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Step holds one input state for a number of ticks
type Step struct {
	Ticks   int              `json:"ticks" yaml:"ticks"`
	Move    physics.Vector2D `json:"move" yaml:"move"`
	Scan    bool             `json:"scan,omitempty" yaml:"scan,omitempty"`
	Release bool             `json:"release,omitempty" yaml:"release,omitempty"`
}

// Script replays a fixed list of steps. Release fires only on the first
// tick of a step that asks for it. Once the steps run out the script
// either starts over or keeps returning an empty snapshot.
type Script struct {
	mu      sync.Mutex
	steps   []Step
	loop    bool
	index   int
	elapsed int
}

// NewScript copies steps; steps with no ticks are dropped
func NewScript(steps []Step, loop bool) *Script {
	kept := make([]Step, 0, len(steps))
	for _, st := range steps {
		if st.Ticks > 0 {
			kept = append(kept, st)
		}
	}
	return &Script{steps: kept, loop: loop}
}

// ParseScript decodes a YAML list of steps
func ParseScript(data []byte) ([]Step, error) {
	var steps []Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse input script: %w", err)
	}
	for i, st := range steps {
		if st.Ticks < 0 {
			return nil, fmt.Errorf("step %d: negative tick count %d", i, st.Ticks)
		}
	}
	return steps, nil
}

// Poll implements Provider
func (s *Script) Poll() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.steps) {
		if !s.loop || len(s.steps) == 0 {
			return Snapshot{}
		}
		s.index = 0
	}

	st := s.steps[s.index]
	snap := Snapshot{
		Move:    st.Move,
		Scan:    st.Scan,
		Release: st.Release && s.elapsed == 0,
	}

	s.elapsed++
	if s.elapsed >= st.Ticks {
		s.index++
		s.elapsed = 0
	}

	return snap.Clamped()
}

// Done reports whether a non-looping script has been fully replayed
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.loop && s.index >= len(s.steps)
}

// TotalTicks returns the length of one pass over the script
func (s *Script) TotalTicks() int {
	total := 0
	for _, st := range s.steps {
		total += st.Ticks
	}
	return total
}
