package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// ErrNonFinite is returned for map coordinates that are NaN or infinite
var ErrNonFinite = errors.New("coordinate is not finite")

// MapProvider supplies the map once at startup
type MapProvider interface {
	LoadMap() (*MapData, error)
}

// WallData is a wall as authored in a map file
type WallData struct {
	Start physics.Vector2D `json:"start" yaml:"start"`
	End   physics.Vector2D `json:"end" yaml:"end"`
	Kind  WallKind         `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// BlockData is a closed polygon as authored in a map file
type BlockData struct {
	Points []physics.Vector2D `json:"points" yaml:"points"`
}

// MapData is the raw map: spawn point, walls, blocks and fog
type MapData struct {
	Start  physics.Vector2D `json:"start" yaml:"start"`
	Walls  []WallData       `json:"walls" yaml:"walls"`
	Blocks []BlockData      `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Fog    []physics.Bbox   `json:"fog,omitempty" yaml:"fog,omitempty"`
}

// LoadMap lets a MapData value act as its own provider
func (m *MapData) LoadMap() (*MapData, error) {
	if m == nil {
		return nil, errors.New("nil map data")
	}
	return m, nil
}

// DefaultMap returns the small five-wall test level
func DefaultMap() *MapData {
	wall := func(x1, y1, x2, y2 float64) WallData {
		return WallData{
			Start: physics.Vector2D{X: x1, Y: y1},
			End:   physics.Vector2D{X: x2, Y: y2},
			Kind:  WallSolid,
		}
	}

	return &MapData{
		Start: physics.Vector2D{X: 0, Y: 10},
		Walls: []WallData{
			wall(-250, -250, 350, -200),
			wall(300, -300, 300, 300),
			wall(-300, -300, -300, 150),
			wall(-300, 150, 200, 50),
			wall(-400, 200, 400, 200),
		},
	}
}

// Validate checks that every coordinate is finite, every wall kind is known
// and every block is a real polygon
func (m *MapData) Validate() error {
	if !finite(m.Start) {
		return fmt.Errorf("start position: %w", ErrNonFinite)
	}

	for i, w := range m.Walls {
		if !finite(w.Start) || !finite(w.End) {
			return fmt.Errorf("wall %d: %w", i, ErrNonFinite)
		}
		switch w.Kind {
		case "", WallSolid, WallGrid:
		default:
			return fmt.Errorf("wall %d: unknown kind %q", i, w.Kind)
		}
	}

	for i, b := range m.Blocks {
		if len(b.Points) < 3 {
			return fmt.Errorf("block %d: %w", i, ErrDegenerateBlock)
		}
		for _, p := range b.Points {
			if !finite(p) {
				return fmt.Errorf("block %d: %w", i, ErrNonFinite)
			}
		}
	}

	for i, f := range m.Fog {
		for _, v := range []float64{f.Left, f.Right, f.Bottom, f.Top} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("fog zone %d: %w", i, ErrNonFinite)
			}
		}
	}

	return nil
}

func finite(v physics.Vector2D) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
