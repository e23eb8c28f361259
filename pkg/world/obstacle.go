// pkg/world/obstacle.go
package world

import (
	"errors"
	"fmt"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// ErrDegenerateBlock is returned when a block polygon has fewer than three
// points.
var ErrDegenerateBlock = errors.New("block needs at least three points")

// Obstacle is anything the map surface collides against. Obstacles are
// built once at load time and never change afterwards.
type Obstacle interface {
	// ObstacleID is the stable handle assigned in load order
	ObstacleID() int
	Bounds() physics.Bbox
	CollisionSegments() []physics.Segment
}

// WallKind classifies a wall for collision purposes
type WallKind string

const (
	// WallSolid walls stop arms and the body
	WallSolid WallKind = "solid"
	// WallGrid walls are see-through meshes with no collision
	WallGrid WallKind = "grid"
)

// Passable reports whether walls of this kind are ignored by collision
func (k WallKind) Passable() bool {
	return k == WallGrid
}

// Wall is a single map-authored line
type Wall struct {
	ID      int
	Segment physics.Segment
	Kind    WallKind

	segments []physics.Segment
}

// NewWall creates a wall. An empty kind is treated as solid.
func NewWall(id int, start, end physics.Vector2D, kind WallKind) *Wall {
	if kind == "" {
		kind = WallSolid
	}
	w := &Wall{
		ID:      id,
		Segment: physics.NewSegment(start, end),
		Kind:    kind,
	}
	if !kind.Passable() {
		w.segments = []physics.Segment{w.Segment}
	}
	return w
}

func (w *Wall) ObstacleID() int                      { return w.ID }
func (w *Wall) Bounds() physics.Bbox                 { return w.Segment.Bbox() }
func (w *Wall) CollisionSegments() []physics.Segment { return w.segments }

// Block is a closed polygon; every edge collides, including the one joining
// the last point back to the first.
type Block struct {
	ID     int
	Points []physics.Vector2D

	bounds   physics.Bbox
	segments []physics.Segment
}

// NewBlock builds a block from its outline
func NewBlock(id int, points []physics.Vector2D) (*Block, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("block %d: %w", id, ErrDegenerateBlock)
	}

	pts := make([]physics.Vector2D, len(points))
	copy(pts, points)

	segments := make([]physics.Segment, len(pts))
	for i := range pts {
		segments[i] = physics.NewSegment(pts[i], pts[(i+1)%len(pts)])
	}

	return &Block{
		ID:       id,
		Points:   pts,
		bounds:   physics.BboxFromPoints(pts...),
		segments: segments,
	}, nil
}

// RectPoints returns the outline of a w×h rectangle hanging down and to
// the right of its top-left corner (x, y).
func RectPoints(x, y, w, h float64) []physics.Vector2D {
	return []physics.Vector2D{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y - h},
		{X: x, Y: y - h},
	}
}

// BlockFromRect builds a rectangular block, see RectPoints
func BlockFromRect(id int, x, y, w, h float64) (*Block, error) {
	return NewBlock(id, RectPoints(x, y, w, h))
}

func (b *Block) ObstacleID() int                      { return b.ID }
func (b *Block) Bounds() physics.Bbox                 { return b.bounds }
func (b *Block) CollisionSegments() []physics.Segment { return b.segments }

// FogZone is an opaque area that hides whatever is inside it from
// observers. It has no collision.
type FogZone struct {
	ID   int
	Area physics.Bbox
}

func (f *FogZone) ObstacleID() int                      { return f.ID }
func (f *FogZone) Bounds() physics.Bbox                 { return f.Area }
func (f *FogZone) CollisionSegments() []physics.Segment { return nil }
