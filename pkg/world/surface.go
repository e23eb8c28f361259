// pkg/world/surface.go
package world

import (
	"fmt"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Hit describes where a ray first meets the map
type Hit struct {
	Point      physics.Vector2D
	Segment    physics.Segment
	ObstacleID int
	Distance   float64
}

// Surface is the collidable map. It owns the obstacles built from map data
// and answers ray and circle queries through the partition grid.
type Surface struct {
	start     physics.Vector2D
	walls     []*Wall
	blocks    []*Block
	fog       []*FogZone
	obstacles []Obstacle
	grid      *Grid
}

// NewSurface builds the obstacles described by data and indexes them.
// Handles are assigned in load order: walls first, then blocks.
func NewSurface(data *MapData, cellSize float64) (*Surface, error) {
	if data == nil {
		data = &MapData{}
	}

	s := &Surface{start: data.Start}

	for _, wd := range data.Walls {
		w := NewWall(len(s.obstacles), wd.Start, wd.End, wd.Kind)
		s.walls = append(s.walls, w)
		s.obstacles = append(s.obstacles, w)
	}

	for i, bd := range data.Blocks {
		b, err := NewBlock(len(s.obstacles), bd.Points)
		if err != nil {
			return nil, fmt.Errorf("building block %d: %w", i, err)
		}
		s.blocks = append(s.blocks, b)
		s.obstacles = append(s.obstacles, b)
	}

	for i, area := range data.Fog {
		s.fog = append(s.fog, &FogZone{ID: i, Area: physics.NewBbox(area.Left, area.Right, area.Bottom, area.Top)})
	}

	s.grid = NewGrid(s.obstacles, cellSize, s.fog...)
	return s, nil
}

// Start returns the blob spawn point
func (s *Surface) Start() physics.Vector2D { return s.start }

// Walls returns the map walls in load order
func (s *Surface) Walls() []*Wall { return s.walls }

// Blocks returns the map blocks in load order
func (s *Surface) Blocks() []*Block { return s.blocks }

// FogZones returns every fog zone
func (s *Surface) FogZones() []*FogZone { return s.fog }

// Obstacles returns walls and blocks indexed by handle
func (s *Surface) Obstacles() []Obstacle { return s.obstacles }

// Grid exposes the partition, mostly for debugging overlays
func (s *Surface) Grid() *Grid { return s.grid }

// Bounds returns the union of every obstacle bound
func (s *Surface) Bounds() physics.Bbox { return s.grid.Bounds() }

// NearestIntersection casts ray against the segments near query and
// returns the crossing closest to the ray start. Candidates are tried in
// handle order, then edge order; on equal distances the first one wins.
func (s *Surface) NearestIntersection(ray physics.Segment, query physics.Bbox) (Hit, bool) {
	var best Hit
	found := false

	for _, o := range s.grid.ObstaclesFor(query) {
		h, ok := physics.NearestHit(ray, o.CollisionSegments())
		if ok && (!found || h.Distance < best.Distance) {
			best = Hit{Point: h.Point, Segment: h.Segment, ObstacleID: o.ObstacleID(), Distance: h.Distance}
			found = true
		}
	}

	return best, found
}

// CircleOverlapsAny reports whether any segment near query comes within
// radius of center
func (s *Surface) CircleOverlapsAny(center physics.Vector2D, radius float64, query physics.Bbox) bool {
	circle := physics.Circle{Center: center, Radius: radius}
	for _, o := range s.grid.ObstaclesFor(query) {
		if circle.OverlapsAny(o.CollisionSegments()) {
			return true
		}
	}
	return false
}

// InFog reports whether p lies inside a fog zone
func (s *Surface) InFog(p physics.Vector2D) bool {
	for _, f := range s.grid.FogZonesFor(physics.Bbox{Left: p.X, Right: p.X, Bottom: p.Y, Top: p.Y}) {
		if f.Area.Contains(p) {
			return true
		}
	}
	return false
}
