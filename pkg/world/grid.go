// pkg/world/grid.go
package world

import (
	"math"
	"slices"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// DefaultCellSize is the side of a grid cell in world units
const DefaultCellSize = 200.0

// Grid is a uniform partition of the map bounds. Each cell lists the
// obstacles whose bounds touch it so that a query only has to look at the
// handful of cells it overlaps. The grid is static: it is built once and
// never updated.
type Grid struct {
	bounds   physics.Bbox
	cellSize float64
	cols     int
	rows     int

	obstacles []Obstacle
	cells     [][]int

	fog      []*FogZone
	fogCells [][]int
}

// NewGrid partitions the union of the obstacle and fog bounds into square
// cells of cellSize. A non-positive cellSize falls back to DefaultCellSize.
func NewGrid(obstacles []Obstacle, cellSize float64, fog ...*FogZone) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}

	g := &Grid{
		bounds:    physics.EmptyBbox(),
		cellSize:  cellSize,
		obstacles: obstacles,
		fog:       fog,
	}
	for _, o := range obstacles {
		g.bounds.ResizeToInclude(o.Bounds())
	}
	for _, f := range fog {
		g.bounds.ResizeToInclude(f.Bounds())
	}

	if g.bounds.IsEmpty() {
		return g
	}

	// A zero-width or zero-height map still needs one row or column.
	g.cols = max(1, int(math.Ceil(g.bounds.Width()/cellSize)))
	g.rows = max(1, int(math.Ceil(g.bounds.Height()/cellSize)))

	g.cells = make([][]int, g.cols*g.rows)
	for i, o := range obstacles {
		g.insert(g.cells, i, o.Bounds())
	}

	if len(fog) > 0 {
		g.fogCells = make([][]int, g.cols*g.rows)
		for i, f := range fog {
			g.insert(g.fogCells, i, f.Bounds())
		}
	}

	return g
}

// Bounds returns the area covered by the grid
func (g *Grid) Bounds() physics.Bbox {
	return g.bounds
}

// Dimensions returns the number of columns and rows
func (g *Grid) Dimensions() (cols, rows int) {
	return g.cols, g.rows
}

// CellSize returns the side of a cell
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// CellBounds returns the box of the cell at column c, row r
func (g *Grid) CellBounds(c, r int) physics.Bbox {
	left := g.bounds.Left + float64(c)*g.cellSize
	bottom := g.bounds.Bottom + float64(r)*g.cellSize
	return physics.Bbox{Left: left, Right: left + g.cellSize, Bottom: bottom, Top: bottom + g.cellSize}
}

// ObstaclesFor returns every obstacle referenced by a cell the query
// overlaps, once each, in ascending handle order. Queries outside the map
// return nil.
func (g *Grid) ObstaclesFor(query physics.Bbox) []Obstacle {
	handles := g.collect(g.cells, len(g.obstacles), query)
	if len(handles) == 0 {
		return nil
	}

	result := make([]Obstacle, len(handles))
	for i, h := range handles {
		result[i] = g.obstacles[h]
	}
	return result
}

// SegmentsFor flattens the collision segments of ObstaclesFor
func (g *Grid) SegmentsFor(query physics.Bbox) []physics.Segment {
	var segments []physics.Segment
	for _, o := range g.ObstaclesFor(query) {
		segments = append(segments, o.CollisionSegments()...)
	}
	return segments
}

// FogZonesFor returns the fog zones near the query
func (g *Grid) FogZonesFor(query physics.Bbox) []*FogZone {
	handles := g.collect(g.fogCells, len(g.fog), query)
	if len(handles) == 0 {
		return nil
	}

	result := make([]*FogZone, len(handles))
	for i, h := range handles {
		result[i] = g.fog[h]
	}
	return result
}

// insert adds handle h to every cell in the index range of b. Using the
// same range computation as collect guarantees that any query sharing a
// point with b visits at least one cell holding h.
func (g *Grid) insert(cells [][]int, h int, b physics.Bbox) {
	c0, c1, r0, r1, ok := g.cellRange(b)
	if !ok {
		return
	}
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			idx := r*g.cols + c
			cells[idx] = append(cells[idx], h)
		}
	}
}

func (g *Grid) collect(cells [][]int, n int, query physics.Bbox) []int {
	if len(cells) == 0 || n == 0 {
		return nil
	}
	c0, c1, r0, r1, ok := g.cellRange(query)
	if !ok {
		return nil
	}

	seen := make([]bool, n)
	var handles []int
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			for _, h := range cells[r*g.cols+c] {
				if seen[h] {
					continue
				}
				seen[h] = true
				handles = append(handles, h)
			}
		}
	}

	slices.Sort(handles)
	return handles
}

// cellRange maps a box onto the inclusive column and row ranges it
// covers, clamped to the grid.
func (g *Grid) cellRange(b physics.Bbox) (c0, c1, r0, r1 int, ok bool) {
	if g.cols == 0 || g.rows == 0 || !g.bounds.Intersects(b) {
		return 0, 0, 0, 0, false
	}
	c0 = g.clampIndex((b.Left-g.bounds.Left)/g.cellSize, g.cols)
	c1 = g.clampIndex((b.Right-g.bounds.Left)/g.cellSize, g.cols)
	r0 = g.clampIndex((b.Bottom-g.bounds.Bottom)/g.cellSize, g.rows)
	r1 = g.clampIndex((b.Top-g.bounds.Bottom)/g.cellSize, g.rows)
	return c0, c1, r0, r1, true
}

func (g *Grid) clampIndex(v float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(math.Floor(v))
}
