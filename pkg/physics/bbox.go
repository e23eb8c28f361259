package physics

import "math"

// Bbox is an axis-aligned rectangle. Left <= Right and Bottom <= Top hold
// after every mutation; the empty box returned by EmptyBbox is the only
// exception and intersects nothing.
type Bbox struct {
	Left   float64 `json:"left" yaml:"left" msgpack:"left"`
	Right  float64 `json:"right" yaml:"right" msgpack:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom" msgpack:"bottom"`
	Top    float64 `json:"top" yaml:"top" msgpack:"top"`
}

// NewBbox builds a box from two x and two y bounds in any order
func NewBbox(x1, x2, y1, y2 float64) Bbox {
	return Bbox{
		Left:   math.Min(x1, x2),
		Right:  math.Max(x1, x2),
		Bottom: math.Min(y1, y2),
		Top:    math.Max(y1, y2),
	}
}

// BboxAround returns a box of the given size centered on c
func BboxAround(c Vector2D, width, height float64) Bbox {
	hw, hh := math.Abs(width)/2, math.Abs(height)/2
	return Bbox{Left: c.X - hw, Right: c.X + hw, Bottom: c.Y - hh, Top: c.Y + hh}
}

// EmptyBbox returns the identity element of ResizeToInclude
func EmptyBbox() Bbox {
	return Bbox{
		Left:   math.Inf(1),
		Right:  math.Inf(-1),
		Bottom: math.Inf(1),
		Top:    math.Inf(-1),
	}
}

// BboxFromPoints returns the smallest box containing every point
func BboxFromPoints(points ...Vector2D) Bbox {
	b := EmptyBbox()
	for _, p := range points {
		b.ResizeToInclude(Bbox{Left: p.X, Right: p.X, Bottom: p.Y, Top: p.Y})
	}
	return b
}

// IsEmpty reports whether the box contains no point at all
func (b Bbox) IsEmpty() bool {
	return b.Left > b.Right || b.Bottom > b.Top
}

// Width returns the horizontal extent
func (b Bbox) Width() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Right - b.Left
}

// Height returns the vertical extent
func (b Bbox) Height() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Top - b.Bottom
}

// Center returns the middle of the box
func (b Bbox) Center() Vector2D {
	return Vector2D{X: (b.Left + b.Right) / 2, Y: (b.Bottom + b.Top) / 2}
}

// Intersects reports whether both boxes overlap. Touching edges count.
func (b Bbox) Intersects(other Bbox) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	if other.Left > b.Right {
		return false
	}
	if other.Right < b.Left {
		return false
	}
	if other.Top < b.Bottom {
		return false
	}
	if other.Bottom > b.Top {
		return false
	}
	return true
}

// Contains reports whether p lies inside the box or on its border
func (b Bbox) Contains(p Vector2D) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

// ResizeToInclude grows the box to the bounding union with other
func (b *Bbox) ResizeToInclude(other Bbox) {
	if other.IsEmpty() {
		return
	}
	b.Left = math.Min(b.Left, other.Left)
	b.Right = math.Max(b.Right, other.Right)
	b.Bottom = math.Min(b.Bottom, other.Bottom)
	b.Top = math.Max(b.Top, other.Top)
}

// Translate recenters the box on (cx, cy), keeping its width and height
func (b *Bbox) Translate(cx, cy float64) {
	if b.IsEmpty() {
		return
	}
	hw, hh := b.Width()/2, b.Height()/2
	b.Left = cx - hw
	b.Right = cx + hw
	b.Bottom = cy - hh
	b.Top = cy + hh
}

// Translated returns a copy of the box recentered on c
func (b Bbox) Translated(c Vector2D) Bbox {
	b.Translate(c.X, c.Y)
	return b
}
