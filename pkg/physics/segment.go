package physics

import "math"

// parallelEpsilon is the smallest cross product of two segment directions
// still treated as a real crossing. Anything below it is parallel.
const parallelEpsilon = 1e-9

// Segment is an immutable line segment between two points
type Segment struct {
	Start Vector2D `json:"start" yaml:"start" msgpack:"start"`
	End   Vector2D `json:"end" yaml:"end" msgpack:"end"`
}

// NewSegment creates a segment from its endpoints
func NewSegment(start, end Vector2D) Segment {
	return Segment{Start: start, End: end}
}

// Vector returns End - Start
func (s Segment) Vector() Vector2D {
	return s.End.Sub(s.Start)
}

// Length returns the distance between both endpoints
func (s Segment) Length() float64 {
	return s.Start.Distance(s.End)
}

// Direction returns the unit vector from Start to End
func (s Segment) Direction() Vector2D {
	return s.Vector().Normalize()
}

// Bbox returns the smallest box containing the segment
func (s Segment) Bbox() Bbox {
	return NewBbox(s.Start.X, s.End.X, s.Start.Y, s.End.Y)
}

// Intersect returns the crossing point of s and other, if any
func (s Segment) Intersect(other Segment) (Vector2D, bool) {
	return SegmentIntersection(s.Start, s.End, other.Start, other.End)
}

// SegmentIntersection computes where segment a1-a2 crosses segment b1-b2.
//
// Both segments are solved parametrically. The second result is false when
// the directions are parallel or collinear, or when the crossing of the
// supporting lines falls outside [0,1] on either segment. Endpoints count
// as part of the segment.
func SegmentIntersection(a1, a2, b1, b2 Vector2D) (Vector2D, bool) {
	da := a2.Sub(a1)
	db := b2.Sub(b1)

	denom := db.Y*da.X - db.X*da.Y
	if math.Abs(denom) < parallelEpsilon {
		return Vector2D{}, false
	}

	offset := a1.Sub(b1)
	ua := (db.X*offset.Y - db.Y*offset.X) / denom
	ub := (da.X*offset.Y - da.Y*offset.X) / denom

	if ua < 0 || ua > 1 || ub < 0 || ub > 1 {
		return Vector2D{}, false
	}

	return a1.Add(da.Scale(ua)), true
}

// ClosestPointOnSegment projects p onto s, clamped to the segment extents
func ClosestPointOnSegment(p Vector2D, s Segment) Vector2D {
	d := s.Vector()
	lenSq := d.LengthSquared()
	if lenSq == 0 {
		return s.Start
	}

	t := p.Sub(s.Start).Dot(d) / lenSq
	t = math.Max(0, math.Min(1, t))
	return s.Start.Add(d.Scale(t))
}

// DistanceToSegment returns the shortest distance from p to the segment
func DistanceToSegment(p Vector2D, s Segment) float64 {
	return p.Distance(ClosestPointOnSegment(p, s))
}
