// pkg/physics/collision.go
package physics

// Circle represents a circular collision shape
type Circle struct {
	Center Vector2D
	Radius float64
}

// Bbox returns the square enclosing the circle
func (c Circle) Bbox() Bbox {
	return BboxAround(c.Center, 2*c.Radius, 2*c.Radius)
}

// OverlapsSegment reports whether the segment comes within Radius of the
// center. A segment exactly Radius away counts as overlapping.
func (c Circle) OverlapsSegment(s Segment) bool {
	return DistanceToSegment(c.Center, s) <= c.Radius
}

// OverlapsAny reports whether any segment overlaps the circle, stopping at
// the first one that does
func (c Circle) OverlapsAny(segments []Segment) bool {
	for _, s := range segments {
		if c.OverlapsSegment(s) {
			return true
		}
	}
	return false
}

// RayHit is the result of casting a segment against a set of segments
type RayHit struct {
	Point    Vector2D
	Segment  Segment
	Index    int
	Distance float64
}

// NearestHit returns the crossing closest to ray.Start among segments.
// On equal distances the earliest segment wins.
func NearestHit(ray Segment, segments []Segment) (RayHit, bool) {
	best := RayHit{Index: -1}
	found := false

	for i, s := range segments {
		point, ok := ray.Intersect(s)
		if !ok {
			continue
		}
		dist := ray.Start.Distance(point)
		if !found || dist < best.Distance {
			best = RayHit{Point: point, Segment: s, Index: i, Distance: dist}
			found = true
		}
	}

	return best, found
}
