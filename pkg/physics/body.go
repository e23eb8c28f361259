package physics

// Body tracks the kinematics of a single point mass moved one frame at a
// time. Velocity is expressed in world units per frame.
type Body struct {
	Position Vector2D
	Velocity Vector2D
}

// ApplyFreeFall advances the velocity of an unsupported body: gravity pulls
// Y down and damping bleeds off horizontal speed.
func (b *Body) ApplyFreeFall(gravity, damping float64) {
	b.Velocity.Y -= gravity
	b.Velocity.X *= damping
}

// Candidate returns where the body would be after moving by its velocity
func (b *Body) Candidate() Vector2D {
	return b.Position.Add(b.Velocity)
}

// Commit moves the body to p and returns the displacement
func (b *Body) Commit(p Vector2D) Vector2D {
	delta := p.Sub(b.Position)
	b.Position = p
	return delta
}

// Stop zeroes the velocity, keeping the position
func (b *Body) Stop() {
	b.Velocity = Vector2D{}
}
