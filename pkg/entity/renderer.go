package entity

import "github.com/opd-ai/go-blob/pkg/world"

// Renderer draws the simulation
type Renderer interface {
	RenderSurface(surface *world.Surface)
	RenderBlob(blob *Blob)
	RenderArm(arm *Arm)
	Clear()
	Present()
}
