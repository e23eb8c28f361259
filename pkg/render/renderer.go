// pkg/render/renderer.go
package render

import (
	"context"
	"sync/atomic"

	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/world"
)

// NullRenderer is an entity.Renderer that only logs at debug level and
// counts frames. Headless runs use it.
type NullRenderer struct {
	logger *logging.Logger
	frames atomic.Uint64
}

// NewNullRenderer creates a NullRenderer. A nil logger uses the default one.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger}
}

func (d *NullRenderer) log() *logging.Logger {
	if d.logger == nil {
		return logging.Discard()
	}
	return d.logger
}

// Frames is the number of Present calls so far
func (d *NullRenderer) Frames() uint64 { return d.frames.Load() }

// Clear implements entity.Renderer.
func (d *NullRenderer) Clear() {
	d.log().Debug(context.Background(), "Clear called")
}

// Present implements entity.Renderer.
func (d *NullRenderer) Present() {
	n := d.frames.Add(1)
	d.log().Debug(context.Background(), "Present called", "frame", n)
}

// RenderSurface implements entity.Renderer.
func (d *NullRenderer) RenderSurface(surface *world.Surface) {
	ctx := context.Background()
	if surface == nil {
		d.log().Debug(ctx, "RenderSurface called with nil surface")
		return
	}
	d.log().Debug(ctx, "RenderSurface called",
		"walls", len(surface.Walls()),
		"blocks", len(surface.Blocks()),
		"fog_zones", len(surface.FogZones()),
	)
}

// RenderBlob implements entity.Renderer.
func (d *NullRenderer) RenderBlob(blob *entity.Blob) {
	ctx := context.Background()
	if blob == nil {
		d.log().Debug(ctx, "RenderBlob called with nil blob")
		return
	}
	d.log().Debug(ctx, "RenderBlob called",
		"x", blob.Position.X,
		"y", blob.Position.Y,
		"anchored", blob.Anchored(),
	)
}

// RenderArm implements entity.Renderer.
func (d *NullRenderer) RenderArm(arm *entity.Arm) {
	ctx := context.Background()
	if arm == nil {
		d.log().Debug(ctx, "RenderArm called with nil arm")
		return
	}
	d.log().Debug(ctx, "RenderArm called",
		"arm", arm.Index,
		"state", arm.State().String(),
		"length", arm.Length(),
	)
}

var _ entity.Renderer = (*NullRenderer)(nil)
