// pkg/render/engo/renderer.go
package engo

import (
	"image/color"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// Pixel sizes of the drawn shapes
const (
	wallThickness   = 3
	anchorDotSize   = 6
	minArmThickness = 1
)

// sprite is one drawable entity owned by the renderer
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// spritePool recycles sprites between frames. Sprites not used during a
// frame are hidden rather than removed.
type spritePool struct {
	sprites []*sprite
	used    int
	layer   float32
	hud     bool
	system  *common.RenderSystem
}

func (p *spritePool) next(drawable common.Drawable, c color.Color) *sprite {
	if p.used == len(p.sprites) {
		s := &sprite{BasicEntity: ecs.NewBasic()}
		if p.system != nil {
			s.RenderComponent.SetZIndex(p.layer)
			if p.hud {
				s.RenderComponent.SetShader(common.HUDShader)
			}
			p.system.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
		}
		p.sprites = append(p.sprites, s)
	}
	s := p.sprites[p.used]
	p.used++
	s.Drawable = drawable
	s.Color = c
	s.Hidden = false
	return s
}

func (p *spritePool) begin() {
	p.used = 0
}

func (p *spritePool) end() {
	for _, s := range p.sprites[p.used:] {
		s.Hidden = true
	}
}

// visible returns the sprites drawn this frame
func (p *spritePool) visible() []*sprite {
	return p.sprites[:p.used]
}

func (p *spritePool) removeAll() {
	if p.system != nil {
		for _, s := range p.sprites {
			p.system.Remove(s.BasicEntity)
		}
	}
	p.sprites = nil
	p.used = 0
}

// EngoRenderer implements entity.Renderer on top of an engo render system.
// Every frame redraws the whole scene through the camera transform.
type EngoRenderer struct {
	renderSystem *common.RenderSystem
	camera       *CameraSystem
	palette      *Palette

	fog   spritePool
	walls spritePool
	arms  spritePool
	body  spritePool
}

// NewEngoRenderer creates a renderer. renderSystem may be nil, in which
// case sprites are laid out but never drawn.
func NewEngoRenderer(renderSystem *common.RenderSystem, camera *CameraSystem, palette *Palette) *EngoRenderer {
	if camera == nil {
		camera = NewCameraSystem()
	}
	if palette == nil {
		palette = NewPalette()
	}
	return &EngoRenderer{
		renderSystem: renderSystem,
		camera:       camera,
		palette:      palette,
		fog:          spritePool{layer: layerFog, system: renderSystem},
		walls:        spritePool{layer: layerWall, system: renderSystem},
		arms:         spritePool{layer: layerArm, system: renderSystem},
		body:         spritePool{layer: layerBody, system: renderSystem},
	}
}

func (r *EngoRenderer) pools() []*spritePool {
	return []*spritePool{&r.fog, &r.walls, &r.arms, &r.body}
}

// Clear implements entity.Renderer
func (r *EngoRenderer) Clear() {
	for _, p := range r.pools() {
		p.begin()
	}
}

// Present implements entity.Renderer. Engo draws on its own schedule, so
// this only hides whatever was not redrawn.
func (r *EngoRenderer) Present() {
	for _, p := range r.pools() {
		p.end()
	}
}

// Close removes every sprite from the render system
func (r *EngoRenderer) Close() {
	for _, p := range r.pools() {
		p.removeAll()
	}
}

// RenderSurface implements entity.Renderer
func (r *EngoRenderer) RenderSurface(surface *world.Surface) {
	if surface == nil {
		return
	}
	for _, f := range surface.FogZones() {
		r.rect(&r.fog, f.Area, r.palette.Fog)
	}
	for _, b := range surface.Blocks() {
		for _, s := range b.CollisionSegments() {
			r.line(&r.walls, s.Start, s.End, wallThickness, r.palette.Block)
		}
	}
	for _, w := range surface.Walls() {
		r.line(&r.walls, w.Segment.Start, w.Segment.End, wallThickness, r.palette.WallColor(w.Kind))
	}
}

// RenderBlob implements entity.Renderer
func (r *EngoRenderer) RenderBlob(blob *entity.Blob) {
	if blob == nil {
		return
	}
	size := float32(2 * blob.Radius() * float64(r.camera.GetZoom()))
	r.dot(&r.body, blob.Position, size, r.palette.BodyColor(blob.Blocked()))
}

// RenderArm implements entity.Renderer
func (r *EngoRenderer) RenderArm(arm *entity.Arm) {
	if arm == nil || arm.State() == entity.ArmIdle {
		return
	}
	c := r.palette.ArmColor(arm.State())

	segments := arm.Segments()
	if len(segments) == 0 {
		r.line(&r.arms, arm.Origin(), arm.Target(), r.thickness(arm.Width()), c)
	}
	for _, s := range segments {
		r.line(&r.arms, s.Start, s.End, r.thickness(s.Width), c)
	}

	if arm.State() == entity.ArmAnchored {
		r.dot(&r.arms, arm.Target(), anchorDotSize, r.palette.Anchor)
	}
}

func (r *EngoRenderer) thickness(width float64) float32 {
	return float32(math.Max(width*float64(r.camera.GetZoom()), minArmThickness))
}

// line lays a thin rectangle from a to b. Engo rotates around the top-left
// corner, which is placed at a.
func (r *EngoRenderer) line(pool *spritePool, a, b physics.Vector2D, thickness float32, c color.Color) {
	sa := r.camera.WorldToScreen(a)
	sb := r.camera.WorldToScreen(b)
	d := sb.Sub(sa)

	s := pool.next(r.palette.Line(), c)
	s.Position = engo.Point{X: float32(sa.X), Y: float32(sa.Y)}
	s.Width = float32(d.Length())
	s.Height = thickness
	s.Rotation = float32(d.Angle() * 180 / math.Pi)
}

// dot centers a circle of the given pixel size on p
func (r *EngoRenderer) dot(pool *spritePool, p physics.Vector2D, size float32, c color.Color) {
	sp := r.camera.WorldToScreen(p)
	s := pool.next(r.palette.Dot(), c)
	s.Position = engo.Point{X: float32(sp.X) - size/2, Y: float32(sp.Y) - size/2}
	s.Width = size
	s.Height = size
	s.Rotation = 0
}

// rect fills a world box
func (r *EngoRenderer) rect(pool *spritePool, area physics.Bbox, c color.Color) {
	topLeft := r.camera.WorldToScreen(physics.Vector2D{X: area.Left, Y: area.Top})
	bottomRight := r.camera.WorldToScreen(physics.Vector2D{X: area.Right, Y: area.Bottom})
	s := pool.next(r.palette.Line(), c)
	s.Position = engo.Point{X: float32(topLeft.X), Y: float32(topLeft.Y)}
	s.Width = float32(bottomRight.X - topLeft.X)
	s.Height = float32(bottomRight.Y - topLeft.Y)
	s.Rotation = 0
}

var _ entity.Renderer = (*EngoRenderer)(nil)
