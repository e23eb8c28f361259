// pkg/render/engo/hud.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/entity"
)

// HUD layout in screen pixels
const (
	hudMargin  = 10
	hudPipSize = 12
	hudPipGap  = 4
)

// HUDSystem draws a row of pips in the top-left corner: one per arm colored
// by its state, then a scanning pip and a blocked pip. Engo text needs a
// loaded font, so the same information is also kept as a status line.
type HUDSystem struct {
	palette *Palette
	pips    spritePool

	snapshot *engine.Snapshot
	status   string
	dirty    bool

	scanColor  color.Color
	idleColor  color.Color
	emptyColor color.Color
}

// NewHUDSystem creates a HUD. renderSystem may be nil.
func NewHUDSystem(renderSystem *common.RenderSystem, palette *Palette) *HUDSystem {
	if palette == nil {
		palette = NewPalette()
	}
	return &HUDSystem{
		palette:    palette,
		pips:       spritePool{layer: layerHUD, hud: true, system: renderSystem},
		scanColor:  color.RGBA{90, 160, 255, 255},
		idleColor:  color.RGBA{60, 60, 70, 255},
		emptyColor: color.RGBA{30, 30, 35, 255},
	}
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update lays out the pips for the latest snapshot
func (hud *HUDSystem) Update(dt float32) {
	if !hud.dirty {
		return
	}
	hud.dirty = false
	hud.layout()
}

// UpdateSnapshot records the state to show on the next frame
func (hud *HUDSystem) UpdateSnapshot(snap *engine.Snapshot) {
	if snap == nil {
		return
	}
	hud.snapshot = snap
	hud.status = snap.Summary()
	hud.dirty = true
}

// Status returns a one-line summary of the last snapshot
func (hud *HUDSystem) Status() string {
	return hud.status
}

func (hud *HUDSystem) layout() {
	hud.pips.begin()
	defer hud.pips.end()

	snap := hud.snapshot
	if snap == nil {
		return
	}

	x := float32(hudMargin)
	for _, a := range snap.Arms {
		hud.pip(x, hud.armColor(a.State))
		x += hudPipSize + hudPipGap
	}

	x += hudPipSize
	scan := hud.emptyColor
	if snap.Blob.Scanning {
		scan = hud.scanColor
	}
	hud.pip(x, scan)
	x += hudPipSize + hudPipGap
	hud.pip(x, hud.palette.BodyColor(snap.Blob.Blocked))
}

func (hud *HUDSystem) armColor(state string) color.Color {
	for _, s := range []entity.ArmState{entity.ArmDeploying, entity.ArmAnchored, entity.ArmRetracting} {
		if s.String() == state {
			return hud.palette.ArmColor(s)
		}
	}
	return hud.idleColor
}

func (hud *HUDSystem) pip(x float32, c color.Color) {
	s := hud.pips.next(hud.palette.Dot(), c)
	s.Position = engo.Point{X: x, Y: hudMargin}
	s.Width = hudPipSize
	s.Height = hudPipSize
	s.Rotation = 0
}
