// pkg/render/engo/assets.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/world"
)

// Draw order, back to front
const (
	layerFog float32 = iota
	layerWall
	layerArm
	layerBody
	layerHUD
)

// Palette holds the colors and shapes the renderer draws with. Everything
// is built from engo shape drawables, so nothing needs a GL context until
// the render system draws it.
type Palette struct {
	Background color.Color
	Wall       color.Color
	GridWall   color.Color
	Block      color.Color
	Fog        color.Color
	Body       color.Color
	Blocked    color.Color
	Anchor     color.Color

	armColors map[entity.ArmState]color.Color

	line common.Drawable
	dot  common.Drawable
}

// NewPalette creates the default palette
func NewPalette() *Palette {
	return &Palette{
		Background: color.RGBA{16, 18, 24, 255},
		Wall:       color.RGBA{230, 230, 230, 255},
		GridWall:   color.RGBA{110, 110, 120, 255},
		Block:      color.RGBA{180, 180, 190, 255},
		Fog:        color.RGBA{40, 50, 90, 160},
		Body:       color.RGBA{120, 220, 120, 255},
		Blocked:    color.RGBA{230, 80, 80, 255},
		Anchor:     color.RGBA{250, 250, 120, 255},
		armColors: map[entity.ArmState]color.Color{
			entity.ArmDeploying:  color.RGBA{240, 200, 60, 255},
			entity.ArmAnchored:   color.RGBA{80, 200, 90, 255},
			entity.ArmRetracting: color.RGBA{100, 110, 100, 255},
		},
		line: common.Rectangle{},
		dot:  common.Circle{},
	}
}

// ArmColor returns the color for an arm state. Idle arms are transparent.
func (p *Palette) ArmColor(state entity.ArmState) color.Color {
	if c, ok := p.armColors[state]; ok {
		return c
	}
	return color.Transparent
}

// WallColor returns the color for a wall kind
func (p *Palette) WallColor(kind world.WallKind) color.Color {
	if kind.Passable() {
		return p.GridWall
	}
	return p.Wall
}

// BodyColor returns the body color, red while the last move was blocked
func (p *Palette) BodyColor(blocked bool) color.Color {
	if blocked {
		return p.Blocked
	}
	return p.Body
}

// Line is the drawable stretched and rotated into line segments
func (p *Palette) Line() common.Drawable { return p.line }

// Dot is the drawable used for the body and anchor points
func (p *Palette) Dot() common.Drawable { return p.dot }
