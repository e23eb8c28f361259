package render

import (
	"bufio"
	"io"
	"math"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// cellAspect is how many times taller a terminal cell is than it is wide
const cellAspect = 2.0

var (
	styleWall      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleGridWall  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBlock     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleFog       = tcell.StyleDefault.Foreground(tcell.ColorNavy)
	styleBody      = tcell.StyleDefault.Foreground(tcell.ColorLightGreen)
	styleBlocked   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleDeploying = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleAnchored  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleRetract   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleStatus    = tcell.StyleDefault.Reverse(true)
)

type cell struct {
	ch    rune
	style tcell.Style
}

// TerminalRenderer draws the simulation as characters, either into a tcell
// screen or as plain text frames written to an io.Writer
type TerminalRenderer struct {
	width     int
	height    int
	buffer    [][]cell
	scale     float64
	centerPos physics.Vector2D
	status    string

	screen tcell.Screen
	out    io.Writer
}

// NewTerminalRenderer creates a text renderer with the specified dimensions
// that writes frames to stdout. scale is world units per cell column pair.
func NewTerminalRenderer(width, height int, scale float64) *TerminalRenderer {
	r := &TerminalRenderer{
		scale: scale,
		out:   os.Stdout,
	}
	r.resize(width, height)
	return r
}

// NewScreenRenderer creates a renderer that draws into an initialized tcell
// screen and sizes itself from it
func NewScreenRenderer(screen tcell.Screen, scale float64) *TerminalRenderer {
	r := &TerminalRenderer{
		scale:  scale,
		screen: screen,
	}
	r.Resize()
	return r
}

// SetOutput redirects text frames. It has no effect on screen renderers.
func (r *TerminalRenderer) SetOutput(w io.Writer) {
	r.out = w
}

// Resize picks up the current screen size after a resize event
func (r *TerminalRenderer) Resize() {
	if r.screen == nil {
		return
	}
	w, h := r.screen.Size()
	r.resize(w, h)
}

func (r *TerminalRenderer) resize(width, height int) {
	r.width = max(width, 0)
	r.height = max(height, 0)
	r.buffer = make([][]cell, r.height)
	for i := range r.buffer {
		r.buffer[i] = make([]cell, r.width)
	}
	r.Clear()
}

// SetCenter sets the center position of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// SetStatus sets the text shown on the last row
func (r *TerminalRenderer) SetStatus(text string) {
	r.status = text
}

// worldToScreen converts world coordinates to cell coordinates. World y
// grows upwards, screen rows grow downwards.
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := math.Floor((pos.X-r.centerPos.X)*cellAspect/r.scale + float64(r.width)/2)
	screenY := math.Floor(float64(r.height)/2 - (pos.Y-r.centerPos.Y)/r.scale)
	return int(screenX), int(screenY)
}

func (r *TerminalRenderer) inBounds(x, y int) bool {
	return x >= 0 && x < r.width && y >= 0 && y < r.height
}

func (r *TerminalRenderer) set(x, y int, ch rune, style tcell.Style) {
	if r.inBounds(x, y) {
		r.buffer[y][x] = cell{ch: ch, style: style}
	}
}

// plot draws a single world point
func (r *TerminalRenderer) plot(p physics.Vector2D, ch rune, style tcell.Style) {
	x, y := r.worldToScreen(p)
	r.set(x, y, ch, style)
}

// line rasterizes a world segment with Bresenham's algorithm after
// clipping it to the view
func (r *TerminalRenderer) line(a, b physics.Vector2D, ch rune, style tcell.Style) {
	a, b, visible := clip(a, b, r.view())
	if !visible {
		return
	}
	x0, y0 := r.worldToScreen(a)
	x1, y1 := r.worldToScreen(b)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		r.set(x0, y0, ch, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// view is the world area covered by the buffer plus a one cell margin
func (r *TerminalRenderer) view() physics.Bbox {
	halfW := (float64(r.width)/2 + 1) * r.scale / cellAspect
	halfH := (float64(r.height)/2 + 1) * r.scale
	return physics.BboxAround(r.centerPos, 2*halfW, 2*halfH)
}

// clip cuts the segment a-b to box using Liang-Barsky
func clip(a, b physics.Vector2D, box physics.Bbox) (physics.Vector2D, physics.Vector2D, bool) {
	d := b.Sub(a)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-d.X, a.X - box.Left},
		{d.X, box.Right - a.X},
		{-d.Y, a.Y - box.Bottom},
		{d.Y, box.Top - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return a, b, false
		}
	}
	return a.Add(d.Scale(t0)), a.Add(d.Scale(t1)), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Clear implements entity.Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = cell{ch: ' ', style: tcell.StyleDefault}
		}
	}
}

// RenderSurface implements entity.Renderer
func (r *TerminalRenderer) RenderSurface(surface *world.Surface) {
	if surface == nil {
		return
	}

	for _, f := range surface.FogZones() {
		r.fill(f.Area, '░', styleFog)
	}
	for _, b := range surface.Blocks() {
		for _, s := range b.CollisionSegments() {
			r.line(s.Start, s.End, '#', styleBlock)
		}
	}
	for _, w := range surface.Walls() {
		if w.Kind.Passable() {
			r.line(w.Segment.Start, w.Segment.End, '+', styleGridWall)
			continue
		}
		r.line(w.Segment.Start, w.Segment.End, '#', styleWall)
	}
}

// fill paints the cells covered by area
func (r *TerminalRenderer) fill(area physics.Bbox, ch rune, style tcell.Style) {
	x0, y0 := r.worldToScreen(physics.Vector2D{X: area.Left, Y: area.Top})
	x1, y1 := r.worldToScreen(physics.Vector2D{X: area.Right, Y: area.Bottom})
	for y := max(y0, 0); y <= min(y1, r.height-1); y++ {
		for x := max(x0, 0); x <= min(x1, r.width-1); x++ {
			r.set(x, y, ch, style)
		}
	}
}

// RenderBlob implements entity.Renderer
func (r *TerminalRenderer) RenderBlob(blob *entity.Blob) {
	if blob == nil {
		return
	}
	r.drawBody(blob.Position, blob.Radius(), blob.Blocked())
}

// RenderArm implements entity.Renderer
func (r *TerminalRenderer) RenderArm(arm *entity.Arm) {
	if arm == nil {
		return
	}
	r.drawArm(arm.State(), arm.Origin(), arm.Target(), arm.Segments())
}

// RenderSnapshot draws the body and arms of a snapshot received from a
// stream. Snapshots carry no map, so the surface is drawn separately.
func (r *TerminalRenderer) RenderSnapshot(snap *engine.Snapshot) {
	if snap == nil {
		return
	}
	r.drawBody(snap.Blob.Position, snap.Blob.Radius, snap.Blob.Blocked)
	for _, a := range snap.Arms {
		r.drawArm(parseArmState(a.State), a.Origin, a.Target, a.Curve)
	}
}

func parseArmState(name string) entity.ArmState {
	for _, s := range []entity.ArmState{entity.ArmDeploying, entity.ArmAnchored, entity.ArmRetracting} {
		if s.String() == name {
			return s
		}
	}
	return entity.ArmIdle
}

func (r *TerminalRenderer) drawBody(center physics.Vector2D, radius float64, blocked bool) {
	style := styleBody
	if blocked {
		style = styleBlocked
	}

	if radius/r.scale >= 1 {
		const outline = 24
		for i := 0; i < outline; i++ {
			angle := 2 * math.Pi * float64(i) / outline
			p := center.Add(physics.Vector2D{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(radius))
			r.plot(p, 'o', style)
		}
	}
	r.plot(center, '@', style)
}

func (r *TerminalRenderer) drawArm(state entity.ArmState, origin, target physics.Vector2D, segments []entity.CurveSegment) {
	if state == entity.ArmIdle {
		return
	}

	ch, style := '.', styleDeploying
	switch state {
	case entity.ArmAnchored:
		ch, style = '=', styleAnchored
	case entity.ArmRetracting:
		style = styleRetract
	}

	if len(segments) == 0 {
		r.line(origin, target, ch, style)
	}
	for _, s := range segments {
		r.line(s.Start, s.End, ch, style)
	}

	if state == entity.ArmAnchored {
		r.plot(target, '*', style)
	}
}

// Present implements entity.Renderer
func (r *TerminalRenderer) Present() {
	if r.screen != nil {
		r.presentScreen()
		return
	}
	r.presentText()
}

func (r *TerminalRenderer) presentScreen() {
	for y, row := range r.buffer {
		for x, c := range row {
			r.screen.SetContent(x, y, c.ch, nil, c.style)
		}
	}
	if r.status != "" && r.height > 0 {
		r.drawText(0, r.height-1, r.status, styleStatus)
	}
	r.screen.Show()
}

func (r *TerminalRenderer) drawText(x, y int, text string, style tcell.Style) {
	for _, ch := range text {
		if x >= r.width {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

func (r *TerminalRenderer) presentText() {
	if r.out == nil {
		return
	}
	w := bufio.NewWriter(r.out)

	w.WriteString("\033[H\033[2J")
	w.WriteString("+" + strings.Repeat("-", r.width) + "+\n")
	for _, row := range r.buffer {
		w.WriteByte('|')
		for _, c := range row {
			w.WriteRune(c.ch)
		}
		w.WriteString("|\n")
	}
	w.WriteString("+" + strings.Repeat("-", r.width) + "+\n")
	if r.status != "" {
		w.WriteString(r.status + "\n")
	}
	w.Flush()
}

// CharAt returns the character buffered at a cell, or 0 outside the view
func (r *TerminalRenderer) CharAt(x, y int) rune {
	if !r.inBounds(x, y) {
		return 0
	}
	return r.buffer[y][x].ch
}

var _ entity.Renderer = (*TerminalRenderer)(nil)
