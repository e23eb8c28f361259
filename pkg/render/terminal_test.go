package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/entity"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

func testSurface(t *testing.T, m *world.MapData) *world.Surface {
	t.Helper()
	s, err := world.NewSurface(m, 100)
	require.NoError(t, err)
	return s
}

func TestNewTerminalRenderer_CreatesValidRenderer_WithCorrectDimensions(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		scale  float64
	}{
		{name: "small_renderer", width: 10, height: 5, scale: 1.0},
		{name: "medium_renderer", width: 80, height: 24, scale: 10.0},
		{name: "large_renderer", width: 120, height: 40, scale: 5.5},
		{name: "negative_size_is_empty", width: -3, height: -1, scale: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := NewTerminalRenderer(tt.width, tt.height, tt.scale)
			require.NotNil(t, renderer)

			assert.Equal(t, max(tt.width, 0), renderer.width)
			assert.Equal(t, max(tt.height, 0), renderer.height)
			assert.Equal(t, tt.scale, renderer.scale)
			require.Len(t, renderer.buffer, max(tt.height, 0))
			for i, row := range renderer.buffer {
				assert.Len(t, row, tt.width, "row %d", i)
				for _, c := range row {
					assert.Equal(t, ' ', c.ch)
				}
			}
			assert.Equal(t, physics.Vector2D{}, renderer.centerPos)
		})
	}
}

func TestWorldToScreen_ConvertsCoordinates_Correctly(t *testing.T) {
	tests := []struct {
		name   string
		center physics.Vector2D
		pos    physics.Vector2D
		wantX  int
		wantY  int
	}{
		{name: "origin_maps_to_middle", pos: physics.Vector2D{}, wantX: 10, wantY: 5},
		{name: "x_is_stretched_for_cell_aspect", pos: physics.Vector2D{X: 10}, wantX: 12, wantY: 5},
		{name: "world_up_is_screen_up", pos: physics.Vector2D{Y: 10}, wantX: 10, wantY: 4},
		{name: "world_down_is_screen_down", pos: physics.Vector2D{Y: -10}, wantX: 10, wantY: 6},
		{name: "view_follows_center", center: physics.Vector2D{X: 50, Y: 50}, pos: physics.Vector2D{X: 50, Y: 50}, wantX: 10, wantY: 5},
		{name: "left_of_view", pos: physics.Vector2D{X: -100}, wantX: -10, wantY: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTerminalRenderer(20, 10, 10)
			r.SetCenter(tt.center)
			x, y := r.worldToScreen(tt.pos)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestRenderSurface_DrawsWallsBlocksAndFog(t *testing.T) {
	surface := testSurface(t, &world.MapData{
		Walls: []world.WallData{
			{Start: physics.Vector2D{X: -50}, End: physics.Vector2D{X: 50}},
			{Start: physics.Vector2D{X: -50, Y: -30}, End: physics.Vector2D{X: 50, Y: -30}, Kind: world.WallGrid},
		},
		Blocks: []world.BlockData{{Points: world.RectPoints(20, 20, 10, 10)}},
		Fog:    []physics.Bbox{{Left: -10, Right: 10, Bottom: -10, Top: 10}},
	})

	r := NewTerminalRenderer(20, 10, 10)
	r.RenderSurface(surface)

	assert.Equal(t, '#', r.CharAt(0, 5), "solid wall at the left edge")
	assert.Equal(t, '#', r.CharAt(19, 5), "solid wall at the right edge")
	assert.Equal(t, '+', r.CharAt(0, 8), "passable wall")
	assert.Equal(t, '░', r.CharAt(8, 4), "fog above the wall")
	assert.Equal(t, '░', r.CharAt(12, 6), "fog below the wall")
	assert.Equal(t, '#', r.CharAt(14, 3), "block corner")
	assert.Equal(t, ' ', r.CharAt(5, 1))

	r.Clear()
	assert.Equal(t, ' ', r.CharAt(0, 5))
}

func TestRenderSurface_NilIsIgnored(t *testing.T) {
	r := NewTerminalRenderer(4, 4, 1)
	r.RenderSurface(nil)
	r.RenderBlob(nil)
	r.RenderArm(nil)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, ' ', r.CharAt(x, y))
		}
	}
}

func TestCharAt_OutsideView(t *testing.T) {
	r := NewTerminalRenderer(4, 4, 1)
	assert.Zero(t, r.CharAt(-1, 0))
	assert.Zero(t, r.CharAt(0, 4))
}

func TestRenderBlob_DrawsBodyAtCenter(t *testing.T) {
	blob := entity.NewBlob(entity.DefaultBlobConfig(), physics.Vector2D{X: 30, Y: 40})

	r := NewTerminalRenderer(40, 20, 10)
	r.SetCenter(blob.Position)
	r.RenderBlob(blob)

	assert.Equal(t, '@', r.CharAt(20, 10))
}

func TestRenderArm_IdleArmIsInvisible(t *testing.T) {
	arm := entity.NewArm(0, 100)
	arm.Reset(physics.Vector2D{})

	r := NewTerminalRenderer(20, 10, 10)
	r.RenderArm(arm)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			assert.Equal(t, ' ', r.CharAt(x, y))
		}
	}
}

func TestRender_AnchoredArmsAreDrawn(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Physics.Gravity = 0
	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logging.Discard()))
	require.NoError(t, err)
	sim.Step(60, input.ProviderFunc(func() input.Snapshot { return input.Snapshot{Scan: true} }))
	require.Positive(t, sim.Blob.Anchored())

	r := NewTerminalRenderer(200, 80, 10)
	r.SetCenter(sim.Blob.Position)
	r.Clear()
	r.RenderSurface(sim.Surface)
	sim.Blob.Render(r)

	var anchored int
	for y := 0; y < 80; y++ {
		for x := 0; x < 200; x++ {
			if ch := r.CharAt(x, y); ch == '=' || ch == '*' {
				anchored++
			}
		}
	}
	assert.Positive(t, anchored)
}

func TestRenderSnapshot_MatchesLiveRendering(t *testing.T) {
	cfg := config.DefaultConfig()
	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logging.Discard()))
	require.NoError(t, err)
	sim.Step(40, input.ProviderFunc(func() input.Snapshot { return input.Snapshot{Scan: true} }))

	live := NewTerminalRenderer(120, 60, 5)
	live.SetCenter(sim.Blob.Position)
	sim.Blob.Render(live)

	remote := NewTerminalRenderer(120, 60, 5)
	remote.SetCenter(sim.Blob.Position)
	remote.RenderSnapshot(sim.GetState())

	for y := 0; y < 60; y++ {
		for x := 0; x < 120; x++ {
			require.Equal(t, live.CharAt(x, y), remote.CharAt(x, y), "cell %d,%d", x, y)
		}
	}
	assert.NotPanics(t, func() { remote.RenderSnapshot(nil) })
}

func TestParseArmState(t *testing.T) {
	for _, s := range []entity.ArmState{entity.ArmIdle, entity.ArmDeploying, entity.ArmAnchored, entity.ArmRetracting} {
		assert.Equal(t, s, parseArmState(s.String()))
	}
	assert.Equal(t, entity.ArmIdle, parseArmState("bogus"))
}

func TestPresent_WritesTextFrame(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalRenderer(4, 2, 1)
	r.SetOutput(&buf)
	r.SetStatus("tick 3")
	r.plot(physics.Vector2D{}, '@', styleBody)
	r.Present()

	out := buf.String()
	assert.Contains(t, out, "+----+\n")
	assert.Contains(t, out, "|    |\n")
	assert.Contains(t, out, "|  @ |\n")
	assert.True(t, strings.HasSuffix(out, "tick 3\n"))
}

func TestPresent_NilOutputIsNoop(t *testing.T) {
	r := NewTerminalRenderer(4, 2, 1)
	r.SetOutput(nil)
	assert.NotPanics(t, r.Present)
}

func TestScreenRenderer_PresentsToScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(20, 10)

	r := NewScreenRenderer(screen, 10)
	require.Equal(t, 20, r.width)
	require.Equal(t, 10, r.height)

	r.RenderSurface(testSurface(t, &world.MapData{
		Walls: []world.WallData{{Start: physics.Vector2D{X: -50}, End: physics.Vector2D{X: 50}}},
	}))
	r.SetStatus("ok")
	r.Present()

	ch, _, _, _ := screen.GetContent(3, 5)
	assert.Equal(t, '#', ch)
	ch, _, _, _ = screen.GetContent(0, 9)
	assert.Equal(t, 'o', ch)
	ch, _, _, _ = screen.GetContent(1, 9)
	assert.Equal(t, 'k', ch)
}
