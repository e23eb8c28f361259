// pkg/render/engo/scene.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-blob/pkg/engine"
	"github.com/opd-ai/go-blob/pkg/input"
	"github.com/opd-ai/go-blob/pkg/logging"
)

// maxCatchUpTicks bounds how many ticks one slow frame may run
const maxCatchUpTicks = 5

// SimulationSystem ticks a local simulation at its configured rate from
// inside the engo frame loop and redraws it every frame
type SimulationSystem struct {
	sim      *engine.Simulation
	provider input.Provider
	renderer *EngoRenderer
	camera   *CameraSystem
	hud      *HUDSystem

	interval    float32
	accumulator float32
}

// NewSimulationSystem wires sim to the drawing systems. provider may be nil.
func NewSimulationSystem(sim *engine.Simulation, provider input.Provider, renderer *EngoRenderer, camera *CameraSystem, hud *HUDSystem) *SimulationSystem {
	if provider == nil {
		provider = input.Idle
	}
	return &SimulationSystem{
		sim:      sim,
		provider: provider,
		renderer: renderer,
		camera:   camera,
		hud:      hud,
		interval: float32(sim.Config.TickInterval().Seconds()),
	}
}

// Remove satisfies the ecs.System interface
func (ss *SimulationSystem) Remove(basic ecs.BasicEntity) {}

// Update runs the ticks that fit into dt and draws the result
func (ss *SimulationSystem) Update(dt float32) {
	ss.advance(dt)
	ss.draw()
}

// advance returns the number of ticks run. Time beyond the catch-up limit
// is dropped so a stalled window does not fast-forward the blob.
func (ss *SimulationSystem) advance(dt float32) int {
	if ss.interval <= 0 {
		ss.sim.Tick(ss.provider.Poll())
		return 1
	}

	ss.accumulator += dt
	ticks := 0
	for ss.accumulator >= ss.interval && ticks < maxCatchUpTicks {
		ss.sim.Tick(ss.provider.Poll())
		ss.accumulator -= ss.interval
		ticks++
	}
	if ss.accumulator >= ss.interval {
		ss.accumulator = 0
	}
	return ticks
}

func (ss *SimulationSystem) draw() {
	ss.camera.SetTarget(ss.sim.Blob.Position)

	ss.renderer.Clear()
	ss.renderer.RenderSurface(ss.sim.Surface)
	ss.sim.Blob.Render(ss.renderer)
	ss.renderer.Present()

	ss.hud.UpdateSnapshot(ss.sim.GetState())
}

// GameScene shows a locally running simulation in an engo window
type GameScene struct {
	sim    *engine.Simulation
	logger *logging.Logger

	palette  *Palette
	renderer *EngoRenderer
	camera   *CameraSystem
	input    *InputSystem
	hud      *HUDSystem
	runner   *SimulationSystem
}

// NewGameScene creates a new game scene
func NewGameScene(sim *engine.Simulation, logger *logging.Logger) *GameScene {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &GameScene{
		sim:     sim,
		logger:  logger,
		palette: NewPalette(),
	}
}

// Type returns the scene type (required by Engo)
func (scene *GameScene) Type() string {
	return "BlobScene"
}

// Preload is called before the scene starts (required by Engo). Every
// drawable is a shape, so there is nothing to load.
func (scene *GameScene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *GameScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		scene.logger.Warn(context.Background(), "scene updater is not an ECS world")
		return
	}

	common.SetBackground(scene.palette.Background)
	SetupInputBindings()

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	for _, sys := range scene.build(renderSystem) {
		world.AddSystem(sys)
	}

	scene.sim.Start()
}

// build creates the scene systems in update order
func (scene *GameScene) build(renderSystem *common.RenderSystem) []ecs.System {
	scene.camera = NewCameraSystem()
	scene.input = NewInputSystem()
	scene.renderer = NewEngoRenderer(renderSystem, scene.camera, scene.palette)
	scene.hud = NewHUDSystem(renderSystem, scene.palette)
	scene.runner = NewSimulationSystem(scene.sim, scene.input, scene.renderer, scene.camera, scene.hud)

	return []ecs.System{scene.input, scene.camera, scene.runner, scene.hud}
}

// Exit is called when the window closes (required by Engo)
func (scene *GameScene) Exit() {
	scene.sim.Stop()
	if scene.hud != nil {
		scene.logger.Info(context.Background(), "viewer closed", "status", scene.hud.Status())
	}
}

// RunOptions returns engo window options for the scene
func RunOptions(title string, width, height int) engo.RunOptions {
	return engo.RunOptions{
		Title:          title,
		Width:          width,
		Height:         height,
		StandardInputs: true,
		MSAA:           4,
	}
}
