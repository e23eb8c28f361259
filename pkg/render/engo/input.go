// pkg/render/engo/input.go
package engo

import (
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-blob/pkg/input"
)

const (
	buttonLeft      = "left"
	buttonRight     = "right"
	buttonUp        = "up"
	buttonDown      = "down"
	buttonScan      = "scan"
	buttonRelease   = "release"
	buttonZoomIn    = "zoomIn"
	buttonZoomOut   = "zoomOut"
	buttonResetZoom = "resetZoom"
)

// buttonState is one frame of keyboard state
type buttonState struct {
	keys       input.Keys
	release    bool
	toggleScan bool
}

// InputSystem samples the keyboard once per frame and serves the result to
// the simulation as an input.Provider. The simulation may tick zero or
// several times per frame, so a release press is held until one tick
// consumes it.
type InputSystem struct {
	mu             sync.Mutex
	keys           input.Keys
	scan           bool
	releaseEdge    input.EdgeTrigger
	pendingRelease bool
}

// NewInputSystem creates a new input system with scanning enabled
func NewInputSystem() *InputSystem {
	return &InputSystem{scan: true}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update reads the registered buttons
func (is *InputSystem) Update(dt float32) {
	is.sample(buttonState{
		keys: input.Keys{
			Left:  engo.Input.Button(buttonLeft).Down(),
			Right: engo.Input.Button(buttonRight).Down(),
			Up:    engo.Input.Button(buttonUp).Down(),
			Down:  engo.Input.Button(buttonDown).Down(),
		},
		release:    engo.Input.Button(buttonRelease).Down(),
		toggleScan: engo.Input.Button(buttonScan).JustPressed(),
	})
}

func (is *InputSystem) sample(b buttonState) {
	is.mu.Lock()
	defer is.mu.Unlock()

	is.keys = b.keys
	if b.toggleScan {
		is.scan = !is.scan
	}
	if is.releaseEdge.Update(b.release) {
		is.pendingRelease = true
	}
}

// Poll implements input.Provider
func (is *InputSystem) Poll() input.Snapshot {
	is.mu.Lock()
	defer is.mu.Unlock()

	snap := input.Snapshot{
		Move:    is.keys.Intent(),
		Scan:    is.scan,
		Release: is.pendingRelease,
	}
	is.pendingRelease = false
	return snap
}

// IsScanning reports whether wall probing is switched on
func (is *InputSystem) IsScanning() bool {
	is.mu.Lock()
	defer is.mu.Unlock()
	return is.scan
}

// SetupInputBindings registers the key bindings used by the viewer
func SetupInputBindings() {
	engo.Input.RegisterButton(buttonLeft, engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton(buttonRight, engo.KeyD, engo.KeyArrowRight)
	engo.Input.RegisterButton(buttonUp, engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton(buttonDown, engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton(buttonScan, engo.KeySpace)
	engo.Input.RegisterButton(buttonRelease, engo.KeyR, engo.KeyEnter)
	engo.Input.RegisterButton(buttonZoomIn, engo.KeyE)
	engo.Input.RegisterButton(buttonZoomOut, engo.KeyQ)
	engo.Input.RegisterButton(buttonResetZoom, engo.KeyZero)
}

var _ input.Provider = (*InputSystem)(nil)
