package render

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-blob/pkg/input"
)

// DefaultHoldTicks is how long a terminal key press counts as held
const DefaultHoldTicks = 8

// KeyboardInput turns tcell key events into input snapshots. Terminals
// report presses and auto-repeat but no releases, so a press keeps its
// direction held for a fixed number of ticks.
type KeyboardInput struct {
	mu        sync.Mutex
	holdTicks int

	left, right, up, down int
	release               int
	releaseEdge           input.EdgeTrigger
	scan                  bool
	quit                  bool
}

// NewKeyboardInput creates a keyboard provider. holdTicks <= 0 uses
// DefaultHoldTicks.
func NewKeyboardInput(holdTicks int) *KeyboardInput {
	if holdTicks <= 0 {
		holdTicks = DefaultHoldTicks
	}
	return &KeyboardInput{holdTicks: holdTicks, scan: true}
}

// HandleEvent applies ev and reports whether the viewer should keep
// running
func (k *KeyboardInput) HandleEvent(ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return true
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		k.quit = true
	case tcell.KeyLeft:
		k.left, k.right = k.holdTicks, 0
	case tcell.KeyRight:
		k.right, k.left = k.holdTicks, 0
	case tcell.KeyUp:
		k.up, k.down = k.holdTicks, 0
	case tcell.KeyDown:
		k.down, k.up = k.holdTicks, 0
	case tcell.KeyEnter:
		k.release = k.holdTicks
	case tcell.KeyRune:
		switch key.Rune() {
		case 'q':
			k.quit = true
		case 'a', 'h':
			k.left, k.right = k.holdTicks, 0
		case 'd', 'l':
			k.right, k.left = k.holdTicks, 0
		case 'w', 'k':
			k.up, k.down = k.holdTicks, 0
		case 's', 'j':
			k.down, k.up = k.holdTicks, 0
		case 'r':
			k.release = k.holdTicks
		case ' ':
			k.scan = !k.scan
		}
	}
	return !k.quit
}

// Poll implements input.Provider and ages held keys by one tick
func (k *KeyboardInput) Poll() input.Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys := input.Keys{
		Left:  k.left > 0,
		Right: k.right > 0,
		Up:    k.up > 0,
		Down:  k.down > 0,
	}
	snap := input.Snapshot{
		Move:    keys.Intent(),
		Scan:    k.scan,
		Release: k.releaseEdge.Update(k.release > 0),
	}

	k.left = decay(k.left)
	k.right = decay(k.right)
	k.up = decay(k.up)
	k.down = decay(k.down)
	k.release = decay(k.release)
	return snap
}

func decay(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}

// Quit reports whether a quit key was pressed
func (k *KeyboardInput) Quit() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.quit
}

var _ input.Provider = (*KeyboardInput)(nil)
