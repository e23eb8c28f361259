// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/opd-ai/go-blob/pkg/physics"
)

// Default viewport used until the window reports its size
const (
	DefaultViewportWidth  = 800
	DefaultViewportHeight = 600
)

// CameraSystem follows the blob. It owns the world to screen transform:
// world y grows upwards, screen y grows downwards.
type CameraSystem struct {
	// Target to follow
	target    physics.Vector2D
	targetSet bool

	// Camera properties, zoom is pixels per world unit
	zoom    float32
	minZoom float32
	maxZoom float32

	// Smooth following
	followSpeed float32
	smoothing   bool

	viewWidth  float32
	viewHeight float32

	// Current camera state
	currentPos physics.Vector2D
}

// NewCameraSystem creates a new camera system
func NewCameraSystem() *CameraSystem {
	return &CameraSystem{
		zoom:        1.0,
		minZoom:     0.1,
		maxZoom:     3.0,
		followSpeed: 2.0,
		smoothing:   true,
		viewWidth:   DefaultViewportWidth,
		viewHeight:  DefaultViewportHeight,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update follows the target and reads zoom keys
func (cs *CameraSystem) Update(dt float32) {
	cs.handleZoomInput()

	if w, h := engo.GameWidth(), engo.GameHeight(); w > 0 && h > 0 {
		cs.SetViewport(w, h)
	}

	if cs.targetSet {
		cs.updateCameraPosition(dt)
	}
}

// handleZoomInput processes zoom-related input
func (cs *CameraSystem) handleZoomInput() {
	if scrollY := engo.Input.Mouse.ScrollY; scrollY != 0 {
		cs.SetZoom(cs.zoom * (1.0 + scrollY*0.1))
	}
	if engo.Input.Button(buttonZoomIn).Down() {
		cs.SetZoom(cs.zoom * 1.02)
	}
	if engo.Input.Button(buttonZoomOut).Down() {
		cs.SetZoom(cs.zoom * 0.98)
	}
	if engo.Input.Button(buttonResetZoom).JustPressed() {
		cs.SetZoom(1.0)
	}
}

// updateCameraPosition moves the camera toward the target without
// overshooting it
func (cs *CameraSystem) updateCameraPosition(dt float32) {
	if !cs.smoothing {
		cs.currentPos = cs.target
		return
	}
	step := float64(cs.followSpeed * dt)
	if step > 1 {
		step = 1
	}
	cs.currentPos = cs.currentPos.Lerp(cs.target, step)
}

// SetTarget sets the target position for the camera to follow. The first
// target snaps the camera into place.
func (cs *CameraSystem) SetTarget(target physics.Vector2D) {
	first := !cs.targetSet
	cs.target = target
	cs.targetSet = true
	if first || !cs.smoothing {
		cs.currentPos = target
	}
}

// ClearTarget clears the camera target
func (cs *CameraSystem) ClearTarget() {
	cs.targetSet = false
}

// SetZoom sets the camera zoom level
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// GetZoom returns the current zoom level
func (cs *CameraSystem) GetZoom() float32 {
	return cs.zoom
}

func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	return mgl32.Clamp(zoom, cs.minZoom, cs.maxZoom)
}

// SetZoomLimits sets the minimum and maximum zoom levels
func (cs *CameraSystem) SetZoomLimits(min, max float32) {
	cs.minZoom = min
	cs.maxZoom = max
	cs.zoom = cs.clampZoom(cs.zoom)
}

// GetZoomLimits returns the current zoom limits
func (cs *CameraSystem) GetZoomLimits() (float32, float32) {
	return cs.minZoom, cs.maxZoom
}

// SetFollowSpeed sets the camera follow speed
func (cs *CameraSystem) SetFollowSpeed(speed float32) {
	cs.followSpeed = speed
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// SetViewport sets the screen size in pixels
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.viewWidth = width
	cs.viewHeight = height
}

// Viewport returns the screen size in pixels
func (cs *CameraSystem) Viewport() (float32, float32) {
	return cs.viewWidth, cs.viewHeight
}

// GetCurrentPosition returns the current camera position
func (cs *CameraSystem) GetCurrentPosition() physics.Vector2D {
	return cs.currentPos
}

// transform maps homogeneous world coordinates to screen pixels
func (cs *CameraSystem) transform() mgl32.Mat3 {
	center := mgl32.Translate2D(cs.viewWidth/2, cs.viewHeight/2)
	zoom := mgl32.Scale2D(cs.zoom, -cs.zoom)
	follow := mgl32.Translate2D(float32(-cs.currentPos.X), float32(-cs.currentPos.Y))
	return center.Mul3(zoom).Mul3(follow)
}

// WorldToScreen converts world coordinates to screen coordinates
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector2D) physics.Vector2D {
	v := cs.transform().Mul3x1(mgl32.Vec3{float32(worldPos.X), float32(worldPos.Y), 1})
	return physics.Vector2D{X: float64(v.X()), Y: float64(v.Y())}
}

// ScreenToWorld converts screen coordinates to world coordinates
func (cs *CameraSystem) ScreenToWorld(screenPos physics.Vector2D) physics.Vector2D {
	v := cs.transform().Inv().Mul3x1(mgl32.Vec3{float32(screenPos.X), float32(screenPos.Y), 1})
	return physics.Vector2D{X: float64(v.X()), Y: float64(v.Y())}
}
