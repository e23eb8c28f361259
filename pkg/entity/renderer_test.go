package entity

import (
	"testing"

	"github.com/opd-ai/go-blob/pkg/physics"
	"github.com/opd-ai/go-blob/pkg/world"
)

// MockRenderer records every call made to it
type MockRenderer struct {
	Calls        []string
	Surfaces     []*world.Surface
	Blobs        []*Blob
	Arms         []*Arm
	ClearCount   int
	PresentCount int
}

func (m *MockRenderer) RenderSurface(surface *world.Surface) {
	m.Calls = append(m.Calls, "surface")
	m.Surfaces = append(m.Surfaces, surface)
}

func (m *MockRenderer) RenderBlob(blob *Blob) {
	m.Calls = append(m.Calls, "blob")
	m.Blobs = append(m.Blobs, blob)
}

func (m *MockRenderer) RenderArm(arm *Arm) {
	m.Calls = append(m.Calls, "arm")
	m.Arms = append(m.Arms, arm)
}

func (m *MockRenderer) Clear() {
	m.Calls = append(m.Calls, "clear")
	m.ClearCount++
}

func (m *MockRenderer) Present() {
	m.Calls = append(m.Calls, "present")
	m.PresentCount++
}

func TestRenderer_InterfaceCompliance(t *testing.T) {
	var _ Renderer = (*MockRenderer)(nil)
}

func TestBlob_Render(t *testing.T) {
	cfg := DefaultBlobConfig()
	cfg.Arms = 3
	blob := NewBlob(cfg, physics.Vector2D{})

	renderer := &MockRenderer{}
	renderer.Clear()
	blob.Render(renderer)
	renderer.Present()

	want := []string{"clear", "blob", "arm", "arm", "arm", "present"}
	if len(renderer.Calls) != len(want) {
		t.Fatalf("calls = %v, want %v", renderer.Calls, want)
	}
	for i := range want {
		if renderer.Calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, renderer.Calls[i], want[i])
		}
	}

	if renderer.Blobs[0] != blob {
		t.Errorf("RenderBlob got %p, want %p", renderer.Blobs[0], blob)
	}
	for i, a := range renderer.Arms {
		if a != blob.Arms[i] {
			t.Errorf("arm %d rendered out of order", i)
		}
	}
}
