package systems

import (
	"testing"

	"github.com/spaghettifunk/anima2d/engine/math"
)

func TestSystemManagerLifecycle(t *testing.T) {
	backend := newBackend(t)
	sm, err := NewSystemManager(backend, nil, &SystemManagerConfig{ViewportWidth: 64, ViewportHeight: 64, JobWorkers: 1})
	if err != nil {
		t.Fatalf("NewSystemManager failed: %v", err)
	}

	r := sm.Renderer()
	if r == nil || sm.TextureSystem().GetDefaultTexture() == nil {
		t.Fatal("expected the renderer and the default texture")
	}
	checker, err := sm.TextureSystem().CreateFromPixels("checker", 4, 4, 4, make([]uint8, 64))
	if err != nil {
		t.Fatal(err)
	}

	sm.Update()
	camera := sm.CameraSystem().GetDefault()
	if err := r.BeginFrame(camera.ViewProjection()); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawTexturedQuad(math.NewVec3(0, 0, 0), math.NewVec2(4, 4), checker, 1, math.NewVec4One()); err != nil {
		t.Fatal(err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}
	if r.Stats().DrawCalls != 1 {
		t.Errorf("expected 1 draw call, got %d", r.Stats().DrawCalls)
	}

	if err := sm.OnResize(32, 16); err != nil {
		t.Fatal(err)
	}
	if w, h := camera.ViewportSize(); w != 32 || h != 16 {
		t.Errorf("expected 32x16, got %vx%v", w, h)
	}

	if err := sm.Shutdown(); err != nil {
		t.Errorf("unexpected shutdown error %v", err)
	}
	if checker.InternalData != nil {
		t.Error("expected textures to be destroyed on shutdown")
	}
}

func TestSystemManagerWithAssets(t *testing.T) {
	am, _ := newAssets(t)
	sm, err := NewSystemManager(newBackend(t), am, &SystemManagerConfig{
		ViewportWidth:  64,
		ViewportHeight: 64,
		Fonts:          []string{"test"},
	})
	if err != nil {
		t.Fatalf("NewSystemManager failed: %v", err)
	}
	defer sm.Shutdown()
	if _, err := sm.FontSystem().Get("test"); err != nil {
		t.Errorf("expected the start up font, got %v", err)
	}
	if _, err := sm.ShaderSystem().Get("Shader.Builtin.Quad2D"); err != nil {
		t.Errorf("expected the builtin shader, got %v", err)
	}
}

func TestSystemManagerFailsCleanly(t *testing.T) {
	am, _ := newAssets(t)
	if _, err := NewSystemManager(newBackend(t), am, &SystemManagerConfig{ViewportWidth: 8, ViewportHeight: 8, Fonts: []string{"missing"}}); err == nil {
		t.Error("expected an error for a missing font")
	}
}
