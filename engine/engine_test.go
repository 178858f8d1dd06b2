package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
)

func headlessConfig() *ApplicationConfig {
	config := DefaultApplicationConfig()
	config.StartWidth = 64
	config.StartHeight = 48
	config.AssetsDir = ""
	config.Renderer.Backend = string(metadata.RendererBackendTypeSoftware)
	return config
}

func newHeadless(t *testing.T, g *Game, frames uint64, opts ...Option) (*Engine, *software.Backend) {
	t.Helper()
	backend := software.New()
	opts = append([]Option{WithHeadless(frames), WithBackend(backend)}, opts...)
	e, err := New(g, opts...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("failed to initialize engine: %v", err)
	}
	t.Cleanup(func() {
		if e.Stage() != EngineStageUninitialized {
			e.Shutdown()
		}
	})
	return e, backend
}

func TestHeadlessRunStopsAfterFrameLimit(t *testing.T) {
	var updates, renders int
	var resized [2]uint32
	g := &Game{
		ApplicationConfig: headlessConfig(),
		FnUpdate: func(dt float64) error {
			updates++
			return nil
		},
		FnRender: func(r *renderer.Renderer2D, dt float64) error {
			renders++
			return r.DrawQuad(math.NewVec3(0, 0, 0), math.NewVec2(10, 10), math.NewVec4One())
		},
		FnOnResize: func(w, h uint32) error {
			resized = [2]uint32{w, h}
			return nil
		},
	}
	var observed []uint64
	e, _ := newHeadless(t, g, 3, WithFrameObserver(func(frame uint64, stats metadata.RendererStatistics) {
		observed = append(observed, frame)
	}))
	e.Overlay().Visible = false

	if g.SystemManager == nil {
		t.Fatal("expected the system manager to be handed to the game")
	}
	if resized != [2]uint32{64, 48} {
		t.Errorf("expected the initial resize to 64x48, got %v", resized)
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updates != 3 || renders != 3 {
		t.Errorf("expected 3 updates and renders, got %d and %d", updates, renders)
	}
	if e.FrameCount() != 3 {
		t.Errorf("expected 3 frames, got %d", e.FrameCount())
	}
	if len(observed) != 3 || observed[2] != 3 {
		t.Errorf("expected frames 1..3 observed, got %v", observed)
	}
	stats := e.Overlay().Stats()
	if stats.QuadCount != 1 || stats.DrawCalls != 1 {
		t.Errorf("expected 1 quad in 1 draw call, got %+v", stats)
	}
}

func TestRunOrdersLayersAndOverlays(t *testing.T) {
	var calls []string
	layer := func(name string) *Layer {
		return &Layer{
			Name: name,
			OnUpdate: func(float64) error {
				calls = append(calls, "update:"+name)
				return nil
			},
			OnRender: func(r *renderer.Renderer2D) error {
				calls = append(calls, "render:"+name)
				return nil
			},
		}
	}
	g := &Game{
		ApplicationConfig: headlessConfig(),
		Layers:            NewLayerStack(),
	}
	if err := g.Layers.PushOverlay(layer("hud")); err != nil {
		t.Fatal(err)
	}
	if err := g.Layers.PushLayer(layer("world")); err != nil {
		t.Fatal(err)
	}
	e, _ := newHeadless(t, g, 1)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"update:world", "update:hud", "render:world", "render:hud"}
	if len(calls) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("call %d: expected %s, got %s", i, expected[i], calls[i])
		}
	}
}

func TestRenderErrorStopsTheLoop(t *testing.T) {
	boom := errors.New("boom")
	g := &Game{
		ApplicationConfig: headlessConfig(),
		FnRender: func(r *renderer.Renderer2D, dt float64) error {
			return boom
		},
	}
	e, _ := newHeadless(t, g, 5)
	err := e.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if e.Renderer().InFrame() {
		t.Error("expected the frame to be closed after a render error")
	}
}

func TestRunStopsWhenContextIsDone(t *testing.T) {
	e, _ := newHeadless(t, &Game{ApplicationConfig: headlessConfig()}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.FrameCount() != 0 {
		t.Errorf("expected no frames, got %d", e.FrameCount())
	}
}

func TestQuitEventStopsTheLoop(t *testing.T) {
	var e *Engine
	g := &Game{
		ApplicationConfig: headlessConfig(),
		FnUpdate: func(dt float64) error {
			e.Input().ProcessKey(core.KEY_ESCAPE, true)
			return nil
		},
	}
	e, _ = newHeadless(t, g, 10)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.FrameCount() != 1 {
		t.Errorf("expected the loop to stop after 1 frame, got %d", e.FrameCount())
	}
}

func TestResizeAndMinimize(t *testing.T) {
	var resizes int
	g := &Game{
		ApplicationConfig: headlessConfig(),
		FnOnResize: func(w, h uint32) error {
			resizes++
			return nil
		},
	}
	e, backend := newHeadless(t, g, 1)
	resizes = 0

	fire := func(w, h uint32) {
		e.Events().Fire(nil, core.EventContext{
			Type: core.EVENT_CODE_RESIZED,
			Data: &core.ResizeEvent{Width: w, Height: h},
		})
	}

	fire(0, 0)
	if !e.IsSuspended() {
		t.Error("expected a 0x0 window to suspend the engine")
	}
	if resizes != 0 {
		t.Errorf("expected no game resize while minimized, got %d", resizes)
	}

	fire(32, 16)
	if e.IsSuspended() {
		t.Error("expected the engine to resume")
	}
	if resizes != 1 {
		t.Errorf("expected 1 game resize, got %d", resizes)
	}
	if w, h := e.GetFramebufferSize(); w != 32 || h != 16 {
		t.Errorf("expected 32x16, got %dx%d", w, h)
	}
	if size := backend.Snapshot().Bounds().Size(); size.X != 32 || size.Y != 16 {
		t.Errorf("expected the backend resized to 32x16, got %v", size)
	}
	if vw, vh := e.Camera().ViewportSize(); vw != 32 || vh != 16 {
		t.Errorf("expected the camera viewport 32x16, got %vx%v", vw, vh)
	}

	// Same size again is not a resize.
	fire(32, 16)
	if resizes != 1 {
		t.Errorf("expected no extra game resize, got %d", resizes)
	}
}

func TestF1TogglesOverlay(t *testing.T) {
	e, _ := newHeadless(t, &Game{ApplicationConfig: headlessConfig()}, 1)
	if !e.Overlay().Visible {
		t.Fatal("expected the overlay visible by default")
	}
	e.Input().ProcessKey(core.KEY_F1, true)
	if e.Overlay().Visible {
		t.Error("expected F1 to hide the overlay")
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	e, _ := newHeadless(t, &Game{ApplicationConfig: headlessConfig()}, 1)
	if err := e.Initialize(); !errors.Is(err, ErrWrongStage) {
		t.Errorf("expected ErrWrongStage, got %v", err)
	}
}

func TestShutdownReleasesLayers(t *testing.T) {
	detached := false
	g := &Game{ApplicationConfig: headlessConfig(), Layers: NewLayerStack()}
	g.Layers.PushLayer(&Layer{Name: "world", OnDetach: func() error {
		detached = true
		return nil
	}})
	e, _ := newHeadless(t, g, 1)
	if err := e.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !detached {
		t.Error("expected the layer to be detached")
	}
	if g.Layers.Len() != 0 {
		t.Errorf("expected no layers, got %d", g.Layers.Len())
	}
}
