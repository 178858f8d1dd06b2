package views

import (
	"testing"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
)

func newRenderer(t *testing.T) (*renderer.Renderer2D, *software.Backend) {
	t.Helper()
	backend := software.New()
	if err := backend.Initialize(&metadata.RendererBackendConfig{Width: 320, Height: 240}); err != nil {
		t.Fatal(err)
	}
	shader := &metadata.Shader{Name: metadata.BUILTIN_SHADER_NAME_QUAD2D}
	if err := backend.ShaderCreate(shader); err != nil {
		t.Fatal(err)
	}
	r, err := renderer.NewRenderer2D(backend, shader, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r, backend
}

type recordingText struct {
	lines []string
}

func (rt *recordingText) DrawText(r *renderer.Renderer2D, font *metadata.FontData, text string, position math.Vec3, scale float32, colour math.Vec4) error {
	rt.lines = append(rt.lines, text)
	return r.DrawQuad(position, math.NewVec2(1, 1), colour)
}

func TestStatsOverlayDrawsGaugesWithoutFont(t *testing.T) {
	r, backend := newRenderer(t)
	metrics := core.NewFrameMetrics()
	for i := 0; i < 60; i++ {
		metrics.Update(0.02)
	}
	overlay := NewStatsOverlay(metrics)
	overlay.Capture(metadata.RendererStatistics{DrawCalls: 4, QuadCount: 500}, r.QuadsPerBatch())

	world := math.NewMat4Identity()
	screen := math.NewMat4Orthographic(0, 320, 240, 0, -1, 1)
	if err := r.BeginFrame(world); err != nil {
		t.Fatal(err)
	}
	r.DrawQuad(math.NewVec3Zero(), math.NewVec2One(), math.NewVec4One())
	if err := overlay.Render(r, screen); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}

	draws := backend.Draws()
	if len(draws) != 2 {
		t.Fatalf("expected a world draw and an overlay draw, got %d", len(draws))
	}
	if draws[1].ViewProjection != screen {
		t.Error("expected the overlay to draw in screen space")
	}
	// Panel plus three gauges.
	if quads := draws[1].IndexCount / 6; quads != 4 {
		t.Errorf("expected 4 overlay quads, got %d", quads)
	}
}

func TestStatsOverlayDrawsTextWithFont(t *testing.T) {
	r, _ := newRenderer(t)
	text := &recordingText{}
	overlay := NewStatsOverlay(nil)
	overlay.Font = &metadata.FontData{LineHeight: 12}
	overlay.Text = text
	overlay.Capture(metadata.RendererStatistics{DrawCalls: 1, QuadCount: 3}, 1000)

	r.BeginFrame(math.NewMat4Identity())
	if err := overlay.Render(r, math.NewMat4Identity()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	r.EndFrame()

	if len(text.lines) != len(overlay.Lines()) {
		t.Fatalf("expected %d lines, got %d", len(overlay.Lines()), len(text.lines))
	}
	if text.lines[1] != "draw calls: 1" {
		t.Errorf("expected draw call line, got %q", text.lines[1])
	}
}

func TestHiddenStatsOverlayDrawsNothing(t *testing.T) {
	r, backend := newRenderer(t)
	overlay := NewStatsOverlay(nil)
	overlay.Visible = false

	r.BeginFrame(math.NewMat4Identity())
	overlay.Render(r, math.NewMat4Identity())
	r.EndFrame()

	if len(backend.Draws()) != 0 {
		t.Errorf("expected no draws, got %d", len(backend.Draws()))
	}
}
