package views

import (
	"fmt"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// TextDrawer renders a string with a bitmap font.
type TextDrawer interface {
	DrawText(r *renderer.Renderer2D, font *metadata.FontData, text string, position math.Vec3, scale float32, colour math.Vec4) error
}

const (
	overlayPadding   float32 = 8
	overlayWidth     float32 = 220
	overlayGaugeSize float32 = 10
	// Gauges are full at these values.
	overlayMaxDrawCalls float32 = 16
	overlayMaxFPS       float32 = 144
)

// StatsOverlay draws the statistics of the previous frame in screen space.
// Statistics are captured after EndFrame and shown during the next frame.
type StatsOverlay struct {
	Visible bool
	// Font and Text are optional. Without them only gauges are drawn.
	Font *metadata.FontData
	Text TextDrawer

	metrics  *core.FrameMetrics
	stats    metadata.RendererStatistics
	capacity uint32
}

func NewStatsOverlay(metrics *core.FrameMetrics) *StatsOverlay {
	return &StatsOverlay{
		Visible: true,
		metrics: metrics,
	}
}

// Capture stores the statistics of a finished frame.
func (o *StatsOverlay) Capture(stats metadata.RendererStatistics, quadsPerBatch uint32) {
	o.stats = stats
	o.capacity = quadsPerBatch
}

func (o *StatsOverlay) Stats() metadata.RendererStatistics {
	return o.stats
}

func (o *StatsOverlay) Lines() []string {
	fps, frameTime := 0.0, 0.0
	if o.metrics != nil {
		fps, frameTime = o.metrics.Frame()
	}
	return []string{
		fmt.Sprintf("fps: %.0f (%.2f ms)", fps, frameTime),
		fmt.Sprintf("draw calls: %d", o.stats.DrawCalls),
		fmt.Sprintf("quads: %d", o.stats.QuadCount),
		fmt.Sprintf("vertices: %d indices: %d", o.stats.VertexCount(), o.stats.IndexCount()),
	}
}

// Render switches r to screenProjection and draws the panel.
func (o *StatsOverlay) Render(r *renderer.Renderer2D, screenProjection math.Mat4) error {
	if !o.Visible {
		return nil
	}
	if err := r.SetViewProjection(screenProjection); err != nil {
		return err
	}

	lines := o.Lines()
	lineHeight := overlayGaugeSize + 4
	if o.hasText() {
		lineHeight = float32(o.Font.LineHeight) + 2
	}
	height := overlayPadding*2 + lineHeight*float32(len(lines))
	panel := math.NewVec4(0.05, 0.05, 0.08, 0.75)
	if err := r.DrawQuad(math.NewVec3(overlayPadding, overlayPadding, 0), math.NewVec2(overlayWidth, height), panel); err != nil {
		return err
	}

	origin := math.NewVec3(overlayPadding*2, overlayPadding*2, 0)
	if o.hasText() {
		for i, line := range lines {
			pos := math.NewVec3(origin.X, origin.Y+lineHeight*float32(i), 0)
			if err := o.Text.DrawText(r, o.Font, line, pos, 1, math.NewVec4One()); err != nil {
				return err
			}
		}
		return nil
	}

	fps := float32(0)
	if o.metrics != nil {
		fps = float32(o.metrics.FPS())
	}
	gauges := []struct {
		fill   float32
		colour math.Vec4
	}{
		{fps / overlayMaxFPS, math.NewVec4(0.2, 0.8, 0.3, 1)},
		{float32(o.stats.DrawCalls) / overlayMaxDrawCalls, math.NewVec4(0.9, 0.6, 0.1, 1)},
		{o.quadFill(), math.NewVec4(0.2, 0.5, 0.9, 1)},
	}
	maxWidth := overlayWidth - overlayPadding*2
	for i, g := range gauges {
		pos := math.NewVec3(origin.X, origin.Y+lineHeight*float32(i), 0)
		width := maxWidth * math.Clamp(g.fill, 0, 1)
		if width <= 0 {
			continue
		}
		if err := r.DrawQuad(pos, math.NewVec2(width, overlayGaugeSize), g.colour); err != nil {
			return err
		}
	}
	return nil
}

// quadFill is the share of one batch used by the last frame.
func (o *StatsOverlay) quadFill() float32 {
	if o.capacity == 0 {
		return 0
	}
	return float32(o.stats.QuadCount) / float32(o.capacity)
}

func (o *StatsOverlay) hasText() bool {
	return o.Font != nil && o.Text != nil
}
