package systems

import (
	"testing"

	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
)

func newFontSystem(t *testing.T) (*FontSystem, *TextureSystem) {
	t.Helper()
	am, _ := newAssets(t)
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 8}, nil, am, newBackend(t))
	if err != nil {
		t.Fatal(err)
	}
	fs, err := NewFontSystem(&FontSystemConfig{MaxBitmapFontCount: 2, DefaultBitmapFonts: []string{"test"}}, ts, am)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return fs, ts
}

func TestLoadBitmapFontAcquiresPages(t *testing.T) {
	fs, ts := newFontSystem(t)
	font, err := fs.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if len(font.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(font.Pages))
	}
	if font.Pages[0].Width != 16 {
		t.Errorf("expected a 16 pixel page, got %d", font.Pages[0].Width)
	}
	page := font.Pages[0].Name
	if ts.ReferenceCount(page) != 1 {
		t.Errorf("expected 1 reference on %s, got %d", page, ts.ReferenceCount(page))
	}
	again, _ := fs.LoadBitmapFont("test")
	if again != font {
		t.Error("expected loading twice to return the same font")
	}

	fs.Release("test")
	if _, ok := ts.Get(page); ok {
		t.Error("expected the page texture to be released with the font")
	}
}

// fontRenderer builds a renderer over a fresh software backend that
// records every draw.
func fontRenderer(t *testing.T) (*renderer.Renderer2D, *software.Backend) {
	t.Helper()
	backend := newBackend(t)
	ss := newShaderSystem(t, backend, nil)
	sh, err := ss.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	r, err := renderer.NewRenderer2D(backend, sh, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Shutdown() })
	return r, backend
}

func TestDrawTextEmitsGlyphQuads(t *testing.T) {
	fs, _ := newFontSystem(t)
	font, _ := fs.Get("test")
	r, backend := fontRenderer(t)

	// The page texture belongs to another backend; give the font a local copy.
	page := &metadata.Texture{Name: "page", Width: 16, Height: 16, ChannelCount: 4}
	if err := backend.TextureCreate(metadata.CheckerboardPixels(16, 8, 0, 0, 0), page); err != nil {
		t.Fatal(err)
	}
	font.Pages = []*metadata.Texture{page}

	if err := r.BeginFrame(math.NewMat4Orthographic(0, 64, 64, 0, -1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := fs.DrawText(r, font, "AB A\nB", math.NewVec3(10, 20, 0), 1, math.NewVec4One()); err != nil {
		t.Fatalf("DrawText failed: %v", err)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatal(err)
	}

	if r.Stats().QuadCount != 4 {
		t.Fatalf("expected 4 glyph quads, got %d", r.Stats().QuadCount)
	}
	draws := backend.Draws()
	vertices := draws[len(draws)-1].Vertices

	tests := []struct {
		quad int
		want math.Vec3
	}{
		// A at the pen origin, offset by yoffset 4.
		{0, math.NewVec3(10, 24, 0)},
		// B after A's advance of 9, kerning -2 and xoffset 1.
		{1, math.NewVec3(18, 24, 0)},
		// A after B (10) and the space (4).
		{2, math.NewVec3(31, 24, 0)},
		// B on the second line.
		{3, math.NewVec3(11, 42, 0)},
	}
	for _, tt := range tests {
		if got := vertices[tt.quad*4].Position; got != tt.want {
			t.Errorf("quad %d: expected %v, got %v", tt.quad, tt.want, got)
		}
	}
	if uv := vertices[4].TexCoord; uv != math.NewVec2(0.5, 0) {
		t.Errorf("expected B to start at u=0.5, got %v", uv)
	}
}

func TestMeasureText(t *testing.T) {
	fs, _ := newFontSystem(t)
	font, _ := fs.Get("test")
	tests := []struct {
		text  string
		scale float32
		want  math.Vec2
	}{
		{"", 1, math.NewVec2(0, 0)},
		{"A", 1, math.NewVec2(9, 18)},
		{"AB", 1, math.NewVec2(17, 18)},
		{"AB\nA", 2, math.NewVec2(34, 72)},
		{"\t", 1, math.NewVec2(16, 18)},
	}
	for _, tt := range tests {
		if got := fs.MeasureText(font, tt.text, tt.scale); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.text, tt.want, got)
		}
	}
}

func TestRegisterFontRequiresPages(t *testing.T) {
	fs, _ := newFontSystem(t)
	if err := fs.RegisterFont("empty", &metadata.FontData{}); err == nil {
		t.Error("expected an error for a font without pages")
	}
	if _, err := fs.Get("empty"); err == nil {
		t.Error("expected the font not to be registered")
	}
}
