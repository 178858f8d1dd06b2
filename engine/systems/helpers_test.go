package systems

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
)

const testFont = `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=16 scaleH=16 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=3
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=14    xadvance=4     page=0  chnl=15
char id=65   x=0     y=0     width=8     height=8     xoffset=0     yoffset=4     xadvance=9     page=0  chnl=15
char id=66   x=8     y=0     width=8     height=8     xoffset=1     yoffset=4     xadvance=10    page=0  chnl=15
kernings count=1
kerning first=65  second=66  amount=-2
`

const testShaderConfig = `
name = "Shader.Builtin.Quad2D"
[[stages]]
stage = "vertex"
glsl = "shaders/quad2d.vert"
spirv = "shaders/quad2d.vert.spv"
[[stages]]
stage = "fragment"
glsl = "shaders/quad2d.frag"
spirv = "shaders/quad2d.frag.spv"
`

func newBackend(t *testing.T) *software.Backend {
	t.Helper()
	b := software.New()
	if err := b.Initialize(&metadata.RendererBackendConfig{
		ApplicationName: "systems-test",
		Width:           64,
		Height:          64,
		VertexLayout:    metadata.QuadVertexLayout(),
	}); err != nil {
		t.Fatalf("failed to initialize backend: %v", err)
	}
	return b
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, path string, width, height int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	// Write to a temp file first so a watcher never sees a half written image.
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatal(err)
	}
	f.Close()
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

// newAssets lays out a small assets directory and indexes it.
func newAssets(t *testing.T) (*assets.AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "textures", "crate.png"), 4, 4, color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "textures", "glass.png"), 2, 2, color.RGBA{B: 255, A: 128})
	writePNG(t, filepath.Join(dir, "fonts", "test_0.png"), 16, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	writeFile(t, filepath.Join(dir, "fonts", "test.fnt"), []byte(testFont))
	writeFile(t, filepath.Join(dir, "shaders", "quad2d.shadercfg"), []byte(testShaderConfig))
	writeFile(t, filepath.Join(dir, "shaders", "quad2d.vert"), []byte("#version 410 core\nvoid main() {}\n"))
	writeFile(t, filepath.Join(dir, "shaders", "quad2d.frag"), []byte("#version 410 core\nvoid main() {}\n"))
	writeFile(t, filepath.Join(dir, "shaders", "quad2d.vert.spv"), []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0})
	writeFile(t, filepath.Join(dir, "shaders", "quad2d.frag.spv"), []byte{0x03, 0x02, 0x23, 0x07})

	am, err := assets.NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { am.Shutdown() })
	return am, dir
}
