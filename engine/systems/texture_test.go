package systems

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

func newTextureSystem(t *testing.T, js *JobSystem, withAssets bool) (*TextureSystem, string) {
	t.Helper()
	var dir string
	config := &TextureSystemConfig{MaxTextureCount: 8}
	backend := newBackend(t)
	var ts *TextureSystem
	var err error
	if withAssets {
		am, root := newAssets(t)
		dir = root
		ts, err = NewTextureSystem(config, js, am, backend)
	} else {
		ts, err = NewTextureSystem(config, js, nil, backend)
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := ts.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ts.Shutdown() })
	return ts, dir
}

func TestNewTextureSystemValidation(t *testing.T) {
	if _, err := NewTextureSystem(&TextureSystemConfig{}, nil, nil, newBackend(t)); err == nil {
		t.Error("expected an error for MaxTextureCount 0")
	}
	if _, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 1}, nil, nil, nil); err == nil {
		t.Error("expected an error for a nil backend")
	}
}

func TestDefaultTextureIsCheckerboard(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, false)
	def := ts.GetDefaultTexture()
	if def == nil || def.Name != metadata.DEFAULT_TEXTURE_NAME {
		t.Fatalf("expected the default texture, got %+v", def)
	}
	img := def.InternalData.(*image.RGBA)
	a := img.RGBAAt(0, 0)
	b := img.RGBAAt(int(defaultTextureCell), 0)
	if a == b {
		t.Errorf("expected neighbouring cells to differ, both are %v", a)
	}
	if got, _ := ts.Acquire(metadata.DEFAULT_TEXTURE_NAME, false); got != def {
		t.Error("expected Acquire(default) to return the default texture")
	}
}

func TestAcquireCountsReferences(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, true)

	first, err := ts.Acquire("crate", true)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	second, err := ts.Acquire("crate", true)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the same texture for the same name")
	}
	if first.Width != 4 || first.Height != 4 || first.ChannelCount != 4 {
		t.Errorf("expected a 4x4 RGBA texture, got %dx%d with %d channels", first.Width, first.Height, first.ChannelCount)
	}
	if first.HasTransparency() {
		t.Error("expected an opaque texture")
	}
	if ts.ReferenceCount("crate") != 2 {
		t.Errorf("expected 2 references, got %d", ts.ReferenceCount("crate"))
	}

	ts.Release("crate")
	if _, ok := ts.Get("crate"); !ok {
		t.Fatal("expected the texture to survive one release")
	}
	ts.Release("crate")
	if _, ok := ts.Get("crate"); ok {
		t.Error("expected the auto released texture to be gone")
	}
	if first.Generation != metadata.InvalidID {
		t.Errorf("expected the destroyed texture to be invalidated, got generation %d", first.Generation)
	}
}

func TestAcquireTransparentImage(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, true)
	glass, err := ts.Acquire("glass", false)
	if err != nil {
		t.Fatal(err)
	}
	if !glass.HasTransparency() {
		t.Error("expected the transparency flag")
	}
	ts.Release("glass")
	if _, ok := ts.Get("glass"); !ok {
		t.Error("expected a texture without auto release to stay registered")
	}
}

func TestAcquireWithoutAssetManager(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, false)
	if _, err := ts.Acquire("crate", true); !errors.Is(err, core.ErrSystemNotReady) {
		t.Errorf("expected ErrSystemNotReady, got %v", err)
	}
}

func TestCreateFromPixels(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, false)

	tests := []struct {
		name     string
		width    uint32
		height   uint32
		channels uint8
		pixels   []uint8
		wantErr  error
	}{
		{"named", 1, 1, 4, []uint8{1, 2, 3, 255}, nil},
		{"", 1, 1, 3, []uint8{1, 2, 3}, nil},
		{"short", 2, 2, 4, []uint8{1, 2, 3, 4}, ErrInvalidTextureInput},
		{"zero", 0, 1, 4, nil, ErrInvalidTextureInput},
		{"named", 1, 1, 4, []uint8{1, 2, 3, 4}, ErrTextureExists},
	}
	for _, tt := range tests {
		tex, err := ts.CreateFromPixels(tt.name, tt.width, tt.height, tt.channels, tt.pixels)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%q: expected %v, got %v", tt.name, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tt.name, err)
		}
		if tt.name == "" && len(tex.Name) != 36 {
			t.Errorf("expected a generated uuid name, got %q", tex.Name)
		}
	}
	if ts.Count() != 2 {
		t.Errorf("expected 2 textures, got %d", ts.Count())
	}
}

func TestTextureSystemFull(t *testing.T) {
	ts, _ := newTextureSystem(t, nil, false)
	for i := 0; i < 8; i++ {
		if _, err := ts.CreateFromPixels("", 1, 1, 4, metadata.WhitePixels()); err != nil {
			t.Fatalf("texture %d: %v", i, err)
		}
	}
	if _, err := ts.CreateFromPixels("", 1, 1, 4, metadata.WhitePixels()); !errors.Is(err, ErrTooManyTextures) {
		t.Errorf("expected ErrTooManyTextures, got %v", err)
	}
}

func TestReloadKeepsIdentity(t *testing.T) {
	ts, dir := newTextureSystem(t, nil, true)
	crate, err := ts.Acquire("crate", false)
	if err != nil {
		t.Fatal(err)
	}

	writePNG(t, filepath.Join(dir, "textures", "crate.png"), 8, 2, color.RGBA{G: 255, A: 255})
	if err := ts.Reload("textures/crate.png"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	got, _ := ts.Get("crate")
	if got != crate {
		t.Error("expected the reloaded texture to keep its pointer")
	}
	if crate.Generation != 1 {
		t.Errorf("expected generation 1, got %d", crate.Generation)
	}
	if crate.Width != 8 || crate.Height != 2 {
		t.Errorf("expected 8x2, got %dx%d", crate.Width, crate.Height)
	}
	if c := crate.InternalData.(*image.RGBA).RGBAAt(0, 0); c.G != 255 || c.R != 0 {
		t.Errorf("expected green pixels, got %v", c)
	}
	if err := ts.Reload("textures/unknown.png"); !errors.Is(err, ErrTextureNotFound) {
		t.Errorf("expected ErrTextureNotFound, got %v", err)
	}
}

func TestHotReloadThroughJobs(t *testing.T) {
	js, err := NewJobSystem(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()
	ts, dir := newTextureSystem(t, js, true)
	crate, err := ts.Acquire("crate", false)
	if err != nil {
		t.Fatal(err)
	}

	writePNG(t, filepath.Join(dir, "textures", "crate.png"), 2, 2, color.RGBA{B: 255, A: 255})
	deadline := time.Now().Add(5 * time.Second)
	for crate.Generation == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the texture to be reloaded after the file changed")
		}
		ts.Update()
		js.Update()
		time.Sleep(5 * time.Millisecond)
	}
	if crate.Width != 2 {
		t.Errorf("expected width 2, got %d", crate.Width)
	}
}
