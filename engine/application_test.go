package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadApplicationConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "anima.toml",
			content: `
name = "Batch"
start_width = 800
start_height = 600
log_level = "debug"

[renderer]
backend = "opengl"
quads_per_batch = 250
clear_colour = [0.0, 0.0, 0.0, 1.0]
`,
		},
		{
			name: "yaml",
			file: "anima.yml",
			content: `
name: Batch
start_width: 800
start_height: 600
log_level: debug
renderer:
  backend: opengl
  quads_per_batch: 250
  clear_colour: [0, 0, 0, 1]
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadApplicationConfig(writeConfig(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Name != "Batch" || config.StartWidth != 800 || config.StartHeight != 600 {
				t.Errorf("expected Batch 800x600, got %s %dx%d", config.Name, config.StartWidth, config.StartHeight)
			}
			if backend, _ := config.BackendType(); backend != metadata.RendererBackendTypeOpenGL {
				t.Errorf("expected opengl, got %s", backend)
			}
			if config.Renderer.QuadsPerBatch != 250 {
				t.Errorf("expected 250 quads per batch, got %d", config.Renderer.QuadsPerBatch)
			}
			// Unset keys keep their defaults.
			if config.Renderer.MaxTextureSlots != renderer.MaxTextureSlots {
				t.Errorf("expected %d texture slots, got %d", renderer.MaxTextureSlots, config.Renderer.MaxTextureSlots)
			}
			if config.StartPosX != 100 || !config.Renderer.VSync {
				t.Error("expected the defaults for unset keys")
			}
			if config.Renderer.ClearColour != [4]float32{0, 0, 0, 1} {
				t.Errorf("expected an opaque black clear colour, got %v", config.Renderer.ClearColour)
			}
		})
	}
}

func TestLoadApplicationConfigErrors(t *testing.T) {
	if _, err := LoadApplicationConfig(writeConfig(t, "anima.ini", "name=x")); !errors.Is(err, ErrUnknownConfigFormat) {
		t.Errorf("expected ErrUnknownConfigFormat, got %v", err)
	}
	if _, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a missing file error, got %v", err)
	}
	if _, err := LoadApplicationConfig(writeConfig(t, "bad.toml", "[renderer\n")); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := LoadApplicationConfig(writeConfig(t, "bad.toml", "[renderer]\nbackend = \"directx\"\n")); err == nil {
		t.Error("expected an unknown backend error")
	}
}

func TestApplicationConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *ApplicationConfig)
		valid  bool
	}{
		{"defaults", func(c *ApplicationConfig) {}, true},
		{"backend case", func(c *ApplicationConfig) { c.Renderer.Backend = "Software" }, true},
		{"unknown backend", func(c *ApplicationConfig) { c.Renderer.Backend = "metal" }, false},
		{"unknown log level", func(c *ApplicationConfig) { c.LogLevel = "loud" }, false},
		{"empty window", func(c *ApplicationConfig) { c.StartWidth = 0 }, false},
		{"no quads", func(c *ApplicationConfig) { c.Renderer.QuadsPerBatch = 0 }, false},
		{"too many slots", func(c *ApplicationConfig) { c.Renderer.MaxTextureSlots = 64 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultApplicationConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBackendConfigSizesOneBatch(t *testing.T) {
	config := DefaultApplicationConfig()
	config.Renderer.QuadsPerBatch = 10
	bc := config.BackendConfig(320, 200)
	if bc.Width != 320 || bc.Height != 200 {
		t.Errorf("expected 320x200, got %dx%d", bc.Width, bc.Height)
	}
	expected := uint64(10 * 4 * bc.VertexLayout.Stride())
	if bc.MaxBatchBytes != expected {
		t.Errorf("expected %d bytes, got %d", expected, bc.MaxBatchBytes)
	}
	if !bc.VSync {
		t.Error("expected vsync to carry over")
	}
}
