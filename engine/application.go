package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"gopkg.in/yaml.v3"
)

var ErrUnknownConfigFormat = errors.New("unknown configuration format")

type RendererConfig struct {
	// Backend is one of vulkan, opengl or software.
	Backend         string     `toml:"backend" yaml:"backend"`
	QuadsPerBatch   uint32     `toml:"quads_per_batch" yaml:"quads_per_batch"`
	MaxTextureSlots uint32     `toml:"max_texture_slots" yaml:"max_texture_slots"`
	ClearColour     [4]float32 `toml:"clear_colour" yaml:"clear_colour"`
	VSync           bool       `toml:"vsync" yaml:"vsync"`
	Validation      bool       `toml:"validation" yaml:"validation"`
}

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x" yaml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y" yaml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width" yaml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height" yaml:"start_height"`
	// The application name used in windowing, if applicable.
	Name      string         `toml:"name" yaml:"name"`
	LogLevel  string         `toml:"log_level" yaml:"log_level"`
	AssetsDir string         `toml:"assets_dir" yaml:"assets_dir"`
	Fonts     []string       `toml:"fonts" yaml:"fonts"`
	Renderer  RendererConfig `toml:"renderer" yaml:"renderer"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	c := metadata.DefaultClearColour()
	return &ApplicationConfig{
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		Name:        "Anima2D",
		LogLevel:    string(core.LogLevelInfo),
		AssetsDir:   "assets",
		Renderer: RendererConfig{
			Backend:         string(metadata.RendererBackendTypeVulkan),
			QuadsPerBatch:   renderer.DefaultQuadsPerBatch,
			MaxTextureSlots: renderer.MaxTextureSlots,
			ClearColour:     [4]float32{c.X, c.Y, c.Z, c.W},
			VSync:           true,
		},
	}
}

// LoadApplicationConfig reads a .toml, .yaml or .yml file on top of the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultApplicationConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConfigFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if _, err := c.BackendType(); err != nil {
		return err
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return fmt.Errorf("window size %dx%d is empty", c.StartWidth, c.StartHeight)
	}
	return c.Renderer2DConfig().Validate()
}

func (c *ApplicationConfig) BackendType() (metadata.RendererBackendType, error) {
	switch t := metadata.RendererBackendType(strings.ToLower(c.Renderer.Backend)); t {
	case metadata.RendererBackendTypeVulkan, metadata.RendererBackendTypeOpenGL, metadata.RendererBackendTypeSoftware:
		return t, nil
	}
	return "", fmt.Errorf("unknown renderer backend %q", c.Renderer.Backend)
}

func (c *ApplicationConfig) Renderer2DConfig() *renderer.Renderer2DConfig {
	colour := c.Renderer.ClearColour
	return &renderer.Renderer2DConfig{
		QuadsPerBatch:   c.Renderer.QuadsPerBatch,
		MaxTextureSlots: c.Renderer.MaxTextureSlots,
		ClearColour:     math.NewVec4(colour[0], colour[1], colour[2], colour[3]),
	}
}

// BackendConfig describes what the backend must be able to draw: the quad
// layout and one full batch of vertices.
func (c *ApplicationConfig) BackendConfig(width, height uint32) *metadata.RendererBackendConfig {
	layout := metadata.QuadVertexLayout()
	return &metadata.RendererBackendConfig{
		ApplicationName: c.Name,
		Width:           width,
		Height:          height,
		VertexLayout:    layout,
		MaxTextureSlots: c.Renderer.MaxTextureSlots,
		MaxBatchBytes:   uint64(c.Renderer.QuadsPerBatch) * uint64(renderer.VerticesPerQuad) * uint64(layout.Stride()),
		Validation:      c.Renderer.Validation,
		VSync:           c.Renderer.VSync,
	}
}
