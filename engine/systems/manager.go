package systems

import (
	"errors"
	"runtime"

	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer"
)

type SystemManagerConfig struct {
	Renderer       *renderer.Renderer2DConfig
	ViewportWidth  uint32
	ViewportHeight uint32
	// Bitmap fonts loaded at start up.
	Fonts      []string
	JobWorkers int
}

// SystemManager owns the engine systems. They are built in dependency
// order and shut down in reverse.
type SystemManager struct {
	jobSystem     *JobSystem
	cameraSystem  *CameraSystem
	textureSystem *TextureSystem
	shaderSystem  *ShaderSystem
	renderer      *renderer.Renderer2D
	fontSystem    *FontSystem
}

func NewSystemManager(backend renderer.RendererBackend, am *assets.AssetManager, config *SystemManagerConfig) (*SystemManager, error) {
	if config == nil {
		config = &SystemManagerConfig{}
	}
	workers := config.JobWorkers
	if workers <= 0 {
		workers = max(1, runtime.NumCPU()/2)
	}

	sm := &SystemManager{}
	var err error
	fail := func(err error) (*SystemManager, error) {
		core.LogError("failed to create systems: %s", err)
		sm.Shutdown()
		return nil, err
	}

	if sm.jobSystem, err = NewJobSystem(workers, 64); err != nil {
		return fail(err)
	}
	if sm.cameraSystem, err = NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 16,
		ViewportWidth:  config.ViewportWidth,
		ViewportHeight: config.ViewportHeight,
	}); err != nil {
		return fail(err)
	}
	if sm.textureSystem, err = NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: 1024,
	}, sm.jobSystem, am, backend); err != nil {
		return fail(err)
	}
	if err := sm.textureSystem.Initialize(); err != nil {
		return fail(err)
	}
	if sm.shaderSystem, err = NewShaderSystem(&ShaderSystemConfig{
		MaxShaderCount: 32,
	}, am, backend); err != nil {
		return fail(err)
	}
	shader, err := sm.shaderSystem.Builtin()
	if err != nil {
		return fail(err)
	}
	if sm.renderer, err = renderer.NewRenderer2D(backend, shader, config.Renderer); err != nil {
		return fail(err)
	}
	if sm.fontSystem, err = NewFontSystem(&FontSystemConfig{
		MaxBitmapFontCount: 16,
		DefaultBitmapFonts: config.Fonts,
	}, sm.textureSystem, am); err != nil {
		return fail(err)
	}
	if err := sm.fontSystem.Initialize(); err != nil {
		return fail(err)
	}
	return sm, nil
}

// Update applies finished background work. Call it once a frame on the
// render thread, before BeginFrame.
func (sm *SystemManager) Update() {
	sm.textureSystem.Update()
	sm.jobSystem.Update()
}

func (sm *SystemManager) OnResize(width, height uint32) error {
	sm.cameraSystem.OnResize(width, height)
	return sm.renderer.OnResize(width, height)
}

func (sm *SystemManager) Shutdown() error {
	var errs []error
	if sm.fontSystem != nil {
		errs = append(errs, sm.fontSystem.Shutdown())
	}
	if sm.renderer != nil {
		errs = append(errs, sm.renderer.Shutdown())
	}
	if sm.shaderSystem != nil {
		errs = append(errs, sm.shaderSystem.Shutdown())
	}
	if sm.textureSystem != nil {
		errs = append(errs, sm.textureSystem.Shutdown())
	}
	if sm.cameraSystem != nil {
		errs = append(errs, sm.cameraSystem.Shutdown())
	}
	if sm.jobSystem != nil {
		errs = append(errs, sm.jobSystem.Shutdown())
	}
	return errors.Join(errs...)
}

func (sm *SystemManager) JobSystem() *JobSystem         { return sm.jobSystem }
func (sm *SystemManager) CameraSystem() *CameraSystem   { return sm.cameraSystem }
func (sm *SystemManager) TextureSystem() *TextureSystem { return sm.textureSystem }
func (sm *SystemManager) ShaderSystem() *ShaderSystem   { return sm.shaderSystem }
func (sm *SystemManager) Renderer() *renderer.Renderer2D {
	return sm.renderer
}
func (sm *SystemManager) FontSystem() *FontSystem { return sm.fontSystem }
