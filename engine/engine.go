package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/platform"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/components"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
	"github.com/spaghettifunk/anima2d/engine/renderer/opengl"
	"github.com/spaghettifunk/anima2d/engine/renderer/software"
	"github.com/spaghettifunk/anima2d/engine/renderer/views"
	"github.com/spaghettifunk/anima2d/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima2d/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageBooting:
		return "booting"
	case EngineStageBootComplete:
		return "boot complete"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	}
	return "unknown"
}

var ErrWrongStage = errors.New("engine is in the wrong stage")

// FrameObserver is called after every rendered frame.
type FrameObserver func(frame uint64, stats metadata.RendererStatistics)

type Option func(e *Engine)

// WithBackend replaces the backend selected by the configuration.
func WithBackend(backend renderer.RendererBackend) Option {
	return func(e *Engine) { e.backend = backend }
}

// WithHeadless runs without a window and stops after the given number of
// frames, zero meaning until the context is done. Without WithBackend the
// software backend is used.
func WithHeadless(frames uint64) Option {
	return func(e *Engine) {
		e.headless = true
		e.frameLimit = frames
	}
}

func WithFrameObserver(fn FrameObserver) Option {
	return func(e *Engine) { e.observer = fn }
}

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     atomic.Bool
	isSuspended   bool
	headless      bool
	frameLimit    uint64
	frameCount    uint64
	platform      *platform.Platform
	events        *core.EventSystem
	input         *core.Input
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	backend       renderer.RendererBackend
	camera        *components.Camera2D
	metrics       *core.FrameMetrics
	overlay       *views.StatsOverlay
	observer      FrameObserver
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
}

func New(g *Game, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("engine: nil game")
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if g.Layers == nil {
		g.Layers = NewLayerStack()
	}
	events := core.NewEventSystem()
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		events:       events,
		input:        core.NewInput(events),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.headless && e.backend == nil {
		e.backend = software.New()
	}
	e.overlay = views.NewStatsOverlay(e.metrics)
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return fmt.Errorf("%w: initialize while %s", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig
	if err := config.Validate(); err != nil {
		return err
	}
	level, err := core.ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	backendType, err := config.BackendType()
	if err != nil {
		return err
	}
	if !e.headless {
		e.platform = platform.New(e.events, e.input)
		if err := e.platform.Startup(&platform.WindowConfig{
			Name:    config.Name,
			X:       config.StartPosX,
			Y:       config.StartPosY,
			Width:   config.StartWidth,
			Height:  config.StartHeight,
			Backend: backendType,
			VSync:   config.Renderer.VSync,
		}); err != nil {
			return err
		}
		if w, h := e.platform.FramebufferSize(); w > 0 && h > 0 {
			e.width, e.height = w, h
		}
	}
	if e.backend == nil {
		if e.backend, err = e.createBackend(backendType); err != nil {
			return err
		}
	}

	if config.AssetsDir != "" {
		if e.assetManager, err = assets.NewAssetManager(); err != nil {
			return err
		}
		if err := e.assetManager.Initialize(config.AssetsDir); err != nil {
			return fmt.Errorf("assets %s: %w", config.AssetsDir, err)
		}
	}

	if err := e.backend.Initialize(config.BackendConfig(e.width, e.height)); err != nil {
		return fmt.Errorf("%s backend: %w", e.backend.BackendType(), err)
	}

	e.systemManager, err = systems.NewSystemManager(e.backend, e.assetManager, &systems.SystemManagerConfig{
		Renderer:       config.Renderer2DConfig(),
		ViewportWidth:  e.width,
		ViewportHeight: e.height,
		Fonts:          config.Fonts,
	})
	if err != nil {
		return err
	}
	e.camera = e.systemManager.CameraSystem().GetDefault()

	e.overlay.Text = e.systemManager.FontSystem()
	if len(config.Fonts) > 0 {
		if font, err := e.systemManager.FontSystem().Get(config.Fonts[0]); err == nil {
			e.overlay.Font = font
		}
	}

	e.gameInstance.SystemManager = e.systemManager
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s backend at %dx%d", e.backend.BackendType(), e.width, e.height)
	return nil
}

func (e *Engine) createBackend(backendType metadata.RendererBackendType) (renderer.RendererBackend, error) {
	switch backendType {
	case metadata.RendererBackendTypeVulkan:
		return vulkan.New(e.platform), nil
	case metadata.RendererBackendTypeOpenGL:
		return opengl.New(e.platform.SwapBuffers), nil
	case metadata.RendererBackendTypeSoftware:
		return nil, fmt.Errorf("the software backend only runs headless")
	}
	return nil, fmt.Errorf("unknown renderer backend %q", backendType)
}

// Run drives frames until the window closes, a quit event arrives, the
// context is done or, headless, the frame limit is reached.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: run while %s", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("context done, shutting down.")
			e.isRunning.Store(false)
			continue
		default:
		}

		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			continue
		}
		if e.isSuspended {
			// Nothing to draw into, give the time back to the OS.
			time.Sleep(16 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if err := e.frame(delta); err != nil {
			core.LogError("frame %d failed: %s", e.frameCount, err)
			e.isRunning.Store(false)
			return err
		}

		e.metrics.Update(time.Since(frameStart).Seconds())
		// Input state is copied after everything had a chance to read it.
		e.input.Update()
		e.lastTime = currentTime

		if e.frameLimit > 0 && e.frameCount >= e.frameLimit {
			e.isRunning.Store(false)
		}
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	game := e.gameInstance
	e.systemManager.Update()

	if game.FnUpdate != nil {
		if err := game.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}
	if err := game.Layers.Update(delta); err != nil {
		return err
	}

	r := e.systemManager.Renderer()
	if err := r.BeginFrame(e.camera.ViewProjection()); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		return err
	}

	renderErr := e.render(r, delta)
	if err := r.EndFrame(); err != nil {
		return errors.Join(renderErr, err)
	}
	if renderErr != nil {
		return renderErr
	}

	e.frameCount++
	e.overlay.Capture(r.Stats(), r.QuadsPerBatch())
	if e.observer != nil {
		e.observer(e.frameCount, r.Stats())
	}
	return nil
}

func (e *Engine) render(r *renderer.Renderer2D, delta float64) error {
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(r, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}
	if err := e.gameInstance.Layers.Render(r); err != nil {
		return err
	}
	return e.overlay.Render(r, e.camera.ScreenProjection())
}

// Quit stops the loop after the current frame. Safe to call from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gameInstance.Layers != nil {
		errs = append(errs, e.gameInstance.Layers.Clear())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.backend != nil {
		errs = append(errs, e.backend.Shutdown())
	}
	if e.assetManager != nil {
		errs = append(errs, e.assetManager.Shutdown())
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}
	errs = append(errs, e.events.Shutdown())
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage                       { return e.currentStage }
func (e *Engine) FrameCount() uint64                 { return e.frameCount }
func (e *Engine) Backend() renderer.RendererBackend  { return e.backend }
func (e *Engine) Systems() *systems.SystemManager    { return e.systemManager }
func (e *Engine) Camera() *components.Camera2D       { return e.camera }
func (e *Engine) Input() *core.Input                 { return e.input }
func (e *Engine) Events() *core.EventSystem          { return e.events }
func (e *Engine) Metrics() *core.FrameMetrics        { return e.metrics }
func (e *Engine) Overlay() *views.StatsOverlay       { return e.overlay }
func (e *Engine) IsSuspended() bool                  { return e.isSuspended }
func (e *Engine) Renderer() *renderer.Renderer2D     { return e.systemManager.Renderer() }
func (e *Engine) Layers() *LayerStack                { return e.gameInstance.Layers }
func (e *Engine) Game() *Game                        { return e.gameInstance }
func (e *Engine) AssetManager() *assets.AssetManager { return e.assetManager }
func (e *Engine) Platform() *platform.Platform       { return e.platform }

func (e *Engine) onEvent(sender, listener interface{}, context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(sender, listener interface{}, context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if e.gameInstance.Layers.OnEvent(context.Type, ke) {
		return true
	}
	if context.Type != core.EVENT_CODE_KEY_PRESSED {
		return false
	}
	switch ke.KeyCode {
	case core.KEY_ESCAPE:
		// Firing an event to itself, other listeners may care too.
		e.events.Fire(e, core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	case core.KEY_F1:
		e.overlay.Visible = !e.overlay.Visible
		return true
	}
	return false
}

func (e *Engine) onResized(sender, listener interface{}, context core.EventContext) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := re.Width, re.Height
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize: %s", err)
		}
	}
	if e.systemManager != nil {
		if err := e.systemManager.OnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	e.gameInstance.Layers.OnEvent(context.Type, re)
	return true
}
