package engine

import (
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/systems"
)

// Game is the application driven by the engine. The hooks are optional;
// SystemManager is set before FnInitialize runs.
type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	Layers            *LayerStack
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(r *renderer.Renderer2D, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
