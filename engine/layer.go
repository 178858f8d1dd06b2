package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer"
)

var (
	ErrLayerExists   = errors.New("layer already pushed")
	ErrLayerNotFound = errors.New("layer not found")
)

// Layer is a named set of callbacks. Every callback is optional.
type Layer struct {
	// ID is assigned when the layer is pushed. It stays valid when another
	// layer with the same name is pushed after this one is popped.
	ID   uuid.UUID
	Name string

	OnAttach func() error
	OnDetach func() error
	OnUpdate func(deltaTime float64) error
	OnRender func(r *renderer.Renderer2D) error
	// OnEvent returns true when the event was handled.
	OnEvent func(code core.SystemEventCode, data interface{}) bool
}

// LayerStack updates and renders layers in push order, overlays always
// after layers. Events travel the other way, overlays first.
type LayerStack struct {
	layers       []*Layer
	overlayStart int
}

func NewLayerStack() *LayerStack {
	return &LayerStack{}
}

func (ls *LayerStack) PushLayer(layer *Layer) error {
	if err := ls.attach(layer); err != nil {
		return err
	}
	ls.layers = append(ls.layers, nil)
	copy(ls.layers[ls.overlayStart+1:], ls.layers[ls.overlayStart:])
	ls.layers[ls.overlayStart] = layer
	ls.overlayStart++
	return nil
}

func (ls *LayerStack) PushOverlay(layer *Layer) error {
	if err := ls.attach(layer); err != nil {
		return err
	}
	ls.layers = append(ls.layers, layer)
	return nil
}

func (ls *LayerStack) attach(layer *Layer) error {
	if layer == nil || layer.Name == "" {
		return fmt.Errorf("layer must have a name")
	}
	if _, i := ls.find(layer.Name); i >= 0 {
		return fmt.Errorf("%w: %s", ErrLayerExists, layer.Name)
	}
	layer.ID = uuid.New()
	if layer.OnAttach != nil {
		if err := layer.OnAttach(); err != nil {
			return fmt.Errorf("layer %s: %w", layer.Name, err)
		}
	}
	core.LogDebug("layer %s attached (%s)", layer.Name, layer.ID)
	return nil
}

// Pop detaches the named layer or overlay.
func (ls *LayerStack) Pop(name string) error {
	_, i := ls.find(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	return ls.remove(i)
}

// PopID detaches the layer or overlay that got id when it was pushed.
func (ls *LayerStack) PopID(id uuid.UUID) error {
	_, i := ls.findID(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	return ls.remove(i)
}

func (ls *LayerStack) remove(i int) error {
	layer := ls.layers[i]
	ls.layers = append(ls.layers[:i], ls.layers[i+1:]...)
	if i < ls.overlayStart {
		ls.overlayStart--
	}
	if layer.OnDetach != nil {
		if err := layer.OnDetach(); err != nil {
			return fmt.Errorf("layer %s: %w", layer.Name, err)
		}
	}
	return nil
}

func (ls *LayerStack) Get(name string) (*Layer, bool) {
	layer, i := ls.find(name)
	return layer, i >= 0
}

func (ls *LayerStack) GetID(id uuid.UUID) (*Layer, bool) {
	layer, i := ls.findID(id)
	return layer, i >= 0
}

func (ls *LayerStack) findID(id uuid.UUID) (*Layer, int) {
	for i, l := range ls.layers {
		if l.ID == id {
			return l, i
		}
	}
	return nil, -1
}

func (ls *LayerStack) find(name string) (*Layer, int) {
	for i, l := range ls.layers {
		if l.Name == name {
			return l, i
		}
	}
	return nil, -1
}

func (ls *LayerStack) Len() int {
	return len(ls.layers)
}

// Names lists the layers in render order.
func (ls *LayerStack) Names() []string {
	names := make([]string, len(ls.layers))
	for i, l := range ls.layers {
		names[i] = l.Name
	}
	return names
}

func (ls *LayerStack) Update(deltaTime float64) error {
	for _, l := range ls.layers {
		if l.OnUpdate == nil {
			continue
		}
		if err := l.OnUpdate(deltaTime); err != nil {
			return fmt.Errorf("layer %s: %w", l.Name, err)
		}
	}
	return nil
}

func (ls *LayerStack) Render(r *renderer.Renderer2D) error {
	for _, l := range ls.layers {
		if l.OnRender == nil {
			continue
		}
		if err := l.OnRender(r); err != nil {
			return fmt.Errorf("layer %s: %w", l.Name, err)
		}
	}
	return nil
}

func (ls *LayerStack) OnEvent(code core.SystemEventCode, data interface{}) bool {
	for i := len(ls.layers) - 1; i >= 0; i-- {
		if l := ls.layers[i]; l.OnEvent != nil && l.OnEvent(code, data) {
			return true
		}
	}
	return false
}

// Clear detaches every layer, last pushed first.
func (ls *LayerStack) Clear() error {
	var errs []error
	for i := len(ls.layers) - 1; i >= 0; i-- {
		if l := ls.layers[i]; l.OnDetach != nil {
			if err := l.OnDetach(); err != nil {
				errs = append(errs, fmt.Errorf("layer %s: %w", l.Name, err))
			}
		}
	}
	ls.layers = nil
	ls.overlayStart = 0
	return errors.Join(errs...)
}
