package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima2d/engine/core"
)

func TestLayerStackOrder(t *testing.T) {
	ls := NewLayerStack()
	for _, push := range []struct {
		name    string
		overlay bool
	}{
		{"background", false},
		{"hud", true},
		{"world", false},
		{"console", true},
	} {
		var err error
		if push.overlay {
			err = ls.PushOverlay(&Layer{Name: push.name})
		} else {
			err = ls.PushLayer(&Layer{Name: push.name})
		}
		if err != nil {
			t.Fatalf("push %s: %v", push.name, err)
		}
	}
	expected := []string{"background", "world", "hud", "console"}
	names := ls.Names()
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], names[i])
		}
	}
}

func TestLayerStackPushAndPop(t *testing.T) {
	ls := NewLayerStack()
	attached, detached := 0, 0
	world := &Layer{
		Name:     "world",
		OnAttach: func() error { attached++; return nil },
		OnDetach: func() error { detached++; return nil },
	}
	if err := ls.PushLayer(world); err != nil {
		t.Fatal(err)
	}
	if world.ID == uuid.Nil {
		t.Error("expected the layer to get an id")
	}
	if err := ls.PushOverlay(&Layer{Name: "world"}); !errors.Is(err, ErrLayerExists) {
		t.Errorf("expected ErrLayerExists, got %v", err)
	}
	if err := ls.PushLayer(&Layer{}); err == nil {
		t.Error("expected an error for an unnamed layer")
	}
	if _, ok := ls.Get("world"); !ok {
		t.Error("expected to find the world layer")
	}
	if err := ls.Pop("world"); err != nil {
		t.Fatal(err)
	}
	if err := ls.Pop("world"); !errors.Is(err, ErrLayerNotFound) {
		t.Errorf("expected ErrLayerNotFound, got %v", err)
	}
	if attached != 1 || detached != 1 {
		t.Errorf("expected 1 attach and 1 detach, got %d and %d", attached, detached)
	}

	// Popping a layer keeps overlays above the remaining layers.
	ls.PushLayer(&Layer{Name: "a"})
	ls.PushOverlay(&Layer{Name: "hud"})
	ls.Pop("a")
	ls.PushLayer(&Layer{Name: "b"})
	if names := ls.Names(); names[0] != "b" || names[1] != "hud" {
		t.Errorf("expected [b hud], got %v", names)
	}
}

func TestLayerStackAttachError(t *testing.T) {
	ls := NewLayerStack()
	err := ls.PushLayer(&Layer{Name: "broken", OnAttach: func() error { return errors.New("no") }})
	if err == nil {
		t.Fatal("expected the attach error")
	}
	if ls.Len() != 0 {
		t.Errorf("expected no layers, got %d", ls.Len())
	}
}

func TestLayerStackEventsReachOverlaysFirst(t *testing.T) {
	ls := NewLayerStack()
	var seen []string
	handler := func(name string, handled bool) func(core.SystemEventCode, interface{}) bool {
		return func(core.SystemEventCode, interface{}) bool {
			seen = append(seen, name)
			return handled
		}
	}
	ls.PushLayer(&Layer{Name: "world", OnEvent: handler("world", false)})
	ls.PushOverlay(&Layer{Name: "hud", OnEvent: handler("hud", false)})
	ls.PushOverlay(&Layer{Name: "console", OnEvent: handler("console", true)})

	if !ls.OnEvent(core.EVENT_CODE_KEY_PRESSED, &core.KeyEvent{KeyCode: core.KEY_A}) {
		t.Error("expected the event to be handled")
	}
	if len(seen) != 1 || seen[0] != "console" {
		t.Errorf("expected only console to see the event, got %v", seen)
	}

	ls.Pop("console")
	seen = nil
	if ls.OnEvent(core.EVENT_CODE_KEY_PRESSED, &core.KeyEvent{KeyCode: core.KEY_A}) {
		t.Error("expected the event to be unhandled")
	}
	if len(seen) != 2 || seen[0] != "hud" || seen[1] != "world" {
		t.Errorf("expected [hud world], got %v", seen)
	}
}

func TestLayerStackClearJoinsErrors(t *testing.T) {
	ls := NewLayerStack()
	first := errors.New("first")
	ls.PushLayer(&Layer{Name: "a", OnDetach: func() error { return first }})
	ls.PushLayer(&Layer{Name: "b"})
	if err := ls.Clear(); !errors.Is(err, first) {
		t.Errorf("expected the detach error, got %v", err)
	}
	if ls.Len() != 0 {
		t.Errorf("expected an empty stack, got %d", ls.Len())
	}
}

func TestLayerStackByID(t *testing.T) {
	ls := NewLayerStack()
	first := &Layer{Name: "world"}
	if err := ls.PushLayer(first); err != nil {
		t.Fatal(err)
	}
	id := first.ID
	if layer, ok := ls.GetID(id); !ok || layer != first {
		t.Errorf("expected to find the world layer by id, got %v", layer)
	}
	if err := ls.PopID(id); err != nil {
		t.Fatal(err)
	}

	// A layer pushed again under the same name gets a fresh id.
	second := &Layer{Name: "world"}
	if err := ls.PushLayer(second); err != nil {
		t.Fatal(err)
	}
	if second.ID == id {
		t.Error("expected a new id for the second push")
	}
	if _, ok := ls.GetID(id); ok {
		t.Error("expected the stale id to be gone")
	}
	if err := ls.PopID(id); !errors.Is(err, ErrLayerNotFound) {
		t.Errorf("expected ErrLayerNotFound, got %v", err)
	}
	if ls.Len() != 1 {
		t.Errorf("expected the second layer to remain, got %d layers", ls.Len())
	}
}
