package core

import (
	"errors"
	"testing"
)

func TestEventSystemFireStopsWhenHandled(t *testing.T) {
	es := NewEventSystem()
	var calls []string

	es.Register(EVENT_CODE_RESIZED, "first", func(sender, listener interface{}, ctx EventContext) bool {
		calls = append(calls, listener.(string))
		return true
	})
	es.Register(EVENT_CODE_RESIZED, "second", func(sender, listener interface{}, ctx EventContext) bool {
		calls = append(calls, listener.(string))
		return false
	})

	if !es.Fire(nil, EventContext{Type: EVENT_CODE_RESIZED, Data: &ResizeEvent{Width: 1, Height: 1}}) {
		t.Fatal("expected event to be handled")
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Errorf("expected only the first listener to run, got %v", calls)
	}
}

func TestEventSystemRejectsDuplicateListener(t *testing.T) {
	es := NewEventSystem()
	cb := func(sender, listener interface{}, ctx EventContext) bool { return false }
	if !es.Register(EVENT_CODE_APPLICATION_QUIT, "l", cb) {
		t.Fatal("expected first registration to succeed")
	}
	if es.Register(EVENT_CODE_APPLICATION_QUIT, "l", cb) {
		t.Error("expected duplicate registration to fail")
	}
	if !es.Unregister(EVENT_CODE_APPLICATION_QUIT, "l") {
		t.Error("expected unregister to succeed")
	}
	if es.Fire(nil, EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
		t.Error("expected no listener after unregister")
	}
}

func TestInputFiresOnlyOnTransitions(t *testing.T) {
	es := NewEventSystem()
	pressed := 0
	es.Register(EVENT_CODE_KEY_PRESSED, nil, func(sender, listener interface{}, ctx EventContext) bool {
		if ke := ctx.Data.(*KeyEvent); ke.KeyCode != KEY_SPACE {
			t.Errorf("expected KEY_SPACE, got %d", ke.KeyCode)
		}
		pressed++
		return false
	})

	in := NewInput(es)
	in.ProcessKey(KEY_SPACE, true)
	in.ProcessKey(KEY_SPACE, true)
	if pressed != 1 {
		t.Errorf("expected 1 press event, got %d", pressed)
	}
	if !in.IsKeyDown(KEY_SPACE) || in.WasKeyDown(KEY_SPACE) {
		t.Error("expected key down now but not in the previous frame")
	}
	in.Update()
	if !in.WasKeyDown(KEY_SPACE) {
		t.Error("expected previous state to follow after Update")
	}
}

func TestFrameMetricsAverage(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < AVG_COUNT*2; i++ {
		m.Update(0.010)
	}
	if got := m.FrameTime(); got < 9.999 || got > 10.001 {
		t.Errorf("expected ~10ms average, got %v", got)
	}
	// 60 frames of 10ms is 600ms: not a full second yet.
	if m.FPS() != 0 {
		t.Errorf("expected FPS 0 before a full second elapsed, got %v", m.FPS())
	}
	for i := 0; i < 40; i++ {
		m.Update(0.010)
	}
	if m.FPS() != 100 {
		t.Errorf("expected 100 FPS, got %v", m.FPS())
	}
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel(" WARN ")
	if err != nil || lvl != LogLevelWarn {
		t.Errorf("expected warn, got %q (%v)", lvl, err)
	}
	if _, err := ParseLogLevel("verbose"); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}
}
