package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

func TestTextureSlotTableResolve(t *testing.T) {
	white := &metadata.Texture{Name: metadata.WHITE_TEXTURE_NAME}
	table, err := NewTextureSlotTable(white, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := &metadata.Texture{Name: "a"}
	b := &metadata.Texture{Name: "b"}
	c := &metadata.Texture{Name: "c"}

	tests := []struct {
		name    string
		texture *metadata.Texture
		slot    uint32
		ok      bool
	}{
		{"nil is white", nil, 0, true},
		{"white itself", white, 0, true},
		{"first texture", a, 1, true},
		{"same texture", a, 1, true},
		{"second texture", b, 2, true},
		{"table full", c, 0, false},
		{"known texture on a full table", b, 2, true},
	}
	for _, tt := range tests {
		slot, ok := table.Resolve(tt.texture)
		if slot != tt.slot || ok != tt.ok {
			t.Errorf("%s: expected (%d, %v), got (%d, %v)", tt.name, tt.slot, tt.ok, slot, ok)
		}
	}
	if table.Count() != 3 || !table.IsFull() {
		t.Errorf("expected a full table of 3, got %d", table.Count())
	}
}

func TestTextureSlotTableResetKeepsWhite(t *testing.T) {
	white := &metadata.Texture{Name: metadata.WHITE_TEXTURE_NAME}
	table, _ := NewTextureSlotTable(white, MaxTextureSlots)
	table.Resolve(&metadata.Texture{Name: "a"})
	table.Reset()

	if table.Count() != table.Reserved() {
		t.Errorf("expected %d textures after reset, got %d", table.Reserved(), table.Count())
	}
	if table.At(0) != white {
		t.Error("expected slot 0 to hold the white texture")
	}
	if table.At(1) != nil {
		t.Error("expected slot 1 to be empty")
	}
}

func TestTextureSlotTableLimits(t *testing.T) {
	for _, limit := range []uint32{0, 1, MaxTextureSlots + 1} {
		if _, err := NewTextureSlotTable(&metadata.Texture{}, limit); !errors.Is(err, ErrInvalidTextureSlots) {
			t.Errorf("limit %d: expected ErrInvalidTextureSlots, got %v", limit, err)
		}
	}
}
