package renderer

import "github.com/spaghettifunk/anima2d/engine/renderer/metadata"

// TextureSlotTable maps the textures of one batch to sampler slots.
// Slot 0 holds the white texture and survives every reset.
type TextureSlotTable struct {
	slots    [MaxTextureSlots]*metadata.Texture
	count    uint32
	limit    uint32
	reserved uint32
}

// NewTextureSlotTable returns a table with white in slot 0 and room for
// limit textures in total.
func NewTextureSlotTable(white *metadata.Texture, limit uint32) (*TextureSlotTable, error) {
	if limit < 2 || limit > MaxTextureSlots {
		return nil, ErrInvalidTextureSlots
	}
	t := &TextureSlotTable{
		limit:    limit,
		reserved: 1,
	}
	t.slots[0] = white
	t.Reset()
	return t, nil
}

// Resolve returns the slot of texture, appending it if needed. A nil
// texture resolves to the white slot. ok is false when the texture is new
// and the table is full; the table is left untouched in that case.
func (t *TextureSlotTable) Resolve(texture *metadata.Texture) (slot uint32, ok bool) {
	if texture == nil {
		return 0, true
	}
	for i := uint32(0); i < t.count; i++ {
		if t.slots[i] == texture {
			return i, true
		}
	}
	if t.count == t.limit {
		return 0, false
	}
	slot = t.count
	t.slots[slot] = texture
	t.count++
	return slot, true
}

// Reset drops every texture but the reserved ones.
func (t *TextureSlotTable) Reset() {
	for i := t.reserved; i < t.count; i++ {
		t.slots[i] = nil
	}
	t.count = t.reserved
}

func (t *TextureSlotTable) Count() uint32 {
	return t.count
}

func (t *TextureSlotTable) Reserved() uint32 {
	return t.reserved
}

func (t *TextureSlotTable) Limit() uint32 {
	return t.limit
}

func (t *TextureSlotTable) IsFull() bool {
	return t.count == t.limit
}

// At returns the texture bound to slot i, or nil past Count.
func (t *TextureSlotTable) At(i uint32) *metadata.Texture {
	if i >= t.count {
		return nil
	}
	return t.slots[i]
}
