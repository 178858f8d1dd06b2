package metadata

import (
	"unsafe"

	"github.com/spaghettifunk/anima2d/engine/math"
)

/**
 * @brief One GPU vertex of a batched quad. The field order and sizes must
 * match QuadVertexLayout exactly.
 */
type QuadVertex struct {
	/** @brief World position of the corner. */
	Position math.Vec3
	/** @brief Tint colour in the 0-1 range. */
	Color math.Vec4
	/** @brief Texture coordinate in UV space. */
	TexCoord math.Vec2
	/** @brief Texture slot, stored as a float so the shader can read it as an attribute. */
	TexIndex float32
	/** @brief UV repeat multiplier. */
	TilingFactor float32
}

/** @brief Size in bytes of a QuadVertex. */
const QuadVertexSize = uint32(unsafe.Sizeof(QuadVertex{}))

/** @brief The layout consumed by the built-in quad shader. */
func QuadVertexLayout() *VertexLayout {
	return NewVertexLayout(
		VertexAttribute{Type: ShaderDataTypeFloat3, Name: "a_Position"},
		VertexAttribute{Type: ShaderDataTypeFloat4, Name: "a_Color"},
		VertexAttribute{Type: ShaderDataTypeFloat2, Name: "a_TexCoord"},
		VertexAttribute{Type: ShaderDataTypeFloat, Name: "a_TexIndex"},
		VertexAttribute{Type: ShaderDataTypeFloat, Name: "a_TilingFactor"},
	)
}

/** @brief Texture coordinates of the whole texture, TL, TR, BR, BL. */
func DefaultTexCoords() [4]math.Vec2 {
	return [4]math.Vec2{
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 1, Y: 1},
		{X: 0, Y: 1},
	}
}

/**
 * @brief A request to draw one rectangle. The zero value is not useful;
 * start from NewQuad to get the defaults.
 */
type Quad struct {
	/** @brief Texture to sample. Nil means the renderer's opaque white texture. */
	Texture *Texture
	/** @brief Where the quad's pivot (its first corner) is placed. */
	Position math.Vec3
	/** @brief Width and height. */
	Size math.Vec2
	/** @brief Tint colour, opaque white by default. */
	Color math.Vec4
	/** @brief Rotation around Z in degrees. */
	Rotation float32
	/** @brief UV repeat multiplier. Zero is read as 1, so a literal Quad samples the texture once. */
	TilingFactor float32
	/** @brief Optional per-corner texture coordinates, TL, TR, BR, BL. Nil means the full texture. */
	TexCoords *[4]math.Vec2
}

/** @brief Returns an untextured white unit quad at position. */
func NewQuad(position math.Vec3, size math.Vec2) *Quad {
	return &Quad{
		Position:     position,
		Size:         size,
		Color:        math.NewVec4One(),
		TilingFactor: 1.0,
	}
}

/**
 * @brief A rectangular region of a texture, typically one cell of a sprite
 * sheet. Coordinates are stored in the same TL, TR, BR, BL order as quads.
 */
type SubTexture struct {
	Texture   *Texture
	TexCoords [4]math.Vec2
}

/** @brief Creates a sub texture from normalized min/max UVs. */
func NewSubTexture(texture *Texture, min, max math.Vec2) *SubTexture {
	return &SubTexture{
		Texture: texture,
		TexCoords: [4]math.Vec2{
			{X: min.X, Y: min.Y},
			{X: max.X, Y: min.Y},
			{X: max.X, Y: max.Y},
			{X: min.X, Y: max.Y},
		},
	}
}

/**
 * @brief Creates a sub texture from a grid cell of a sprite sheet.
 *
 * @param coords The cell column and row.
 * @param cellSize The size of one cell in pixels.
 * @param spriteSize How many cells the sprite spans, (1, 1) for a single cell.
 */
func NewSubTextureFromCoords(texture *Texture, coords, cellSize, spriteSize math.Vec2) *SubTexture {
	w := float32(texture.Width)
	h := float32(texture.Height)
	min := math.NewVec2(coords.X*cellSize.X/w, coords.Y*cellSize.Y/h)
	max := math.NewVec2((coords.X+spriteSize.X)*cellSize.X/w, (coords.Y+spriteSize.Y)*cellSize.Y/h)
	return NewSubTexture(texture, min, max)
}
