package renderer

import (
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

func (r *Renderer2D) DrawQuad(position math.Vec3, size math.Vec2, colour math.Vec4) error {
	quad := metadata.NewQuad(position, size)
	quad.Color = colour
	return r.SubmitQuad(quad)
}

func (r *Renderer2D) DrawRotatedQuad(position math.Vec3, size math.Vec2, rotationDegrees float32, colour math.Vec4) error {
	quad := metadata.NewQuad(position, size)
	quad.Color = colour
	quad.Rotation = rotationDegrees
	return r.SubmitQuad(quad)
}

func (r *Renderer2D) DrawTexturedQuad(position math.Vec3, size math.Vec2, texture *metadata.Texture, tilingFactor float32, tint math.Vec4) error {
	quad := metadata.NewQuad(position, size)
	quad.Texture = texture
	quad.TilingFactor = tilingFactor
	quad.Color = tint
	return r.SubmitQuad(quad)
}

func (r *Renderer2D) DrawRotatedTexturedQuad(position math.Vec3, size math.Vec2, rotationDegrees float32, texture *metadata.Texture, tilingFactor float32, tint math.Vec4) error {
	quad := metadata.NewQuad(position, size)
	quad.Texture = texture
	quad.TilingFactor = tilingFactor
	quad.Color = tint
	quad.Rotation = rotationDegrees
	return r.SubmitQuad(quad)
}

// DrawSubTexture draws one region of a sprite sheet.
func (r *Renderer2D) DrawSubTexture(position math.Vec3, size math.Vec2, sub *metadata.SubTexture, tint math.Vec4) error {
	quad := metadata.NewQuad(position, size)
	quad.Color = tint
	if sub != nil {
		quad.Texture = sub.Texture
		texCoords := sub.TexCoords
		quad.TexCoords = &texCoords
	}
	return r.SubmitQuad(quad)
}
