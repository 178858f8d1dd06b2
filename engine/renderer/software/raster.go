package software

import (
	"image"
	stdmath "math"

	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

type screenVertex struct {
	x, y   float32
	vertex metadata.QuadVertex
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// isTopLeft reports whether a->b is a top or left edge of a triangle with
// positive area in y-down screen space. Pixels on such edges are owned by
// the triangle so shared edges are drawn exactly once.
func isTopLeft(ax, ay, bx, by float32) bool {
	dy := by - ay
	return (dy == 0 && bx > ax) || dy < 0
}

func (b *Backend) project(viewProjection math.Mat4, v metadata.QuadVertex) screenVertex {
	clip := v.Position.ToVec4(1).Transform(viewProjection)
	if clip.W != 0 && clip.W != 1 {
		clip.X /= clip.W
		clip.Y /= clip.W
	}
	width := float32(b.config.Width)
	height := float32(b.config.Height)
	return screenVertex{
		x:      (clip.X + 1) * 0.5 * width,
		y:      (1 - clip.Y) * 0.5 * height,
		vertex: v,
	}
}

func (b *Backend) rasterizeTriangle(viewProjection math.Mat4, v0, v1, v2 metadata.QuadVertex) {
	p0 := b.project(viewProjection, v0)
	p1 := b.project(viewProjection, v1)
	p2 := b.project(viewProjection, v2)

	area := edge(p0.x, p0.y, p1.x, p1.y, p2.x, p2.y)
	if area == 0 {
		return
	}
	if area < 0 {
		p1, p2 = p2, p1
		area = -area
	}

	bounds := b.framebuffer.Bounds()
	minX := clampInt(int(floor32(min3(p0.x, p1.x, p2.x))), bounds.Min.X, bounds.Max.X)
	maxX := clampInt(int(ceil32(max3(p0.x, p1.x, p2.x))), bounds.Min.X, bounds.Max.X)
	minY := clampInt(int(floor32(min3(p0.y, p1.y, p2.y))), bounds.Min.Y, bounds.Max.Y)
	maxY := clampInt(int(ceil32(max3(p0.y, p1.y, p2.y))), bounds.Min.Y, bounds.Max.Y)

	topLeft0 := isTopLeft(p1.x, p1.y, p2.x, p2.y)
	topLeft1 := isTopLeft(p2.x, p2.y, p0.x, p0.y)
	topLeft2 := isTopLeft(p0.x, p0.y, p1.x, p1.y)

	// Texture slot is flat across the triangle.
	texture := b.textureForSlot(p0.vertex.TexIndex)

	for y := minY; y < maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(p1.x, p1.y, p2.x, p2.y, px, py)
			w1 := edge(p2.x, p2.y, p0.x, p0.y, px, py)
			w2 := edge(p0.x, p0.y, p1.x, p1.y, px, py)
			if !covers(w0, topLeft0) || !covers(w1, topLeft1) || !covers(w2, topLeft2) {
				continue
			}
			w0 /= area
			w1 /= area
			w2 /= area

			colour := interpolate4(p0.vertex.Color, p1.vertex.Color, p2.vertex.Color, w0, w1, w2)
			if texture != nil {
				u := p0.vertex.TexCoord.X*w0 + p1.vertex.TexCoord.X*w1 + p2.vertex.TexCoord.X*w2
				v := p0.vertex.TexCoord.Y*w0 + p1.vertex.TexCoord.Y*w1 + p2.vertex.TexCoord.Y*w2
				tiling := p0.vertex.TilingFactor*w0 + p1.vertex.TilingFactor*w1 + p2.vertex.TilingFactor*w2
				colour = colour.Mul(sample(texture, u*tiling, v*tiling))
			}
			b.blend(x, y, colour)
		}
	}
}

func covers(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

func (b *Backend) textureForSlot(index float32) *image.RGBA {
	slot := int(index + 0.5)
	if slot < 0 || slot >= len(b.bound) || b.bound[slot] == nil {
		return nil
	}
	img, _ := b.bound[slot].InternalData.(*image.RGBA)
	return img
}

// sample is a nearest-neighbour lookup with repeat wrapping.
func sample(img *image.RGBA, u, v float32) math.Vec4 {
	u = u - floor32(u)
	v = v - floor32(v)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tx := clampInt(int(u*float32(w)), 0, w-1)
	ty := clampInt(int(v*float32(h)), 0, h-1)
	i := img.PixOffset(bounds.Min.X+tx, bounds.Min.Y+ty)
	p := img.Pix[i : i+4]
	return math.NewVec4(float32(p[0])/255, float32(p[1])/255, float32(p[2])/255, float32(p[3])/255)
}

// blend composites colour over the framebuffer pixel (source-over).
func (b *Backend) blend(x, y int, colour math.Vec4) {
	i := b.framebuffer.PixOffset(x, y)
	dst := b.framebuffer.Pix[i : i+4]
	a := math.Clamp(colour.W, 0, 1)
	inv := 1 - a
	dst[0] = toByte(colour.X*a + float32(dst[0])/255*inv)
	dst[1] = toByte(colour.Y*a + float32(dst[1])/255*inv)
	dst[2] = toByte(colour.Z*a + float32(dst[2])/255*inv)
	dst[3] = toByte(a + float32(dst[3])/255*inv)
}

func interpolate4(a, b, c math.Vec4, w0, w1, w2 float32) math.Vec4 {
	return math.NewVec4(
		a.X*w0+b.X*w1+c.X*w2,
		a.Y*w0+b.Y*w1+c.Y*w2,
		a.Z*w0+b.Z*w1+c.Z*w2,
		a.W*w0+b.W*w1+c.W*w2,
	)
}

func floor32(v float32) float32 {
	return float32(stdmath.Floor(float64(v)))
}

func ceil32(v float32) float32 {
	return float32(stdmath.Ceil(float64(v)))
}

func min3(a, b, c float32) float32 {
	return min(a, min(b, c))
}

func max3(a, b, c float32) float32 {
	return max(a, max(b, c))
}

func clampInt(v, low, high int) int {
	return math.Clamp(v, low, high)
}
