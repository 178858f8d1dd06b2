package opengl

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrNoContext      = errors.New("opengl: no current context")
	ErrInvalidBuffer  = errors.New("opengl: invalid render buffer")
	ErrInvalidTexture = errors.New("opengl: invalid texture")
	ErrInvalidShader  = errors.New("opengl: invalid shader")
	ErrBufferOverflow = errors.New("opengl: write past the end of a buffer")
)

const maxTextureSlots = 16

type glBuffer struct {
	handle uint32
	target uint32
}

type glTexture struct {
	handle uint32
}

// Backend renders through an OpenGL 4.1 core context. The context must be
// current on the calling thread; SwapBuffers presents the back buffer.
type Backend struct {
	config      metadata.RendererBackendConfig
	swapBuffers func()

	vao          uint32
	vaoBuffer    uint32
	activeShader *metadata.Shader
	inFrame      bool
}

func New(swapBuffers func()) *Backend {
	return &Backend{swapBuffers: swapBuffers}
}

func (b *Backend) BackendType() metadata.RendererBackendType {
	return metadata.RendererBackendTypeOpenGL
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	if config == nil {
		return fmt.Errorf("opengl backend: nil config")
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("%w: %s", ErrNoContext, err)
	}
	b.config = *config
	if b.config.VertexLayout == nil {
		b.config.VertexLayout = metadata.QuadVertexLayout()
	}
	if b.config.MaxTextureSlots == 0 || b.config.MaxTextureSlots > maxTextureSlots {
		b.config.MaxTextureSlots = maxTextureSlots
	}

	core.LogInfo("OpenGL %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	var units int32
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &units)
	if uint32(units) < b.config.MaxTextureSlots {
		core.LogWarn("device exposes %d texture units, clamping from %d", units, b.config.MaxTextureSlots)
		b.config.MaxTextureSlots = uint32(units)
	}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	gl.GenVertexArrays(1, &b.vao)
	gl.Viewport(0, 0, int32(b.config.Width), int32(b.config.Height))
	return nil
}

func (b *Backend) Shutdown() error {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	b.activeShader = nil
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.config.Width = width
	b.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	return nil
}

func (b *Backend) BeginFrame(clearColour math.Vec4) error {
	gl.Viewport(0, 0, int32(b.config.Width), int32(b.config.Height))
	gl.ClearColor(clearColour.X, clearColour.Y, clearColour.Z, clearColour.W)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	b.inFrame = true
	return nil
}

func (b *Backend) EndFrame() error {
	b.inFrame = false
	if b.swapBuffers != nil {
		b.swapBuffers()
	}
	return checkError("EndFrame")
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	rgba, err := metadata.ExpandToRGBA(pixels, texture.Width, texture.Height, texture.ChannelCount)
	if err != nil {
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}

	filter := int32(gl.NEAREST)
	if texture.Filter == metadata.TextureFilterModeLinear {
		filter = gl.LINEAR
	}

	t := &glTexture{}
	gl.GenTextures(1, &t.handle)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	// Repeat so the tiling factor wraps.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(texture.Width), int32(texture.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	texture.InternalData = t
	return checkError("TextureCreate " + texture.Name)
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	if t, ok := texture.InternalData.(*glTexture); ok {
		gl.DeleteTextures(1, &t.handle)
	}
	texture.InternalData = nil
	return nil
}

func (b *Backend) TextureBind(texture *metadata.Texture, slot uint32) error {
	if slot >= b.config.MaxTextureSlots {
		return fmt.Errorf("opengl: texture slot %d out of range", slot)
	}
	gl.ActiveTexture(gl.TEXTURE0 + slot)
	if texture == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return nil
	}
	t, ok := texture.InternalData.(*glTexture)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTexture, texture.Name)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	return nil
}

func (b *Backend) RenderBufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	buf := &glBuffer{}
	usage := uint32(gl.DYNAMIC_DRAW)
	switch bufferType {
	case metadata.RENDERBUFFER_TYPE_VERTEX:
		buf.target = gl.ARRAY_BUFFER
	case metadata.RENDERBUFFER_TYPE_INDEX:
		buf.target = gl.ELEMENT_ARRAY_BUFFER
		// Indices are written once.
		usage = gl.STATIC_DRAW
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidBuffer, bufferType)
	}

	gl.GenBuffers(1, &buf.handle)
	if bufferType == metadata.RENDERBUFFER_TYPE_INDEX {
		// The element binding is VAO state.
		gl.BindVertexArray(b.vao)
	}
	gl.BindBuffer(buf.target, buf.handle)
	gl.BufferData(buf.target, int(totalSize), nil, usage)

	if bufferType == metadata.RENDERBUFFER_TYPE_VERTEX {
		b.configureVertexArray(buf.handle)
	}
	gl.BindVertexArray(0)

	return &metadata.RenderBuffer{
		RenderBufferType: bufferType,
		TotalSize:        totalSize,
		InternalData:     buf,
	}, checkError("RenderBufferCreate")
}

// configureVertexArray points attribute i of the layout at location i.
func (b *Backend) configureVertexArray(handle uint32) {
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, handle)
	stride := int32(b.config.VertexLayout.Stride())
	for i, attr := range b.config.VertexLayout.Attributes() {
		location := uint32(i)
		gl.EnableVertexAttribArray(location)
		switch attr.Type {
		case metadata.ShaderDataTypeInt, metadata.ShaderDataTypeBool:
			gl.VertexAttribIPointerWithOffset(location, int32(attr.Type.ComponentCount()), gl.INT, stride, uintptr(attr.Offset))
		default:
			gl.VertexAttribPointerWithOffset(location, int32(attr.Type.ComponentCount()), gl.FLOAT, attr.Normalized, stride, uintptr(attr.Offset))
		}
	}
	b.vaoBuffer = handle
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) error {
	buf, err := bufferOf(buffer)
	if err != nil {
		return err
	}
	gl.DeleteBuffers(1, &buf.handle)
	if buf.handle == b.vaoBuffer {
		b.vaoBuffer = 0
	}
	buffer.InternalData = nil
	return nil
}

func (b *Backend) RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error {
	buf, err := bufferOf(buffer)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buffer.TotalSize {
		return fmt.Errorf("%w: %d+%d > %d", ErrBufferOverflow, offset, len(data), buffer.TotalSize)
	}
	if len(data) == 0 {
		return nil
	}
	if buf.target == gl.ELEMENT_ARRAY_BUFFER {
		gl.BindVertexArray(b.vao)
	}
	gl.BindBuffer(buf.target, buf.handle)
	gl.BufferSubData(buf.target, int(offset), len(data), gl.Ptr(data))
	return nil
}

func bufferOf(buffer *metadata.RenderBuffer) (*glBuffer, error) {
	if buffer == nil {
		return nil, ErrInvalidBuffer
	}
	buf, ok := buffer.InternalData.(*glBuffer)
	if !ok {
		return nil, ErrInvalidBuffer
	}
	return buf, nil
}

func (b *Backend) DrawIndexed(vertexBuffer, indexBuffer *metadata.RenderBuffer, indexCount uint32) error {
	vb, err := bufferOf(vertexBuffer)
	if err != nil {
		return err
	}
	ib, err := bufferOf(indexBuffer)
	if err != nil {
		return err
	}
	if vb.handle != b.vaoBuffer {
		b.configureVertexArray(vb.handle)
	}
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.handle)
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(indexCount), gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
	return checkError("DrawIndexed")
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("opengl: %s failed with error 0x%x", op, code)
	}
	return nil
}
