package software

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	stdmath "math"

	xdraw "golang.org/x/image/draw"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrNotInitialized     = errors.New("software backend is not initialized")
	ErrNoFrame            = errors.New("no frame in progress")
	ErrBufferOverflow     = errors.New("write past the end of the render buffer")
	ErrInvalidBuffer      = errors.New("render buffer was not created by the software backend")
	ErrInvalidTexture     = errors.New("texture was not created by the software backend")
	ErrInvalidTextureSlot = errors.New("texture slot out of range")
	ErrInvalidDimensions  = errors.New("framebuffer dimensions must be greater than 0")
	ErrMissingAttribute   = errors.New("vertex layout is missing a required attribute")
)

// DrawRecord describes one DrawIndexed call as the backend saw it.
type DrawRecord struct {
	// Vertices decoded from the vertex buffer, up to the highest index used.
	Vertices []metadata.QuadVertex
	// UploadedBytes is the size of the last upload into the vertex buffer.
	UploadedBytes uint64
	IndexCount    uint32
	// Textures bound since the previous draw, by slot.
	Textures       []*metadata.Texture
	ViewProjection math.Mat4
}

type renderBuffer struct {
	data     []byte
	lastLoad uint64
	loads    uint32
}

type shaderState struct {
	viewProjection math.Mat4
	samplerCount   uint32
}

// attributeOffsets locates the quad attributes in a vertex.
type attributeOffsets struct {
	stride       uint32
	position     uint32
	color        uint32
	texCoord     uint32
	texIndex     uint32
	tilingFactor uint32
}

// Backend rasterizes on the CPU into an RGBA framebuffer. It needs no
// window or GPU and is used for headless rendering, benchmarks and tests.
type Backend struct {
	config      metadata.RendererBackendConfig
	offsets     attributeOffsets
	framebuffer *image.RGBA
	initialized bool
	inFrame     bool
	frameNumber uint64

	activeShader *metadata.Shader
	bound        [16]*metadata.Texture
	boundCount   uint32

	draws []DrawRecord
	// RecordDraws keeps a DrawRecord per DrawIndexed. Benchmarks turn it off.
	RecordDraws bool
	// Rasterize can be turned off to measure batching alone.
	Rasterize bool
}

func New() *Backend {
	return &Backend{
		RecordDraws: true,
		Rasterize:   true,
	}
}

func (b *Backend) BackendType() metadata.RendererBackendType {
	return metadata.RendererBackendTypeSoftware
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	if config == nil {
		return fmt.Errorf("software backend: nil config")
	}
	if config.Width == 0 || config.Height == 0 {
		return ErrInvalidDimensions
	}
	b.config = *config
	if b.config.VertexLayout == nil {
		b.config.VertexLayout = metadata.QuadVertexLayout()
	}
	if b.config.MaxTextureSlots == 0 || b.config.MaxTextureSlots > uint32(len(b.bound)) {
		b.config.MaxTextureSlots = uint32(len(b.bound))
	}
	offsets, err := resolveOffsets(b.config.VertexLayout)
	if err != nil {
		return err
	}
	b.offsets = offsets
	b.framebuffer = image.NewRGBA(image.Rect(0, 0, int(config.Width), int(config.Height)))
	b.initialized = true
	core.LogDebug("software backend initialized (%dx%d, stride %d)", config.Width, config.Height, offsets.stride)
	return nil
}

func resolveOffsets(layout *metadata.VertexLayout) (attributeOffsets, error) {
	out := attributeOffsets{stride: layout.Stride()}
	found := 0
	for _, attr := range layout.Attributes() {
		switch attr.Name {
		case "a_Position":
			out.position = attr.Offset
		case "a_Color":
			out.color = attr.Offset
		case "a_TexCoord":
			out.texCoord = attr.Offset
		case "a_TexIndex":
			out.texIndex = attr.Offset
		case "a_TilingFactor":
			out.tilingFactor = attr.Offset
		default:
			continue
		}
		found++
	}
	if found != 5 {
		return out, ErrMissingAttribute
	}
	return out, nil
}

func (b *Backend) Shutdown() error {
	b.framebuffer = nil
	b.draws = nil
	b.activeShader = nil
	b.bound = [16]*metadata.Texture{}
	b.initialized = false
	return nil
}

// Resized replaces the framebuffer. Its content is lost.
func (b *Backend) Resized(width, height uint32) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if width == 0 || height == 0 {
		return ErrInvalidDimensions
	}
	b.config.Width = width
	b.config.Height = height
	b.framebuffer = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	return nil
}

func (b *Backend) BeginFrame(clearColour math.Vec4) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	b.draws = b.draws[:0]
	b.boundCount = 0
	fill := color.RGBA{
		R: toByte(clearColour.X),
		G: toByte(clearColour.Y),
		B: toByte(clearColour.Z),
		A: toByte(clearColour.W),
	}
	xdraw.Draw(b.framebuffer, b.framebuffer.Bounds(), image.NewUniform(fill), image.Point{}, xdraw.Src)
	b.inFrame = true
	return nil
}

func (b *Backend) EndFrame() error {
	if !b.inFrame {
		return ErrNoFrame
	}
	b.inFrame = false
	b.frameNumber++
	return nil
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	rgba, err := metadata.ExpandToRGBA(pixels, texture.Width, texture.Height, texture.ChannelCount)
	if err != nil {
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}
	texture.InternalData = &image.RGBA{
		Pix:    rgba,
		Stride: int(texture.Width) * 4,
		Rect:   image.Rect(0, 0, int(texture.Width), int(texture.Height)),
	}
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	for i := range b.bound {
		if b.bound[i] == texture {
			b.bound[i] = nil
		}
	}
	texture.InternalData = nil
	return nil
}

func (b *Backend) TextureBind(texture *metadata.Texture, slot uint32) error {
	if slot >= b.config.MaxTextureSlots {
		return fmt.Errorf("%w: %d", ErrInvalidTextureSlot, slot)
	}
	if texture != nil {
		if _, ok := texture.InternalData.(*image.RGBA); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidTexture, texture.Name)
		}
	}
	b.bound[slot] = texture
	if slot+1 > b.boundCount {
		b.boundCount = slot + 1
	}
	return nil
}

func (b *Backend) ShaderCreate(shader *metadata.Shader) error {
	if shader == nil {
		return fmt.Errorf("software backend: nil shader")
	}
	shader.InternalData = &shaderState{viewProjection: math.NewMat4Identity()}
	return nil
}

func (b *Backend) ShaderDestroy(shader *metadata.Shader) error {
	if shader == nil {
		return nil
	}
	if b.activeShader == shader {
		b.activeShader = nil
	}
	shader.InternalData = nil
	return nil
}

func (b *Backend) ShaderInitialize(shader *metadata.Shader, samplerCount uint32) error {
	state, err := shaderStateOf(shader)
	if err != nil {
		return err
	}
	state.samplerCount = samplerCount
	shader.SamplerCount = samplerCount
	return nil
}

func (b *Backend) ShaderUse(shader *metadata.Shader) error {
	if _, err := shaderStateOf(shader); err != nil {
		return err
	}
	b.activeShader = shader
	return nil
}

func (b *Backend) ShaderSetViewProjection(shader *metadata.Shader, viewProjection math.Mat4) error {
	state, err := shaderStateOf(shader)
	if err != nil {
		return err
	}
	state.viewProjection = viewProjection
	return nil
}

func shaderStateOf(shader *metadata.Shader) (*shaderState, error) {
	if shader == nil {
		return nil, fmt.Errorf("software backend: nil shader")
	}
	state, ok := shader.InternalData.(*shaderState)
	if !ok {
		return nil, fmt.Errorf("software backend: shader %s was not created by this backend", shader.Name)
	}
	return state, nil
}

func (b *Backend) RenderBufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	if totalSize == 0 {
		return nil, fmt.Errorf("cannot create an empty %s buffer", bufferType)
	}
	return &metadata.RenderBuffer{
		RenderBufferType: bufferType,
		TotalSize:        totalSize,
		InternalData:     &renderBuffer{data: make([]byte, totalSize)},
	}, nil
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) error {
	if buffer == nil {
		return ErrInvalidBuffer
	}
	buffer.InternalData = nil
	return nil
}

func (b *Backend) RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error {
	internal, err := bufferOf(buffer)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buffer.TotalSize {
		return fmt.Errorf("%w: %d bytes at offset %d into a %d byte %s buffer", ErrBufferOverflow, len(data), offset, buffer.TotalSize, buffer.RenderBufferType)
	}
	copy(internal.data[offset:], data)
	internal.lastLoad = uint64(len(data))
	internal.loads++
	return nil
}

func bufferOf(buffer *metadata.RenderBuffer) (*renderBuffer, error) {
	if buffer == nil {
		return nil, ErrInvalidBuffer
	}
	internal, ok := buffer.InternalData.(*renderBuffer)
	if !ok {
		return nil, ErrInvalidBuffer
	}
	return internal, nil
}

func (b *Backend) DrawIndexed(vertexBuffer, indexBuffer *metadata.RenderBuffer, indexCount uint32) error {
	if !b.inFrame {
		return ErrNoFrame
	}
	vertices, err := bufferOf(vertexBuffer)
	if err != nil {
		return err
	}
	indices, err := bufferOf(indexBuffer)
	if err != nil {
		return err
	}
	if uint64(indexCount)*4 > uint64(len(indices.data)) {
		return fmt.Errorf("%w: %d indices", ErrBufferOverflow, indexCount)
	}
	state, err := shaderStateOf(b.activeShader)
	if err != nil {
		return err
	}

	idx := make([]uint32, indexCount)
	var maxIndex uint32
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint32(indices.data[i*4:])
		if idx[i] > maxIndex {
			maxIndex = idx[i]
		}
	}
	if uint64(maxIndex+1)*uint64(b.offsets.stride) > uint64(len(vertices.data)) {
		return fmt.Errorf("%w: index %d", ErrBufferOverflow, maxIndex)
	}
	decoded := make([]metadata.QuadVertex, 0, maxIndex+1)
	if indexCount > 0 {
		for i := uint32(0); i <= maxIndex; i++ {
			decoded = append(decoded, b.decodeVertex(vertices.data[i*b.offsets.stride:]))
		}
	}

	if b.Rasterize {
		for i := 0; i+2 < len(idx); i += 3 {
			b.rasterizeTriangle(state.viewProjection, decoded[idx[i]], decoded[idx[i+1]], decoded[idx[i+2]])
		}
	}

	if b.RecordDraws {
		textures := make([]*metadata.Texture, b.boundCount)
		copy(textures, b.bound[:b.boundCount])
		b.draws = append(b.draws, DrawRecord{
			Vertices:       decoded,
			UploadedBytes:  vertices.lastLoad,
			IndexCount:     indexCount,
			Textures:       textures,
			ViewProjection: state.viewProjection,
		})
	}
	b.boundCount = 0
	return nil
}

func (b *Backend) decodeVertex(data []byte) metadata.QuadVertex {
	f := func(offset uint32) float32 {
		return stdmath.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
	}
	o := b.offsets
	return metadata.QuadVertex{
		Position:     math.NewVec3(f(o.position), f(o.position+4), f(o.position+8)),
		Color:        math.NewVec4(f(o.color), f(o.color+4), f(o.color+8), f(o.color+12)),
		TexCoord:     math.NewVec2(f(o.texCoord), f(o.texCoord+4)),
		TexIndex:     f(o.texIndex),
		TilingFactor: f(o.tilingFactor),
	}
}

// Draws returns the draws of the current (or last) frame.
func (b *Backend) Draws() []DrawRecord {
	return b.draws
}

// FrameNumber counts completed frames.
func (b *Backend) FrameNumber() uint64 {
	return b.frameNumber
}

// Snapshot copies the framebuffer.
func (b *Backend) Snapshot() *image.RGBA {
	if b.framebuffer == nil {
		return nil
	}
	out := image.NewRGBA(b.framebuffer.Bounds())
	copy(out.Pix, b.framebuffer.Pix)
	return out
}

// BufferBytes copies the content of a buffer created by this backend.
func (b *Backend) BufferBytes(buffer *metadata.RenderBuffer) []byte {
	internal, err := bufferOf(buffer)
	if err != nil {
		return nil
	}
	out := make([]byte, len(internal.data))
	copy(out, internal.data)
	return out
}

// BufferLoads counts RenderBufferLoadRange calls on a buffer.
func (b *Backend) BufferLoads(buffer *metadata.RenderBuffer) uint32 {
	internal, err := bufferOf(buffer)
	if err != nil {
		return 0
	}
	return internal.loads
}

func toByte(v float32) uint8 {
	return uint8(math.Clamp(v, 0, 1)*255 + 0.5)
}
