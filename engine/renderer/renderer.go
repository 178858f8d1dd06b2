package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

type BatchState uint8

const (
	BatchStateEmpty BatchState = iota
	BatchStateAccumulating
	// BatchStateFull means the next quad, or the next new texture, forces a flush.
	BatchStateFull
)

func (s BatchState) String() string {
	switch s {
	case BatchStateEmpty:
		return "empty"
	case BatchStateAccumulating:
		return "accumulating"
	case BatchStateFull:
		return "full"
	}
	return "unknown"
}

type Renderer2DConfig struct {
	QuadsPerBatch   uint32    `toml:"quads_per_batch" yaml:"quads_per_batch"`
	MaxTextureSlots uint32    `toml:"max_texture_slots" yaml:"max_texture_slots"`
	ClearColour     math.Vec4 `toml:"-" yaml:"-"`
}

func DefaultRenderer2DConfig() *Renderer2DConfig {
	return &Renderer2DConfig{
		QuadsPerBatch:   DefaultQuadsPerBatch,
		MaxTextureSlots: MaxTextureSlots,
		ClearColour:     metadata.DefaultClearColour(),
	}
}

func (c *Renderer2DConfig) Validate() error {
	if c.QuadsPerBatch == 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxTextureSlots < 2 || c.MaxTextureSlots > MaxTextureSlots {
		return fmt.Errorf("%w: got %d", ErrInvalidTextureSlots, c.MaxTextureSlots)
	}
	return nil
}

// quadCorners are the unit-quad corners in TL, TR, BR, BL order.
var quadCorners = [VerticesPerQuad]math.Vec3{
	{X: 0, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: 1, Y: 1, Z: 0},
	{X: 0, Y: 1, Z: 0},
}

// Renderer2D batches quads into as few indexed draws as possible. It is
// not safe for concurrent use; every call must come from the render thread.
type Renderer2D struct {
	backend RendererBackend
	shader  *metadata.Shader

	quadsPerBatch uint32
	maxVertices   uint32
	maxIndices    uint32
	clearColour   math.Vec4

	vertexBuffer *metadata.RenderBuffer
	indexBuffer  *metadata.RenderBuffer
	whiteTexture *metadata.Texture

	// scratch owns the CPU side of the batch. It is allocated once.
	scratch     []metadata.QuadVertex
	vertexCount uint32
	indexCount  uint32
	slots       *TextureSlotTable

	viewProjection math.Mat4
	stats          metadata.RendererStatistics
	inFrame        bool
	flushing       bool
}

func NewRenderer2D(backend RendererBackend, shader *metadata.Shader, config *Renderer2DConfig) (*Renderer2D, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if shader == nil {
		return nil, ErrNilShader
	}
	if config == nil {
		config = DefaultRenderer2DConfig()
	}
	if err := config.Validate(); err != nil {
		core.LogError("invalid renderer2d configuration: %s", err)
		return nil, err
	}

	r := &Renderer2D{
		backend:        backend,
		shader:         shader,
		quadsPerBatch:  config.QuadsPerBatch,
		maxVertices:    config.QuadsPerBatch * VerticesPerQuad,
		maxIndices:     config.QuadsPerBatch * IndicesPerQuad,
		clearColour:    config.ClearColour,
		viewProjection: math.NewMat4Identity(),
	}
	r.scratch = make([]metadata.QuadVertex, r.maxVertices)

	if err := r.createResources(config.MaxTextureSlots); err != nil {
		r.destroyResources()
		core.LogError("failed to create renderer2d resources: %s", err)
		return nil, err
	}
	core.LogDebug("renderer2d created: %d quads per batch, %d texture slots", r.quadsPerBatch, config.MaxTextureSlots)
	return r, nil
}

func (r *Renderer2D) createResources(textureSlots uint32) error {
	white := &metadata.Texture{
		ID:           metadata.InvalidID,
		Name:         metadata.WHITE_TEXTURE_NAME,
		Width:        1,
		Height:       1,
		ChannelCount: 4,
		Filter:       metadata.TextureFilterModeNearest,
	}
	if err := r.backend.TextureCreate(metadata.WhitePixels(), white); err != nil {
		return fmt.Errorf("failed to create white texture: %w", err)
	}
	r.whiteTexture = white

	slots, err := NewTextureSlotTable(white, textureSlots)
	if err != nil {
		return err
	}
	r.slots = slots

	vertexSize := uint64(r.maxVertices) * uint64(metadata.QuadVertexSize)
	r.vertexBuffer, err = r.backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, vertexSize)
	if err != nil {
		return fmt.Errorf("failed to create vertex buffer: %w", err)
	}

	indices := GenerateQuadIndices(r.maxIndices)
	r.indexBuffer, err = r.backend.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, uint64(len(indices))*4)
	if err != nil {
		return fmt.Errorf("failed to create index buffer: %w", err)
	}
	if err := r.backend.RenderBufferLoadRange(r.indexBuffer, 0, indexBytes(indices)); err != nil {
		return fmt.Errorf("failed to upload indices: %w", err)
	}

	if err := r.backend.ShaderInitialize(r.shader, textureSlots); err != nil {
		return fmt.Errorf("failed to initialize shader %s: %w", r.shader.Name, err)
	}
	return nil
}

func (r *Renderer2D) destroyResources() {
	if r.indexBuffer != nil {
		if err := r.backend.RenderBufferDestroy(r.indexBuffer); err != nil {
			core.LogWarn("failed to destroy index buffer: %s", err)
		}
		r.indexBuffer = nil
	}
	if r.vertexBuffer != nil {
		if err := r.backend.RenderBufferDestroy(r.vertexBuffer); err != nil {
			core.LogWarn("failed to destroy vertex buffer: %s", err)
		}
		r.vertexBuffer = nil
	}
	if r.whiteTexture != nil {
		if err := r.backend.TextureDestroy(r.whiteTexture); err != nil {
			core.LogWarn("failed to destroy white texture: %s", err)
		}
		r.whiteTexture = nil
	}
}

func (r *Renderer2D) Shutdown() error {
	if r.inFrame {
		core.LogWarn("renderer2d shut down with an open frame, pending quads are dropped")
		r.inFrame = false
	}
	r.destroyResources()
	r.scratch = nil
	return nil
}

// BeginFrame opens a frame. When the backend cannot render this frame the
// error is returned and the frame stays closed.
func (r *Renderer2D) BeginFrame(viewProjection math.Mat4) error {
	if r.inFrame {
		core.LogError("renderer2d: %s", ErrFrameInProgress)
		return ErrFrameInProgress
	}
	r.stats = metadata.RendererStatistics{}
	r.resetBatch()

	if err := r.backend.BeginFrame(r.clearColour); err != nil {
		return err
	}
	if err := r.backend.ShaderUse(r.shader); err != nil {
		return errors.Join(fmt.Errorf("failed to use shader %s: %w", r.shader.Name, err), r.backend.EndFrame())
	}
	if err := r.backend.ShaderSetViewProjection(r.shader, viewProjection); err != nil {
		return errors.Join(fmt.Errorf("failed to set view projection: %w", err), r.backend.EndFrame())
	}
	r.viewProjection = viewProjection
	r.inFrame = true
	return nil
}

// EndFrame flushes what is pending and presents. Statistics stay readable
// until the next BeginFrame.
func (r *Renderer2D) EndFrame() error {
	if !r.inFrame {
		core.LogError("renderer2d: EndFrame: %s", ErrNotInFrame)
		return ErrNotInFrame
	}
	flushErr := r.flush()
	r.inFrame = false
	if err := r.backend.EndFrame(); err != nil {
		return errors.Join(flushErr, err)
	}
	return flushErr
}

// SetViewProjection flushes the pending batch and switches projection for
// the quads submitted after it.
func (r *Renderer2D) SetViewProjection(viewProjection math.Mat4) error {
	if !r.inFrame {
		core.LogError("renderer2d: SetViewProjection: %s", ErrNotInFrame)
		return ErrNotInFrame
	}
	if err := r.nextBatch(); err != nil {
		return err
	}
	if err := r.backend.ShaderSetViewProjection(r.shader, viewProjection); err != nil {
		core.LogError("failed to set view projection: %s", err)
		return err
	}
	r.viewProjection = viewProjection
	return nil
}

func (r *Renderer2D) ViewProjection() math.Mat4 {
	return r.viewProjection
}

// SubmitQuad appends one quad to the current batch, flushing first when
// the batch or its texture table is full.
func (r *Renderer2D) SubmitQuad(quad *metadata.Quad) error {
	if !r.inFrame {
		core.LogError("renderer2d: SubmitQuad: %s", ErrNotInFrame)
		return ErrNotInFrame
	}
	if r.flushing {
		core.LogError("renderer2d: SubmitQuad: %s", ErrReentrantSubmit)
		return ErrReentrantSubmit
	}
	if quad == nil {
		return ErrNilQuad
	}

	if r.indexCount >= r.maxIndices {
		if err := r.nextBatch(); err != nil {
			return err
		}
	}

	slot, ok := r.slots.Resolve(quad.Texture)
	if !ok {
		if err := r.nextBatch(); err != nil {
			return err
		}
		// A reset table always has room for one more texture.
		slot, _ = r.slots.Resolve(quad.Texture)
	}

	texCoords := metadata.DefaultTexCoords()
	if quad.TexCoords != nil {
		texCoords = *quad.TexCoords
	}
	tiling := quad.TilingFactor
	// Zero is the unset value of a literal Quad.
	if tiling == 0 {
		tiling = 1.0
	}
	transform := math.QuadTransform(quad.Position, quad.Size, quad.Rotation)

	vertices := r.scratch[r.vertexCount : r.vertexCount+VerticesPerQuad]
	for i := range vertices {
		vertices[i] = metadata.QuadVertex{
			Position:     quadCorners[i].Transform(transform),
			Color:        quad.Color,
			TexCoord:     texCoords[i],
			TexIndex:     float32(slot),
			TilingFactor: tiling,
		}
	}
	r.vertexCount += VerticesPerQuad
	r.indexCount += IndicesPerQuad
	r.stats.QuadCount++
	return nil
}

// Flush draws the current batch and starts a new one. It is a no-op on an
// empty batch.
func (r *Renderer2D) Flush() error {
	if !r.inFrame {
		core.LogError("renderer2d: Flush: %s", ErrNotInFrame)
		return ErrNotInFrame
	}
	return r.nextBatch()
}

func (r *Renderer2D) nextBatch() error {
	if err := r.flush(); err != nil {
		return err
	}
	r.resetBatch()
	return nil
}

func (r *Renderer2D) flush() error {
	if r.indexCount == 0 {
		return nil
	}
	r.flushing = true
	defer func() { r.flushing = false }()

	data := vertexBytes(r.scratch[:r.vertexCount])
	if err := r.backend.RenderBufferLoadRange(r.vertexBuffer, 0, data); err != nil {
		core.LogError("failed to upload %d vertices: %s", r.vertexCount, err)
		return err
	}
	for i := uint32(0); i < r.slots.Count(); i++ {
		if err := r.backend.TextureBind(r.slots.At(i), i); err != nil {
			core.LogError("failed to bind texture to slot %d: %s", i, err)
			return err
		}
	}
	if err := r.backend.DrawIndexed(r.vertexBuffer, r.indexBuffer, r.indexCount); err != nil {
		core.LogError("failed to draw %d indices: %s", r.indexCount, err)
		return err
	}
	r.stats.DrawCalls++
	return nil
}

func (r *Renderer2D) resetBatch() {
	r.vertexCount = 0
	r.indexCount = 0
	if r.slots != nil {
		r.slots.Reset()
	}
}

// OnResize updates the viewport. Batch capacity never changes.
func (r *Renderer2D) OnResize(width, height uint32) error {
	if err := r.backend.Resized(width, height); err != nil {
		core.LogError("renderer2d resize to %dx%d failed: %s", width, height, err)
		return err
	}
	return nil
}

func (r *Renderer2D) Stats() metadata.RendererStatistics {
	return r.stats
}

func (r *Renderer2D) State() BatchState {
	switch {
	case r.indexCount == 0:
		return BatchStateEmpty
	case r.indexCount >= r.maxIndices || r.slots.IsFull():
		return BatchStateFull
	}
	return BatchStateAccumulating
}

func (r *Renderer2D) InFrame() bool {
	return r.inFrame
}

func (r *Renderer2D) QuadsPerBatch() uint32 {
	return r.quadsPerBatch
}

func (r *Renderer2D) MaxTextureSlots() uint32 {
	return r.slots.Limit()
}

// TextureCount is the number of slots used by the current batch,
// including the white slot.
func (r *Renderer2D) TextureCount() uint32 {
	return r.slots.Count()
}

func (r *Renderer2D) WhiteTexture() *metadata.Texture {
	return r.whiteTexture
}

func (r *Renderer2D) Backend() RendererBackend {
	return r.backend
}
