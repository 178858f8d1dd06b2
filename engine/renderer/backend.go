package renderer

import (
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// RendererBackend is the graphics API seam. Every call is synchronous and
// must be made from the thread that owns the window (or, for headless
// backends, from a single goroutine).
type RendererBackend interface {
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	BackendType() metadata.RendererBackendType
	// Resized updates the viewport. Buffers keep their size.
	Resized(width, height uint32) error
	// BeginFrame acquires a target and clears it. A backend that cannot
	// render this frame (e.g. a swapchain being recreated) returns
	// core.ErrSwapchainBooting and the frame is skipped.
	BeginFrame(clearColour math.Vec4) error
	EndFrame() error

	TextureCreate(pixels []uint8, texture *metadata.Texture) error
	TextureDestroy(texture *metadata.Texture) error
	TextureBind(texture *metadata.Texture, slot uint32) error

	ShaderCreate(shader *metadata.Shader) error
	ShaderDestroy(shader *metadata.Shader) error
	// ShaderInitialize binds sampler i of the sampler array to texture slot i.
	ShaderInitialize(shader *metadata.Shader, samplerCount uint32) error
	ShaderUse(shader *metadata.Shader) error
	ShaderSetViewProjection(shader *metadata.Shader, viewProjection math.Mat4) error

	RenderBufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error)
	RenderBufferDestroy(buffer *metadata.RenderBuffer) error
	RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error

	// DrawIndexed issues one triangle-list draw of the first indexCount indices.
	DrawIndexed(vertexBuffer, indexBuffer *metadata.RenderBuffer, indexCount uint32) error
}
