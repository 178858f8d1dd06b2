package metadata

import "github.com/spaghettifunk/anima2d/engine/math"

/** @brief An invalid identifier, used to mark unused slots and unloaded data. */
const InvalidID uint32 = 4294967295

/** @brief The kind of graphics API a backend talks to. */
type RendererBackendType string

const (
	RendererBackendTypeVulkan   RendererBackendType = "vulkan"
	RendererBackendTypeOpenGL   RendererBackendType = "opengl"
	RendererBackendTypeSoftware RendererBackendType = "software"
)

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief The initial framebuffer width. */
	Width uint32
	/** @brief The initial framebuffer height. */
	Height uint32
	/** @brief The vertex layout every pipeline created by the backend must consume. */
	VertexLayout *VertexLayout
	/** @brief The number of texture slots the quad shader samples from. */
	MaxTextureSlots uint32
	/** @brief Size in bytes of one full batch of vertices. */
	MaxBatchBytes uint64
	/** @brief Enables API validation layers where available. */
	Validation bool
	/** @brief Synchronizes presentation with the display refresh. */
	VSync bool
}

type RenderBufferType int

const (
	/** @brief Buffer is use is unknown. Default, but usually invalid. */
	RENDERBUFFER_TYPE_UNKNOWN RenderBufferType = iota
	/** @brief Buffer is used for vertex data. */
	RENDERBUFFER_TYPE_VERTEX
	/** @brief Buffer is used for index data. */
	RENDERBUFFER_TYPE_INDEX
	/** @brief Buffer is used for staging purposes (i.e. from host-visible to device-local memory) */
	RENDERBUFFER_TYPE_STAGING
)

func (t RenderBufferType) String() string {
	switch t {
	case RENDERBUFFER_TYPE_VERTEX:
		return "vertex"
	case RENDERBUFFER_TYPE_INDEX:
		return "index"
	case RENDERBUFFER_TYPE_STAGING:
		return "staging"
	default:
		return "unknown"
	}
}

type RenderBuffer struct {
	/** @brief The type of buffer, which typically determines its use. */
	RenderBufferType RenderBufferType
	/** @brief The total size of the buffer in bytes. */
	TotalSize uint64
	/** @brief Contains internal data for the renderer-API-specific buffer. */
	InternalData interface{}
}

/**
 * @brief Per-frame counters published by the 2D renderer. They are reset
 * when a frame begins and are stable between EndFrame and the next BeginFrame.
 */
type RendererStatistics struct {
	/** @brief Number of indexed draw calls issued this frame. */
	DrawCalls uint32
	/** @brief Number of quads submitted this frame. */
	QuadCount uint32
}

func (s RendererStatistics) VertexCount() uint32 {
	return s.QuadCount * 4
}

func (s RendererStatistics) IndexCount() uint32 {
	return s.QuadCount * 6
}

/** @brief Clear colour used when no configuration overrides it. */
func DefaultClearColour() math.Vec4 {
	return math.NewVec4(0.1, 0.1, 0.12, 1.0)
}
