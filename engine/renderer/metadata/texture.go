package metadata

import "fmt"

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The name of the renderer's 1x1 white texture. */
	WHITE_TEXTURE_NAME string = "__white__"
)

type TextureReference struct {
	ReferenceCount uint64
	Handle         uint32
	AutoRelease    bool
}

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlag = 0x2
	/** @brief Indicates if the texture was created via wrapping vs traditional creation. */
	TextureFlagIsWrapped TextureFlag = 0x4
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

/**
 * @brief Represents a texture. The batch renderer compares textures by
 * pointer, so a *Texture is its identity for the whole of its life.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief Filtering used when sampling. */
	Filter TextureFilter
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The texture Name. */
	Name string
	/** @brief Backend specific data (GL handle, Vulkan image, CPU pixels...). */
	InternalData interface{}
}

func (t *Texture) HasTransparency() bool {
	return t.Flags&TextureFlagBits(TextureFlagHasTransparency) != 0
}

/**
 * @brief Generates a dimension x dimension RGBA checkerboard, alternating
 * white and the given colour every cell pixels.
 */
func CheckerboardPixels(dimension, cell uint32, r, g, b uint8) []uint8 {
	const channels = 4
	pixels := make([]uint8, dimension*dimension*channels)
	for row := uint32(0); row < dimension; row++ {
		for col := uint32(0); col < dimension; col++ {
			i := (row*dimension + col) * channels
			pixels[i+0], pixels[i+1], pixels[i+2], pixels[i+3] = 255, 255, 255, 255
			if ((row/cell)+(col/cell))%2 == 0 {
				pixels[i+0], pixels[i+1], pixels[i+2] = r, g, b
			}
		}
	}
	return pixels
}

/** @brief Pixels of the 1x1 opaque white texture. */
func WhitePixels() []uint8 {
	return []uint8{255, 255, 255, 255}
}

/**
 * @brief Expands 1 to 4 channel pixels to RGBA8. One channel is grey, two
 * channels are grey and alpha. A channel count of 0 is read as 4.
 */
func ExpandToRGBA(pixels []uint8, width, height uint32, channelCount uint8) ([]uint8, error) {
	channels := uint32(channelCount)
	if channels == 0 {
		channels = 4
	}
	if channels > 4 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	expected := width * height * channels
	if width == 0 || height == 0 || uint32(len(pixels)) < expected {
		return nil, fmt.Errorf("expected %d bytes of pixels for %dx%d, got %d", expected, width, height, len(pixels))
	}
	out := make([]uint8, width*height*4)
	for i := uint32(0); i < width*height; i++ {
		src := pixels[i*channels : i*channels+channels]
		dst := out[i*4 : i*4+4]
		switch channels {
		case 1:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 255
		case 2:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], src[1]
		case 3:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
		default:
			copy(dst, src[:4])
		}
	}
	return out, nil
}
