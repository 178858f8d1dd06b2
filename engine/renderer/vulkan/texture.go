package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

type vulkanTexture struct {
	image   *VulkanImage
	sampler vk.Sampler
}

func (b *Backend) TextureCreate(pixels []uint8, texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	rgba, err := metadata.ExpandToRGBA(pixels, texture.Width, texture.Height, texture.ChannelCount)
	if err != nil {
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}
	context := b.context

	image, err := ImageCreate(context, texture.Width, texture.Height, vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}

	if err := b.uploadImage(image, rgba); err != nil {
		image.Destroy(context)
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}

	filter := vk.FilterNearest
	if texture.Filter == metadata.TextureFilterModeLinear {
		filter = vk.FilterLinear
	}
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(context.Device.LogicalDevice, &samplerCreateInfo, context.Allocator, &sampler), "vkCreateSampler"); err != nil {
		image.Destroy(context)
		return fmt.Errorf("texture %s: %w", texture.Name, err)
	}

	texture.InternalData = &vulkanTexture{image: image, sampler: sampler}
	return nil
}

// uploadImage copies the pixels through a temporary staging buffer and
// leaves the image ready to be sampled.
func (b *Backend) uploadImage(image *VulkanImage, rgba []uint8) error {
	context := b.context
	staging, err := NewBuffer(context, uint64(len(rgba)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return err
	}
	defer staging.Destroy(context)
	if err := staging.LoadData(0, rgba); err != nil {
		return err
	}

	pool := context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}
	if err := image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		cb.Free(context, pool)
		return err
	}
	image.CopyFromBuffer(staging.Handle, cb)
	if err := image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		cb.Free(context, pool)
		return err
	}
	return cb.EndSingleUse(context, pool, context.Device.GraphicsQueue)
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	if texture == nil {
		return ErrInvalidTexture
	}
	t, ok := texture.InternalData.(*vulkanTexture)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTexture, texture.Name)
	}
	// Pending frames may still sample it.
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	vk.DestroySampler(b.context.Device.LogicalDevice, t.sampler, b.context.Allocator)
	t.image.Destroy(b.context)
	for i := range b.bound {
		if b.bound[i] == t {
			b.bound[i] = nil
		}
	}
	texture.InternalData = nil
	return nil
}

func (b *Backend) TextureBind(texture *metadata.Texture, slot uint32) error {
	if slot >= b.config.MaxTextureSlots {
		return fmt.Errorf("%w: slot %d of %d", ErrInvalidTexture, slot, b.config.MaxTextureSlots)
	}
	if texture == nil {
		b.bound[slot] = nil
		return nil
	}
	t, ok := texture.InternalData.(*vulkanTexture)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTexture, texture.Name)
	}
	b.bound[slot] = t
	return nil
}

// samplerArray fills unbound slots with the texture in slot 0, every
// element of the array must reference a valid image.
func (b *Backend) samplerArray() ([]*vulkanTexture, error) {
	fallback := b.bound[0]
	if fallback == nil {
		return nil, fmt.Errorf("%w: no texture bound to slot 0", ErrInvalidTexture)
	}
	out := make([]*vulkanTexture, b.config.MaxTextureSlots)
	for i := range out {
		out[i] = b.bound[i]
		if out[i] == nil {
			out[i] = fallback
		}
	}
	return out, nil
}
