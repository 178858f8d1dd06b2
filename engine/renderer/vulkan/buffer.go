package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

/**
 * @brief A host visible, host coherent buffer that stays mapped for its
 * whole life. Writes land in GPU visible memory without a staging copy.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	mapped unsafe.Pointer
}

func NewBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	device := context.Device.LogicalDevice
	buffer := &VulkanBuffer{Size: size}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := check(vk.CreateBuffer(device, &bufferCreateInfo, context.Allocator, &handle), "vkCreateBuffer"); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &requirements)
	requirements.Deref()

	memoryType, err := context.FindMemoryIndex(requirements.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := check(vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory), "vkAllocateMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory

	if err := check(vk.BindBufferMemory(device, handle, memory, 0), "vkBindBufferMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	var mapped unsafe.Pointer
	if err := check(vk.MapMemory(device, memory, 0, vk.DeviceSize(vk.WholeSize), 0, &mapped), "vkMapMemory"); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.mapped = mapped
	return buffer, nil
}

func (b *VulkanBuffer) LoadData(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("%w: %d bytes at offset %d, size %d", ErrBufferOverflow, len(data), offset, b.Size)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = nil
	}
}

/**
 * @brief Splits a buffer into fixed size regions. Vertex buffers are
 * rewritten on every flush while earlier draws of the same command buffer
 * still read them, so each flush writes its own region.
 */
type vertexRing struct {
	regionSize      uint64
	framesInFlight  uint32
	regionsPerFrame uint32
}

func (r vertexRing) regionCount() uint32 {
	return r.framesInFlight * r.regionsPerFrame
}

func (r vertexRing) totalSize() uint64 {
	return r.regionSize * uint64(r.regionCount())
}

// region returns the index of the n-th flush of the given frame.
func (r vertexRing) region(frame, flush uint32) uint32 {
	return (frame%r.framesInFlight)*r.regionsPerFrame + flush%r.regionsPerFrame
}

func (r vertexRing) offset(region uint32) uint64 {
	return uint64(region) * r.regionSize
}

type renderBuffer struct {
	buffer *VulkanBuffer
	ring   *vertexRing
	// region last written by RenderBufferLoadRange, bound by the next draw.
	region uint32
}

func bufferUsage(t metadata.RenderBufferType) (vk.BufferUsageFlags, error) {
	switch t {
	case metadata.RENDERBUFFER_TYPE_VERTEX:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), nil
	case metadata.RENDERBUFFER_TYPE_INDEX:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), nil
	case metadata.RENDERBUFFER_TYPE_STAGING:
		return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), nil
	}
	return 0, fmt.Errorf("%w: unsupported type %s", ErrInvalidBuffer, t)
}
