package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// RenderBufferCreate backs a vertex buffer with one region of totalSize
// bytes per batch a frame in flight may record.
func (b *Backend) RenderBufferCreate(bufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	if totalSize == 0 {
		return nil, fmt.Errorf("%w: zero sized %s buffer", ErrInvalidBuffer, bufferType)
	}
	usage, err := bufferUsage(bufferType)
	if err != nil {
		return nil, err
	}

	internal := &renderBuffer{}
	size := totalSize
	if bufferType == metadata.RENDERBUFFER_TYPE_VERTEX {
		ring := b.ring(totalSize)
		internal.ring = &ring
		size = ring.totalSize()
	}
	buffer, err := NewBuffer(b.context, size, usage)
	if err != nil {
		return nil, err
	}
	internal.buffer = buffer

	return &metadata.RenderBuffer{
		RenderBufferType: bufferType,
		TotalSize:        totalSize,
		InternalData:     internal,
	}, nil
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) error {
	internal, err := renderBufferOf(buffer)
	if err != nil {
		return err
	}
	vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
	internal.buffer.Destroy(b.context)
	buffer.InternalData = nil
	return nil
}

// RenderBufferLoadRange writes vertex data into the region of the next draw.
// When the frame used all of its regions it is split first.
func (b *Backend) RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error {
	internal, err := renderBufferOf(buffer)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buffer.TotalSize {
		return fmt.Errorf("%w: %d bytes at offset %d, size %d", ErrBufferOverflow, len(data), offset, buffer.TotalSize)
	}
	if internal.ring == nil {
		return internal.buffer.LoadData(offset, data)
	}

	if b.inFrame && b.flushIndex >= internal.ring.regionsPerFrame {
		if err := b.splitFrame(); err != nil {
			return err
		}
	}
	internal.region = internal.ring.region(b.context.CurrentFrame, b.flushIndex)
	return internal.buffer.LoadData(internal.ring.offset(internal.region)+offset, data)
}

func (b *Backend) DrawIndexed(vertexBuffer, indexBuffer *metadata.RenderBuffer, indexCount uint32) error {
	if !b.inFrame {
		return ErrNoFrame
	}
	vb, err := renderBufferOf(vertexBuffer)
	if err != nil {
		return err
	}
	ib, err := renderBufferOf(indexBuffer)
	if err != nil {
		return err
	}
	if vb.ring == nil || ib.ring != nil {
		return fmt.Errorf("%w: expected a vertex and an index buffer", ErrInvalidBuffer)
	}
	if uint64(indexCount)*4 > indexBuffer.TotalSize {
		return fmt.Errorf("%w: %d indices do not fit in %d bytes", ErrBufferOverflow, indexCount, indexBuffer.TotalSize)
	}
	if indexCount == 0 {
		return nil
	}
	s, err := shaderOf(b.activeShader)
	if err != nil {
		return err
	}

	textures, err := b.samplerArray()
	if err != nil {
		return err
	}
	// The region and the descriptor set share an index, neither is in use by the GPU.
	b.descriptors.Write(b.context, vb.region, textures)

	cb := b.context.currentCommandBuffer()
	s.pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, s.pipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{b.descriptors.Sets[vb.region]}, 0, nil)
	b.pushViewProjection(cb, s)

	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vb.buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(vb.ring.offset(vb.region))})
	vk.CmdBindIndexBuffer(cb.Handle, ib.buffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cb.Handle, indexCount, 1, 0, 0, 0)

	b.flushIndex++
	// Slots above 0 belong to the batch that was just drawn.
	for i := 1; i < len(b.bound); i++ {
		b.bound[i] = nil
	}
	return nil
}

func renderBufferOf(buffer *metadata.RenderBuffer) (*renderBuffer, error) {
	if buffer == nil {
		return nil, ErrInvalidBuffer
	}
	internal, ok := buffer.InternalData.(*renderBuffer)
	if !ok || internal.buffer == nil {
		return nil, fmt.Errorf("%w: %s buffer has no backing memory", ErrInvalidBuffer, buffer.RenderBufferType)
	}
	return internal, nil
}
