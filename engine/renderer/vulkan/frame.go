package vulkan

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
)

// BeginFrame returns core.ErrSwapchainBooting while the swapchain is
// recreated, the frame is then skipped.
func (b *Backend) BeginFrame(clearColour math.Vec4) error {
	context := b.context
	if context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}
	if context.FramebufferSizeGeneration != context.FramebufferSizeLastGeneration {
		if err := b.recreateSwapchain(); err != nil {
			return err
		}
		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	fence := context.InFlightFences[context.CurrentFrame]
	if !fence.Wait(context, stdmath.MaxUint64) {
		return fmt.Errorf("in-flight fence wait failure")
	}

	imageIndex, err := context.Swapchain.AcquireNextImageIndex(context, stdmath.MaxUint64, context.ImageAvailableSemaphores[context.CurrentFrame])
	if err == core.ErrSwapchainBooting {
		if err := b.recreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	}
	if err != nil {
		return err
	}
	context.ImageIndex = imageIndex

	// A previous frame may still be recording into this image's command buffer.
	if previous := context.ImagesInFlight[imageIndex]; previous != nil && previous != fence {
		previous.Wait(context, stdmath.MaxUint64)
	}
	context.ImagesInFlight[imageIndex] = fence

	cb := context.currentCommandBuffer()
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}
	b.setDynamicState(cb)

	rp := context.MainRenderpass
	rp.ClearColour = clearColour
	rp.W = context.FramebufferWidth
	rp.H = context.FramebufferHeight
	rp.Begin(cb, context.Swapchain.Framebuffers[imageIndex].Handle)

	b.inFrame = true
	b.flushIndex = 0
	b.imageAcquireWaited = false
	return nil
}

// setDynamicState flips the viewport so that +Y points down, as in OpenGL.
func (b *Backend) setDynamicState(cb *VulkanCommandBuffer) {
	width := b.context.FramebufferWidth
	height := b.context.FramebufferHeight
	viewport := vk.Viewport{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (b *Backend) EndFrame() error {
	if !b.inFrame {
		return nil
	}
	b.inFrame = false
	context := b.context
	cb := context.currentCommandBuffer()
	context.MainRenderpass.End(cb)
	if err := cb.End(); err != nil {
		return err
	}

	frame := context.CurrentFrame
	if err := b.submit(cb, context.QueueCompleteSemaphores[frame]); err != nil {
		return err
	}

	needsRecreate, err := context.Swapchain.Present(context, context.Device.PresentQueue, context.QueueCompleteSemaphores[frame], context.ImageIndex)
	if err != nil {
		return err
	}
	if needsRecreate {
		// Picked up by the next BeginFrame.
		context.FramebufferSizeGeneration++
	}
	b.FrameNumber++
	return nil
}

// submit sends the command buffer with the current frame's fence. Only the
// first submission of a frame waits for the swapchain image.
func (b *Backend) submit(cb *VulkanCommandBuffer, signal vk.Semaphore) error {
	context := b.context
	fence := context.InFlightFences[context.CurrentFrame]
	if err := fence.Reset(context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if signal != vk.NullSemaphore {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{signal}
	}
	if !b.imageAcquireWaited {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{context.ImageAvailableSemaphores[context.CurrentFrame]}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
		b.imageAcquireWaited = true
	}

	if err := check(vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle), "vkQueueSubmit"); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	return nil
}

// splitFrame submits what the frame recorded so far and waits for it, so
// the frame's vertex regions and descriptor sets can be reused. Drawing
// resumes in a render pass that keeps the previous contents.
func (b *Backend) splitFrame() error {
	context := b.context
	cb := context.currentCommandBuffer()
	context.MainRenderpass.End(cb)
	if err := cb.End(); err != nil {
		return err
	}
	if err := b.submit(cb, vk.NullSemaphore); err != nil {
		return err
	}
	fence := context.InFlightFences[context.CurrentFrame]
	if !fence.Wait(context, stdmath.MaxUint64) {
		return fmt.Errorf("in-flight fence wait failure")
	}

	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}
	b.setDynamicState(cb)
	rp := context.ResumeRenderpass
	rp.W = context.FramebufferWidth
	rp.H = context.FramebufferHeight
	rp.Begin(cb, context.Swapchain.Framebuffers[context.ImageIndex].Handle)
	b.flushIndex = 0
	core.LogDebug("frame %d split after %d batches", b.FrameNumber, flushesPerFrame)
	return nil
}

// recreateSwapchain returns core.ErrSwapchainBooting while the window has
// no area, the generation stays stale so the next frame tries again.
func (b *Backend) recreateSwapchain() error {
	context := b.context
	if context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}
	if b.cachedFramebufferWidth == 0 || b.cachedFramebufferHeight == 0 {
		core.LogDebug("recreate swapchain called when window is < 1 in a dimension. Booting.")
		return core.ErrSwapchainBooting
	}
	context.RecreatingSwapchain = true
	defer func() { context.RecreatingSwapchain = false }()

	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	for i := range context.ImagesInFlight {
		context.ImagesInFlight[i] = nil
	}

	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return err
	}
	previousFormat := context.Swapchain.ImageFormat.Format

	b.destroyFramebuffers()
	swapchain, err := context.Swapchain.Recreate(context, b.cachedFramebufferWidth, b.cachedFramebufferHeight, b.config.VSync)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain
	context.FramebufferWidth = swapchain.Extent.Width
	context.FramebufferHeight = swapchain.Extent.Height
	context.FramebufferSizeLastGeneration = context.FramebufferSizeGeneration

	if swapchain.ImageFormat.Format != previousFormat {
		context.MainRenderpass.Destroy(context)
		context.ResumeRenderpass.Destroy(context)
		if err := b.createRenderpasses(); err != nil {
			return err
		}
		if err := b.rebuildPipelines(); err != nil {
			return err
		}
	}

	if err := b.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := b.createCommandBuffers(); err != nil {
		return err
	}
	context.ImagesInFlight = make([]*VulkanFence, swapchain.ImageCount)
	// Fences are signaled again after the idle wait, the frame index restarted.
	context.CurrentFrame = 0
	return nil
}
