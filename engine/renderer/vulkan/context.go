package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// SurfaceProvider is the window the backend presents to.
type SurfaceProvider interface {
	// GetInstanceProcAddress returns the loader entry point, vkGetInstanceProcAddr.
	GetInstanceProcAddress() unsafe.Pointer
	// RequiredInstanceExtensions lists the instance extensions the window system needs.
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance vk.Instance) (uintptr, error)
}

type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Incremented on every resize. When it differs from the last generation
	// the swapchain is recreated.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain *VulkanSwapchain
	// MainRenderpass clears the target. ResumeRenderpass loads it, and is
	// used when a frame has to be split over several submissions.
	MainRenderpass   *VulkanRenderpass
	ResumeRenderpass *VulkanRenderpass

	// One per swapchain image.
	GraphicsCommandBuffers []*VulkanCommandBuffer

	// One per frame in flight.
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*VulkanFence

	// Fences owned by InFlightFences, indexed by swapchain image.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32

	RecreatingSwapchain bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: filter %#x, flags %#x", ErrNoMemoryType, typeFilter, uint32(propertyFlags))
}

func (vc *VulkanContext) currentCommandBuffer() *VulkanCommandBuffer {
	return vc.GraphicsCommandBuffers[vc.ImageIndex]
}
