package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

const (
	maxTextureSlots = 16
	// flushesPerFrame is the number of batches a frame records before it
	// has to be submitted and waited on to free the vertex regions.
	flushesPerFrame = 8
	validationLayer = "VK_LAYER_KHRONOS_validation"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortability = 0x00000001
)

// Backend renders through Vulkan onto a window surface.
type Backend struct {
	config  metadata.RendererBackendConfig
	surface SurfaceProvider
	context *VulkanContext

	// The size requested by the last resize, applied on the next recreate.
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	FrameNumber uint64

	descriptors  *VulkanTextureDescriptors
	shaders      map[*metadata.Shader]*vulkanShader
	activeShader *metadata.Shader
	bound        []*vulkanTexture

	inFrame bool
	// Draws recorded since the last submission of the current frame.
	flushIndex uint32
	// The image available semaphore is waited on by the first submission of a frame only.
	imageAcquireWaited bool
}

func New(surface SurfaceProvider) *Backend {
	return &Backend{
		surface: surface,
		context: &VulkanContext{},
		shaders: make(map[*metadata.Shader]*vulkanShader),
	}
}

func (b *Backend) BackendType() metadata.RendererBackendType {
	return metadata.RendererBackendTypeVulkan
}

func (b *Backend) Initialize(config *metadata.RendererBackendConfig) error {
	if config == nil {
		return fmt.Errorf("vulkan backend: nil config")
	}
	if b.surface == nil {
		return ErrNoSurfaceProvider
	}
	b.config = *config
	if b.config.VertexLayout == nil {
		b.config.VertexLayout = metadata.QuadVertexLayout()
	}
	if b.config.MaxTextureSlots == 0 || b.config.MaxTextureSlots > maxTextureSlots {
		b.config.MaxTextureSlots = maxTextureSlots
	}
	b.bound = make([]*vulkanTexture, b.config.MaxTextureSlots)

	procAddr := b.surface.GetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("vulkan backend: GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	context := b.context
	context.FramebufferWidth = b.config.Width
	context.FramebufferHeight = b.config.Height
	b.cachedFramebufferWidth = b.config.Width
	b.cachedFramebufferHeight = b.config.Height

	if err := b.createInstance(); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := b.surface.CreateWindowSurface(context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create platform surface: %w", err)
	}
	context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(context); err != nil {
		return err
	}

	swapchain, err := SwapchainCreate(context, context.FramebufferWidth, context.FramebufferHeight, b.config.VSync)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain
	context.FramebufferWidth = swapchain.Extent.Width
	context.FramebufferHeight = swapchain.Extent.Height

	if err := b.createRenderpasses(); err != nil {
		return err
	}
	if err := b.regenerateFramebuffers(); err != nil {
		return err
	}
	if err := b.createCommandBuffers(); err != nil {
		return err
	}
	if err := b.createSyncObjects(); err != nil {
		return err
	}

	ring := b.ring(0)
	descriptors, err := NewTextureDescriptors(context, b.config.MaxTextureSlots, ring.regionCount())
	if err != nil {
		return err
	}
	b.descriptors = descriptors

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (b *Backend) createInstance() error {
	context := b.context
	appInfo := &vk.ApplicationInfo{
		SType: vk.StructureTypeApplicationInfo,
		// 1.1 allows a negative viewport height.
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(b.config.ApplicationName),
		PEngineName:        VulkanSafeString("Anima2D"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{}, b.surface.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= instanceCreateEnumeratePortability
	}

	var layers []string
	if b.config.Validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if err := checkLayers(validationLayer); err != nil {
			return err
		}
		layers = append(layers, validationLayer)
		core.LogInfo("Validation layers enabled.")
	}
	for _, e := range extensions {
		core.LogDebug("Required extension: %s", e)
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := check(vk.CreateInstance(&createInfo, context.Allocator, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if b.config.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := check(vk.CreateDebugReportCallback(instance, &debugCreateInfo, context.Allocator, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
			return err
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func checkLayers(required ...string) error {
	var count uint32
	if err := check(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := check(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	names := make(map[string]bool, count)
	for i := range available {
		available[i].Deref()
		names[fixedString(available[i].LayerName[:])] = true
	}
	for _, layer := range required {
		if !names[layer] {
			return fmt.Errorf("%w: %s", ErrMissingLayer, layer)
		}
	}
	return nil
}

func (b *Backend) createRenderpasses() error {
	context := b.context
	main, err := RenderpassCreate(context, context.FramebufferWidth, context.FramebufferHeight, metadata.DefaultClearColour(), true)
	if err != nil {
		return err
	}
	context.MainRenderpass = main
	resume, err := RenderpassCreate(context, context.FramebufferWidth, context.FramebufferHeight, math.NewVec4Zero(), false)
	if err != nil {
		return err
	}
	context.ResumeRenderpass = resume
	return nil
}

func (b *Backend) createSyncObjects() error {
	context := b.context
	frames := int(context.Swapchain.MaxFramesInFlight)
	context.ImageAvailableSemaphores = make([]vk.Semaphore, frames)
	context.QueueCompleteSemaphores = make([]vk.Semaphore, frames)
	context.InFlightFences = make([]*VulkanFence, frames)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := 0; i < frames; i++ {
		if err := check(vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.ImageAvailableSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := check(vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &context.QueueCompleteSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		// Signaled, so the first frame does not wait on a frame that never ran.
		fence, err := NewFence(context, true)
		if err != nil {
			return err
		}
		context.InFlightFences[i] = fence
	}
	// Not owned, these point into InFlightFences.
	context.ImagesInFlight = make([]*VulkanFence, context.Swapchain.ImageCount)
	return nil
}

func (b *Backend) createCommandBuffers() error {
	context := b.context
	pool := context.Device.GraphicsCommandPool
	for _, cb := range context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(context, pool)
		}
	}
	context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, context.Swapchain.ImageCount)
	for i := range context.GraphicsCommandBuffers {
		cb, err := NewVulkanCommandBuffer(context, pool, true)
		if err != nil {
			return err
		}
		context.GraphicsCommandBuffers[i] = cb
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (b *Backend) regenerateFramebuffers() error {
	context := b.context
	swapchain := context.Swapchain
	swapchain.Framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := range swapchain.Framebuffers {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(context, context.MainRenderpass, context.FramebufferWidth, context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

func (b *Backend) destroyFramebuffers() {
	if b.context.Swapchain == nil {
		return
	}
	for _, fb := range b.context.Swapchain.Framebuffers {
		if fb != nil {
			fb.Destroy(b.context)
		}
	}
	b.context.Swapchain.Framebuffers = nil
}

func (b *Backend) Shutdown() error {
	context := b.context
	if context.Device == nil {
		return nil
	}
	device := context.Device.LogicalDevice
	vk.DeviceWaitIdle(device)

	// Destroy in the opposite order of creation.
	for shader, s := range b.shaders {
		s.destroy(context)
		shader.InternalData = nil
	}
	b.shaders = make(map[*metadata.Shader]*vulkanShader)
	b.activeShader = nil

	if b.descriptors != nil {
		b.descriptors.Destroy(context)
		b.descriptors = nil
	}

	for i := range context.InFlightFences {
		if context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, context.ImageAvailableSemaphores[i], context.Allocator)
		}
		if context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(device, context.QueueCompleteSemaphores[i], context.Allocator)
		}
		if context.InFlightFences[i] != nil {
			context.InFlightFences[i].Destroy(context)
		}
	}
	context.ImageAvailableSemaphores = nil
	context.QueueCompleteSemaphores = nil
	context.InFlightFences = nil
	context.ImagesInFlight = nil

	for _, cb := range context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(context, context.Device.GraphicsCommandPool)
		}
	}
	context.GraphicsCommandBuffers = nil

	b.destroyFramebuffers()
	if context.ResumeRenderpass != nil {
		context.ResumeRenderpass.Destroy(context)
		context.ResumeRenderpass = nil
	}
	if context.MainRenderpass != nil {
		context.MainRenderpass.Destroy(context)
		context.MainRenderpass = nil
	}
	if context.Swapchain != nil {
		context.Swapchain.Destroy(context)
		context.Swapchain = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(context)

	if context.Surface != vk.NullSurface {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}
	if context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(context.Instance, context.Allocator)
	context.Instance = nil
	return nil
}

// Resized only records the new size, the swapchain is recreated by the next BeginFrame.
func (b *Backend) Resized(width, height uint32) error {
	b.cachedFramebufferWidth = width
	b.cachedFramebufferHeight = height
	b.context.FramebufferSizeGeneration++
	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, b.context.FramebufferSizeGeneration)
	return nil
}

// ring describes the vertex buffer layout for batches of the given size.
func (b *Backend) ring(regionSize uint64) vertexRing {
	frames := uint32(2)
	if b.context.Swapchain != nil {
		frames = uint32(b.context.Swapchain.MaxFramesInFlight)
	}
	return vertexRing{
		regionSize:      regionSize,
		framesInFlight:  frames,
		regionsPerFrame: flushesPerFrame,
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
