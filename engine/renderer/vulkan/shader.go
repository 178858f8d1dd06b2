package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// viewProjectionSize is the push constant block: one mat4.
const viewProjectionSize = 16 * 4

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

type vulkanShader struct {
	stages         []VulkanShaderStage
	pipeline       *VulkanPipeline
	viewProjection math.Mat4
}

func NewShaderStage(context *VulkanContext, code []uint32, stage vk.ShaderStageFlagBits) (VulkanShaderStage, error) {
	if len(code) == 0 {
		return VulkanShaderStage{}, fmt.Errorf("%w: empty SPIR-V module", ErrInvalidShader)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module), "vkCreateShaderModule"); err != nil {
		return VulkanShaderStage{}, err
	}
	return VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func vulkanStage(stage metadata.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	case metadata.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit, nil
	}
	return 0, fmt.Errorf("unsupported shader stage %d", stage)
}

func (b *Backend) ShaderCreate(shader *metadata.Shader) error {
	if shader == nil {
		return ErrInvalidShader
	}
	s := &vulkanShader{viewProjection: math.NewMat4Identity()}
	for _, source := range shader.Stages {
		flag, err := vulkanStage(source.Stage)
		if err != nil {
			s.destroy(b.context)
			return fmt.Errorf("shader %s: %w", shader.Name, err)
		}
		stage, err := NewShaderStage(b.context, source.SPIRV, flag)
		if err != nil {
			s.destroy(b.context)
			return fmt.Errorf("shader %s: %w", shader.Name, err)
		}
		s.stages = append(s.stages, stage)
	}
	if len(s.stages) == 0 {
		return fmt.Errorf("%w: %s has no stages", ErrInvalidShader, shader.Name)
	}
	if err := b.createPipeline(s); err != nil {
		s.destroy(b.context)
		return fmt.Errorf("shader %s: %w", shader.Name, err)
	}
	shader.InternalData = s
	b.shaders[shader] = s
	core.LogDebug("shader %s created with %d stages", shader.Name, len(s.stages))
	return nil
}

func (b *Backend) createPipeline(s *vulkanShader) error {
	attributes, err := vertexAttributes(b.config.VertexLayout)
	if err != nil {
		return err
	}
	stages := make([]vk.PipelineShaderStageCreateInfo, len(s.stages))
	for i := range s.stages {
		stages[i] = s.stages[i].ShaderStageCreateInfo
	}
	pipeline, err := NewGraphicsPipeline(b.context, &VulkanPipelineConfig{
		Renderpass:           b.context.MainRenderpass,
		Stride:               b.config.VertexLayout.Stride(),
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{b.descriptors.Layout},
		Stages:               stages,
		PushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       viewProjectionSize,
		}},
	})
	if err != nil {
		return err
	}
	s.pipeline = pipeline
	return nil
}

func (s *vulkanShader) destroy(context *VulkanContext) {
	if s.pipeline != nil {
		s.pipeline.Destroy(context)
		s.pipeline = nil
	}
	for _, stage := range s.stages {
		vk.DestroyShaderModule(context.Device.LogicalDevice, stage.Handle, context.Allocator)
	}
	s.stages = nil
}

func (b *Backend) ShaderDestroy(shader *metadata.Shader) error {
	if shader == nil {
		return nil
	}
	if s, ok := shader.InternalData.(*vulkanShader); ok {
		vk.DeviceWaitIdle(b.context.Device.LogicalDevice)
		s.destroy(b.context)
	}
	delete(b.shaders, shader)
	if b.activeShader == shader {
		b.activeShader = nil
	}
	shader.InternalData = nil
	return nil
}

// ShaderInitialize only validates the count: sampler i always reads
// element i of the descriptor array.
func (b *Backend) ShaderInitialize(shader *metadata.Shader, samplerCount uint32) error {
	if _, err := shaderOf(shader); err != nil {
		return err
	}
	if samplerCount == 0 || samplerCount > b.config.MaxTextureSlots {
		return fmt.Errorf("vulkan: %d samplers requested, %d available", samplerCount, b.config.MaxTextureSlots)
	}
	shader.SamplerCount = samplerCount
	return nil
}

func (b *Backend) ShaderUse(shader *metadata.Shader) error {
	if _, err := shaderOf(shader); err != nil {
		return err
	}
	b.activeShader = shader
	return nil
}

// ShaderSetViewProjection is pushed with every draw that follows.
func (b *Backend) ShaderSetViewProjection(shader *metadata.Shader, viewProjection math.Mat4) error {
	s, err := shaderOf(shader)
	if err != nil {
		return err
	}
	s.viewProjection = viewProjection
	return nil
}

func (b *Backend) pushViewProjection(cb *VulkanCommandBuffer, s *vulkanShader) {
	// Row-vector matrices read column-major are their column-vector transpose.
	vk.CmdPushConstants(cb.Handle, s.pipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, viewProjectionSize, unsafe.Pointer(&s.viewProjection.Data[0]))
}

// rebuildPipelines is called after the swapchain, and so the render pass, changed.
func (b *Backend) rebuildPipelines() error {
	for shader, s := range b.shaders {
		if s.pipeline != nil {
			s.pipeline.Destroy(b.context)
			s.pipeline = nil
		}
		if err := b.createPipeline(s); err != nil {
			return fmt.Errorf("shader %s: %w", shader.Name, err)
		}
	}
	return nil
}

func shaderOf(shader *metadata.Shader) (*vulkanShader, error) {
	if shader == nil {
		return nil, ErrInvalidShader
	}
	s, ok := shader.InternalData.(*vulkanShader)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShader, shader.Name)
	}
	return s, nil
}
