package vulkan

import (
	vk "github.com/goki/vulkan"
)

/**
 * @brief The sampler array of the quad shader: a single binding holding one
 * combined image sampler per texture slot, and one descriptor set per vertex
 * ring region so a set is never rewritten while a pending draw uses it.
 */
type VulkanTextureDescriptors struct {
	/** @brief The number of samplers in the array. */
	SlotCount uint32
	Layout    vk.DescriptorSetLayout
	Pool      vk.DescriptorPool
	/** @brief One set per ring region. */
	Sets []vk.DescriptorSet
}

func NewTextureDescriptors(context *VulkanContext, slotCount, setCount uint32) (*VulkanTextureDescriptors, error) {
	device := context.Device.LogicalDevice
	d := &VulkanTextureDescriptors{SlotCount: slotCount}

	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: slotCount,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(device, &layoutCreateInfo, context.Allocator, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	d.Layout = layout

	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       setCount,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: slotCount * setCount,
		}},
	}
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(device, &poolCreateInfo, context.Allocator, &pool), "vkCreateDescriptorPool"); err != nil {
		d.Destroy(context)
		return nil, err
	}
	d.Pool = pool

	d.Sets = make([]vk.DescriptorSet, setCount)
	for i := range d.Sets {
		allocateInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}
		var set vk.DescriptorSet
		if err := check(vk.AllocateDescriptorSets(device, &allocateInfo, &set), "vkAllocateDescriptorSets"); err != nil {
			d.Destroy(context)
			return nil, err
		}
		d.Sets[i] = set
	}
	return d, nil
}

// Write points every sampler of the set at the given textures, in slot order.
func (d *VulkanTextureDescriptors) Write(context *VulkanContext, set uint32, textures []*vulkanTexture) {
	imageInfos := make([]vk.DescriptorImageInfo, len(textures))
	for i, t := range textures {
		imageInfos[i] = vk.DescriptorImageInfo{
			Sampler:     t.sampler,
			ImageView:   t.image.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.Sets[set],
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: uint32(len(imageInfos)),
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      imageInfos,
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (d *VulkanTextureDescriptors) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	// Sets are freed with their pool.
	d.Sets = nil
	if d.Pool != nil {
		vk.DestroyDescriptorPool(device, d.Pool, context.Allocator)
		d.Pool = nil
	}
	if d.Layout != nil {
		vk.DestroyDescriptorSetLayout(device, d.Layout, context.Allocator)
		d.Layout = nil
	}
}
