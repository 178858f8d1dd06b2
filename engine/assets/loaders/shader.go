package loaders

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

// ShaderLoader parses a .shadercfg TOML file into a metadata.ShaderConfig.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := ParseShaderConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		ResourceType: metadata.ResourceTypeShader,
		Name:         config.Name,
		FullPath:     path,
		DataSize:     uint64(len(data)),
		Data:         config,
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

func ParseShaderConfig(data []byte) (*metadata.ShaderConfig, error) {
	config := &metadata.ShaderConfig{}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if config.Name == "" {
		return nil, fmt.Errorf("shader config has no name")
	}
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("shader %s has no stages", config.Name)
	}
	for _, stage := range config.Stages {
		if _, err := metadata.ShaderStageFromString(stage.Stage); err != nil {
			return nil, fmt.Errorf("shader %s: %w", config.Name, err)
		}
		if stage.GLSL == "" && stage.SPIRV == "" {
			return nil, fmt.Errorf("shader %s: stage %s has neither glsl nor spirv", config.Name, stage.Stage)
		}
	}
	if config.ViewProjectionUniform == "" {
		config.ViewProjectionUniform = metadata.DEFAULT_VIEW_PROJECTION_NAME
	}
	if config.SamplersUniform == "" {
		config.SamplersUniform = metadata.DEFAULT_SAMPLERS_UNIFORM_NAME
	}
	return config, nil
}
