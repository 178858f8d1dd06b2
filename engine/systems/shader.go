package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima2d/engine/assets"
	"github.com/spaghettifunk/anima2d/engine/assets/loaders"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/renderer"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

var (
	ErrShaderExists   = errors.New("shader already exists")
	ErrShaderNotFound = errors.New("shader not found")
	ErrTooManyShaders = errors.New("shader system is full")
)

// BuiltinQuadShaderFile is the .shadercfg, under shaders/, of the quad shader.
const BuiltinQuadShaderFile = "quad2d"

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief The maximum number of shaders held in the system. */
	MaxShaderCount uint16
}

type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig
	// A lookup table for shader name->shader
	Lookup map[string]*metadata.Shader
	nextID uint32
	// sub systems
	assetManager *assets.AssetManager
	backend      renderer.RendererBackend
}

func NewShaderSystem(config *ShaderSystemConfig, am *assets.AssetManager, backend renderer.RendererBackend) (*ShaderSystem, error) {
	if config == nil || config.MaxShaderCount == 0 {
		err := fmt.Errorf("NewShaderSystem - config.MaxShaderCount must be greater than 0")
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		return nil, renderer.ErrNilBackend
	}
	return &ShaderSystem{
		Config:       config,
		Lookup:       make(map[string]*metadata.Shader),
		assetManager: am,
		backend:      backend,
	}, nil
}

/**
 * @brief Shuts down the shader system, destroying any shader still in existence.
 */
func (shaderSystem *ShaderSystem) Shutdown() error {
	var errs []error
	for name, sh := range shaderSystem.Lookup {
		if err := shaderSystem.backend.ShaderDestroy(sh); err != nil {
			core.LogError("failed to destroy shader %s: %s", name, err)
			errs = append(errs, err)
		}
	}
	shaderSystem.Lookup = make(map[string]*metadata.Shader)
	return errors.Join(errs...)
}

/**
 * @brief Creates a new shader with the given config. Stage sources are
 * read through the asset manager in the form the backend consumes: GLSL
 * text for OpenGL, SPIR-V for Vulkan. The software backend needs none.
 */
func (shaderSystem *ShaderSystem) Create(config *metadata.ShaderConfig) (*metadata.Shader, error) {
	if config == nil || config.Name == "" {
		return nil, fmt.Errorf("shader config without a name")
	}
	if _, ok := shaderSystem.Lookup[config.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrShaderExists, config.Name)
	}
	if len(shaderSystem.Lookup) >= int(shaderSystem.Config.MaxShaderCount) {
		return nil, fmt.Errorf("%w: cannot create %s", ErrTooManyShaders, config.Name)
	}

	shader := &metadata.Shader{
		ID:                    shaderSystem.nextID,
		Name:                  config.Name,
		ViewProjectionUniform: config.ViewProjectionUniform,
		SamplersUniform:       config.SamplersUniform,
	}
	if shader.ViewProjectionUniform == "" {
		shader.ViewProjectionUniform = metadata.DEFAULT_VIEW_PROJECTION_NAME
	}
	if shader.SamplersUniform == "" {
		shader.SamplersUniform = metadata.DEFAULT_SAMPLERS_UNIFORM_NAME
	}

	for _, stageConfig := range config.Stages {
		stage, err := shaderSystem.loadStage(config.Name, stageConfig)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
		shader.Stages = append(shader.Stages, stage)
	}

	if err := shaderSystem.backend.ShaderCreate(shader); err != nil {
		err = fmt.Errorf("failed to create shader %s: %w", config.Name, err)
		core.LogError(err.Error())
		return nil, err
	}
	shaderSystem.nextID++
	shaderSystem.Lookup[shader.Name] = shader
	core.LogDebug("shader %s created with %d stages", shader.Name, len(shader.Stages))
	return shader, nil
}

func (shaderSystem *ShaderSystem) loadStage(shaderName string, config metadata.ShaderStageConfig) (metadata.ShaderStageSource, error) {
	stage, err := metadata.ShaderStageFromString(config.Stage)
	if err != nil {
		return metadata.ShaderStageSource{}, fmt.Errorf("shader %s: %w", shaderName, err)
	}
	out := metadata.ShaderStageSource{Stage: stage}

	switch shaderSystem.backend.BackendType() {
	case metadata.RendererBackendTypeOpenGL:
		if config.GLSL == "" {
			return out, fmt.Errorf("shader %s: stage %s has no glsl source", shaderName, config.Stage)
		}
		resource, err := shaderSystem.loadAsset(config.GLSL, metadata.ResourceTypeText)
		if err != nil {
			return out, err
		}
		out.Source = resource.Data.(string)
	case metadata.RendererBackendTypeVulkan:
		if config.SPIRV == "" {
			return out, fmt.Errorf("shader %s: stage %s has no spirv binary", shaderName, config.Stage)
		}
		resource, err := shaderSystem.loadAsset(config.SPIRV, metadata.ResourceTypeBinary)
		if err != nil {
			return out, err
		}
		words, err := loaders.BytesToWords(resource.Data.([]byte))
		if err != nil {
			return out, fmt.Errorf("shader %s: %w", shaderName, err)
		}
		out.SPIRV = words
	}
	return out, nil
}

func (shaderSystem *ShaderSystem) loadAsset(name string, resourceType metadata.ResourceType) (*metadata.Resource, error) {
	if shaderSystem.assetManager == nil {
		return nil, fmt.Errorf("shader source %s: %w", name, core.ErrSystemNotReady)
	}
	resource, err := shaderSystem.assetManager.LoadAsset(name, resourceType, nil)
	if err != nil {
		return nil, fmt.Errorf("shader source %s: %w", name, err)
	}
	return resource, nil
}

/**
 * @brief Loads shaders/<name>.shadercfg and creates the shader it describes.
 */
func (shaderSystem *ShaderSystem) Load(name string) (*metadata.Shader, error) {
	resource, err := shaderSystem.loadAsset(name, metadata.ResourceTypeShader)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	config, ok := resource.Data.(*metadata.ShaderConfig)
	if !ok {
		return nil, fmt.Errorf("shader %s: unexpected resource data %T", name, resource.Data)
	}
	if sh, ok := shaderSystem.Lookup[config.Name]; ok {
		return sh, nil
	}
	return shaderSystem.Create(config)
}

/**
 * @brief Returns the built-in quad shader, creating it on first use. The
 * software backend gets it without touching the assets directory.
 */
func (shaderSystem *ShaderSystem) Builtin() (*metadata.Shader, error) {
	if sh, ok := shaderSystem.Lookup[metadata.BUILTIN_SHADER_NAME_QUAD2D]; ok {
		return sh, nil
	}
	if shaderSystem.backend.BackendType() == metadata.RendererBackendTypeSoftware && shaderSystem.assetManager == nil {
		return shaderSystem.Create(&metadata.ShaderConfig{
			Name: metadata.BUILTIN_SHADER_NAME_QUAD2D,
			Stages: []metadata.ShaderStageConfig{
				{Stage: "vertex"},
				{Stage: "fragment"},
			},
		})
	}
	return shaderSystem.Load(BuiltinQuadShaderFile)
}

func (shaderSystem *ShaderSystem) Get(name string) (*metadata.Shader, error) {
	sh, ok := shaderSystem.Lookup[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrShaderNotFound, name)
	}
	return sh, nil
}

func (shaderSystem *ShaderSystem) Destroy(name string) error {
	sh, ok := shaderSystem.Lookup[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrShaderNotFound, name)
	}
	delete(shaderSystem.Lookup, name)
	return shaderSystem.backend.ShaderDestroy(sh)
}
