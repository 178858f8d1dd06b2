package metadata

import "fmt"

/** @brief Semantic type of a single vertex attribute or uniform. */
type ShaderDataType uint8

const (
	ShaderDataTypeNone ShaderDataType = iota
	ShaderDataTypeBool
	ShaderDataTypeInt
	ShaderDataTypeFloat
	ShaderDataTypeFloat2
	ShaderDataTypeFloat3
	ShaderDataTypeFloat4
	ShaderDataTypeMat2
	ShaderDataTypeMat3
	ShaderDataTypeMat4
)

/** @brief Returns the size in bytes of the type. Unknown types have size 0. */
func ShaderDataTypeSize(t ShaderDataType) uint32 {
	switch t {
	case ShaderDataTypeBool:
		return 1
	case ShaderDataTypeInt, ShaderDataTypeFloat:
		return 4
	case ShaderDataTypeFloat2:
		return 4 * 2
	case ShaderDataTypeFloat3:
		return 4 * 3
	case ShaderDataTypeFloat4:
		return 4 * 4
	case ShaderDataTypeMat2:
		return 4 * 2 * 2
	case ShaderDataTypeMat3:
		return 4 * 3 * 3
	case ShaderDataTypeMat4:
		return 4 * 4 * 4
	}
	return 0
}

/** @brief Returns the number of scalar components of the type. */
func (t ShaderDataType) ComponentCount() uint32 {
	switch t {
	case ShaderDataTypeBool, ShaderDataTypeInt, ShaderDataTypeFloat:
		return 1
	case ShaderDataTypeFloat2:
		return 2
	case ShaderDataTypeFloat3:
		return 3
	case ShaderDataTypeFloat4:
		return 4
	case ShaderDataTypeMat2:
		return 2 * 2
	case ShaderDataTypeMat3:
		return 3 * 3
	case ShaderDataTypeMat4:
		return 4 * 4
	}
	return 0
}

func (t ShaderDataType) String() string {
	switch t {
	case ShaderDataTypeBool:
		return "bool"
	case ShaderDataTypeInt:
		return "int"
	case ShaderDataTypeFloat:
		return "float"
	case ShaderDataTypeFloat2:
		return "vec2"
	case ShaderDataTypeFloat3:
		return "vec3"
	case ShaderDataTypeFloat4:
		return "vec4"
	case ShaderDataTypeMat2:
		return "mat2"
	case ShaderDataTypeMat3:
		return "mat3"
	case ShaderDataTypeMat4:
		return "mat4"
	}
	return "none"
}

/** @brief One field of a GPU vertex. */
type VertexAttribute struct {
	/** @brief The semantic type of the attribute. */
	Type ShaderDataType
	/** @brief The name of the attribute as declared in the shader. */
	Name string
	/** @brief Size in bytes, derived from Type. */
	Size uint32
	/** @brief Byte offset from the start of the vertex. */
	Offset uint32
	/** @brief Whether integer data should be normalized when read as float. */
	Normalized bool
}

/**
 * @brief An immutable description of a vertex: attribute offsets and the
 * stride shared by all of them.
 */
type VertexLayout struct {
	attributes []VertexAttribute
	stride     uint32
}

/**
 * @brief Builds a layout from an ordered attribute list. Offsets are
 * assigned sequentially; Size and Offset of the inputs are ignored.
 */
func NewVertexLayout(attributes ...VertexAttribute) *VertexLayout {
	layout := &VertexLayout{
		attributes: make([]VertexAttribute, len(attributes)),
	}
	var offset uint32
	for i, a := range attributes {
		a.Size = ShaderDataTypeSize(a.Type)
		a.Offset = offset
		offset += a.Size
		layout.attributes[i] = a
	}
	layout.stride = offset
	return layout
}

func (l *VertexLayout) Stride() uint32 {
	return l.stride
}

func (l *VertexLayout) Len() int {
	return len(l.attributes)
}

/** @brief Returns a copy of the attributes in declaration order. */
func (l *VertexLayout) Attributes() []VertexAttribute {
	out := make([]VertexAttribute, len(l.attributes))
	copy(out, l.attributes)
	return out
}

/** @brief Shader stages. */
type ShaderStage uint32

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x0000008
)

func ShaderStageFromString(s string) (ShaderStage, error) {
	switch s {
	case "vertex", "vert":
		return ShaderStageVertex, nil
	case "geometry", "geom":
		return ShaderStageGeometry, nil
	case "fragment", "frag":
		return ShaderStageFragment, nil
	case "compute", "comp":
		return ShaderStageCompute, nil
	}
	return 0, fmt.Errorf("string %s is not a valid ShaderStage", s)
}

/** @brief Configuration of one stage, as found in a .shadercfg file. */
type ShaderStageConfig struct {
	/** @brief Stage name: vertex or fragment. */
	Stage string `toml:"stage"`
	/** @brief GLSL source used by the OpenGL backend, relative to the assets dir. */
	GLSL string `toml:"glsl"`
	/** @brief SPIR-V binary used by the Vulkan backend, relative to the assets dir. */
	SPIRV string `toml:"spirv"`
}

/**
 * @brief Configuration for a shader. Typically created by the shader
 * resource loader from a .shadercfg resource file.
 */
type ShaderConfig struct {
	/** @brief The name of the shader to be created. */
	Name string `toml:"name"`
	/** @brief The name of the view-projection uniform. */
	ViewProjectionUniform string `toml:"view_projection_uniform"`
	/** @brief The name of the sampler array uniform. */
	SamplersUniform string `toml:"samplers_uniform"`
	/** @brief The collection of stages. */
	Stages []ShaderStageConfig `toml:"stages"`
}

/** @brief Source code or bytecode for one stage, ready for a backend. */
type ShaderStageSource struct {
	Stage ShaderStage
	/** @brief GLSL text, when the backend consumes source. */
	Source string
	/** @brief SPIR-V words, when the backend consumes bytecode. */
	SPIRV []uint32
}

/** @brief A compiled shader program owned by a backend. */
type Shader struct {
	/** @brief The shader identifier */
	ID uint32
	/** @brief The shader name */
	Name string
	/** @brief The name of the view-projection uniform. */
	ViewProjectionUniform string
	/** @brief The name of the sampler array uniform. */
	SamplersUniform string
	/** @brief The stages of this shader. */
	Stages []ShaderStageSource
	/** @brief Number of samplers pre-bound by ShaderInitialize. */
	SamplerCount uint32
	/** @brief An opaque pointer to hold renderer API specific data. */
	InternalData interface{}
}

const (
	BUILTIN_SHADER_NAME_QUAD2D    string = "Shader.Builtin.Quad2D"
	DEFAULT_VIEW_PROJECTION_NAME  string = "u_ViewProjection"
	DEFAULT_SAMPLERS_UNIFORM_NAME string = "u_Textures"
)
