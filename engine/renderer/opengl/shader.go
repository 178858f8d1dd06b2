package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima2d/engine/core"
	"github.com/spaghettifunk/anima2d/engine/math"
	"github.com/spaghettifunk/anima2d/engine/renderer/metadata"
)

type glProgram struct {
	handle         uint32
	viewProjection int32
	samplers       int32
}

func (b *Backend) ShaderCreate(shader *metadata.Shader) error {
	if shader == nil {
		return ErrInvalidShader
	}
	var handles []uint32
	defer func() {
		for _, h := range handles {
			gl.DeleteShader(h)
		}
	}()

	for _, stage := range shader.Stages {
		shaderType, err := glStage(stage.Stage)
		if err != nil {
			return fmt.Errorf("shader %s: %w", shader.Name, err)
		}
		handle, err := compileShader(stage.Source, shaderType)
		if err != nil {
			return fmt.Errorf("shader %s: %w", shader.Name, err)
		}
		handles = append(handles, handle)
	}
	if len(handles) == 0 {
		return fmt.Errorf("%w: %s has no stages", ErrInvalidShader, shader.Name)
	}

	program, err := linkProgram(handles)
	if err != nil {
		return fmt.Errorf("shader %s: %w", shader.Name, err)
	}

	p := &glProgram{
		handle:         program,
		viewProjection: gl.GetUniformLocation(program, gl.Str(shader.ViewProjectionUniform+"\x00")),
		samplers:       gl.GetUniformLocation(program, gl.Str(shader.SamplersUniform+"\x00")),
	}
	if p.viewProjection < 0 {
		core.LogWarn("shader %s has no uniform %s", shader.Name, shader.ViewProjectionUniform)
	}
	shader.InternalData = p
	return nil
}

func (b *Backend) ShaderDestroy(shader *metadata.Shader) error {
	if shader == nil {
		return nil
	}
	if p, ok := shader.InternalData.(*glProgram); ok {
		gl.DeleteProgram(p.handle)
	}
	if b.activeShader == shader {
		b.activeShader = nil
	}
	shader.InternalData = nil
	return nil
}

// ShaderInitialize binds sampler i to texture unit i once; the binding is
// program state and survives every later draw.
func (b *Backend) ShaderInitialize(shader *metadata.Shader, samplerCount uint32) error {
	p, err := programOf(shader)
	if err != nil {
		return err
	}
	if samplerCount == 0 || samplerCount > b.config.MaxTextureSlots {
		return fmt.Errorf("opengl: %d samplers requested, %d available", samplerCount, b.config.MaxTextureSlots)
	}
	samplers := make([]int32, samplerCount)
	for i := range samplers {
		samplers[i] = int32(i)
	}
	gl.UseProgram(p.handle)
	if p.samplers >= 0 {
		gl.Uniform1iv(p.samplers, int32(samplerCount), &samplers[0])
	}
	shader.SamplerCount = samplerCount
	return checkError("ShaderInitialize " + shader.Name)
}

func (b *Backend) ShaderUse(shader *metadata.Shader) error {
	p, err := programOf(shader)
	if err != nil {
		return err
	}
	gl.UseProgram(p.handle)
	b.activeShader = shader
	return nil
}

func (b *Backend) ShaderSetViewProjection(shader *metadata.Shader, viewProjection math.Mat4) error {
	p, err := programOf(shader)
	if err != nil {
		return err
	}
	if b.activeShader != shader {
		gl.UseProgram(p.handle)
		b.activeShader = shader
	}
	// Row-vector matrices uploaded as-is read as their column-major transpose.
	gl.UniformMatrix4fv(p.viewProjection, 1, false, &viewProjection.Data[0])
	return nil
}

func programOf(shader *metadata.Shader) (*glProgram, error) {
	if shader == nil {
		return nil, ErrInvalidShader
	}
	p, ok := shader.InternalData.(*glProgram)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShader, shader.Name)
	}
	return p, nil
}

func glStage(stage metadata.ShaderStage) (uint32, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return gl.VERTEX_SHADER, nil
	case metadata.ShaderStageFragment:
		return gl.FRAGMENT_SHADER, nil
	case metadata.ShaderStageGeometry:
		return gl.GEOMETRY_SHADER, nil
	}
	return 0, fmt.Errorf("unsupported shader stage %d", stage)
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func linkProgram(shaders []uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %v", strings.TrimRight(log, "\x00"))
	}
	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	return program, nil
}
