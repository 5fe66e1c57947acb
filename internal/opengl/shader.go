package opengl

import (
	"errors"
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-engine/renderer"
)

// errNoCompute is returned for compute stages, which need GL 4.3.
var errNoCompute = errors.New("compute shaders are not available on an OpenGL 4.1 context")

var shaderTypes = map[renderer.ShaderStage]uint32{
	renderer.StageVertex:         gl.VERTEX_SHADER,
	renderer.StageGeometry:       gl.GEOMETRY_SHADER,
	renderer.StageTessEvaluation: gl.TESS_EVALUATION_SHADER,
	renderer.StageTessControl:    gl.TESS_CONTROL_SHADER,
	renderer.StageFragment:       gl.FRAGMENT_SHADER,
}

// CompileProgram compiles every stage in sources and links them.
func (d *Device) CompileProgram(sources map[renderer.ShaderStage]string) (uint32, error) {
	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()

	for _, stage := range renderer.ShaderStages {
		src, ok := sources[stage]
		if !ok {
			continue
		}
		typ, ok := shaderTypes[stage]
		if !ok {
			return 0, fmt.Errorf("%s: %w", stage, errNoCompute)
		}
		shader, err := compileShader(src, typ)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", stage, err)
		}
		shaders = append(shaders, shader)
	}

	prog := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(prog, s)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", strings.TrimRight(log, "\x00"))
	}

	for _, s := range shaders {
		gl.DetachShader(prog, s)
	}
	return prog, nil
}

func (d *Device) DeleteProgram(program uint32) {
	if program == 0 {
		return
	}
	gl.DeleteProgram(program)
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
