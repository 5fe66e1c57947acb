// Package opengl implements renderer.Device on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/renderer"
)

// Device drives the current OpenGL context. Every method must be called on
// the goroutine that made the context current.
type Device struct{}

var _ renderer.Device = (*Device)(nil)

// NewDevice initialises OpenGL.
// Must be called after the GLFW window context is made current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	gl.DepthFunc(gl.LEQUAL)
	gl.FrontFace(gl.CCW)
	return &Device{}, nil
}

func (d *Device) Info() string {
	return fmt.Sprintf("%s (%s, GLSL %s)",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.RENDERER)),
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)))
}

// ── Vertex arrays and buffers ─────────────────────────────────────────────────

func (d *Device) CreateVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (d *Device) DeleteVertexArray(vao uint32) {
	if vao != 0 {
		gl.DeleteVertexArrays(1, &vao)
	}
}

func (d *Device) BindVertexArray(vao uint32) {
	gl.BindVertexArray(vao)
}

func (d *Device) CreateBuffer() uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return buf
}

func (d *Device) DeleteBuffer(buf uint32) {
	if buf != 0 {
		gl.DeleteBuffers(1, &buf)
	}
}

func (d *Device) UploadFloats(target renderer.BufferTarget, buf uint32, data []float32, usage renderer.BufferUsage) {
	t := bufferTarget(target)
	gl.BindBuffer(t, buf)
	if len(data) == 0 {
		gl.BufferData(t, 0, nil, bufferUsage(usage))
	} else {
		gl.BufferData(t, len(data)*4, gl.Ptr(data), bufferUsage(usage))
	}
	gl.BindBuffer(t, 0)
}

func (d *Device) UpdateFloats(target renderer.BufferTarget, buf uint32, data []float32) {
	if len(data) == 0 {
		return
	}
	t := bufferTarget(target)
	gl.BindBuffer(t, buf)
	gl.BufferSubData(t, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(t, 0)
}

// Index data goes through COPY_WRITE_BUFFER so the element binding of
// whatever vertex array is bound stays untouched.
func (d *Device) UploadIndices(buf uint32, data []uint32, usage renderer.BufferUsage) {
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, buf)
	if len(data) == 0 {
		gl.BufferData(gl.COPY_WRITE_BUFFER, 0, nil, bufferUsage(usage))
	} else {
		gl.BufferData(gl.COPY_WRITE_BUFFER, len(data)*4, gl.Ptr(data), bufferUsage(usage))
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
}

func (d *Device) UpdateIndices(buf uint32, data []uint32) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, buf)
	gl.BufferSubData(gl.COPY_WRITE_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
}

func (d *Device) VertexAttrib(vao, buf, location uint32, components, stride int32, offset int, divisor uint32) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.EnableVertexAttribArray(location)
	gl.VertexAttribPointer(location, components, gl.FLOAT, false, stride, gl.PtrOffset(offset))
	gl.VertexAttribDivisor(location, divisor)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *Device) ElementBuffer(vao, buf uint32) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf)
	gl.BindVertexArray(0)
}

func bufferTarget(t renderer.BufferTarget) uint32 {
	if t == renderer.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func bufferUsage(u renderer.BufferUsage) uint32 {
	if u == renderer.DynamicDraw {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

// ── Uniforms ──────────────────────────────────────────────────────────────────

func (d *Device) UseProgram(program uint32) {
	gl.UseProgram(program)
}

// UniformLocation returns -1 for names the linker removed; setting -1 is a no-op.
// renderer.Program caches the result.
func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(location int32, v int32)   { gl.Uniform1i(location, v) }
func (d *Device) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }

func (d *Device) Uniform2f(location int32, v mgl32.Vec2) {
	gl.Uniform2f(location, v[0], v[1])
}

func (d *Device) Uniform3f(location int32, v mgl32.Vec3) {
	gl.Uniform3f(location, v[0], v[1], v[2])
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

// ── State ─────────────────────────────────────────────────────────────────────

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *Device) Clear(color, depth bool) {
	var mask uint32
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func (d *Device) DepthTest(enabled bool) {
	if !enabled {
		gl.Disable(gl.DEPTH_TEST)
		return
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
}

func (d *Device) Cull(mode renderer.CullMode) {
	switch mode {
	case renderer.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case renderer.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Disable(gl.CULL_FACE)
	}
}

func (d *Device) Blend(enabled bool) {
	if !enabled {
		gl.Disable(gl.BLEND)
		return
	}
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_COLOR, gl.ONE_MINUS_SRC_ALPHA)
}

func (d *Device) ColorMask(r, g, b, a bool) {
	gl.ColorMask(r, g, b, a)
}

// ── Draw calls ────────────────────────────────────────────────────────────────

func (d *Device) DrawArrays(prim renderer.Primitive, first, count int32) {
	gl.DrawArrays(primitive(prim), first, count)
}

func (d *Device) DrawElements(prim renderer.Primitive, count int32) {
	gl.DrawElements(primitive(prim), count, gl.UNSIGNED_INT, nil)
}

func (d *Device) DrawArraysInstanced(prim renderer.Primitive, count, instances int32) {
	gl.DrawArraysInstanced(primitive(prim), 0, count, instances)
}

func (d *Device) DrawElementsInstanced(prim renderer.Primitive, count, instances int32) {
	gl.DrawElementsInstanced(primitive(prim), count, gl.UNSIGNED_INT, nil, instances)
}

func primitive(p renderer.Primitive) uint32 {
	switch p {
	case renderer.PrimTriangleStrip:
		return gl.TRIANGLE_STRIP
	case renderer.PrimTriangleFan:
		return gl.TRIANGLE_FAN
	case renderer.PrimLineStrip:
		return gl.LINE_STRIP
	case renderer.PrimPoints:
		return gl.POINTS
	}
	return gl.TRIANGLES
}
