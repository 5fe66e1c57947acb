package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

// BufferTarget selects the binding point a buffer is uploaded to.
type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// BufferUsage is the upload usage hint.
type BufferUsage int

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
)

// Primitive is the assembly mode of a draw call.
type Primitive int

const (
	PrimTriangles Primitive = iota
	PrimTriangleStrip
	PrimTriangleFan
	PrimLineStrip
	PrimPoints
)

// AttachmentFormat is the storage format of a framebuffer attachment.
type AttachmentFormat int

const (
	FormatFloatRGB AttachmentFormat = iota
	FormatUnsignedByteRGBA
	FormatDepth
)

func (f AttachmentFormat) String() string {
	switch f {
	case FormatFloatRGB:
		return "FloatRGB"
	case FormatUnsignedByteRGBA:
		return "UnsignedByteRGBA"
	case FormatDepth:
		return "Depth"
	}
	return "Unknown"
}

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// ShaderStage is a shader file extension, also used as the stage key.
type ShaderStage string

const (
	StageVertex         ShaderStage = "vert"
	StageGeometry       ShaderStage = "geom"
	StageTessEvaluation ShaderStage = "tese"
	StageTessControl    ShaderStage = "tesc"
	StageFragment       ShaderStage = "frag"
	StageCompute        ShaderStage = "comp"
)

// ShaderStages lists every stage in lookup order.
var ShaderStages = []ShaderStage{
	StageVertex, StageGeometry, StageTessEvaluation, StageTessControl, StageFragment, StageCompute,
}

// Device is the subset of the graphics API the deferred renderer drives.
// All handles are API object names; 0 means none (or the default
// framebuffer). Every method must be called on the goroutine owning the context.
type Device interface {
	Info() string

	CreateVertexArray() uint32
	DeleteVertexArray(vao uint32)
	BindVertexArray(vao uint32)
	CreateBuffer() uint32
	DeleteBuffer(buf uint32)
	UploadFloats(target BufferTarget, buf uint32, data []float32, usage BufferUsage)
	UpdateFloats(target BufferTarget, buf uint32, data []float32)
	UploadIndices(buf uint32, data []uint32, usage BufferUsage)
	UpdateIndices(buf uint32, data []uint32)
	// VertexAttrib binds buf to attribute location of vao with components
	// floats per element. A divisor of 1 advances the attribute per instance.
	VertexAttrib(vao, buf, location uint32, components, stride int32, offset int, divisor uint32)
	// ElementBuffer attaches an index buffer to vao.
	ElementBuffer(vao, buf uint32)

	CompileProgram(sources map[ShaderStage]string) (uint32, error)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, v mgl32.Vec2)
	Uniform3f(location int32, v mgl32.Vec3)
	UniformMatrix4(location int32, m mgl32.Mat4)

	CreateTexture(tex *scene.Texture) (uint32, error)
	DeleteTexture(tex uint32)
	BindTexture(unit uint32, tex uint32)

	CreateFramebuffer() uint32
	DeleteFramebuffer(fb uint32)
	// CreateAttachment allocates a width x height texture in format and
	// attaches it to fb at color index (ignored for FormatDepth).
	CreateAttachment(fb uint32, index int, format AttachmentFormat, bits, width, height int) uint32
	FramebufferStatus(fb uint32) error
	BindFramebuffer(fb uint32)
	DrawBuffers(fb uint32, count int)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(color, depth bool)
	// DepthTest toggles depth testing with a less-or-equal comparison.
	DepthTest(enabled bool)
	// Cull selects the culled faces; front faces wind counter-clockwise.
	Cull(mode CullMode)
	// Blend enables SRC_COLOR, ONE_MINUS_SRC_ALPHA blending, or disables blending.
	Blend(enabled bool)
	ColorMask(r, g, b, a bool)

	// Draw calls use the bound vertex array.
	DrawArrays(prim Primitive, first, count int32)
	DrawElements(prim Primitive, count int32)
	DrawArraysInstanced(prim Primitive, count, instances int32)
	DrawElementsInstanced(prim Primitive, count, instances int32)
}

func primitiveOf(t scene.GeometryType) Primitive {
	switch t {
	case scene.TriangleStrip:
		return PrimTriangleStrip
	case scene.TriangleFan:
		return PrimTriangleFan
	case scene.LineStrip:
		return PrimLineStrip
	case scene.Points:
		return PrimPoints
	}
	// Polygon is drawn as triangles.
	return PrimTriangles
}
