package renderer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

type drawCall struct {
	kind        string
	framebuffer uint32
	program     uint32
	vao         uint32
	count       int32
	instances   int32
}

type upload struct {
	buf   uint32
	n     int
	usage BufferUsage
	sub   bool
}

type attribute struct {
	vao, buf, location uint32
	components, stride int32
	offset             int
	divisor            uint32
}

// fakeDevice records every call the renderer makes. Handles are unique
// across object kinds.
type fakeDevice struct {
	next uint32

	created map[string]int
	deleted map[string]int
	live    map[uint32]string

	framebuffer uint32
	program     uint32
	vao         uint32

	attachments  map[uint32][2]int
	drawBuffers  map[uint32]int
	incomplete   map[uint32]bool
	compileFails string

	programs   map[uint32]map[ShaderStage]string
	locations  map[string]int32
	locNames   map[int32]string
	lookups    map[string]int
	uniforms   map[string]any
	boundUnits map[uint32]uint32

	uploads    []upload
	attributes []attribute
	draws      []drawCall
	colorMasks [][4]bool
	culls      []CullMode
	textures   []*scene.Texture
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		created:     make(map[string]int),
		deleted:     make(map[string]int),
		live:        make(map[uint32]string),
		attachments: make(map[uint32][2]int),
		drawBuffers: make(map[uint32]int),
		incomplete:  make(map[uint32]bool),
		programs:    make(map[uint32]map[ShaderStage]string),
		locations:   make(map[string]int32),
		locNames:    make(map[int32]string),
		lookups:     make(map[string]int),
		uniforms:    make(map[string]any),
		boundUnits:  make(map[uint32]uint32),
	}
}

func (d *fakeDevice) alloc(kind string) uint32 {
	d.next++
	d.created[kind]++
	d.live[d.next] = kind
	return d.next
}

func (d *fakeDevice) free(kind string, id uint32) {
	if id == 0 {
		return
	}
	d.deleted[kind]++
	delete(d.live, id)
}

func (d *fakeDevice) Info() string { return "fake device" }

func (d *fakeDevice) CreateVertexArray() uint32    { return d.alloc("vao") }
func (d *fakeDevice) DeleteVertexArray(vao uint32) { d.free("vao", vao) }
func (d *fakeDevice) BindVertexArray(vao uint32)   { d.vao = vao }
func (d *fakeDevice) CreateBuffer() uint32         { return d.alloc("buffer") }
func (d *fakeDevice) DeleteBuffer(buf uint32)      { d.free("buffer", buf) }

func (d *fakeDevice) UploadFloats(_ BufferTarget, buf uint32, data []float32, usage BufferUsage) {
	d.uploads = append(d.uploads, upload{buf: buf, n: len(data), usage: usage})
}

func (d *fakeDevice) UpdateFloats(_ BufferTarget, buf uint32, data []float32) {
	d.uploads = append(d.uploads, upload{buf: buf, n: len(data), sub: true})
}

func (d *fakeDevice) UploadIndices(buf uint32, data []uint32, usage BufferUsage) {
	d.uploads = append(d.uploads, upload{buf: buf, n: len(data), usage: usage})
}

func (d *fakeDevice) UpdateIndices(buf uint32, data []uint32) {
	d.uploads = append(d.uploads, upload{buf: buf, n: len(data), sub: true})
}

func (d *fakeDevice) VertexAttrib(vao, buf, location uint32, components, stride int32, offset int, divisor uint32) {
	d.attributes = append(d.attributes, attribute{vao, buf, location, components, stride, offset, divisor})
}

func (d *fakeDevice) ElementBuffer(vao, buf uint32) {}

func (d *fakeDevice) CompileProgram(sources map[ShaderStage]string) (uint32, error) {
	for _, src := range sources {
		if d.compileFails != "" && strings.Contains(src, d.compileFails) {
			return 0, errors.New("0:1: syntax error")
		}
	}
	id := d.alloc("program")
	d.programs[id] = sources
	return id, nil
}

func (d *fakeDevice) DeleteProgram(program uint32) { d.free("program", program) }
func (d *fakeDevice) UseProgram(program uint32)    { d.program = program }

func (d *fakeDevice) UniformLocation(program uint32, name string) int32 {
	key := fmt.Sprintf("%d:%s", program, name)
	d.lookups[key]++
	if loc, ok := d.locations[key]; ok {
		return loc
	}
	loc := int32(len(d.locations))
	d.locations[key] = loc
	d.locNames[loc] = key
	return loc
}

func (d *fakeDevice) setUniform(loc int32, v any) { d.uniforms[d.locNames[loc]] = v }

func (d *fakeDevice) Uniform1i(loc int32, v int32)           { d.setUniform(loc, v) }
func (d *fakeDevice) Uniform1f(loc int32, v float32)         { d.setUniform(loc, v) }
func (d *fakeDevice) Uniform2f(loc int32, v mgl32.Vec2)      { d.setUniform(loc, v) }
func (d *fakeDevice) Uniform3f(loc int32, v mgl32.Vec3)      { d.setUniform(loc, v) }
func (d *fakeDevice) UniformMatrix4(loc int32, m mgl32.Mat4) { d.setUniform(loc, m) }

// uniform returns the last value set for name in program.
func (d *fakeDevice) uniform(program uint32, name string) any {
	return d.uniforms[fmt.Sprintf("%d:%s", program, name)]
}

func (d *fakeDevice) CreateTexture(tex *scene.Texture) (uint32, error) {
	d.textures = append(d.textures, tex)
	return d.alloc("texture"), nil
}

func (d *fakeDevice) DeleteTexture(tex uint32)           { d.free("texture", tex) }
func (d *fakeDevice) BindTexture(unit uint32, tex uint32) { d.boundUnits[unit] = tex }

func (d *fakeDevice) CreateFramebuffer() uint32     { return d.alloc("framebuffer") }
func (d *fakeDevice) DeleteFramebuffer(fb uint32)   { d.free("framebuffer", fb) }
func (d *fakeDevice) BindFramebuffer(fb uint32)     { d.framebuffer = fb }
func (d *fakeDevice) DrawBuffers(fb uint32, n int)  { d.drawBuffers[fb] = n }
func (d *fakeDevice) Viewport(x, y, w, h int)       {}
func (d *fakeDevice) ClearColor(r, g, b, a float32) {}
func (d *fakeDevice) Clear(color, depth bool)       {}
func (d *fakeDevice) DepthTest(enabled bool)        {}
func (d *fakeDevice) Cull(mode CullMode)            { d.culls = append(d.culls, mode) }
func (d *fakeDevice) Blend(enabled bool)            {}

func (d *fakeDevice) CreateAttachment(fb uint32, index int, format AttachmentFormat, bits, width, height int) uint32 {
	tex := d.alloc("texture")
	d.attachments[tex] = [2]int{width, height}
	return tex
}

func (d *fakeDevice) FramebufferStatus(fb uint32) error {
	if d.incomplete[fb] {
		return errors.New("missing attachment")
	}
	return nil
}

func (d *fakeDevice) ColorMask(r, g, b, a bool) {
	d.colorMasks = append(d.colorMasks, [4]bool{r, g, b, a})
}

func (d *fakeDevice) record(kind string, count, instances int32) {
	d.draws = append(d.draws, drawCall{
		kind:        kind,
		framebuffer: d.framebuffer,
		program:     d.program,
		vao:         d.vao,
		count:       count,
		instances:   instances,
	})
}

func (d *fakeDevice) DrawArrays(prim Primitive, first, count int32) { d.record("arrays", count, 0) }
func (d *fakeDevice) DrawElements(prim Primitive, count int32)      { d.record("elements", count, 0) }

func (d *fakeDevice) DrawArraysInstanced(prim Primitive, count, instances int32) {
	d.record("arraysInstanced", count, instances)
}

func (d *fakeDevice) DrawElementsInstanced(prim Primitive, count, instances int32) {
	d.record("elementsInstanced", count, instances)
}

// drawsInto returns the draws issued while fb was bound.
func (d *fakeDevice) drawsInto(fb uint32) []drawCall {
	var out []drawCall
	for _, dc := range d.draws {
		if dc.framebuffer == fb {
			out = append(out, dc)
		}
	}
	return out
}

func (d *fakeDevice) reset() {
	d.draws = nil
	d.uploads = nil
	d.colorMasks = nil
	d.culls = nil
}
