package renderer

import "github.com/go-gl/mathgl/mgl32"

// Program is a linked shader program with cached uniform locations.
type Program struct {
	ID   uint32
	Name string

	dev      Device
	uniforms map[string]int32
}

func newProgram(dev Device, name string, id uint32) *Program {
	return &Program{ID: id, Name: name, dev: dev, uniforms: make(map[string]int32)}
}

func (p *Program) Use() {
	p.dev.UseProgram(p.ID)
}

// Uniform returns the location of name, -1 when the program does not use it.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.dev.UniformLocation(p.ID, name)
	p.uniforms[name] = loc
	return loc
}

func (p *Program) SetInt(name string, v int) {
	p.dev.Uniform1i(p.Uniform(name), int32(v))
}

func (p *Program) SetBool(name string, v bool) {
	p.SetInt(name, boolToInt(v))
}

func (p *Program) SetFloat(name string, v float32) {
	p.dev.Uniform1f(p.Uniform(name), v)
}

func (p *Program) SetVec2(name string, v mgl32.Vec2) {
	p.dev.Uniform2f(p.Uniform(name), v)
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	p.dev.Uniform3f(p.Uniform(name), v)
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	p.dev.UniformMatrix4(p.Uniform(name), m)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
