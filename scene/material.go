package scene

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture slots understood by the deferred geometry shaders.
const (
	SlotAmbient      = "ambient"
	SlotDiffuse      = "diffuse"
	SlotSpecular     = "specular"
	SlotNormal       = "normal"
	SlotDisplacement = "displacement"
)

// TransferPrefix marks a texture reference resolved from
// Material.TransferTextures instead of the file system.
const TransferPrefix = "fromBuffer:"

// Material describes surface appearance for the geometry pass.
type Material struct {
	Name     string
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3

	// Textures maps a slot to either a file path or TransferPrefix+name.
	Textures         map[string]string
	TransferTextures map[string]*Texture

	DoubleSided bool
	Transparent bool

	// NeedsTextureReload is cleared by the renderer once every texture in
	// Textures has been resolved.
	NeedsTextureReload bool

	// Shader, when set, takes precedence over every other shader source.
	Shader *ShaderMaterial
}

// ShaderMaterial carries inline GLSL keyed by stage extension
// ("vert", "geom", "tese", "tesc", "frag", "comp").
type ShaderMaterial struct {
	Name    string
	Sources map[string]string
}

// ShaderPreference names shader files to load instead of the defaults.
// Parameters become #define lines inserted after #version.
type ShaderPreference struct {
	Files      []string
	Parameters map[string]string
}

// DefaultMaterial returns a plain grey material.
func DefaultMaterial() *Material {
	return &Material{
		Name:     "Default",
		Ambient:  mgl32.Vec3{0.5, 0.5, 0.5},
		Diffuse:  mgl32.Vec3{0.8, 0.8, 0.8},
		Specular: mgl32.Vec3{0.3, 0.3, 0.3},
	}
}

// NewMaterial creates a material with the given diffuse color.
func NewMaterial(name string, diffuse mgl32.Vec3) *Material {
	m := DefaultMaterial()
	m.Name = name
	m.Diffuse = diffuse
	return m
}

// SetTexture assigns ref to slot and schedules a reload.
func (m *Material) SetTexture(slot, ref string) {
	if m.Textures == nil {
		m.Textures = make(map[string]string)
	}
	m.Textures[slot] = ref
	m.NeedsTextureReload = true
}

// SetTransferTexture registers an in-memory texture under name and binds it to slot.
func (m *Material) SetTransferTexture(slot, name string, tex *Texture) {
	if m.TransferTextures == nil {
		m.TransferTextures = make(map[string]*Texture)
	}
	m.TransferTextures[name] = tex
	m.SetTexture(slot, TransferPrefix+name)
}

// IsTransfer reports whether ref names an in-memory texture, and returns its name.
func IsTransfer(ref string) (string, bool) {
	return strings.CutPrefix(ref, TransferPrefix)
}
