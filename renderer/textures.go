package renderer

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"deferred-engine/internal/logger"
	"deferred-engine/scene"
)

// Texture unit offsets past the G-buffer attachments.
var textureUnitOffsets = map[string]int{
	scene.SlotAmbient:      0,
	scene.SlotDiffuse:      1,
	scene.SlotSpecular:     2,
	scene.SlotNormal:       3,
	scene.SlotDisplacement: 4,
}

const unknownTextureOffset = 10

// textureTypeToUnit maps a material slot to its texture unit. Units below
// the G-buffer's BoundBufferNum hold the G-buffer attachments.
func (r *Renderer) textureTypeToUnit(slot string) uint32 {
	offset, ok := textureUnitOffsets[slot]
	if !ok {
		logger.Log.Warn("unknown texture slot", zap.String("slot", slot))
		offset = unknownTextureOffset
	}
	return uint32(r.boundBufferNum() + offset)
}

func (r *Renderer) boundBufferNum() int {
	return r.geometryBuffer[0].BoundBufferNum()
}

// LoadTexturesForNode resolves every texture of node's material into
// st.Textures. File textures are shared through the resource cache;
// "fromBuffer:" references are uploaded for this node alone.
//
// It returns false, without blocking, when another caller holds the node's
// claim. Textures that fail to load are logged and skipped.
func (r *Renderer) LoadTexturesForNode(node *scene.Node, st *RenderState) bool {
	if !node.TryClaim() {
		return false
	}
	defer node.ReleaseClaim()

	mat := node.Material
	if mat == nil {
		return true
	}

	slots := make([]string, 0, len(mat.Textures))
	for slot := range mat.Textures {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		ref := mat.Textures[slot]
		if name, ok := scene.IsTransfer(ref); ok {
			tex, err := r.transferTexture(mat, name)
			if err != nil {
				logger.Log.Warn("texture skipped", zap.String("node", node.Name), zap.String("slot", slot), zap.Error(err))
				continue
			}
			st.setTexture(r.dev, slot, tex, true)
			continue
		}

		tex, err := r.fileTexture(ref)
		if err != nil {
			logger.Log.Warn("texture skipped", zap.String("node", node.Name), zap.String("slot", slot), zap.Error(err))
			continue
		}
		st.setTexture(r.dev, slot, tex, false)
	}
	return true
}

func (r *Renderer) transferTexture(mat *scene.Material, name string) (uint32, error) {
	tex, ok := mat.TransferTextures[name]
	if !ok {
		return 0, fmt.Errorf("transfer texture %q not found", name)
	}
	return r.dev.CreateTexture(tex)
}

func (r *Renderer) fileTexture(path string) (uint32, error) {
	if tex, ok := r.cache.Texture(path); ok {
		return tex, nil
	}
	img, err := scene.LoadTexture(path)
	if err != nil {
		return 0, err
	}
	tex, err := r.dev.CreateTexture(img)
	if err != nil {
		return 0, fmt.Errorf("upload %q: %w", path, err)
	}
	r.cache.PutTexture(path, tex)
	return tex, nil
}

// setTexture binds tex to slot. Textures owned by the state are deleted
// when replaced.
func (s *RenderState) setTexture(dev Device, slot string, tex uint32, owned bool) {
	if old, ok := s.Textures[slot]; ok && old != tex {
		if _, mine := s.owned[old]; mine {
			dev.DeleteTexture(old)
			delete(s.owned, old)
		}
	}
	s.Textures[slot] = tex
	if owned {
		s.owned[tex] = struct{}{}
	}
}

// setMaterialUniforms uploads colors and flags of node's material and binds
// its textures. A node without material is colored by its position.
func (r *Renderer) setMaterialUniforms(node *scene.Node, st *RenderState, p *Program) {
	mat := node.Material
	p.SetFloat("Material.Shininess", 0.001)
	if mat == nil {
		pos := node.WorldPosition()
		p.SetVec3("Material.Ka", pos)
		p.SetVec3("Material.Kd", pos)
		p.SetVec3("Material.Ks", pos)
	} else {
		p.SetVec3("Material.Ka", mat.Ambient)
		p.SetVec3("Material.Kd", mat.Diffuse)
		p.SetVec3("Material.Ks", mat.Specular)
		if mat.DoubleSided {
			r.dev.Cull(CullNone)
		}
	}
	r.dev.Blend(mat != nil && mat.Transparent)

	materialType := 0
	if len(st.Textures) > 0 {
		materialType = 1
	}
	if _, ok := st.Textures[scene.SlotNormal]; ok {
		materialType = 3
	}

	slots := make([]string, 0, len(st.Textures))
	for slot := range st.Textures {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	base := r.boundBufferNum()
	for _, slot := range slots {
		unit := r.textureTypeToUnit(slot)
		r.dev.BindTexture(unit, st.Textures[slot])
		p.SetInt(fmt.Sprintf("ObjectTextures[%d]", int(unit)-base), int(unit))
	}
	p.SetInt("materialType", materialType)
}
