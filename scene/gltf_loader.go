package scene

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
)

// LoadGLTF opens a .glb or .gltf file and returns its root nodes, ready to be
// added with Scene.AddNode. Textures referenced by URI stay file references
// so the renderer's cache can share them; embedded images become transfer
// textures. Metallic-roughness is approximated by diffuse/specular colors.
func LoadGLTF(path string) ([]*Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	// ── 1. Materials ─────────────────────────────────────────────────────────
	materials := make([]*Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := DefaultMaterial()
		mat.Name = gm.Name
		mat.DoubleSided = gm.DoubleSided
		mat.Transparent = gm.AlphaMode == gltf.AlphaBlend

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.Diffuse = mgl32.Vec3{float32(cf[0]), float32(cf[1]), float32(cf[2])}
			mat.Ambient = mat.Diffuse.Mul(0.2)
			if pbr.BaseColorTexture != nil {
				bindGLTFTexture(doc, dir, mat, SlotDiffuse, pbr.BaseColorTexture.Index)
			}
			s := float32(pbr.MetallicFactorOrDefault()) * 0.7
			mat.Specular = mgl32.Vec3{s, s, s}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			bindGLTFTexture(doc, dir, mat, SlotNormal, *gm.NormalTexture.Index)
		}
		materials[i] = mat
	}

	// ── 2. Mesh primitives ────────────────────────────────────────────────────
	// meshPrims[meshIdx] holds one entry per primitive
	type prim struct {
		geom *Geometry
		mat  *Material
	}
	meshPrims := make([][]prim, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, p := range gm.Primitives {
			g, err := loadGLTFPrimitive(doc, *p)
			if err != nil {
				logger.Log.Warn("gltf primitive skipped",
					zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			mat := DefaultMaterial()
			if p.Material != nil && *p.Material < len(materials) {
				mat = materials[*p.Material]
			}
			meshPrims[mi] = append(meshPrims[mi], prim{g, mat})
		}
	}

	// ── 3. Nodes ──────────────────────────────────────────────────────────────
	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])})

		sc := gn.ScaleOrDefault()
		n.SetScale(mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])})

		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetRotation(mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
			case 1:
				n.Geometry, n.Material = prims[0].geom, prims[0].mat
			default:
				// one child node per primitive
				for pi, p := range prims {
					n.AddChild(NewMesh(fmt.Sprintf("%s_prim%d", name, pi), p.geom, p.mat))
				}
			}
		}
		nodes[i] = n
	}

	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
			}
		}
	}

	// ── 4. Root nodes ─────────────────────────────────────────────────────────
	var roots []*Node
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				roots = append(roots, nodes[rootIdx])
			}
		}
		return roots, nil
	}
	for _, n := range nodes {
		if n.Parent == nil {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

// bindGLTFTexture resolves texture index idx and assigns it to slot.
func bindGLTFTexture(doc *gltf.Document, dir string, mat *Material, slot string, idx int) {
	if idx < 0 || idx >= len(doc.Textures) || doc.Textures[idx].Source == nil {
		return
	}
	src := *doc.Textures[idx].Source
	img := doc.Images[src]

	switch {
	case img.BufferView != nil:
		raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			logger.Log.Warn("gltf image buffer view", zap.Int("image", src), zap.Error(err))
			return
		}
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("gltf_img_%d", src)
		}
		tex, err := DecodeTexture(name, bytes.NewReader(raw))
		if err != nil {
			logger.Log.Warn("gltf image decode", zap.Int("image", src), zap.Error(err))
			return
		}
		mat.SetTransferTexture(slot, name, tex)
	case img.URI != "" && !img.IsEmbeddedResource():
		mat.SetTexture(slot, filepath.Join(dir, img.URI))
	}
}

func geometryTypeOf(mode gltf.PrimitiveMode) GeometryType {
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		return TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return TriangleFan
	case gltf.PrimitiveLineStrip:
		return LineStrip
	case gltf.PrimitivePoints:
		return Points
	}
	return Triangles
}

// loadGLTFPrimitive converts one glTF mesh primitive into a Geometry.
func loadGLTFPrimitive(doc *gltf.Document, p gltf.Primitive) (*Geometry, error) {
	posIdx, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := p.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := p.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	g := NewGeometry(geometryTypeOf(p.Mode))
	g.Vertices = make([]float32, 0, len(positions)*3)
	g.Normals = make([]float32, 0, len(positions)*3)
	for i, pos := range positions {
		g.Vertices = append(g.Vertices, pos[0], pos[1], pos[2])
		if i < len(normals) {
			g.Normals = append(g.Normals, normals[i][0], normals[i][1], normals[i][2])
		} else {
			g.Normals = append(g.Normals, 0, 1, 0)
		}
	}
	if len(uvs) == len(positions) {
		g.Texcoords = make([]float32, 0, len(uvs)*2)
		for _, uv := range uvs {
			g.Texcoords = append(g.Texcoords, uv[0], uv[1])
		}
	}

	if p.Indices != nil {
		g.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}
	return g, nil
}
