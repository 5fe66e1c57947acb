package renderer

import (
	"fmt"

	"deferred-engine/fonts"
	"deferred-engine/scene"
)

// Vertex attribute locations of the geometry channels.
const (
	locVertices  = 0
	locNormals   = 1
	locTexcoords = 2
)

// uploadGeometry creates st's vertex array and one buffer per channel.
// Channels that already have a buffer are left as they are.
func (r *Renderer) uploadGeometry(g *scene.Geometry, st *RenderState) {
	if st.VAO == 0 {
		st.VAO = r.dev.CreateVertexArray()
	}
	usage := st.usage()

	r.ensureChannel(st, bufVertices, locVertices, sizeOr(g.VertexSize, 3), g.Vertices, usage)
	r.ensureChannel(st, bufNormals, locNormals, 3, g.Normals, usage)
	if len(g.Texcoords) > 0 {
		r.ensureChannel(st, bufTexcoords, locTexcoords, sizeOr(g.TexcoordSize, 2), g.Texcoords, usage)
	}
	if len(g.Indices) > 0 {
		r.ensureIndices(st, g.Indices, usage)
	}
	r.updateCounts(g, st)
}

func (r *Renderer) ensureChannel(st *RenderState, name string, loc uint32, components int, data []float32, usage BufferUsage) {
	if _, ok := st.Buffers[name]; ok {
		return
	}
	buf := r.dev.CreateBuffer()
	r.dev.UploadFloats(ArrayBuffer, buf, data, usage)
	r.dev.VertexAttrib(st.VAO, buf, loc, int32(components), 0, 0, 0)
	st.Buffers[name] = buf
	st.sizes[name] = len(data)
}

func (r *Renderer) ensureIndices(st *RenderState, indices []uint32, usage BufferUsage) {
	if _, ok := st.Buffers[bufIndices]; ok {
		return
	}
	buf := r.dev.CreateBuffer()
	r.dev.UploadIndices(buf, indices, usage)
	r.dev.ElementBuffer(st.VAO, buf)
	st.Buffers[bufIndices] = buf
	st.sizes[bufIndices] = len(indices)
}

// updateGeometry refreshes st from g. Vertices are always re-uploaded in
// full; the other channels are updated in place when their size is unchanged.
func (r *Renderer) updateGeometry(g *scene.Geometry, st *RenderState) {
	if buf, ok := st.Buffers[bufVertices]; ok {
		r.dev.UploadFloats(ArrayBuffer, buf, g.Vertices, DynamicDraw)
		st.sizes[bufVertices] = len(g.Vertices)
	} else {
		r.ensureChannel(st, bufVertices, locVertices, sizeOr(g.VertexSize, 3), g.Vertices, DynamicDraw)
	}

	r.refreshChannel(st, bufNormals, locNormals, 3, g.Normals)
	if len(g.Texcoords) > 0 {
		r.refreshChannel(st, bufTexcoords, locTexcoords, sizeOr(g.TexcoordSize, 2), g.Texcoords)
	}
	if len(g.Indices) > 0 {
		if buf, ok := st.Buffers[bufIndices]; !ok {
			r.ensureIndices(st, g.Indices, DynamicDraw)
		} else if st.sizes[bufIndices] == len(g.Indices) {
			r.dev.UpdateIndices(buf, g.Indices)
		} else {
			r.dev.UploadIndices(buf, g.Indices, DynamicDraw)
			st.sizes[bufIndices] = len(g.Indices)
		}
	}
	r.updateCounts(g, st)
}

func (r *Renderer) refreshChannel(st *RenderState, name string, loc uint32, components int, data []float32) {
	buf, ok := st.Buffers[name]
	switch {
	case !ok:
		r.ensureChannel(st, name, loc, components, data, DynamicDraw)
	case st.sizes[name] == len(data):
		r.dev.UpdateFloats(ArrayBuffer, buf, data)
	default:
		r.dev.UploadFloats(ArrayBuffer, buf, data, DynamicDraw)
		st.sizes[name] = len(data)
	}
}

func (r *Renderer) updateCounts(g *scene.Geometry, st *RenderState) {
	st.Primitive = primitiveOf(g.Type)
	st.VertexCount = int32(g.VertexCount())
	st.IndexCount = int32(len(g.Indices))
}

func sizeOr(size, fallback int) int {
	if size <= 0 {
		return fallback
	}
	return size
}

// refreshNode re-uploads a dirty node's geometry. Text nodes first rebuild
// their mesh from the glyph atlas and start over with a fresh render state.
func (r *Renderer) refreshNode(node *scene.Node) error {
	if node.Text != nil {
		if err := r.rebuildText(node); err != nil {
			return err
		}
	}
	st, ok := r.arena.lookup(node.ID)
	if !ok {
		return fmt.Errorf("node %s has no render state", node.Name)
	}
	r.updateGeometry(node.Geometry, st)
	node.Dirty = false
	return nil
}

func (r *Renderer) rebuildText(node *scene.Node) error {
	atlas, err := r.atlas(node.Text.Font)
	if err != nil {
		return err
	}
	node.Geometry = atlas.MeshForString(node.Text.Text)
	if node.Material != nil {
		node.Material.Diffuse = node.Text.Color
	}

	r.resetState(node)
	if _, err := r.InitializeNode(node); err != nil {
		return err
	}
	st, ok := r.arena.lookup(node.ID)
	if !ok {
		return fmt.Errorf("node %s has no render state", node.Name)
	}

	key := "sdf-" + atlas.Font
	tex, ok := r.cache.Texture(key)
	if !ok {
		tex, err = r.dev.CreateTexture(atlas.Texture())
		if err != nil {
			return fmt.Errorf("font atlas %s: %w", atlas.Font, err)
		}
		r.cache.PutTexture(key, tex)
	}
	st.setTexture(r.dev, scene.SlotDiffuse, tex, false)
	return nil
}

// resetState releases node's GPU objects and puts an empty state in the
// same arena slot, so instances pointing at the slot follow along.
func (r *Renderer) resetState(node *scene.Node) {
	slot, ok := r.arena.slot(node.ID)
	if !ok {
		return
	}
	if old := r.arena.states[slot]; old != nil {
		old.release(r.dev)
	}
	fresh := newRenderState(node.ID)
	fresh.Dynamic = true
	r.arena.replace(slot, fresh)
}

func (r *Renderer) atlas(font string) (*fonts.Atlas, error) {
	if a, ok := r.atlases[font]; ok {
		return a, nil
	}
	a, err := fonts.NewAtlas(font)
	if err != nil {
		return nil, err
	}
	r.atlases[font] = a
	return a, nil
}
