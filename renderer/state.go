package renderer

// Vertex channel buffer names in RenderState.Buffers.
const (
	bufVertices  = "vertices"
	bufNormals   = "normals"
	bufTexcoords = "texcoords"
	bufIndices   = "indices"
)

// Auxiliary per-instance transform buffers, in attribute order.
var instanceMatrices = []string{"Model", "ModelView", "MVP"}

// RenderState is the GPU-side mirror of one node. Instances share their
// prototype's state by arena index.
type RenderState struct {
	Initialized bool
	Program     *Program

	VAO     uint32
	Buffers map[string]uint32
	// sizes holds the element count of each buffer's last full upload.
	sizes map[string]int

	// InstanceBuffers holds the "Model", "ModelView" and "MVP" buffers of a prototype.
	InstanceBuffers map[string]uint32

	// Textures maps a material slot to its GPU texture.
	Textures map[string]uint32
	// owned textures were uploaded for this node alone and are deleted with it.
	owned map[uint32]struct{}

	Primitive   Primitive
	VertexCount int32
	IndexCount  int32

	// Dynamic selects the dynamic usage hint for the first upload.
	Dynamic bool

	ownerID uint32
}

func newRenderState(ownerID uint32) *RenderState {
	return &RenderState{
		Buffers:         make(map[string]uint32),
		sizes:           make(map[string]int),
		InstanceBuffers: make(map[string]uint32),
		Textures:        make(map[string]uint32),
		owned:           make(map[uint32]struct{}),
		ownerID:         ownerID,
	}
}

func (s *RenderState) usage() BufferUsage {
	if s.Dynamic {
		return DynamicDraw
	}
	return StaticDraw
}

// release deletes every GPU object owned by the state. Cached textures and
// programs belong to the ResourceCache and are left alone.
func (s *RenderState) release(dev Device) {
	for name, buf := range s.Buffers {
		dev.DeleteBuffer(buf)
		delete(s.Buffers, name)
	}
	for name, buf := range s.InstanceBuffers {
		dev.DeleteBuffer(buf)
		delete(s.InstanceBuffers, name)
	}
	for tex := range s.owned {
		dev.DeleteTexture(tex)
		delete(s.owned, tex)
	}
	if s.VAO != 0 {
		dev.DeleteVertexArray(s.VAO)
		s.VAO = 0
	}
	s.Initialized = false
}

// stateArena stores render states in a slice addressed by node ID.
// Several IDs may point at the same slot; a slot is reused once no ID
// refers to it.
type stateArena struct {
	states []*RenderState
	refs   []int
	free   []int
	index  map[uint32]int
}

func newStateArena() *stateArena {
	return &stateArena{index: make(map[uint32]int)}
}

func (a *stateArena) lookup(id uint32) (*RenderState, bool) {
	slot, ok := a.index[id]
	if !ok || a.states[slot] == nil {
		return nil, false
	}
	return a.states[slot], true
}

func (a *stateArena) slot(id uint32) (int, bool) {
	slot, ok := a.index[id]
	return slot, ok
}

// add stores s in a free slot for id.
func (a *stateArena) add(id uint32, s *RenderState) int {
	var slot int
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
		a.states[slot] = s
	} else {
		a.states = append(a.states, s)
		a.refs = append(a.refs, 0)
		slot = len(a.states) - 1
	}
	a.point(id, slot)
	return slot
}

// alias points id at an existing slot.
func (a *stateArena) alias(id uint32, slot int) {
	a.point(id, slot)
}

func (a *stateArena) point(id uint32, slot int) {
	if old, ok := a.index[id]; ok {
		if old == slot {
			return
		}
		a.unref(old)
	}
	a.index[id] = slot
	a.refs[slot]++
}

func (a *stateArena) replace(slot int, s *RenderState) {
	a.states[slot] = s
}

func (a *stateArena) forget(id uint32) {
	slot, ok := a.index[id]
	if !ok {
		return
	}
	delete(a.index, id)
	a.unref(slot)
}

func (a *stateArena) unref(slot int) {
	a.refs[slot]--
	if a.refs[slot] == 0 {
		a.states[slot] = nil
		a.free = append(a.free, slot)
	}
}

// live returns every non-nil state once.
func (a *stateArena) live() []*RenderState {
	out := make([]*RenderState, 0, len(a.states))
	for _, s := range a.states {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
