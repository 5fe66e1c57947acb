package renderer

import (
	"errors"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"deferred-engine/internal/logger"
	"deferred-engine/scene"
)

var defaultShaders = []string{"DefaultDeferred.vert", "DefaultDeferred.frag"}

// InitializeNode makes sure node has GPU geometry and a program. For an
// instance the prototype is initialized instead and its state shared; the
// prototype also gets its per-instance matrix buffers.
//
// A second call for an initialized node returns true and allocates nothing.
// It returns false with a nil error when the node cannot be initialized yet.
func (r *Renderer) InitializeNode(node *scene.Node) (bool, error) {
	if st, ok := r.arena.lookup(node.ID); ok && st.Initialized {
		return true, nil
	}

	if proto := node.InstanceOf; proto != nil {
		if proto.InstanceOf != nil {
			return false, fmt.Errorf("node %s: prototype %s is itself an instance", node.Name, proto.Name)
		}
		ok, err := r.InitializeNode(proto)
		if !ok || err != nil {
			return ok, err
		}
		slot, _ := r.arena.slot(proto.ID)
		r.arena.alias(node.ID, slot)
		st, _ := r.arena.lookup(proto.ID)
		r.ensureInstanceBuffers(st)
		return true, nil
	}

	if node.Geometry == nil {
		return false, nil
	}

	st, ok := r.arena.lookup(node.ID)
	if !ok {
		st = newRenderState(node.ID)
		st.Dynamic = node.Text != nil
		r.arena.add(node.ID, st)
	}

	prog, err := r.resolveProgram(node)
	if err != nil {
		return false, fmt.Errorf("initialize %s: %w", node.Name, err)
	}
	st.Program = prog

	r.uploadGeometry(node.Geometry, st)

	if mat := node.Material; mat != nil {
		mat.NeedsTextureReload = !r.LoadTexturesForNode(node, st)
	}

	st.Initialized = true
	return true, nil
}

// resolveProgram picks the node's program. In order of precedence: the
// material's inline shader, the class-derived shader set, the node's shader
// preference, the default deferred shaders.
func (r *Renderer) resolveProgram(node *scene.Node) (*Program, error) {
	switch {
	case node.Material != nil && node.Material.Shader != nil:
		return r.materialProgram(node.Material.Shader)

	case node.UseClassDerivedShader:
		files := r.shaders.ClassShaders(node.Class)
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: no shader files for class %q", ErrShaderCompile, node.Class)
		}
		return r.loadProgram(node.Class, files, nil)

	case node.ShaderPreference != nil:
		return r.loadProgram(node.Name, node.ShaderPreference.Files, node.ShaderPreference.Parameters)
	}
	return r.loadProgram("DefaultDeferred", defaultShaders, nil)
}

func (r *Renderer) materialProgram(sm *scene.ShaderMaterial) (*Program, error) {
	sources := make(map[ShaderStage]string, len(sm.Sources))
	files := make([]string, 0, len(sm.Sources))
	h := fnv.New64a()
	for _, stage := range ShaderStages {
		if src, ok := sm.Sources[string(stage)]; ok {
			sources[stage] = src
			files = append(files, sm.Name+"."+string(stage))
			fmt.Fprintf(h, "%s\x00%s\x00", stage, src)
		}
	}
	if len(sources) != len(sm.Sources) {
		return nil, fmt.Errorf("%w: %s: unknown shader stage", ErrShaderCompile, sm.Name)
	}
	// Materials may share a name; the source text tells them apart.
	key := fmt.Sprintf("material:%s#%016x", programKey(files, nil), h.Sum64())
	if p, ok := r.cache.Program(key); ok {
		return p, nil
	}
	return r.compileProgram(key, sm.Name, sources)
}

// loadProgram returns the cached program for files and params, compiling it
// on first use.
func (r *Renderer) loadProgram(name string, files []string, params map[string]string) (*Program, error) {
	key := programKey(files, params)
	if p, ok := r.cache.Program(key); ok {
		return p, nil
	}
	sources, err := r.shaders.Load(files, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderCompile, name, err)
	}
	return r.compileProgram(key, name, sources)
}

func (r *Renderer) compileProgram(key, name string, sources map[ShaderStage]string) (*Program, error) {
	id, err := r.dev.CompileProgram(sources)
	if err != nil {
		logger.Log.Error("shader program", zap.String("program", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderCompile, name, err)
	}
	p := newProgram(r.dev, name, id)
	r.cache.PutProgram(key, p)
	return p, nil
}

// InitializeScene eagerly initializes every drawable node of sc. Nodes that
// fail are reported together; the rest stay initialized.
func (r *Renderer) InitializeScene(sc *scene.Scene) error {
	nodes := sc.Discover(func(n *scene.Node) bool { return n.Renderable() && n.HasGeometry() })

	var errs []error
	for _, n := range nodes {
		if _, err := r.InitializeNode(n); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Log.Info("scene initialized",
		zap.Int("nodes", len(nodes)),
		zap.Int("textures", r.cache.TextureCount()))
	return errors.Join(errs...)
}

// ForgetNode drops node's render state. GPU objects owned by the node are
// deleted; instances only lose their reference to the prototype's state.
func (r *Renderer) ForgetNode(node *scene.Node) {
	slot, ok := r.arena.slot(node.ID)
	if !ok {
		return
	}
	if st := r.arena.states[slot]; st != nil && st.ownerID == node.ID {
		st.release(r.dev)
		r.arena.replace(slot, nil)
	}
	r.arena.forget(node.ID)
}

// State returns the render state bound to node, if any.
func (r *Renderer) State(node *scene.Node) (*RenderState, bool) {
	return r.arena.lookup(node.ID)
}
