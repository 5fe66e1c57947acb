package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
	"deferred-engine/scene"
	"deferred-engine/settings"
)

// maxLights matches MAX_LIGHTS in DeferredLighting.frag.
const maxLights = 64

// instanceGroup is a prototype and the visible nodes instancing it.
type instanceGroup struct {
	prototype *scene.Node
	instances []*scene.Node
}

// partition splits nodes into those drawn on their own and groups drawn
// with one instanced call per prototype. Prototypes of a group are not
// drawn on their own. Order follows nodes.
func partition(nodes []*scene.Node) ([]*scene.Node, []*instanceGroup) {
	var groups []*instanceGroup
	byPrototype := make(map[*scene.Node]*instanceGroup)
	for _, n := range nodes {
		proto := n.InstanceOf
		if proto == nil {
			continue
		}
		g, ok := byPrototype[proto]
		if !ok {
			g = &instanceGroup{prototype: proto}
			byPrototype[proto] = g
			groups = append(groups, g)
		}
		g.instances = append(g.instances, n)
	}

	var single []*scene.Node
	for _, n := range nodes {
		if n.InstanceOf != nil {
			continue
		}
		if _, isPrototype := byPrototype[n]; isPrototype {
			continue
		}
		single = append(single, n)
	}
	return single, groups
}

func drawable(n *scene.Node) bool {
	return n.Renderable() && n.HasGeometry() && n.Visible
}

// Render draws sc: geometry pass, lighting pass, tonemapping and the final
// combine into the default framebuffer.
func (r *Renderer) Render(sc *scene.Scene) error {
	r.beginFrame()
	defer r.endFrame()

	cam := sc.FindObserver()
	if cam == nil {
		return ErrNoObserver
	}
	hmd := r.activeHMD()

	nodes := sc.Discover(drawable)
	single, groups := partition(nodes)

	ready := make(map[uint32]bool, len(nodes))
	for _, n := range single {
		ready[n.ID] = r.prepareNode(n)
	}
	for _, g := range groups {
		ready[g.prototype.ID] = r.prepareNode(g.prototype)
		for _, inst := range g.instances {
			if _, err := r.InitializeNode(inst); err != nil {
				logger.Log.Warn("instance skipped", zap.String("node", inst.Name), zap.Error(err))
			}
		}
	}

	eyes := r.Eyes()
	stereo := eyes == 2
	ipd := r.settings.Float(settings.VRIPD)
	views := make([]mgl32.Mat4, eyes)
	projections := make([]mgl32.Mat4, eyes)
	for eye := 0; eye < eyes; eye++ {
		gb := r.geometryBuffer[eye]
		views[eye] = EyeView(eye, stereo, ipd, cam, hmd)
		projections[eye] = EyeProjection(eye, float32(gb.Width)/float32(gb.Height), hmd)
	}

	for eye := 0; eye < eyes; eye++ {
		r.geometryPass(eye, views[eye], projections[eye], single, groups, ready)
	}

	lights := sc.Lights()
	for eye := 0; eye < eyes; eye++ {
		r.lightingPass(eye, views[eye], projections[eye], lights)
	}

	r.combinePass(hmd)

	r.currentStats.Nodes = len(nodes)
	r.currentStats.InstancedGroups = len(groups)
	r.currentStats.Lights = len(lights)
	for _, g := range groups {
		r.currentStats.Instances += len(g.instances)
	}
	return nil
}

func (r *Renderer) beginFrame() {
	r.mu.Lock()
	pending := r.pendingSize
	r.pendingSize = nil
	r.inFrame = true
	r.mu.Unlock()

	if pending != nil {
		r.applyReshape(pending[0], pending[1])
	}
	r.currentStats = Stats{}
}

func (r *Renderer) endFrame() {
	r.stats = r.currentStats
	r.mu.Lock()
	r.inFrame = false
	r.mu.Unlock()
}

// prepareNode readies node's state for this frame: initialization, texture
// reload and dirty geometry refresh. It reports whether the node can be drawn.
func (r *Renderer) prepareNode(node *scene.Node) bool {
	ok, err := r.InitializeNode(node)
	if err != nil {
		logger.Log.Error("node skipped", zap.String("node", node.Name), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	st, _ := r.arena.lookup(node.ID)
	if mat := node.Material; mat != nil && mat.NeedsTextureReload {
		mat.NeedsTextureReload = !r.LoadTexturesForNode(node, st)
	}
	if node.Dirty {
		if err := r.refreshNode(node); err != nil {
			logger.Log.Error("geometry refresh", zap.String("node", node.Name), zap.Error(err))
			return false
		}
	}
	return true
}

func (r *Renderer) geometryPass(eye int, view, projection mgl32.Mat4, single []*scene.Node, groups []*instanceGroup, ready map[uint32]bool) {
	gb := r.geometryBuffer[eye]

	r.dev.Blend(false)
	r.dev.DepthTest(true)
	r.dev.Viewport(0, 0, gb.Width, gb.Height)
	gb.SetDrawBuffers()
	r.dev.Clear(true, true)

	for _, n := range single {
		if !ready[n.ID] {
			continue
		}
		if st, ok := r.arena.lookup(n.ID); ok {
			r.drawNode(n, st, view, projection)
		}
	}

	for _, g := range groups {
		if !ready[g.prototype.ID] {
			continue
		}
		st, ok := r.arena.lookup(g.prototype.ID)
		if !ok {
			continue
		}
		r.drawInstanced(g.prototype, st, BatchInstances(view, projection, g.instances), projection)
	}
}

func (r *Renderer) drawNode(n *scene.Node, st *RenderState, view, projection mgl32.Mat4) {
	if st.Program == nil {
		return
	}
	t := transformsFor(n.WorldMatrix(), view, projection)

	p := st.Program
	p.Use()
	r.applyFaceCulling(n)
	p.SetMat4("ModelMatrix", t.model)
	p.SetMat4("ModelViewMatrix", t.modelView)
	p.SetMat4("ProjectionMatrix", projection)
	p.SetMat4("MVP", t.mvp)
	p.SetBool("isBillboard", n.Billboard)
	p.SetInt("instanced", 0)
	r.setMaterialUniforms(n, st, p)
	r.drawState(st, 0)
}

func (r *Renderer) applyFaceCulling(n *scene.Node) {
	if n.Skybox {
		r.dev.Cull(CullFront)
		return
	}
	r.dev.Cull(CullBack)
}

// drawState issues the draw for st; instances > 0 selects an instanced draw.
func (r *Renderer) drawState(st *RenderState, instances int) {
	r.dev.BindVertexArray(st.VAO)
	switch {
	case st.IndexCount > 0 && instances > 0:
		r.dev.DrawElementsInstanced(st.Primitive, st.IndexCount, int32(instances))
	case st.IndexCount > 0:
		r.dev.DrawElements(st.Primitive, st.IndexCount)
	case instances > 0:
		r.dev.DrawArraysInstanced(st.Primitive, st.VertexCount, int32(instances))
	default:
		r.dev.DrawArrays(st.Primitive, 0, st.VertexCount)
	}
	r.dev.BindVertexArray(0)
	r.currentStats.DrawCalls++
}

// lightingPass shades eye's G-buffer and tonemaps the result into its
// combination buffer.
func (r *Renderer) lightingPass(eye int, view, projection mgl32.Mat4, lights []*scene.Node) {
	s := r.settings
	p := r.lightingProgram
	p.Use()

	n := len(lights)
	if n > maxLights {
		logger.Log.Debug("lights truncated", zap.Int("lights", n), zap.Int("max", maxLights))
		n = maxLights
	}
	p.SetInt("numLights", n)
	p.SetMat4("ProjectionMatrix", projection)
	p.SetMat4("InverseProjectionMatrix", projection.Inv())

	// The G-buffer holds view space positions.
	for i := 0; i < n; i++ {
		l := lights[i]
		prefix := fmt.Sprintf("lights[%d].", i)
		p.SetVec3(prefix+"Position", view.Mul4x1(l.WorldPosition().Vec4(1)).Vec3())
		p.SetVec3(prefix+"Color", l.Light.Color)
		p.SetFloat(prefix+"Intensity", l.Light.Intensity)
		p.SetFloat(prefix+"Linear", l.Light.Linear)
		p.SetFloat(prefix+"Quadratic", l.Light.Quadratic)
	}

	p.SetInt("gPosition", 0)
	p.SetInt("gNormal", 1)
	p.SetInt("gAlbedoSpec", 2)
	p.SetInt("gDepth", 3)

	p.SetBool("debugDeferredBuffers", s.Bool(settings.DebugDeferredBuffers))
	p.SetVec2("ssao_filterRadius", s.Vec2(settings.SSAOFilterRadius))
	p.SetFloat("ssao_distanceThreshold", s.Float(settings.SSAODistanceThreshold))
	p.SetBool("doSSAO", s.Bool(settings.SSAOActive))

	r.geometryBuffer[eye].BindTexturesToUnitsWithOffset(0)
	hb := r.hdrBuffer[eye]
	hb.SetDrawBuffers()
	r.dev.Viewport(0, 0, hb.Width, hb.Height)

	r.dev.Cull(CullNone)
	r.dev.Blend(false)
	r.dev.DepthTest(false)

	cb := r.combinationBuffer[eye]
	if !s.Bool(settings.HDRActive) {
		r.applyAnaglyphMask(eye)
		cb.SetDrawBuffers()
		r.dev.Clear(true, false)
		r.dev.Viewport(0, 0, cb.Width, cb.Height)
		r.renderFullscreenQuad(p)
		return
	}

	r.dev.Clear(true, true)
	r.renderFullscreenQuad(p)

	hb.BindTexturesToUnitsWithOffset(0)
	cb.SetDrawBuffers()
	r.dev.Viewport(0, 0, cb.Width, cb.Height)
	r.dev.Clear(true, true)
	r.applyAnaglyphMask(eye)

	h := r.hdrProgram
	h.Use()
	h.SetInt("hdrBuffer", 0)
	h.SetFloat("Gamma", s.Float(settings.HDRGamma))
	h.SetFloat("Exposure", s.Float(settings.HDRExposure))
	r.renderFullscreenQuad(h)
}

// applyAnaglyphMask limits eye 0 to red and eye 1 to green and blue.
func (r *Renderer) applyAnaglyphMask(eye int) {
	if !r.settings.Bool(settings.VRDoAnaglyph) {
		return
	}
	if eye == 0 {
		r.dev.ColorMask(true, false, false, false)
	} else {
		r.dev.ColorMask(false, true, true, false)
	}
}

// combinePass draws the combination buffers into the default framebuffer.
func (r *Renderer) combinePass(hmd HMD) {
	s := r.settings
	cb := r.combinationBuffer
	anaglyph := s.Bool(settings.VRDoAnaglyph)

	cb[0].RevertToDefaultFramebuffer()
	if anaglyph {
		r.dev.ColorMask(true, true, true, true)
	}
	r.dev.Clear(true, true)
	r.dev.Viewport(0, 0, r.width, r.height)

	p := r.combinerProgram
	p.Use()

	if len(cb) == 2 && s.Bool(settings.VRActive) {
		p.SetBool("vrActive", !anaglyph)
		p.SetBool("anaglyphActive", anaglyph)
		cb[0].BindTexturesToUnitsWithOffset(0)
		cb[1].BindTexturesToUnitsWithOffset(4)
		p.SetInt("leftEye", 0)
		p.SetInt("rightEye", 4)
		r.renderFullscreenQuad(p)

		if hmd != nil && hmd.HasCompositor() {
			logger.Log.Debug("submitting to compositor")
			hmd.SubmitToCompositor(cb[0].TextureIDs()[0], cb[1].TextureIDs()[0])
		}
		return
	}

	cb[0].BindTexturesToUnitsWithOffset(0)
	p.SetInt("leftEye", 0)
	p.SetInt("rightEye", 0)
	p.SetInt("vrActive", 0)
	p.SetInt("anaglyphActive", 0)
	r.renderFullscreenQuad(p)
}

// renderFullscreenQuad draws one screen-covering triangle generated in
// FullscreenQuad.vert.
func (r *Renderer) renderFullscreenQuad(p *Program) {
	p.Use()
	r.dev.BindVertexArray(r.quadVAO)
	r.dev.DrawArrays(PrimTriangles, 0, 3)
	r.dev.BindVertexArray(0)
	r.currentStats.FullscreenQuads++
}

// Reshape resizes the output to width x height. Called during a frame, the
// new size is applied when the next frame starts. Must be called on the
// goroutine owning the graphics context.
func (r *Renderer) Reshape(width, height int) {
	r.mu.Lock()
	if r.inFrame {
		r.pendingSize = &[2]int{width, height}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.applyReshape(width, height)
}

func (r *Renderer) applyReshape(width, height int) {
	r.width, r.height = width, height
	eyeWidth := r.eyeWidth(width)

	for _, set := range [][]*Framebuffer{r.geometryBuffer, r.hdrBuffer, r.combinationBuffer} {
		for _, fb := range set {
			if err := fb.Resize(eyeWidth, height); err != nil {
				logger.Log.Error("framebuffer resize", zap.Stringer("fb", fb), zap.Error(err))
			}
		}
	}
	r.dev.BindFramebuffer(0)
	r.dev.Clear(true, true)
	r.dev.Viewport(0, 0, width, height)
	logger.Log.Info("reshaped", zap.Int("width", width), zap.Int("height", height), zap.Int("eyeWidth", eyeWidth))
}
