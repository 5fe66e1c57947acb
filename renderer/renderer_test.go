package renderer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-engine/scene"
	"deferred-engine/settings"
)

func newTestRenderer(t *testing.T, configure func(s *settings.Settings)) (*Renderer, *fakeDevice) {
	t.Helper()
	s := settings.Default()
	if configure != nil {
		configure(s)
	}
	dev := newFakeDevice()
	r, err := New(dev, 800, 600, Options{Settings: s})
	require.NoError(t, err)
	return r, dev
}

func newTestScene(nodes ...*scene.Node) *scene.Scene {
	sc := scene.NewScene()
	sc.SetCamera(scene.NewCamera())
	for _, n := range nodes {
		sc.AddNode(n)
	}
	return sc
}

func triangleNode() *scene.Node {
	n := scene.NewMesh("triangle", scene.CreateTriangle(1), nil)
	n.SetPosition(mgl32.Vec3{0, 0, -3})
	return n
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestNewMonoFramebuffers(t *testing.T) {
	r, dev := newTestRenderer(t, nil)

	assert.Equal(t, 1, r.Eyes())
	gb := r.GeometryBuffer(0)
	assert.Equal(t, 800, gb.Width)
	assert.Equal(t, 600, gb.Height)
	assert.Equal(t, 4, gb.BoundBufferNum())
	assert.Contains(t, gb.String(), "FloatRGB32, FloatRGB16, UnsignedByteRGBA8, Depth24")

	assert.Equal(t, 3, dev.drawBuffers[gb.ID])
	assert.Equal(t, 2, dev.drawBuffers[r.HDRBuffer(0).ID])
	assert.Equal(t, 1, dev.drawBuffers[r.CombinationBuffer(0).ID])

	assert.Equal(t, mgl32.Vec2{5.0 / 800, 5.0 / 600}, r.Settings().Vec2(settings.SSAOFilterRadius))
}

func TestNewStereoFramebuffers(t *testing.T) {
	r, _ := newTestRenderer(t, func(s *settings.Settings) {
		require.NoError(t, s.Set(settings.VRActive, true))
	})

	require.Equal(t, 2, r.Eyes())
	for eye := 0; eye < 2; eye++ {
		assert.Equal(t, 400, r.GeometryBuffer(eye).Width)
		assert.Equal(t, 400, r.HDRBuffer(eye).Width)
		assert.Equal(t, 400, r.CombinationBuffer(eye).Width)
	}
	assert.Equal(t, 2, r.Settings().Int(settings.VREyeDivisor))
	assert.Equal(t, float32(-0.5), r.Settings().Float(settings.VRIPD))
}

func TestNewAnaglyphKeepsFullWidth(t *testing.T) {
	r, _ := newTestRenderer(t, func(s *settings.Settings) {
		require.NoError(t, s.Set(settings.VRActive, true))
		require.NoError(t, s.Set(settings.VRDoAnaglyph, true))
		require.NoError(t, s.Set(settings.VRIPD, 0.3))
	})

	require.Equal(t, 2, r.Eyes())
	assert.Equal(t, 800, r.GeometryBuffer(1).Width)
	assert.Equal(t, 1, r.Settings().Int(settings.VREyeDivisor))
	assert.InDelta(t, 0.3, r.Settings().Float(settings.VRIPD), 1e-6)
}

func TestNewIncompleteFramebuffer(t *testing.T) {
	dev := newFakeDevice()
	// the first handle New allocates is eye 0's geometry buffer
	dev.incomplete[1] = true

	_, err := New(dev, 800, 600, Options{})
	assert.ErrorIs(t, err, ErrFramebufferIncomplete)
}

func TestInitializeNodeIsIdempotent(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	n := triangleNode()

	ok, err := r.InitializeNode(n)
	require.NoError(t, err)
	require.True(t, ok)

	buffers, vaos, uploads := dev.created["buffer"], dev.created["vao"], len(dev.uploads)
	ok, err = r.InitializeNode(n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, buffers, dev.created["buffer"])
	assert.Equal(t, vaos, dev.created["vao"])
	assert.Len(t, dev.uploads, uploads)

	st, ok := r.State(n)
	require.True(t, ok)
	assert.True(t, st.Initialized)
	assert.Len(t, st.Buffers, 4)
	assert.Equal(t, int32(3), st.IndexCount)
	assert.Equal(t, int32(3), st.VertexCount)
	assert.Equal(t, PrimTriangles, st.Primitive)
}

func TestInitializeNodeWithoutGeometryIsNotReady(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	ok, err := r.InitializeNode(scene.NewNode("empty"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestInstancesSharePrototypeState(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	proto := scene.NewMesh("proto", scene.CreateSphere(1, 8, 4), nil)

	vaos, buffers := dev.created["vao"], dev.created["buffer"]
	var instances []*scene.Node
	for i := 0; i < 5; i++ {
		inst := scene.NewInstance("inst", proto)
		ok, err := r.InitializeNode(inst)
		require.NoError(t, err)
		require.True(t, ok)
		instances = append(instances, inst)
	}

	protoState, ok := r.State(proto)
	require.True(t, ok)
	for _, inst := range instances {
		st, ok := r.State(inst)
		require.True(t, ok)
		assert.Same(t, protoState, st)
	}

	assert.Equal(t, 1, dev.created["vao"]-vaos)
	// four geometry channels plus three instance matrices
	assert.Equal(t, 7, dev.created["buffer"]-buffers)
	assert.Len(t, protoState.InstanceBuffers, 3)

	var locations []uint32
	for _, a := range dev.attributes {
		if a.divisor != 1 {
			continue
		}
		assert.Equal(t, int32(64), a.stride)
		assert.Equal(t, int32(4), a.components)
		locations = append(locations, a.location)
	}
	assert.Equal(t, []uint32{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, locations)
}

func TestRenderInstancedGroupIsOneDraw(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	proto := scene.NewMesh("crate", scene.CreateBox(mgl32.Vec3{1, 1, 1}), nil)
	sc := newTestScene(proto)
	for i := 0; i < 3; i++ {
		inst := scene.NewInstance("crate", proto)
		inst.SetPosition(mgl32.Vec3{float32(i) * 2, 0, -5})
		sc.AddNode(inst)
	}

	require.NoError(t, r.Render(sc))

	draws := dev.drawsInto(r.GeometryBuffer(0).ID)
	require.Len(t, draws, 1)
	assert.Equal(t, "elementsInstanced", draws[0].kind)
	assert.Equal(t, int32(3), draws[0].instances)
	assert.Equal(t, int32(36), draws[0].count)

	st, _ := r.State(proto)
	var mvp []upload
	for _, u := range dev.uploads {
		if u.buf == st.InstanceBuffers["MVP"] {
			mvp = append(mvp, u)
		}
	}
	require.Len(t, mvp, 1)
	assert.Equal(t, 48, mvp[0].n)
	assert.Equal(t, DynamicDraw, mvp[0].usage)

	stats := r.Stats()
	assert.Equal(t, 1, stats.InstancedGroups)
	assert.Equal(t, 3, stats.Instances)
	assert.Equal(t, 1, stats.DrawCalls)
}

func TestBatchInstances(t *testing.T) {
	a := scene.NewNode("a")
	a.SetPosition(mgl32.Vec3{1, 2, 3})
	b := scene.NewNode("b")
	b.SetPosition(mgl32.Vec3{4, 5, 6})
	view := mgl32.Translate3D(0, 0, -5)
	proj := mgl32.Perspective(1, 1, 0.1, 100)

	batch := BatchInstances(view, proj, []*scene.Node{a, b})

	require.Equal(t, 2, batch.Count)
	require.Len(t, batch.Model, 32)
	require.Len(t, batch.ModelView, 32)
	require.Len(t, batch.MVP, 32)
	assert.Equal(t, []float32{1, 2, 3, 1}, batch.Model[12:16])
	assert.Equal(t, []float32{4, 5, 6, 1}, batch.Model[28:32])

	mv := view.Mul4(b.WorldMatrix())
	mvp := proj.Mul4(mv)
	assert.Equal(t, mv[:], batch.ModelView[16:32])
	assert.Equal(t, mvp[:], batch.MVP[16:32])
}

func TestFileTexturesAreShared(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	path := filepath.Join(t.TempDir(), "checker.png")
	writePNG(t, path)

	var nodes []*scene.Node
	for i := 0; i < 2; i++ {
		mat := scene.NewMaterial("checker", mgl32.Vec3{1, 1, 1})
		mat.SetTexture(scene.SlotDiffuse, path)
		n := scene.NewMesh("quad", scene.CreatePlane(1, 1, 1), mat)
		ok, err := r.InitializeNode(n)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, mat.NeedsTextureReload)
		nodes = append(nodes, n)
	}

	assert.Len(t, dev.textures, 1)
	assert.Equal(t, 1, r.cache.TextureCount())
	first, _ := r.State(nodes[0])
	second, _ := r.State(nodes[1])
	assert.Equal(t, first.Textures[scene.SlotDiffuse], second.Textures[scene.SlotDiffuse])
}

func TestMissingTextureIsSkipped(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	mat := scene.DefaultMaterial()
	mat.SetTexture(scene.SlotDiffuse, filepath.Join(t.TempDir(), "missing.png"))
	n := scene.NewMesh("quad", scene.CreatePlane(1, 1, 1), mat)

	ok, err := r.InitializeNode(n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mat.NeedsTextureReload)
	assert.Empty(t, dev.textures)

	st, _ := r.State(n)
	assert.Empty(t, st.Textures)
}

func TestTransferTexturesAreOwned(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	mat := scene.DefaultMaterial()
	mat.SetTransferTexture(scene.SlotDiffuse, "generated", scene.NewSolidTexture("generated", 255, 0, 0, 255))
	n := scene.NewMesh("quad", scene.CreatePlane(1, 1, 1), mat)

	_, err := r.InitializeNode(n)
	require.NoError(t, err)
	require.Len(t, dev.textures, 1)
	st, _ := r.State(n)
	first := st.Textures[scene.SlotDiffuse]

	// a reload uploads again and drops the previous upload
	assert.True(t, r.LoadTexturesForNode(n, st))
	second := st.Textures[scene.SlotDiffuse]
	assert.NotEqual(t, first, second)
	assert.NotContains(t, dev.live, first)
	assert.Equal(t, 0, r.cache.TextureCount())

	r.ForgetNode(n)
	assert.NotContains(t, dev.live, second)
	_, ok := r.State(n)
	assert.False(t, ok)
}

func TestLoadTexturesForNodeDoesNotBlock(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	path := filepath.Join(t.TempDir(), "checker.png")
	writePNG(t, path)
	mat := scene.DefaultMaterial()
	mat.SetTexture(scene.SlotDiffuse, path)
	n := scene.NewMesh("quad", scene.CreatePlane(1, 1, 1), mat)
	st := newRenderState(n.ID)

	require.True(t, n.TryClaim())
	assert.False(t, r.LoadTexturesForNode(n, st))
	assert.Empty(t, dev.textures)

	n.ReleaseClaim()
	assert.True(t, r.LoadTexturesForNode(n, st))
	assert.Len(t, dev.textures, 1)
}

func TestRenderRetriesTexturesAfterContention(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	path := filepath.Join(t.TempDir(), "checker.png")
	writePNG(t, path)
	mat := scene.DefaultMaterial()
	mat.SetTexture(scene.SlotDiffuse, path)
	n := scene.NewMesh("quad", scene.CreatePlane(1, 1, 1), mat)
	sc := newTestScene(n)

	require.True(t, n.TryClaim())
	require.NoError(t, r.Render(sc))
	assert.True(t, mat.NeedsTextureReload)

	n.ReleaseClaim()
	require.NoError(t, r.Render(sc))
	assert.False(t, mat.NeedsTextureReload)
}

func TestTextureUnits(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	assert.Equal(t, uint32(4), r.textureTypeToUnit(scene.SlotAmbient))
	assert.Equal(t, uint32(5), r.textureTypeToUnit(scene.SlotDiffuse))
	assert.Equal(t, uint32(7), r.textureTypeToUnit(scene.SlotNormal))
	assert.Equal(t, uint32(8), r.textureTypeToUnit(scene.SlotDisplacement))
	assert.Equal(t, uint32(14), r.textureTypeToUnit("gloss"))
}

func TestMaterialTypeUniform(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	mat := scene.DefaultMaterial()
	mat.SetTransferTexture(scene.SlotDiffuse, "albedo", scene.NewSolidTexture("albedo", 200, 200, 200, 255))
	mat.SetTransferTexture(scene.SlotNormal, "bumps", scene.NewSolidTexture("bumps", 128, 128, 255, 255))
	n := scene.NewMesh("wall", scene.CreatePlane(1, 1, 1), mat)

	require.NoError(t, r.Render(newTestScene(n)))

	st, _ := r.State(n)
	prog := st.Program.ID
	assert.Equal(t, int32(3), dev.uniform(prog, "materialType"))
	assert.Equal(t, int32(5), dev.uniform(prog, "ObjectTextures[1]"))
	assert.Equal(t, int32(7), dev.uniform(prog, "ObjectTextures[3]"))
	assert.Equal(t, st.Textures[scene.SlotNormal], dev.boundUnits[7])
	assert.Equal(t, float32(0.001), dev.uniform(prog, "Material.Shininess"))
}

func TestSkyboxCullsFrontFaces(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	sky := scene.NewMesh("sky", scene.CreateBox(mgl32.Vec3{50, 50, 50}), nil)
	sky.Skybox = true

	require.NoError(t, r.Render(newTestScene(sky)))
	assert.Contains(t, dev.culls, CullFront)
	assert.NotContains(t, dev.culls, CullBack)
}

func TestDoubleSidedDisablesCulling(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	n := triangleNode()
	n.Material.DoubleSided = true

	require.NoError(t, r.Render(newTestScene(n)))
	// geometry pass: back, then none for the material
	require.GreaterOrEqual(t, len(dev.culls), 2)
	assert.Equal(t, []CullMode{CullBack, CullNone}, dev.culls[:2])
}

func TestNodeWithoutMaterialUsesPosition(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	n := scene.NewNode("bare")
	n.Geometry = scene.CreateTriangle(1)
	n.Text = nil
	n.Material = nil
	n.SetPosition(mgl32.Vec3{1, 2, 3})
	st := newRenderState(n.ID)
	p := newProgram(dev, "bare", 999)

	r.setMaterialUniforms(n, st, p)

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, dev.uniform(999, "Material.Kd"))
	assert.Equal(t, int32(0), dev.uniform(999, "materialType"))
}

func TestDirtyGeometryIsRefreshed(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	n := triangleNode()
	sc := newTestScene(n)
	require.NoError(t, r.Render(sc))
	st, _ := r.State(n)
	dev.reset()

	g := n.Geometry
	g.Normals = []float32{0, 1, 0, 0, 1, 0, 0, 1, 0}
	g.Indices = append(g.Indices, 2, 1, 0)
	n.Dirty = true
	require.NoError(t, r.Render(sc))

	assert.False(t, n.Dirty)
	byBuffer := make(map[uint32]upload)
	for _, u := range dev.uploads {
		byBuffer[u.buf] = u
	}
	assert.Equal(t, upload{buf: st.Buffers[bufVertices], n: 9, usage: DynamicDraw}, byBuffer[st.Buffers[bufVertices]])
	assert.Equal(t, upload{buf: st.Buffers[bufNormals], n: 9, sub: true}, byBuffer[st.Buffers[bufNormals]])
	assert.Equal(t, upload{buf: st.Buffers[bufIndices], n: 6, usage: DynamicDraw}, byBuffer[st.Buffers[bufIndices]])
	assert.Equal(t, int32(6), st.IndexCount)
}

func TestFontBoardRegeneratesMesh(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	board := scene.NewFontBoard("", "hi")
	sc := newTestScene(board)

	require.NoError(t, r.Render(sc))

	assert.False(t, board.Dirty)
	st, ok := r.State(board)
	require.True(t, ok)
	assert.True(t, st.Dynamic)
	assert.Equal(t, int32(12), st.IndexCount)
	atlasTex, ok := r.cache.Texture("sdf-" + scene.DefaultFont)
	require.True(t, ok)
	assert.Equal(t, atlasTex, st.Textures[scene.SlotDiffuse])
	assert.Equal(t, "FontBoard", st.Program.Name)

	board.SetText("hey")
	require.NoError(t, r.Render(sc))

	next, _ := r.State(board)
	assert.NotSame(t, st, next)
	assert.Equal(t, int32(18), next.IndexCount)
	assert.Equal(t, atlasTex, next.Textures[scene.SlotDiffuse])

	atlases := 0
	for _, tex := range dev.textures {
		if tex.Name == "sdf-"+scene.DefaultFont {
			atlases++
		}
	}
	assert.Equal(t, 1, atlases)
}

func TestForgetInstanceKeepsPrototype(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	proto := scene.NewMesh("proto", scene.CreateTriangle(1), nil)
	inst := scene.NewInstance("inst", proto)
	_, err := r.InitializeNode(inst)
	require.NoError(t, err)
	st, _ := r.State(proto)

	r.ForgetNode(inst)

	_, ok := r.State(inst)
	assert.False(t, ok)
	kept, ok := r.State(proto)
	require.True(t, ok)
	assert.Same(t, st, kept)
	assert.Contains(t, dev.live, st.VAO)
}

func TestForgottenSlotsAreReused(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	for i := 0; i < 50; i++ {
		n := triangleNode()
		_, err := r.InitializeNode(n)
		require.NoError(t, err)
		r.ForgetNode(n)
	}
	assert.Len(t, r.arena.states, 1)
	assert.Empty(t, r.arena.live())
}

func TestForgottenPrototypeSlotOutlivesInstances(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	proto := scene.NewMesh("proto", scene.CreateTriangle(1), nil)
	a, b := scene.NewInstance("a", proto), scene.NewInstance("b", proto)
	for _, n := range []*scene.Node{a, b} {
		_, err := r.InitializeNode(n)
		require.NoError(t, err)
	}
	oldSlot, _ := r.arena.slot(proto.ID)

	r.ForgetNode(proto)
	_, ok := r.State(a)
	assert.False(t, ok)

	// Another node must not land in the slot instances still point at.
	other := triangleNode()
	_, err := r.InitializeNode(other)
	require.NoError(t, err)
	otherSlot, _ := r.arena.slot(other.ID)
	assert.NotEqual(t, oldSlot, otherSlot)

	_, err = r.InitializeNode(a)
	require.NoError(t, err)
	_, err = r.InitializeNode(b)
	require.NoError(t, err)
	sa, _ := r.State(a)
	sp, _ := r.State(proto)
	assert.Same(t, sp, sa)
	assert.Contains(t, r.arena.free, oldSlot)
}

func TestDestroyReleasesEverything(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	require.NoError(t, r.Render(newTestScene(triangleNode())))

	r.Destroy()

	assert.Empty(t, dev.live)
}

func TestRenderWithoutObserver(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	sc := scene.NewScene()

	assert.ErrorIs(t, r.Render(sc), ErrNoObserver)
}

func TestPartition(t *testing.T) {
	proto := scene.NewMesh("proto", scene.CreateTriangle(1), nil)
	plain := triangleNode()
	a := scene.NewInstance("a", proto)
	b := scene.NewInstance("b", proto)

	single, groups := partition([]*scene.Node{proto, a, plain, b})

	assert.Equal(t, []*scene.Node{plain}, single)
	require.Len(t, groups, 1)
	assert.Same(t, proto, groups[0].prototype)
	assert.Equal(t, []*scene.Node{a, b}, groups[0].instances)
}

func TestHiddenNodesAreNotDrawn(t *testing.T) {
	r, dev := newTestRenderer(t, nil)
	n := triangleNode()
	n.Visible = false

	require.NoError(t, r.Render(newTestScene(n)))
	assert.Empty(t, dev.drawsInto(r.GeometryBuffer(0).ID))
}
