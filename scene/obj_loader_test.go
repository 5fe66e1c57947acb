package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# two objects
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
o Quad
usemtl Red
f 1/1/1 2/2/1 3/3/1 4/4/1
o Tri
f -4/-4/-1 -3/-3/-1 -2/-2/-1
`

const quadMTL = `newmtl Red
Ka 0.1 0 0
Kd 1 0 0
Ks 0.5 0.5 0.5
d 0.5
map_Kd -bm 1 red.png
map_Bump normal.png
`

func TestLoadOBJWithMaterials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.obj"), []byte(quadOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.mtl"), []byte(quadMTL), 0o644))

	nodes, err := LoadOBJ(filepath.Join(dir, "quad.obj"))
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	quad := nodes[0]
	assert.Equal(t, "Quad", quad.Name)
	assert.Equal(t, 4, quad.Geometry.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, quad.Geometry.Indices)
	assert.Len(t, quad.Geometry.Texcoords, 8)
	assert.Equal(t, []float32{0, 0, 1}, quad.Geometry.Normals[:3])

	mat := quad.Material
	assert.Equal(t, "Red", mat.Name)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, mat.Diffuse)
	assert.Equal(t, mgl32.Vec3{0.1, 0, 0}, mat.Ambient)
	assert.True(t, mat.Transparent)
	assert.True(t, mat.NeedsTextureReload)
	assert.Equal(t, filepath.Join(dir, "red.png"), mat.Textures[SlotDiffuse])
	assert.Equal(t, filepath.Join(dir, "normal.png"), mat.Textures[SlotNormal])

	// The second object keeps the active material and resolves negative indices.
	tri := nodes[1]
	assert.Equal(t, "Tri", tri.Name)
	assert.Same(t, mat, tri.Material)
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 1, 1, 0}, tri.Geometry.Vertices)
}

func TestDecodeOBJGeneratesNormals(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 0 -1\nf 1 2 3\n"
	nodes, err := DecodeOBJ(strings.NewReader(src), ".")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	geom := nodes[0].Geometry
	assert.Empty(t, geom.Texcoords)
	for i := 0; i < 3; i++ {
		n := geom.Normals[i*3 : i*3+3]
		assert.InDelta(t, 0, n[0], 1e-6)
		assert.InDelta(t, 1, n[1], 1e-6)
		assert.InDelta(t, 0, n[2], 1e-6)
	}
	assert.Equal(t, "Default", nodes[0].Material.Name)
}

func TestDecodeOBJMissingMTLIsNotFatal(t *testing.T) {
	src := "mtllib nope.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl Gone\nf 1 2 3\n"
	nodes, err := DecodeOBJ(strings.NewReader(src), t.TempDir())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Default", nodes[0].Material.Name)
}

func TestDecodeOBJWithoutFaces(t *testing.T) {
	_, err := DecodeOBJ(strings.NewReader("v 0 0 0\n"), ".")
	assert.Error(t, err)

	_, err = LoadOBJ(filepath.Join(t.TempDir(), "missing.obj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFaceVertex(t *testing.T) {
	assert.Equal(t, objVertex{v: 0, vt: -1, vn: -1}, parseFaceVertex("1", 3, 0, 0))
	assert.Equal(t, objVertex{v: 1, vt: -1, vn: 2}, parseFaceVertex("2//3", 3, 0, 3))
	assert.Equal(t, objVertex{v: 2, vt: 0, vn: -1}, parseFaceVertex("-1/1", 3, 2, 0))
}
