package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
)

// objFace is an already-triangulated face.
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based, -1 = absent
}

type objVertex struct{ v, vt, vn int }

type objObject struct {
	name    string
	matName string
	faces   []objFace
}

// LoadOBJ parses a Wavefront .obj file and returns one mesh node per object
// or group. A companion .mtl referenced with "mtllib" is read from the same
// directory; texture maps stay file references for the renderer's cache.
func LoadOBJ(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	nodes, err := DecodeOBJ(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("obj %q: %w", path, err)
	}
	return nodes, nil
}

// DecodeOBJ reads OBJ data from r. dir resolves mtllib and texture paths.
func DecodeOBJ(r io.Reader, dir string) ([]*Node, error) {
	var (
		positions []mgl32.Vec3
		normals   []mgl32.Vec3
		uvs       []mgl32.Vec2
		objects   []objObject
	)
	materials := map[string]*Material{}
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) >= 4 {
				positions = append(positions, parseVec3(fields[1:4]))
			}

		case "vn":
			if len(fields) >= 4 {
				normals = append(normals, parseVec3(fields[1:4]))
			}

		case "vt":
			if len(fields) >= 3 {
				uvs = append(uvs, mgl32.Vec2{parseFloat(fields[1]), parseFloat(fields[2])})
			}

		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name, matName: cur.matName}

		case "usemtl":
			if len(fields) > 1 {
				cur.matName = fields[1]
			}

		case "mtllib":
			if len(fields) < 2 {
				continue
			}
			loaded, err := loadMTL(filepath.Join(dir, fields[1]), dir)
			if err != nil {
				logger.Log.Warn("mtllib skipped", zap.String("file", fields[1]), zap.Error(err))
				continue
			}
			for k, v := range loaded {
				materials[k] = v
			}

		case "f":
			if len(fields) < 4 {
				continue
			}
			verts := make([]objVertex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				verts = append(verts, parseFaceVertex(tok, len(positions), len(uvs), len(normals)))
			}
			// Fan triangulation: 0-1-2, 0-2-3, ...
			for i := 1; i+1 < len(verts); i++ {
				f0, f1, f2 := verts[0], verts[i], verts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0.v, f1.v, f2.v},
					vtIdx: [3]int{f0.vt, f1.vt, f2.vt},
					vnIdx: [3]int{f0.vn, f1.vn, f2.vn},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}
	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("no faces")
	}

	nodes := make([]*Node, 0, len(objects))
	for _, obj := range objects {
		geom := buildOBJGeometry(obj.faces, positions, normals, uvs)
		mat, ok := materials[obj.matName]
		if !ok {
			mat = DefaultMaterial()
		}
		nodes = append(nodes, NewMesh(obj.name, geom, mat))
	}
	return nodes, nil
}

// parseFaceVertex parses "v", "v/vt", "v//vn" or "v/vt/vn". Negative indices
// count back from the current end of each pool.
func parseFaceVertex(tok string, nv, nvt, nvn int) objVertex {
	parseIdx := func(s string, count int) int {
		if s == "" {
			return -1
		}
		n, err := strconv.Atoi(s)
		switch {
		case err != nil || n == 0:
			return -1
		case n < 0:
			return count + n
		}
		return n - 1
	}
	parts := strings.Split(tok, "/")
	res := objVertex{v: -1, vt: -1, vn: -1}
	res.v = parseIdx(parts[0], nv)
	if len(parts) > 1 {
		res.vt = parseIdx(parts[1], nvt)
	}
	if len(parts) > 2 {
		res.vn = parseIdx(parts[2], nvn)
	}
	return res
}

// buildOBJGeometry deduplicates (v, vt, vn) triples into an indexed Geometry.
// Texcoords are emitted only when the file has any; missing normals are
// generated from face geometry.
func buildOBJGeometry(faces []objFace, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) *Geometry {
	geom := NewGeometry(Triangles)
	vertMap := map[objVertex]uint32{}
	hasUVs := len(uvs) > 0
	var count uint32

	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := objVertex{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			if idx, ok := vertMap[k]; ok {
				geom.Indices = append(geom.Indices, idx)
				continue
			}
			p := mgl32.Vec3{}
			if k.v >= 0 && k.v < len(positions) {
				p = positions[k.v]
			}
			n := mgl32.Vec3{0, 1, 0}
			if k.vn >= 0 && k.vn < len(normals) {
				n = normals[k.vn]
			}
			geom.Vertices = append(geom.Vertices, p[0], p[1], p[2])
			geom.Normals = append(geom.Normals, n[0], n[1], n[2])
			if hasUVs {
				uv := mgl32.Vec2{}
				if k.vt >= 0 && k.vt < len(uvs) {
					uv = uvs[k.vt]
				}
				geom.Texcoords = append(geom.Texcoords, uv[0], uv[1])
			}
			vertMap[k] = count
			geom.Indices = append(geom.Indices, count)
			count++
		}
	}

	if len(normals) == 0 {
		generateNormals(geom)
	}
	return geom
}

// generateNormals writes area-weighted vertex normals into geom.Normals.
func generateNormals(geom *Geometry) {
	vertex := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{geom.Vertices[i*3], geom.Vertices[i*3+1], geom.Vertices[i*3+2]}
	}
	accum := make([]mgl32.Vec3, geom.VertexCount())
	for i := 0; i+2 < len(geom.Indices); i += 3 {
		i0, i1, i2 := geom.Indices[i], geom.Indices[i+1], geom.Indices[i+2]
		v0 := vertex(i0)
		n := vertex(i1).Sub(v0).Cross(vertex(i2).Sub(v0))
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i, n := range accum {
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		copy(geom.Normals[i*3:i*3+3], n[:])
	}
}

// ── MTL loader ───────────────────────────────────────────────────────────────

var mtlTextureSlots = map[string]string{
	"map_Ka":   SlotAmbient,
	"map_Kd":   SlotDiffuse,
	"map_Ks":   SlotSpecular,
	"map_Bump": SlotNormal,
	"map_bump": SlotNormal,
	"bump":     SlotNormal,
	"disp":     SlotDisplacement,
}

func loadMTL(path, dir string) (map[string]*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeMTL(f, dir)
}

func decodeMTL(r io.Reader, dir string) (map[string]*Material, error) {
	mats := map[string]*Material{}
	var cur *Material

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) > 1 {
				cur = DefaultMaterial()
				cur.Name = fields[1]
				mats[fields[1]] = cur
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch key := fields[0]; key {
		case "Ka", "Kd", "Ks":
			if len(fields) < 4 {
				continue
			}
			c := parseVec3(fields[1:4])
			switch key {
			case "Ka":
				cur.Ambient = c
			case "Kd":
				cur.Diffuse = c
			case "Ks":
				cur.Specular = c
			}
		case "d":
			if len(fields) > 1 && parseFloat(fields[1]) < 1 {
				cur.Transparent = true
			}
		case "Tr":
			if len(fields) > 1 && parseFloat(fields[1]) > 0 {
				cur.Transparent = true
			}
		default:
			slot, ok := mtlTextureSlots[key]
			if !ok || len(fields) < 2 {
				continue
			}
			// Options such as "-bm 1" precede the file name.
			cur.SetTexture(slot, filepath.Join(dir, fields[len(fields)-1]))
		}
	}
	return mats, scanner.Err()
}

func parseFloat(s string) float32 {
	v, _ := strconv.ParseFloat(s, 32)
	return float32(v)
}

func parseVec3(fields []string) mgl32.Vec3 {
	return mgl32.Vec3{parseFloat(fields[0]), parseFloat(fields[1]), parseFloat(fields[2])}
}
