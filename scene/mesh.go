package scene

import "fmt"

// GeometryType selects the primitive assembly used when drawing a Geometry.
type GeometryType int

const (
	Triangles GeometryType = iota
	TriangleStrip
	TriangleFan
	LineStrip
	Points
	Polygon
)

func (t GeometryType) String() string {
	switch t {
	case Triangles:
		return "Triangles"
	case TriangleStrip:
		return "TriangleStrip"
	case TriangleFan:
		return "TriangleFan"
	case LineStrip:
		return "LineStrip"
	case Points:
		return "Points"
	case Polygon:
		return "Polygon"
	}
	return fmt.Sprintf("GeometryType(%d)", int(t))
}

// Geometry holds flat, per-channel vertex data. Texcoords and Indices may be empty.
type Geometry struct {
	Vertices  []float32
	Normals   []float32
	Texcoords []float32
	Indices   []uint32

	// Components per vertex position and per texcoord.
	VertexSize   int
	TexcoordSize int

	Type GeometryType
}

func NewGeometry(t GeometryType) *Geometry {
	return &Geometry{VertexSize: 3, TexcoordSize: 2, Type: t}
}

// VertexCount returns the number of vertices in Vertices.
func (g *Geometry) VertexCount() int {
	size := g.VertexSize
	if size == 0 {
		size = 3
	}
	return len(g.Vertices) / size
}

// NewMesh creates a visible node drawing geom with mat. A nil material gets
// DefaultMaterial.
func NewMesh(name string, geom *Geometry, mat *Material) *Node {
	if mat == nil {
		mat = DefaultMaterial()
	}
	n := NewNode(name)
	n.Geometry = geom
	n.Material = mat
	return n
}
