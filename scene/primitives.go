package scene

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// builder accumulates indexed triangle geometry.
type builder struct {
	g *Geometry
}

func newBuilder() *builder {
	return &builder{g: NewGeometry(Triangles)}
}

func (b *builder) vertex(pos, normal mgl32.Vec3, u, v float32) uint32 {
	idx := uint32(b.g.VertexCount())
	b.g.Vertices = append(b.g.Vertices, pos.X(), pos.Y(), pos.Z())
	b.g.Normals = append(b.g.Normals, normal.X(), normal.Y(), normal.Z())
	b.g.Texcoords = append(b.g.Texcoords, u, v)
	return idx
}

func (b *builder) triangle(a, c, d uint32) {
	b.g.Indices = append(b.g.Indices, a, c, d)
}

// CreateTriangle generates a single counter-clockwise triangle in the XY plane.
func CreateTriangle(size float32) *Geometry {
	b := newBuilder()
	n := mgl32.Vec3{0, 0, 1}
	h := size / 2
	b.vertex(mgl32.Vec3{-h, -h, 0}, n, 0, 0)
	b.vertex(mgl32.Vec3{h, -h, 0}, n, 1, 0)
	b.vertex(mgl32.Vec3{0, h, 0}, n, 0.5, 1)
	b.triangle(0, 1, 2)
	return b.g
}

// CreateSphere generates a UV-sphere
func CreateSphere(radius float32, segments, rings int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	b := newBuilder()
	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * stdmath.Pi / float64(rings)
		sinPhi := float32(stdmath.Sin(phi))
		cosPhi := float32(stdmath.Cos(phi))

		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2.0 * stdmath.Pi / float64(segments)
			normal := mgl32.Vec3{
				sinPhi * float32(stdmath.Cos(theta)),
				cosPhi,
				sinPhi * float32(stdmath.Sin(theta)),
			}
			b.vertex(normal.Mul(radius), normal,
				float32(seg)/float32(segments), float32(ring)/float32(rings))
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)
			b.triangle(current, current+1, next)
			b.triangle(current+1, next+1, next)
		}
	}
	return b.g
}

// CreateBox generates an axis-aligned box centered on the origin with
// outward-facing normals. Rendered with front-face culling it doubles as a skybox.
func CreateBox(size mgl32.Vec3) *Geometry {
	h := size.Mul(0.5)
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	b := newBuilder()
	for _, f := range faces {
		center := mgl32.Vec3{f.normal.X() * h.X(), f.normal.Y() * h.Y(), f.normal.Z() * h.Z()}
		du := mgl32.Vec3{f.u.X() * h.X(), f.u.Y() * h.Y(), f.u.Z() * h.Z()}
		dv := mgl32.Vec3{f.v.X() * h.X(), f.v.Y() * h.Y(), f.v.Z() * h.Z()}

		i0 := b.vertex(center.Sub(du).Sub(dv), f.normal, 0, 0)
		i1 := b.vertex(center.Add(du).Sub(dv), f.normal, 1, 0)
		i2 := b.vertex(center.Add(du).Add(dv), f.normal, 1, 1)
		i3 := b.vertex(center.Sub(du).Add(dv), f.normal, 0, 1)
		b.triangle(i0, i1, i2)
		b.triangle(i0, i2, i3)
	}
	return b.g
}

// CreateTorus generates a torus lying in the XZ plane
func CreateTorus(majorRadius, minorRadius float32, majorSegments, minorSegments int) *Geometry {
	if majorSegments < 3 {
		majorSegments = 3
	}
	if minorSegments < 3 {
		minorSegments = 3
	}

	b := newBuilder()
	for i := 0; i <= majorSegments; i++ {
		theta := float64(i) * 2.0 * stdmath.Pi / float64(majorSegments)
		cosTheta := float32(stdmath.Cos(theta))
		sinTheta := float32(stdmath.Sin(theta))

		for j := 0; j <= minorSegments; j++ {
			phi := float64(j) * 2.0 * stdmath.Pi / float64(minorSegments)
			cosPhi := float32(stdmath.Cos(phi))
			sinPhi := float32(stdmath.Sin(phi))

			pos := mgl32.Vec3{
				(majorRadius + minorRadius*cosPhi) * cosTheta,
				minorRadius * sinPhi,
				(majorRadius + minorRadius*cosPhi) * sinTheta,
			}
			normal := mgl32.Vec3{cosPhi * cosTheta, sinPhi, cosPhi * sinTheta}.Normalize()
			b.vertex(pos, normal, float32(i)/float32(majorSegments), float32(j)/float32(minorSegments))
		}
	}

	for i := 0; i < majorSegments; i++ {
		for j := 0; j < minorSegments; j++ {
			current := uint32(i*(minorSegments+1) + j)
			next := uint32((i+1)*(minorSegments+1) + j)
			b.triangle(current, current+1, next)
			b.triangle(current+1, next+1, next)
		}
	}
	return b.g
}

// CreatePlane generates a flat plane facing +Y
func CreatePlane(width, depth float32, subdivisions int) *Geometry {
	if subdivisions < 1 {
		subdivisions = 1
	}

	b := newBuilder()
	halfW := width / 2.0
	halfD := depth / 2.0
	up := mgl32.Vec3{0, 1, 0}

	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			b.vertex(mgl32.Vec3{-halfW + u*width, 0, -halfD + v*depth}, up, u, v)
		}
	}

	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1

			b.triangle(topLeft, bottomLeft, topRight)
			b.triangle(topRight, bottomLeft, bottomRight)
		}
	}
	return b.g
}
