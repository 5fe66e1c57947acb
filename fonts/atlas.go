// Package fonts builds signed-distance-field glyph atlases and text meshes
// for FontBoard nodes.
package fonts

import (
	"fmt"
	"image"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"deferred-engine/scene"
)

const (
	dpi       = 72.0
	pointSize = 48.0
	low, high = 32, 126 // printable ASCII
	spread    = 6       // signed distance radius in texels
	padding   = spread + 1
)

// Glyph locates one rune inside the atlas, in texels from the top-left corner.
type Glyph struct {
	X, Y    int
	W, H    int
	Advance int
}

// Atlas is a single-channel distance field: 0.5 on glyph outlines, above
// inside, below outside.
type Atlas struct {
	Font      string
	Width     int
	Height    int
	Glyphs    map[rune]Glyph
	Distances []float32

	cellHeight int
}

// NewAtlas rasterizes the printable ASCII range of the named font. "Go Mono"
// and "Go Regular" are built in; any other name is read as a TrueType or
// OpenType file path.
func NewAtlas(name string) (*Atlas, error) {
	data, err := fontData(name)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", name, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    pointSize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %q: %w", name, err)
	}
	defer face.Close()

	mask, glyphs, cellH := rasterize(face)
	a := &Atlas{
		Font:       name,
		Width:      mask.Bounds().Dx(),
		Height:     mask.Bounds().Dy(),
		Glyphs:     glyphs,
		cellHeight: cellH,
	}
	a.Distances = distanceField(mask, glyphs)
	return a, nil
}

func fontData(name string) ([]byte, error) {
	switch name {
	case "", scene.DefaultFont:
		return gomono.TTF, nil
	case "Go Regular", "Go":
		return goregular.TTF, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("load font %q: %w", name, err)
	}
	return data, nil
}

func rasterize(face font.Face) (*image.Alpha, map[rune]Glyph, int) {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	cellH := (metrics.Ascent + metrics.Descent).Ceil() + padding*2

	maxAdvance := 0
	for ch := rune(low); ch <= high; ch++ {
		if adv, ok := face.GlyphAdvance(ch); ok && adv.Ceil() > maxAdvance {
			maxAdvance = adv.Ceil()
		}
	}
	cellW := maxAdvance + padding*2

	count := high - low + 1
	perRow := int(math.Ceil(math.Sqrt(float64(count))))
	rows := (count + perRow - 1) / perRow

	img := image.NewAlpha(image.Rect(0, 0, nextPowerOfTwo(cellW*perRow), nextPowerOfTwo(cellH*rows)))
	drawer := &font.Drawer{Dst: img, Src: image.White, Face: face}

	glyphs := make(map[rune]Glyph, count)
	for i := 0; i < count; i++ {
		ch := rune(low + i)
		x := (i % perRow) * cellW
		y := (i / perRow) * cellH

		adv, _ := face.GlyphAdvance(ch)
		glyphs[ch] = Glyph{X: x, Y: y, W: cellW, H: cellH, Advance: adv.Ceil() + padding}

		drawer.Dot = fixed.P(x+padding, y+padding+ascent)
		drawer.DrawString(string(ch))
	}
	return img, glyphs, cellH
}

func distanceField(img *image.Alpha, glyphs map[rune]Glyph) []float32 {
	w := img.Bounds().Dx()
	out := make([]float32, w*img.Bounds().Dy())

	for _, g := range glyphs {
		mask := make([][]bool, g.H)
		for y := 0; y < g.H; y++ {
			mask[y] = make([]bool, g.W)
			for x := 0; x < g.W; x++ {
				mask[y][x] = img.AlphaAt(g.X+x, g.Y+y).A >= 0x80
			}
		}
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				d := signedDistance(x, y, mask)
				out[(g.Y+y)*w+g.X+x] = float32(0.5 + 0.5*d/spread)
			}
		}
	}
	return out
}

// signedDistance returns the distance from (cx, cy) to the nearest texel of
// the opposite coverage, clamped to spread; positive inside the glyph.
func signedDistance(cx, cy int, mask [][]bool) float64 {
	height := len(mask)
	width := len(mask[0])
	base := mask[cy][cx]

	startX, endX := max(0, cx-spread), min(cx+spread, width-1)
	startY, endY := max(0, cy-spread), min(cy+spread, height-1)

	closest := spread * spread
	for y := startY; y <= endY; y++ {
		for x := startX; x <= endX; x++ {
			if mask[y][x] != base {
				if d := (cx-x)*(cx-x) + (cy-y)*(cy-y); d < closest {
					closest = d
				}
			}
		}
	}

	dist := math.Sqrt(float64(closest))
	if base {
		return dist
	}
	return -dist
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// Texture returns the atlas as a clamped single-channel float texture.
func (a *Atlas) Texture() *scene.Texture {
	return &scene.Texture{
		Name:     "sdf-" + a.Font,
		Width:    a.Width,
		Height:   a.Height,
		Channels: 1,
		Floats:   a.Distances,
	}
}

// MeshForString lays text out on the XY plane, one unit per line height,
// starting at the origin and running along +X. Newlines start a new line
// below; runes outside the atlas and whitespace only advance the cursor.
func (a *Atlas) MeshForString(text string) *scene.Geometry {
	g := scene.NewGeometry(scene.Triangles)
	scale := 1 / float32(a.cellHeight)
	fw, fh := float32(a.Width), float32(a.Height)

	var penX, penY float32
	for _, ch := range text {
		if ch == '\n' {
			penX = 0
			penY -= 1.1
			continue
		}
		glyph, ok := a.Glyphs[ch]
		if !ok {
			continue
		}
		adv := float32(glyph.Advance) * scale
		if ch == ' ' || ch == '\t' {
			penX += adv
			continue
		}

		w := float32(glyph.W) * scale
		u0, u1 := float32(glyph.X)/fw, float32(glyph.X+glyph.W)/fw
		vTop, vBottom := float32(glyph.Y)/fh, float32(glyph.Y+glyph.H)/fh

		base := uint32(g.VertexCount())
		g.Vertices = append(g.Vertices,
			penX, penY-1, 0,
			penX+w, penY-1, 0,
			penX+w, penY, 0,
			penX, penY, 0,
		)
		g.Normals = append(g.Normals, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1)
		g.Texcoords = append(g.Texcoords,
			u0, vBottom,
			u1, vBottom,
			u1, vTop,
			u0, vTop,
		)
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
		penX += adv
	}
	return g
}
