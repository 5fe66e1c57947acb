package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFont is the font family used when a FontBoard does not name one.
const DefaultFont = "Go Mono"

// FontBoard is the text component of a Node. The renderer rebuilds the
// node's geometry from a signed-distance-field glyph atlas whenever the node
// is dirty.
type FontBoard struct {
	Text  string
	Font  string
	Color mgl32.Vec3
}

// NewFontBoard creates a billboarded text node.
func NewFontBoard(font, text string) *Node {
	if font == "" {
		font = DefaultFont
	}
	n := NewNode("FontBoard")
	n.Text = &FontBoard{
		Text:  text,
		Font:  font,
		Color: mgl32.Vec3{0.5, 0.5, 0.5},
	}
	n.Geometry = NewGeometry(Triangles)
	n.Material = NewMaterial("FontBoard", n.Text.Color)
	n.Material.DoubleSided = true
	n.Billboard = true
	n.Dirty = true
	n.ShaderPreference = &ShaderPreference{
		Files: []string{"DefaultDeferred.vert", "FontBoard.frag"},
	}
	return n
}

// SetText replaces the displayed text and marks the node for regeneration.
func (n *Node) SetText(text string) {
	if n.Text == nil {
		return
	}
	n.Text.Text = text
	n.Dirty = true
}

// SetFont changes the font family and marks the node for regeneration.
func (n *Node) SetFont(font string) {
	if n.Text == nil {
		return
	}
	n.Text.Font = font
	n.Dirty = true
}

func (f *FontBoard) String() string {
	return fmt.Sprintf("FontBoard (%s): %s", f.Font, f.Text)
}
