package scene

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Texture holds CPU-side pixel data for a 2D texture. Exactly one of Pixels
// (8 bits per channel) or Floats (32-bit float per channel) is set.
type Texture struct {
	Name     string
	Width    int
	Height   int
	Channels int

	Pixels []byte
	Floats []float32

	// Repeat selects REPEAT wrapping; clamp-to-edge otherwise.
	Repeat  bool
	Mipmaps bool
}

// LoadTexture reads a PNG, JPEG, BMP, TIFF or WebP file from disk and returns
// an RGBA8 Texture.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()

	tex, err := DecodeTexture(path, f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", path, err)
	}
	return tex, nil
}

// DecodeTexture decodes any registered image format into an RGBA8 Texture.
func DecodeTexture(name string, r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &Texture{
		Name:     name,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 4,
		Pixels:   rgba.Pix,
		Repeat:   true,
		Mipmaps:  true,
	}, nil
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return &Texture{
		Name:     name,
		Width:    1,
		Height:   1,
		Channels: 4,
		Pixels:   []byte{r, g, b, a},
		Repeat:   true,
	}
}
