package renderer

import (
	"fmt"
	"strings"
)

type attachment struct {
	format AttachmentFormat
	bits   int
	tex    uint32
}

// Framebuffer is an offscreen render target. Color attachments keep the order
// they were added in; the depth attachment, if any, always comes last when
// bound to texture units.
type Framebuffer struct {
	ID     uint32
	Width  int
	Height int

	dev    Device
	colors []attachment
	depth  *attachment
}

func NewFramebuffer(dev Device, width, height int) *Framebuffer {
	return &Framebuffer{
		ID:     dev.CreateFramebuffer(),
		Width:  width,
		Height: height,
		dev:    dev,
	}
}

// AddFloatRGBBuffer attaches a floating point RGB target with bits per channel (16 or 32).
func (f *Framebuffer) AddFloatRGBBuffer(bits int) *Framebuffer {
	return f.addColor(FormatFloatRGB, bits)
}

// AddUnsignedByteRGBABuffer attaches a normalized RGBA target.
func (f *Framebuffer) AddUnsignedByteRGBABuffer(bits int) *Framebuffer {
	return f.addColor(FormatUnsignedByteRGBA, bits)
}

// AddDepthBuffer attaches a depth target, replacing any previous one.
func (f *Framebuffer) AddDepthBuffer(bits int) *Framebuffer {
	if f.depth != nil {
		f.dev.DeleteTexture(f.depth.tex)
	}
	f.depth = &attachment{
		format: FormatDepth,
		bits:   bits,
		tex:    f.dev.CreateAttachment(f.ID, -1, FormatDepth, bits, f.Width, f.Height),
	}
	return f
}

func (f *Framebuffer) addColor(format AttachmentFormat, bits int) *Framebuffer {
	tex := f.dev.CreateAttachment(f.ID, len(f.colors), format, bits, f.Width, f.Height)
	f.colors = append(f.colors, attachment{format: format, bits: bits, tex: tex})
	return f
}

// CheckDrawBuffers selects every color attachment as a draw target and
// verifies the framebuffer is complete.
func (f *Framebuffer) CheckDrawBuffers() error {
	f.SetDrawBuffers()
	if err := f.dev.FramebufferStatus(f.ID); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFramebufferIncomplete, f, err)
	}
	return nil
}

// SetDrawBuffers binds the framebuffer for drawing into all color attachments.
func (f *Framebuffer) SetDrawBuffers() {
	f.dev.BindFramebuffer(f.ID)
	f.dev.DrawBuffers(f.ID, len(f.colors))
}

// RevertToDefaultFramebuffer binds the window's framebuffer.
func (f *Framebuffer) RevertToDefaultFramebuffer() {
	f.dev.BindFramebuffer(0)
}

// Resize reallocates every attachment at the new size, keeping formats and
// attachment order. A no-op when the size is unchanged.
func (f *Framebuffer) Resize(width, height int) error {
	if width == f.Width && height == f.Height {
		return nil
	}
	f.Width, f.Height = width, height

	for i := range f.colors {
		c := &f.colors[i]
		f.dev.DeleteTexture(c.tex)
		c.tex = f.dev.CreateAttachment(f.ID, i, c.format, c.bits, width, height)
	}
	if f.depth != nil {
		f.dev.DeleteTexture(f.depth.tex)
		f.depth.tex = f.dev.CreateAttachment(f.ID, -1, FormatDepth, f.depth.bits, width, height)
	}
	return f.CheckDrawBuffers()
}

// BindTexturesToUnitsWithOffset binds attachment i to texture unit offset+i.
func (f *Framebuffer) BindTexturesToUnitsWithOffset(offset int) {
	for i, tex := range f.TextureIDs() {
		f.dev.BindTexture(uint32(offset+i), tex)
	}
}

// TextureIDs returns the attachment textures, color first, depth last.
func (f *Framebuffer) TextureIDs() []uint32 {
	ids := make([]uint32, 0, len(f.colors)+1)
	for _, c := range f.colors {
		ids = append(ids, c.tex)
	}
	if f.depth != nil {
		ids = append(ids, f.depth.tex)
	}
	return ids
}

// BoundBufferNum is the number of texture units taken by
// BindTexturesToUnitsWithOffset(0), i.e. the first unit free for object textures.
func (f *Framebuffer) BoundBufferNum() int {
	n := len(f.colors)
	if f.depth != nil {
		n++
	}
	return n
}

func (f *Framebuffer) Destroy() {
	for _, tex := range f.TextureIDs() {
		f.dev.DeleteTexture(tex)
	}
	f.colors = nil
	f.depth = nil
	f.dev.DeleteFramebuffer(f.ID)
	f.ID = 0
}

func (f *Framebuffer) String() string {
	parts := make([]string, 0, len(f.colors)+1)
	for _, c := range f.colors {
		parts = append(parts, fmt.Sprintf("%s%d", c.format, c.bits))
	}
	if f.depth != nil {
		parts = append(parts, fmt.Sprintf("%s%d", f.depth.format, f.depth.bits))
	}
	return fmt.Sprintf("Framebuffer %d (%dx%d): %s", f.ID, f.Width, f.Height, strings.Join(parts, ", "))
}
