package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-engine/renderer"
	"deferred-engine/scene"
)

// pixelFormats maps a channel count to its 8 bit internal and client formats.
var pixelFormats = [5][2]int32{
	1: {gl.R8, gl.RED},
	2: {gl.RG8, gl.RG},
	3: {gl.RGB8, gl.RGB},
	4: {gl.RGBA8, gl.RGBA},
}

// floatFormats maps a channel count to its 32 bit float internal format.
var floatFormats = [5]int32{1: gl.R32F, 2: gl.RG32F, 3: gl.RGB32F, 4: gl.RGBA32F}

// CreateTexture uploads tex to a new 2D texture. 8 bit and float pixel data
// are both accepted; Repeat selects the wrap mode and Mipmaps the filter.
func (d *Device) CreateTexture(tex *scene.Texture) (uint32, error) {
	if tex == nil {
		return 0, fmt.Errorf("nil texture")
	}
	if tex.Channels < 1 || tex.Channels > 4 {
		return 0, fmt.Errorf("texture %q: unsupported channel count %d", tex.Name, tex.Channels)
	}
	want := tex.Width * tex.Height * tex.Channels
	if len(tex.Pixels) != want && len(tex.Floats) != want {
		return 0, fmt.Errorf("texture %q has no pixel data for %dx%dx%d", tex.Name, tex.Width, tex.Height, tex.Channels)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	wrap := int32(gl.CLAMP_TO_EDGE)
	if tex.Repeat {
		wrap = gl.REPEAT
	}
	minFilter := int32(gl.LINEAR)
	if tex.Mipmaps {
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	format := uint32(pixelFormats[tex.Channels][1])
	if len(tex.Floats) == want {
		gl.TexImage2D(gl.TEXTURE_2D, 0, floatFormats[tex.Channels],
			int32(tex.Width), int32(tex.Height), 0, format, gl.FLOAT, gl.Ptr(tex.Floats))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, pixelFormats[tex.Channels][0],
			int32(tex.Width), int32(tex.Height), 0, format, gl.UNSIGNED_BYTE, gl.Ptr(tex.Pixels))
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)

	if tex.Mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id, nil
}

func (d *Device) DeleteTexture(tex uint32) {
	if tex != 0 {
		gl.DeleteTextures(1, &tex)
	}
}

func (d *Device) BindTexture(unit uint32, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
}

// ── Framebuffers ──────────────────────────────────────────────────────────────

func (d *Device) CreateFramebuffer() uint32 {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return fb
}

func (d *Device) DeleteFramebuffer(fb uint32) {
	if fb != 0 {
		gl.DeleteFramebuffers(1, &fb)
	}
}

func (d *Device) BindFramebuffer(fb uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
}

// CreateAttachment allocates a sampleable texture and attaches it to fb.
// Attachments use nearest filtering and clamp to edge.
func (d *Device) CreateAttachment(fb uint32, index int, format renderer.AttachmentFormat, bits, width, height int) uint32 {
	internal, client, typ := attachmentFormat(format, bits)

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, client, typ, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	attachment := uint32(gl.DEPTH_ATTACHMENT)
	if format != renderer.FormatDepth {
		attachment = gl.COLOR_ATTACHMENT0 + uint32(index)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, tex, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return tex
}

func attachmentFormat(format renderer.AttachmentFormat, bits int) (internal int32, client, typ uint32) {
	switch format {
	case renderer.FormatFloatRGB:
		if bits == 16 {
			return gl.RGB16F, gl.RGB, gl.FLOAT
		}
		return gl.RGB32F, gl.RGB, gl.FLOAT
	case renderer.FormatDepth:
		if bits == 32 {
			return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
		}
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.FLOAT
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

// FramebufferStatus reports why fb cannot be rendered to, or nil.
func (d *Device) FramebufferStatus(fb uint32) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if s == gl.FRAMEBUFFER_COMPLETE {
		return nil
	}
	return fmt.Errorf("status 0x%X (%s)", s, framebufferStatus(s))
}

func framebufferStatus(s uint32) string {
	switch s {
	case gl.FRAMEBUFFER_UNDEFINED:
		return "undefined"
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return "incomplete attachment"
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return "missing attachment"
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return "incomplete draw buffer"
	case gl.FRAMEBUFFER_INCOMPLETE_READ_BUFFER:
		return "incomplete read buffer"
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return "unsupported"
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return "incomplete multisample"
	case gl.FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS:
		return "incomplete layer targets"
	}
	return "unknown"
}

// DrawBuffers binds fb and routes fragment outputs 0..count-1 to its color
// attachments in order.
func (d *Device) DrawBuffers(fb uint32, count int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	if count == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, count)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(count), &bufs[0])
}
