package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/fonts"
	"deferred-engine/internal/logger"
	"deferred-engine/settings"
)

var (
	// ErrShaderCompile wraps shader lookup, compile and link failures.
	ErrShaderCompile = errors.New("renderer: shader compile failed")
	// ErrFramebufferIncomplete is returned when a framebuffer fails its completeness check.
	ErrFramebufferIncomplete = errors.New("renderer: framebuffer incomplete")
	// ErrNoObserver is returned by Render for a scene without a camera.
	ErrNoObserver = errors.New("renderer: scene has no observer")
)

// Options configures New.
type Options struct {
	// Settings is shared with the caller; nil uses settings.Default().
	Settings *settings.Settings
	// HMD is optional. It is only used while InitializedAndWorking.
	HMD HMD
	// ShaderDirs are searched for shader files before the built-in set.
	ShaderDirs []fs.FS
}

// Stats describes the last rendered frame.
type Stats struct {
	Nodes           int
	InstancedGroups int
	Instances       int
	Lights          int
	DrawCalls       int
	FullscreenQuads int
}

// Renderer is a deferred shading pipeline. Each eye has a geometry buffer
// (position, normal, albedo/specular, depth), an HDR buffer and a
// combination buffer; the combination buffers are merged on screen.
type Renderer struct {
	dev      Device
	settings *settings.Settings
	hmd      HMD

	shaders *ShaderLibrary
	cache   *ResourceCache
	arena   *stateArena
	atlases map[string]*fonts.Atlas

	geometryBuffer    []*Framebuffer
	hdrBuffer         []*Framebuffer
	combinationBuffer []*Framebuffer

	lightingProgram *Program
	hdrProgram      *Program
	combinerProgram *Program
	quadVAO         uint32

	width  int
	height int

	mu           sync.Mutex
	inFrame      bool
	pendingSize  *[2]int
	stats        Stats
	currentStats Stats
}

// New builds the framebuffers and pipeline programs for a width x height
// window. It must be called on the goroutine owning the graphics context.
func New(dev Device, width, height int, opts Options) (*Renderer, error) {
	s := opts.Settings
	if s == nil {
		s = settings.Default()
	}

	r := &Renderer{
		dev:      dev,
		settings: s,
		hmd:      opts.HMD,
		shaders:  NewShaderLibrary(opts.ShaderDirs...),
		cache:    NewResourceCache(),
		arena:    newStateArena(),
		atlases:  make(map[string]*fonts.Atlas),
		width:    width,
		height:   height,
	}

	logger.Log.Info("renderer device", zap.String("info", dev.Info()))

	if err := s.Set(settings.SSAOFilterRadius, mgl32.Vec2{5.0 / float32(width), 5.0 / float32(height)}); err != nil {
		return nil, err
	}

	eyes := 1
	if s.Bool(settings.VRActive) {
		eyes = 2
		if s.Float(settings.VRIPD) == 0 {
			if err := s.Set(settings.VRIPD, float32(-0.5)); err != nil {
				return nil, err
			}
		}
		if !s.Bool(settings.VRDoAnaglyph) {
			if err := s.Set(settings.VREyeDivisor, 2); err != nil {
				return nil, err
			}
		}
	}

	eyeWidth := r.eyeWidth(width)
	for i := 0; i < eyes; i++ {
		gb := NewFramebuffer(dev, eyeWidth, height).
			AddFloatRGBBuffer(32).
			AddFloatRGBBuffer(16).
			AddUnsignedByteRGBABuffer(8).
			AddDepthBuffer(24)
		hb := NewFramebuffer(dev, eyeWidth, height).
			AddFloatRGBBuffer(32).
			AddFloatRGBBuffer(32)
		cb := NewFramebuffer(dev, eyeWidth, height).
			AddUnsignedByteRGBABuffer(8)

		r.geometryBuffer = append(r.geometryBuffer, gb)
		r.hdrBuffer = append(r.hdrBuffer, hb)
		r.combinationBuffer = append(r.combinationBuffer, cb)

		for _, fb := range []*Framebuffer{gb, hb, cb} {
			if err := fb.CheckDrawBuffers(); err != nil {
				r.Destroy()
				return nil, fmt.Errorf("eye %d: %w", i, err)
			}
			logger.Log.Info("framebuffer", zap.Int("eye", i), zap.Stringer("fb", fb))
		}
	}
	r.dev.BindFramebuffer(0)

	var err error
	if r.lightingProgram, err = r.loadProgram("DeferredLighting", []string{"FullscreenQuad.vert", "DeferredLighting.frag"}, nil); err != nil {
		r.Destroy()
		return nil, err
	}
	if r.hdrProgram, err = r.loadProgram("HDR", []string{"FullscreenQuad.vert", "HDR.frag"}, nil); err != nil {
		r.Destroy()
		return nil, err
	}
	if r.combinerProgram, err = r.loadProgram("Combiner", []string{"FullscreenQuad.vert", "Combiner.frag"}, nil); err != nil {
		r.Destroy()
		return nil, err
	}
	r.quadVAO = dev.CreateVertexArray()

	dev.ClearColor(0, 0, 0, 0)
	dev.Viewport(0, 0, width, height)
	return r, nil
}

// Settings returns the store the renderer reads every frame.
func (r *Renderer) Settings() *settings.Settings {
	return r.settings
}

// Eyes returns the number of rendered eyes, 1 or 2.
func (r *Renderer) Eyes() int {
	return len(r.geometryBuffer)
}

// Size returns the current output size.
func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// Stats returns counters of the last completed frame.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// GeometryBuffer returns the G-buffer of eye.
func (r *Renderer) GeometryBuffer(eye int) *Framebuffer { return r.geometryBuffer[eye] }

// HDRBuffer returns the HDR buffer of eye.
func (r *Renderer) HDRBuffer(eye int) *Framebuffer { return r.hdrBuffer[eye] }

// CombinationBuffer returns the tonemapped output of eye.
func (r *Renderer) CombinationBuffer(eye int) *Framebuffer { return r.combinationBuffer[eye] }

// eyeWidth is the per-eye buffer width for a window width.
func (r *Renderer) eyeWidth(width int) int {
	if !r.settings.Bool(settings.VRActive) {
		return width
	}
	div := r.settings.Int(settings.VREyeDivisor)
	if div < 1 {
		div = 1
	}
	return width / div
}

// activeHMD returns the HMD when it can be used this frame, nil otherwise.
func (r *Renderer) activeHMD() HMD {
	if r.hmd == nil || !r.hmd.InitializedAndWorking() {
		return nil
	}
	return r.hmd
}

// Destroy releases every GPU object created by the renderer.
func (r *Renderer) Destroy() {
	for _, st := range r.arena.live() {
		st.release(r.dev)
	}
	r.arena = newStateArena()
	r.cache.Destroy(r.dev)

	for _, set := range [][]*Framebuffer{r.geometryBuffer, r.hdrBuffer, r.combinationBuffer} {
		for _, fb := range set {
			fb.Destroy()
		}
	}
	r.geometryBuffer, r.hdrBuffer, r.combinationBuffer = nil, nil, nil

	if r.quadVAO != 0 {
		r.dev.DeleteVertexArray(r.quadVAO)
		r.quadVAO = 0
	}
}
