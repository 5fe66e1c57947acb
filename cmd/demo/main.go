package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/controls"
	"deferred-engine/core"
	"deferred-engine/internal/logger"
	"deferred-engine/internal/opengl"
	"deferred-engine/renderer"
	"deferred-engine/scene"
	"deferred-engine/settings"
)

func main() {
	var (
		settingsPath = flag.String("settings", "settings.toml", "TOML settings file, reloaded on change")
		bindingsPath = flag.String("bindings", "bindings.yaml", "YAML key bindings")
		gltfPath     = flag.String("gltf", "", "optional glTF/GLB model to add to the scene")
		objPath      = flag.String("obj", "", "optional Wavefront OBJ model to add to the scene")
		shaderDir    = flag.String("shaders", "", "directory searched for shaders before the built-in ones")
		debug        = flag.Bool("debug", false, "development logging")
		vr           = flag.Bool("vr", false, "side-by-side stereo")
		anaglyph     = flag.Bool("anaglyph", false, "red/cyan stereo (implies -vr)")
		instances    = flag.Int("instances", 64, "instanced cubes in the grid")
	)
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(options{
		settingsPath: *settingsPath,
		bindingsPath: *bindingsPath,
		gltfPath:     *gltfPath,
		objPath:      *objPath,
		shaderDir:    *shaderDir,
		vr:           *vr || *anaglyph,
		anaglyph:     *anaglyph,
		instances:    *instances,
	}); err != nil {
		logger.Log.Error("demo failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

type options struct {
	settingsPath string
	bindingsPath string
	gltfPath     string
	objPath      string
	shaderDir    string
	vr           bool
	anaglyph     bool
	instances    int
}

func loadSettings(path string, vr, anaglyph bool) (*settings.Settings, error) {
	s := settings.Default()
	if _, err := s.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if vr {
		if err := s.Set(settings.VRActive, true); err != nil {
			return nil, err
		}
	}
	if anaglyph {
		if err := s.Set(settings.VRDoAnaglyph, true); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func run(opts options) error {
	s, err := loadSettings(opts.settingsPath, opts.vr, opts.anaglyph)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	windowConfig := core.DefaultWindowConfig()
	windowConfig.Title = "Deferred Engine"
	windowConfig.Fullscreen = s.Bool(settings.WantsFullscreen)

	window, err := core.NewWindow(windowConfig)
	if err != nil {
		return err
	}
	defer window.Destroy()
	if err := s.Set(settings.IsFullscreen, window.IsFullscreen()); err != nil {
		return err
	}

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}

	var shaderDirs []fs.FS
	if opts.shaderDir != "" {
		shaderDirs = append(shaderDirs, os.DirFS(opts.shaderDir))
	}
	width, height := window.GetFramebufferSize()
	r, err := renderer.New(dev, width, height, renderer.Options{Settings: s, ShaderDirs: shaderDirs})
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer r.Destroy()

	sc, sun, hud := buildScene(opts)
	if err := r.InitializeScene(sc); err != nil {
		logger.Log.Warn("some nodes failed to initialize", zap.Error(err))
	}

	bindings, err := controls.Load(opts.bindingsPath)
	if err != nil {
		return err
	}
	ctrl := controls.New(bindings, r)
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			return
		}
		ctrl.HandleKey(key, action, mods)
	})
	window.SetFocusCallback(func(focused bool) {
		if !focused {
			ctrl.ReleaseAll()
		}
	})
	window.OnResize(r.Reshape)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Watch(ctx, opts.settingsPath, nil); err != nil {
		logger.Log.Warn("settings hot reload disabled", zap.Error(err))
	}

	camController := controls.NewCameraController()
	dayNight := NewDayNight()
	overlay := NewDebugOverlay(hud)

	lastTime := time.Now()
	titleTime := lastTime
	frames := 0

	for !window.ShouldClose() {
		window.PollEvents()

		now := time.Now()
		deltaTime := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if want := s.Bool(settings.WantsFullscreen); want != window.IsFullscreen() {
			window.SetFullscreen(want)
			if err := s.Set(settings.IsFullscreen, want); err != nil {
				logger.Log.Warn("fullscreen", zap.Error(err))
			}
		}

		camController.Update(ctrl, window, sc.Camera, deltaTime)
		dayNight.Update(deltaTime)
		dayNight.Apply(sun)

		if err := r.Render(sc); err != nil {
			logger.Log.Error("render", zap.Error(err))
		}
		window.SwapBuffers()

		frames++
		if elapsed := now.Sub(titleTime); elapsed >= time.Second {
			stats := r.Stats()
			fps := float64(frames) / elapsed.Seconds()
			overlay.Clear()
			overlay.AddLine("FPS %.0f  %s", fps, dayNight.TimeOfDayStr())
			overlay.AddLine("nodes %d  draws %d", stats.Nodes, stats.DrawCalls)
			overlay.AddLine("instances %d  lights %d", stats.Instances, stats.Lights)
			overlay.Flush()

			pos := sc.Camera.Position
			window.SetTitle(fmt.Sprintf("Deferred Engine | FPS: %.0f | (%.1f, %.1f, %.1f) | HDR %v SSAO %v",
				fps, pos.X(), pos.Y(), pos.Z(), s.Bool(settings.HDRActive), s.Bool(settings.SSAOActive)))
			logger.Log.Debug("frame stats",
				zap.Float64("fps", fps),
				zap.Int("nodes", stats.Nodes),
				zap.Int("drawCalls", stats.DrawCalls),
				zap.Int("fullscreenQuads", stats.FullscreenQuads))
			frames = 0
			titleTime = now
		}
	}

	logger.Log.Info("exiting")
	return nil
}

// buildScene returns the scene, the animated sun light and the HUD board.
func buildScene(opts options) (*scene.Scene, *scene.Node, *scene.Node) {
	sc := scene.NewScene()

	camera := scene.NewCamera()
	camera.Position = mgl32.Vec3{0, 3, 14}
	camera.LookAt(mgl32.Vec3{0, 1, 0})
	sc.SetCamera(camera)

	// ── Ground ────────────────────────────────────────────────────────────────
	matGround := scene.NewMaterial("Ground", mgl32.Vec3{0.62, 0.58, 0.52})
	matGround.SetTransferTexture(scene.SlotDiffuse, "checker", checkerTexture(64, 8))
	sc.AddNode(scene.NewMesh("Ground", scene.CreatePlane(40, 40, 1), matGround))

	// ── Shapes ────────────────────────────────────────────────────────────────
	sphere := scene.NewMesh("Sphere", scene.CreateSphere(1, 32, 16), scene.NewMaterial("Marble", mgl32.Vec3{0.92, 0.90, 0.86}))
	sphere.SetPosition(mgl32.Vec3{-3, 1, 0})
	sc.AddNode(sphere)

	torus := scene.NewMesh("Torus", scene.CreateTorus(1, 0.3, 32, 16), scene.NewMaterial("Brass", mgl32.Vec3{0.78, 0.57, 0.11}))
	torus.SetPosition(mgl32.Vec3{3, 1.2, 0})
	sc.AddNode(torus)

	glass := scene.NewMaterial("Glass", mgl32.Vec3{0.3, 0.5, 0.7})
	glass.Transparent = true
	glass.DoubleSided = true
	pane := scene.NewMesh("Pane", scene.CreateTriangle(2), glass)
	pane.SetPosition(mgl32.Vec3{0, 1, 3})
	sc.AddNode(pane)

	// ── Instanced cube grid ───────────────────────────────────────────────────
	proto := scene.NewMesh("CubePrototype", scene.CreateBox(mgl32.Vec3{0.5, 0.5, 0.5}), scene.NewMaterial("Brick", mgl32.Vec3{0.70, 0.43, 0.30}))
	proto.Visible = false
	sc.AddNode(proto)
	side := int(math.Ceil(math.Sqrt(float64(opts.instances))))
	for i := 0; i < opts.instances; i++ {
		inst := scene.NewInstance(fmt.Sprintf("Cube%d", i), proto)
		x, z := i%side, i/side
		inst.SetPosition(mgl32.Vec3{float32(x-side/2) * 1.5, 0.25, -6 - float32(z)*1.5})
		sc.AddNode(inst)
	}

	// ── Optional models ──────────────────────────────────────────────────────
	if opts.gltfPath != "" {
		nodes, err := scene.LoadGLTF(opts.gltfPath)
		if err != nil {
			logger.Log.Warn("gltf skipped", zap.String("path", opts.gltfPath), zap.Error(err))
		}
		for _, n := range nodes {
			sc.AddNode(n)
		}
	}
	if opts.objPath != "" {
		nodes, err := scene.LoadOBJ(opts.objPath)
		if err != nil {
			logger.Log.Warn("obj skipped", zap.String("path", opts.objPath), zap.Error(err))
		}
		for _, n := range nodes {
			n.SetPosition(mgl32.Vec3{0, 0, -3})
			sc.AddNode(n)
		}
	}

	// ── Lights ────────────────────────────────────────────────────────────────
	sun := scene.NewPointLight("Sun", mgl32.Vec3{0, 20, 7}, mgl32.Vec3{1, 1, 1}, 1.2)
	sun.Light.Linear = 0.02
	sun.Light.Quadratic = 0.001
	sc.AddNode(sun)
	colors := []mgl32.Vec3{{1, 0.3, 0.2}, {0.2, 1, 0.4}, {0.3, 0.4, 1}, {1, 0.9, 0.3}}
	for i, c := range colors {
		angle := float64(i) * math.Pi / 2
		pos := mgl32.Vec3{float32(math.Cos(angle)) * 5, 1.5, float32(math.Sin(angle)) * 5}
		sc.AddNode(scene.NewPointLight(fmt.Sprintf("Lamp%d", i), pos, c, 2))
	}

	// ── Text ──────────────────────────────────────────────────────────────────
	title := scene.NewFontBoard("", "deferred engine")
	title.SetPosition(mgl32.Vec3{0, 3.5, 0})
	title.SetScale(mgl32.Vec3{0.02, 0.02, 0.02})
	title.Text.Color = mgl32.Vec3{1, 1, 1}
	sc.AddNode(title)

	hud := scene.NewFontBoard("", "")
	hud.SetPosition(mgl32.Vec3{-6, 5, 0})
	hud.SetScale(mgl32.Vec3{0.01, 0.01, 0.01})
	sc.AddNode(hud)

	return sc, sun, hud
}

// checkerTexture returns a size x size RGBA checkerboard with cells of cell pixels.
func checkerTexture(size, cell int) *scene.Texture {
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(90)
			if (x/cell+y/cell)%2 == 0 {
				v = 220
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	return &scene.Texture{
		Name:     "checker",
		Width:    size,
		Height:   size,
		Channels: 4,
		Pixels:   pixels,
		Repeat:   true,
		Mipmaps:  true,
	}
}
