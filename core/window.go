package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GLFW and OpenGL calls must stay on the main thread.
func init() {
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	fullscreen   bool
	windowedPos  [2]int
	windowedSize [2]int
	onResize     []func(width, height int)
}

type WindowConfig struct {
	Width      int
	Height     int
	Title      string
	Resizable  bool
	VSync      bool
	Fullscreen bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:      1280,
		Height:     720,
		Title:      "Deferred Engine",
		Resizable:  true,
		VSync:      true,
		Fullscreen: false,
	}
}

// NewWindow opens a window with an OpenGL 4.1 core context and makes the
// context current.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	monitor := (*glfw.Monitor)(nil)
	if config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	window := &Window{
		Handle:     handle,
		Width:      config.Width,
		Height:     config.Height,
		Title:      config.Title,
		fullscreen: config.Fullscreen,
	}

	handle.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
		if width == 0 || height == 0 {
			return
		}
		for _, cb := range window.onResize {
			cb(width, height)
		}
	})

	return window, nil
}

// OnResize registers cb for framebuffer size changes. Minimized windows
// (zero size) are not reported.
func (w *Window) OnResize(cb func(width, height int)) {
	w.onResize = append(w.onResize, cb)
}

func (w *Window) SetKeyCallback(cb glfw.KeyCallback) {
	w.Handle.SetKeyCallback(cb)
}

func (w *Window) SetFocusCallback(cb func(focused bool)) {
	w.Handle.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		cb(focused)
	})
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

// IsFullscreen reports whether the window currently covers the primary monitor.
func (w *Window) IsFullscreen() bool {
	return w.fullscreen
}

// SetFullscreen moves the window to the primary monitor at its video mode,
// or back to its last windowed position and size.
func (w *Window) SetFullscreen(on bool) {
	if on == w.fullscreen {
		return
	}
	if on {
		x, y := w.Handle.GetPos()
		width, height := w.Handle.GetSize()
		w.windowedPos = [2]int{x, y}
		w.windowedSize = [2]int{width, height}

		monitor := glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		w.Handle.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	} else {
		w.Handle.SetMonitor(nil, w.windowedPos[0], w.windowedPos[1],
			w.windowedSize[0], w.windowedSize[1], glfw.DontCare)
	}
	w.fullscreen = on
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key glfw.Key) bool {
	return w.Handle.GetKey(key) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
