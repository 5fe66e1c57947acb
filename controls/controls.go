package controls

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
)

// Target receives discrete actions. *renderer.Renderer satisfies it.
type Target interface {
	ToggleDebug() bool
	ToggleFullscreen() bool
	ToggleSSAO() bool
	ToggleHDR() bool
	IncreaseExposure()
	DecreaseExposure()
	IncreaseGamma()
	DecreaseGamma()
}

// Controls dispatches key events. Toggles fire once per press; movement
// actions are held until the key is released.
type Controls struct {
	bindings Bindings
	target   Target
	held     map[Action]bool
}

func New(b Bindings, target Target) *Controls {
	return &Controls{
		bindings: b,
		target:   target,
		held:     make(map[Action]bool),
	}
}

// HandleKey processes one key event and reports whether it was bound.
func (c *Controls) HandleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) bool {
	shift := mods&glfw.ModShift != 0
	if action == glfw.Release {
		return c.release(key)
	}
	a, ok := c.bindings[Chord{Key: key, Shift: shift}]
	if !ok {
		return false
	}

	if isMovement(a) {
		c.held[a] = true
		return true
	}

	if action != glfw.Press {
		return true
	}
	logger.Log.Debug("key action", zap.Stringer("chord", Chord{Key: key, Shift: shift}), zap.String("action", string(a)))
	c.dispatch(a)
	return true
}

// release ends every movement bound to key, with or without shift.
func (c *Controls) release(key glfw.Key) bool {
	bound := false
	for _, shift := range []bool{false, true} {
		if a, ok := c.bindings[Chord{Key: key, Shift: shift}]; ok {
			bound = true
			delete(c.held, a)
		}
	}
	return bound
}

// KeyCallback adapts HandleKey to a GLFW key callback.
func (c *Controls) KeyCallback() glfw.KeyCallback {
	return func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		c.HandleKey(key, action, mods)
	}
}

// Held reports whether a movement action is active.
func (c *Controls) Held(a Action) bool {
	return c.held[a]
}

// ReleaseAll clears held movement, e.g. when the window loses focus.
func (c *Controls) ReleaseAll() {
	for a := range c.held {
		delete(c.held, a)
	}
}

func (c *Controls) dispatch(a Action) {
	t := c.target
	switch a {
	case ToggleDebug:
		t.ToggleDebug()
	case ToggleFullscreen:
		t.ToggleFullscreen()
	case ToggleSSAO:
		t.ToggleSSAO()
	case ToggleHDR:
		t.ToggleHDR()
	case IncreaseExposure:
		t.IncreaseExposure()
	case DecreaseExposure:
		t.DecreaseExposure()
	case IncreaseGamma:
		t.IncreaseGamma()
	case DecreaseGamma:
		t.DecreaseGamma()
	}
}

func isMovement(a Action) bool {
	switch a {
	case MoveForward, MoveBack, MoveLeft, MoveRight, MoveUp, MoveDown,
		MoveForwardFast, MoveBackFast, MoveLeftFast, MoveRightFast:
		return true
	}
	return false
}
