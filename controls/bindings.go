// Package controls maps keyboard input to renderer toggles and camera
// movement. Bindings are loaded from YAML and fall back to a built-in map.
package controls

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	"gopkg.in/yaml.v3"
)

// Action is a named behaviour a key chord triggers.
type Action string

const (
	ToggleDebug      Action = "toggle_debug"
	ToggleFullscreen Action = "toggle_fullscreen"
	ToggleSSAO       Action = "toggle_ssao"
	ToggleHDR        Action = "toggle_hdr"
	IncreaseExposure Action = "increase_exposure"
	DecreaseExposure Action = "decrease_exposure"
	IncreaseGamma    Action = "increase_gamma"
	DecreaseGamma    Action = "decrease_gamma"

	MoveForward     Action = "move_forward"
	MoveBack        Action = "move_back"
	MoveLeft        Action = "move_left"
	MoveRight       Action = "move_right"
	MoveUp          Action = "move_up"
	MoveDown        Action = "move_down"
	MoveForwardFast Action = "move_forward_fast"
	MoveBackFast    Action = "move_back_fast"
	MoveLeftFast    Action = "move_left_fast"
	MoveRightFast   Action = "move_right_fast"
)

var actions = map[Action]bool{
	ToggleDebug: true, ToggleFullscreen: true, ToggleSSAO: true, ToggleHDR: true,
	IncreaseExposure: true, DecreaseExposure: true, IncreaseGamma: true, DecreaseGamma: true,
	MoveForward: true, MoveBack: true, MoveLeft: true, MoveRight: true, MoveUp: true, MoveDown: true,
	MoveForwardFast: true, MoveBackFast: true, MoveLeftFast: true, MoveRightFast: true,
}

// ErrUnknownAction is returned for binding targets that name no Action.
var ErrUnknownAction = errors.New("controls: unknown action")

// Chord is a key plus whether shift must be held.
type Chord struct {
	Key   glfw.Key
	Shift bool
}

func (c Chord) String() string {
	name := keyName(c.Key)
	if c.Shift {
		return "shift " + name
	}
	return name
}

// Bindings maps key chords to actions.
type Bindings map[Chord]Action

// Default returns the built-in bindings.
func Default() Bindings {
	return Bindings{
		{Key: glfw.KeyW}:              MoveForward,
		{Key: glfw.KeyA}:              MoveLeft,
		{Key: glfw.KeyS}:              MoveBack,
		{Key: glfw.KeyD}:              MoveRight,
		{Key: glfw.KeyW, Shift: true}: MoveForwardFast,
		{Key: glfw.KeyA, Shift: true}: MoveLeftFast,
		{Key: glfw.KeyS, Shift: true}: MoveBackFast,
		{Key: glfw.KeyD, Shift: true}: MoveRightFast,

		{Key: glfw.KeySpace}:              MoveUp,
		{Key: glfw.KeySpace, Shift: true}: MoveDown,

		{Key: glfw.KeyQ}: ToggleDebug,
		{Key: glfw.KeyF}: ToggleFullscreen,
		{Key: glfw.KeyO}: ToggleSSAO,
		{Key: glfw.KeyH}: ToggleHDR,

		{Key: glfw.KeyK}:              IncreaseExposure,
		{Key: glfw.KeyL}:              DecreaseExposure,
		{Key: glfw.KeyK, Shift: true}: IncreaseGamma,
		{Key: glfw.KeyL, Shift: true}: DecreaseGamma,
	}
}

// file is the YAML layout:
//
//	bindings:
//	  toggle_debug: Q
//	  increase_gamma: shift K
//
// An empty chord unbinds the action.
type file struct {
	Bindings map[string]string `yaml:"bindings"`
}

// Parse reads YAML bindings and applies them over Default. Each listed
// action replaces every default chord bound to it.
func Parse(data []byte) (Bindings, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bindings: %w", err)
	}

	b := Default()
	names := make([]string, 0, len(f.Bindings))
	for name := range f.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		action := Action(name)
		if !actions[action] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
		}
		for chord, a := range b {
			if a == action {
				delete(b, chord)
			}
		}
		spec := strings.TrimSpace(f.Bindings[name])
		if spec == "" {
			continue
		}
		chord, err := ParseChord(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b[chord] = action
	}
	return b, nil
}

// Load reads bindings from path. A missing file yields Default.
func Load(path string) (Bindings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	return Parse(data)
}

// Save writes b to path in the layout Parse reads.
func (b Bindings) Save(path string) error {
	f := file{Bindings: make(map[string]string, len(b))}
	for chord, action := range b {
		f.Bindings[string(action)] = chord.String()
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParseChord parses "K", "shift K", "shift+space" or "F5". Key names are
// case-insensitive.
func ParseChord(s string) (Chord, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == ' ' || r == '+' })
	var c Chord
	switch {
	case len(fields) == 2 && fields[0] == "shift":
		c.Shift = true
		fields = fields[1:]
	case len(fields) != 1:
		return Chord{}, fmt.Errorf("invalid key chord %q", s)
	}
	key, ok := keysByName[fields[0]]
	if !ok {
		return Chord{}, fmt.Errorf("unknown key %q", fields[0])
	}
	c.Key = key
	return c, nil
}

var keysByName = func() map[string]glfw.Key {
	m := map[string]glfw.Key{
		"space":     glfw.KeySpace,
		"escape":    glfw.KeyEscape,
		"enter":     glfw.KeyEnter,
		"tab":       glfw.KeyTab,
		"backspace": glfw.KeyBackspace,
		"up":        glfw.KeyUp,
		"down":      glfw.KeyDown,
		"left":      glfw.KeyLeft,
		"right":     glfw.KeyRight,
		"pageup":    glfw.KeyPageUp,
		"pagedown":  glfw.KeyPageDown,
		"home":      glfw.KeyHome,
		"end":       glfw.KeyEnd,
		"minus":     glfw.KeyMinus,
		"equal":     glfw.KeyEqual,
		"comma":     glfw.KeyComma,
		"period":    glfw.KeyPeriod,
	}
	for i := 0; i < 26; i++ {
		m[string(rune('a'+i))] = glfw.KeyA + glfw.Key(i)
	}
	for i := 0; i < 10; i++ {
		m[string(rune('0'+i))] = glfw.Key0 + glfw.Key(i)
	}
	for i := 0; i < 12; i++ {
		m[fmt.Sprintf("f%d", i+1)] = glfw.KeyF1 + glfw.Key(i)
	}
	return m
}()

func keyName(k glfw.Key) string {
	switch {
	case k >= glfw.KeyA && k <= glfw.KeyZ:
		return string(rune('A' + int(k-glfw.KeyA)))
	case k >= glfw.Key0 && k <= glfw.Key9:
		return string(rune('0' + int(k-glfw.Key0)))
	case k >= glfw.KeyF1 && k <= glfw.KeyF12:
		return fmt.Sprintf("F%d", int(k-glfw.KeyF1)+1)
	}
	for name, key := range keysByName {
		if key == k {
			return strings.ToUpper(name)
		}
	}
	return fmt.Sprintf("key%d", int(k))
}
