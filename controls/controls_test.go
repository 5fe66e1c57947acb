package controls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-engine/scene"
)

type recorder struct {
	calls []string
}

func (r *recorder) ToggleDebug() bool      { r.calls = append(r.calls, "debug"); return true }
func (r *recorder) ToggleFullscreen() bool { r.calls = append(r.calls, "fullscreen"); return true }
func (r *recorder) ToggleSSAO() bool       { r.calls = append(r.calls, "ssao"); return true }
func (r *recorder) ToggleHDR() bool        { r.calls = append(r.calls, "hdr"); return true }
func (r *recorder) IncreaseExposure()      { r.calls = append(r.calls, "exposure+") }
func (r *recorder) DecreaseExposure()      { r.calls = append(r.calls, "exposure-") }
func (r *recorder) IncreaseGamma()         { r.calls = append(r.calls, "gamma+") }
func (r *recorder) DecreaseGamma()         { r.calls = append(r.calls, "gamma-") }

func TestDefaultBindingsDispatch(t *testing.T) {
	rec := &recorder{}
	c := New(Default(), rec)

	press := func(k glfw.Key, mods glfw.ModifierKey) {
		c.HandleKey(k, glfw.Press, mods)
		c.HandleKey(k, glfw.Release, mods)
	}
	press(glfw.KeyQ, 0)
	press(glfw.KeyF, 0)
	press(glfw.KeyO, 0)
	press(glfw.KeyH, 0)
	press(glfw.KeyK, 0)
	press(glfw.KeyL, 0)
	press(glfw.KeyK, glfw.ModShift)
	press(glfw.KeyL, glfw.ModShift)

	assert.Equal(t, []string{"debug", "fullscreen", "ssao", "hdr", "exposure+", "exposure-", "gamma+", "gamma-"}, rec.calls)
}

func TestRepeatDoesNotRetrigger(t *testing.T) {
	rec := &recorder{}
	c := New(Default(), rec)

	c.HandleKey(glfw.KeyH, glfw.Press, 0)
	c.HandleKey(glfw.KeyH, glfw.Repeat, 0)
	c.HandleKey(glfw.KeyH, glfw.Release, 0)

	assert.Equal(t, []string{"hdr"}, rec.calls)
	assert.False(t, c.HandleKey(glfw.KeyZ, glfw.Press, 0))
}

func TestMovementIsHeld(t *testing.T) {
	c := New(Default(), &recorder{})

	c.HandleKey(glfw.KeyW, glfw.Press, 0)
	assert.True(t, c.Held(MoveForward))

	// Releasing with shift down still ends the unshifted action.
	c.HandleKey(glfw.KeyW, glfw.Release, glfw.ModShift)
	assert.False(t, c.Held(MoveForward))

	c.HandleKey(glfw.KeySpace, glfw.Press, glfw.ModShift)
	assert.True(t, c.Held(MoveDown))
	c.ReleaseAll()
	assert.False(t, c.Held(MoveDown))
}

func TestParseOverridesDefaults(t *testing.T) {
	b, err := Parse([]byte("bindings:\n  toggle_hdr: shift+F5\n  toggle_debug: \"\"\n"))
	require.NoError(t, err)

	assert.Equal(t, ToggleHDR, b[Chord{Key: glfw.KeyF5, Shift: true}])
	_, ok := b[Chord{Key: glfw.KeyH}]
	assert.False(t, ok)
	_, ok = b[Chord{Key: glfw.KeyQ}]
	assert.False(t, ok)
	assert.Equal(t, ToggleSSAO, b[Chord{Key: glfw.KeyO}])
}

func TestParseRejectsUnknown(t *testing.T) {
	_, err := Parse([]byte("bindings:\n  self_destruct: X\n"))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Parse([]byte("bindings:\n  toggle_hdr: ctrl alt H\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("bindings: [\n"))
	assert.Error(t, err)
}

func TestParseChord(t *testing.T) {
	c, err := ParseChord("shift K")
	require.NoError(t, err)
	assert.Equal(t, Chord{Key: glfw.KeyK, Shift: true}, c)
	assert.Equal(t, "shift K", c.String())

	c, err = ParseChord("space")
	require.NoError(t, err)
	assert.Equal(t, "SPACE", c.String())

	_, err = ParseChord("hyper")
	assert.Error(t, err)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindings.yaml")

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), b)

	b[Chord{Key: glfw.KeyF9}] = ToggleFullscreen
	delete(b, Chord{Key: glfw.KeyF})
	require.NoError(t, b.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "toggle_fullscreen: F9")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, b, loaded)
}

type fakePointer struct {
	down bool
	x, y float64
}

func (p *fakePointer) IsMouseButtonPressed(int) bool    { return p.down }
func (p *fakePointer) GetCursorPos() (float64, float64) { return p.x, p.y }

func TestCameraControllerMoves(t *testing.T) {
	c := New(Default(), &recorder{})
	cam := scene.NewCamera()
	cc := NewCameraController()

	c.HandleKey(glfw.KeyW, glfw.Press, 0)
	cc.Update(c, nil, cam, 0.01)
	assert.InDelta(t, -0.06, cam.Position.Z(), 1e-5)

	c.HandleKey(glfw.KeyW, glfw.Release, 0)
	c.HandleKey(glfw.KeyW, glfw.Press, glfw.ModShift)
	cc.Update(c, nil, cam, 0.01)
	assert.InDelta(t, -0.30, cam.Position.Z(), 1e-5)

	c.ReleaseAll()
	cc.Update(c, nil, cam, 1)
	assert.InDelta(t, -0.30, cam.Position.Z(), 1e-5)
}

func TestCameraControllerLooks(t *testing.T) {
	c := New(Default(), &recorder{})
	cam := scene.NewCamera()
	cc := NewCameraController()
	p := &fakePointer{down: true, x: 100, y: 100}

	cc.Update(c, p, cam, 0.01)
	assert.InDelta(t, 0, cam.Forward.X(), 1e-6)
	assert.InDelta(t, -1, cam.Forward.Z(), 1e-6)

	p.x = 200
	cc.Update(c, p, cam, 0.01)
	assert.Greater(t, cam.Forward.X(), float32(0.2))
	assert.InDelta(t, 0, cam.Forward.Y(), 1e-6)

	p.down = false
	before := cam.Forward
	p.x = 400
	cc.Update(c, p, cam, 0.01)
	assert.Equal(t, before, cam.Forward)
}
