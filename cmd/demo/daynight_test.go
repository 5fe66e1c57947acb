package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"deferred-engine/scene"
)

func TestSamplePaletteKeyframes(t *testing.T) {
	p := samplePalette(0.5)
	assert.Equal(t, palettes[3].color, p.color)
	assert.InDelta(t, 0.12, p.intensity, 1e-6)

	mid := samplePalette(0.4)
	assert.InDelta(t, (0.25+0.12)/2, mid.intensity, 1e-5)

	wrap := samplePalette(0.89)
	assert.InDelta(t, (0.70+1.20)/2, wrap.intensity, 1e-5)
}

func TestDayNightApply(t *testing.T) {
	dn := NewDayNight()
	sun := scene.NewPointLight("sun", mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 1)

	dn.Apply(sun)
	assert.InDelta(t, dn.Radius, sun.WorldPosition().Len(), 1e-4)
	assert.Greater(t, sun.WorldPosition().Y(), float32(0))
	assert.Equal(t, "12:00 PM", dn.TimeOfDayStr())

	dn.Update(60)
	assert.InDelta(t, 0.5, dn.Time, 1e-6)
	dn.Apply(sun)
	assert.Less(t, sun.WorldPosition().Y(), float32(0))
	assert.Equal(t, "12:00 AM", dn.TimeOfDayStr())
}

func TestDebugOverlayFlush(t *testing.T) {
	board := scene.NewFontBoard("", "")
	board.Dirty = false
	do := NewDebugOverlay(board)

	do.AddLine("FPS: %d", 60)
	do.AddLine("Lights: %d", 3)
	do.Flush()
	assert.Equal(t, "FPS: 60\nLights: 3", board.Text.Text)
	assert.True(t, board.Dirty)

	board.Dirty = false
	do.Clear()
	do.AddLine("FPS: %d", 60)
	do.AddLine("Lights: %d", 3)
	do.Flush()
	assert.False(t, board.Dirty)
}
