package main

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

// dayPalette is the sun light state for one key time of day.
type dayPalette struct {
	t         float32 // normalised time 0..1
	color     mgl32.Vec3
	intensity float32
}

// palettes is ordered by t and wraps (0 == 1).
var palettes = []dayPalette{
	{t: 0.00, color: mgl32.Vec3{1.00, 0.98, 0.92}, intensity: 1.20}, // noon
	{t: 0.22, color: mgl32.Vec3{1.00, 0.65, 0.25}, intensity: 0.90}, // golden hour
	{t: 0.30, color: mgl32.Vec3{0.70, 0.40, 0.55}, intensity: 0.25}, // dusk
	{t: 0.50, color: mgl32.Vec3{0.40, 0.45, 0.65}, intensity: 0.12}, // moonlight
	{t: 0.70, color: mgl32.Vec3{0.75, 0.42, 0.60}, intensity: 0.20}, // pre-dawn
	{t: 0.78, color: mgl32.Vec3{1.00, 0.60, 0.28}, intensity: 0.70}, // sunrise
}

// DayNight moves a point light around the scene and tints it by time of day.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Radius float32
	Active bool
}

func NewDayNight() *DayNight {
	return &DayNight{
		Time:   0.0,
		Speed:  120.0,
		Radius: 20.0,
		Active: true,
	}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active {
		return
	}
	dn.Time += dt / dn.Speed
	for dn.Time >= 1.0 {
		dn.Time -= 1.0
	}
}

// samplePalette interpolates the keyframes surrounding t.
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	for i := 0; i < n; i++ {
		a, b := palettes[i], palettes[(i+1)%n]
		tb := b.t
		if i == n-1 {
			tb = 1.0
		}
		if t < a.t || t >= tb {
			continue
		}
		local := (t - a.t) / (tb - a.t)
		return dayPalette{
			t:         t,
			color:     a.color.Add(b.color.Sub(a.color).Mul(local)),
			intensity: a.intensity + (b.intensity-a.intensity)*local,
		}
	}
	return palettes[0]
}

// Apply places sun on its orbit and sets its color and intensity.
func (dn *DayNight) Apply(sun *scene.Node) {
	if sun == nil || sun.Light == nil {
		return
	}
	p := samplePalette(dn.Time)

	// Full rotation in the XY plane, tilted along Z
	angle := float64(dn.Time * 2 * math.Pi)
	dir := mgl32.Vec3{
		float32(math.Sin(angle)),
		float32(math.Cos(angle)), // +1 = noon (overhead), -1 = midnight
		0.35,
	}.Normalize()

	sun.SetPosition(dir.Mul(dn.Radius))
	sun.Light.Color = p.color
	sun.Light.Intensity = p.intensity
}

// TimeOfDayStr returns a human-readable time label.
func (dn *DayNight) TimeOfDayStr() string {
	hours := dn.Time*24.0 + 12.0
	h := int(hours) % 24
	m := int((hours - float32(int(hours))) * 60)
	period := "AM"
	displayH := h
	if h == 0 {
		displayH = 12
	} else if h == 12 {
		period = "PM"
	} else if h > 12 {
		displayH = h - 12
		period = "PM"
	}
	return fmt.Sprintf("%02d:%02d %s", displayH, m, period)
}
