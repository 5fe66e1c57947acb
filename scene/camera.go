package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the scene observer. The renderer composes View and
// RotationMatrix with the eye and HMD transforms; it does not use a camera
// projection of its own.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Up       mgl32.Vec3
	// Rotation is applied after the view, e.g. for head-style look-around.
	Rotation mgl32.Quat

	Yaw   float32
	Pitch float32
}

func NewCamera() *Camera {
	return &Camera{
		Forward:  mgl32.Vec3{0, 0, -1},
		Up:       mgl32.Vec3{0, 1, 0},
		Rotation: mgl32.QuatIdent(),
		Yaw:      -math.Pi / 2,
	}
}

// View returns the look-at matrix for Position, Forward and Up.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward), c.Up)
}

func (c *Camera) RotationMatrix() mgl32.Mat4 {
	return c.Rotation.Mat4()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward.Cross(c.Up).Normalize()
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
}

// LookAt points Forward at target and updates Yaw and Pitch to match.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return
	}
	c.Forward = dir.Normalize()
	c.Pitch = float32(math.Asin(float64(c.Forward.Y())))
	c.Yaw = float32(math.Atan2(float64(c.Forward.Z()), float64(c.Forward.X())))
}

// Turn adds yaw and pitch in radians. Pitch is clamped short of straight up/down.
func (c *Camera) Turn(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	if c.Pitch > 1.5 {
		c.Pitch = 1.5
	}
	if c.Pitch < -1.5 {
		c.Pitch = -1.5
	}

	cosPitch := float32(math.Cos(float64(c.Pitch)))
	c.Forward = mgl32.Vec3{
		cosPitch * float32(math.Cos(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cosPitch * float32(math.Sin(float64(c.Yaw))),
	}.Normalize()
}
