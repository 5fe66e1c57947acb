package controls

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

// Pointer is the mouse state the camera controller polls.
type Pointer interface {
	IsMouseButtonPressed(button int) bool
	GetCursorPos() (float64, float64)
}

// CameraController flies the scene camera: held movement actions translate
// it, dragging with the right mouse button turns it.
type CameraController struct {
	MoveSpeed  float32
	FastFactor float32
	LookSpeed  float32

	lastX, lastY float64
	firstMouse   bool
}

func NewCameraController() *CameraController {
	return &CameraController{
		MoveSpeed:  6.0,
		FastFactor: 4.0,
		LookSpeed:  0.003,
		firstMouse: true,
	}
}

// Update applies one frame of input to cam. pointer may be nil.
func (cc *CameraController) Update(c *Controls, pointer Pointer, cam *scene.Camera, deltaTime float32) {
	// Cap deltaTime to avoid huge steps on first frames or hitches
	if deltaTime > 0.05 {
		deltaTime = 0.05
	}

	if pointer != nil && pointer.IsMouseButtonPressed(1) {
		x, y := pointer.GetCursorPos()
		if cc.firstMouse {
			cc.lastX, cc.lastY = x, y
			cc.firstMouse = false
		}
		cam.Turn(float32(x-cc.lastX)*cc.LookSpeed, float32(cc.lastY-y)*cc.LookSpeed)
		cc.lastX, cc.lastY = x, y
	} else {
		cc.firstMouse = true
	}

	forward := cam.Forward
	right := cam.Right()
	up := mgl32.Vec3{0, 1, 0}

	var move mgl32.Vec3
	step := func(normal, fast Action, dir mgl32.Vec3) {
		switch {
		case c.Held(fast):
			move = move.Add(dir.Mul(cc.FastFactor))
		case c.Held(normal):
			move = move.Add(dir)
		}
	}
	step(MoveForward, MoveForwardFast, forward)
	step(MoveBack, MoveBackFast, forward.Mul(-1))
	step(MoveRight, MoveRightFast, right)
	step(MoveLeft, MoveLeftFast, right.Mul(-1))
	if c.Held(MoveUp) {
		move = move.Add(up)
	}
	if c.Held(MoveDown) {
		move = move.Sub(up)
	}

	if move.Len() > 0 {
		cam.Translate(move.Mul(cc.MoveSpeed * deltaTime))
	}
}
