package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-engine/scene"
)

// HMD is a head-mounted display. Eye 0 is the left eye.
type HMD interface {
	// InitializedAndWorking reports whether the device can be used this frame.
	InitializedAndWorking() bool
	EyeProjection(eye int) mgl32.Mat4
	HeadToEyeTransform(eye int) mgl32.Mat4
	Pose() mgl32.Mat4
	HasCompositor() bool
	// SubmitToCompositor hands the finished left and right eye textures to the HMD runtime.
	SubmitToCompositor(left, right uint32)
}

const (
	fieldOfView = 70.0
	nearPlane   = 0.1
	farPlane    = 100000.0
)

// EyeView returns the view matrix for eye, without the model transform:
//
//	E × Pose × camera view × camera rotation
//
// E is the HMD head-to-eye transform, or a sideways shift of ipd
// (-ipd for eye 0, +ipd for eye 1) when rendering stereo without an HMD.
// hmd may be nil.
func EyeView(eye int, stereo bool, ipd float32, cam *scene.Camera, hmd HMD) mgl32.Mat4 {
	e := mgl32.Ident4()
	pose := mgl32.Ident4()
	switch {
	case hmd != nil:
		e = hmd.HeadToEyeTransform(eye)
		pose = hmd.Pose()
	case stereo:
		e = mgl32.Translate3D(eyeShift(eye, ipd), 0, 0)
	}
	return e.Mul4(pose).Mul4(cam.View()).Mul4(cam.RotationMatrix())
}

func eyeShift(eye int, ipd float32) float32 {
	if eye%2 == 0 {
		return -ipd
	}
	return ipd
}

// EyeProjection returns the HMD projection for eye, or a 70° perspective
// with the given aspect ratio.
func EyeProjection(eye int, aspect float32, hmd HMD) mgl32.Mat4 {
	if hmd != nil {
		return hmd.EyeProjection(eye)
	}
	return mgl32.Perspective(mgl32.DegToRad(fieldOfView), aspect, nearPlane, farPlane)
}

type nodeTransforms struct {
	model     mgl32.Mat4
	modelView mgl32.Mat4
	mvp       mgl32.Mat4
}

func transformsFor(world, view, projection mgl32.Mat4) nodeTransforms {
	mv := view.Mul4(world)
	return nodeTransforms{
		model:     world,
		modelView: mv,
		mvp:       projection.Mul4(mv),
	}
}
