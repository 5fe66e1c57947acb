package scene

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/semaphore"

	"deferred-engine/core"
)

// Node represents an object in the scene graph. Optional components
// (Geometry, Material, Light, Text) decide what the renderer does with it.
type Node struct {
	Name      string
	ID        uint32
	Transform core.Transform
	Parent    *Node
	Children  []*Node
	Visible   bool

	Geometry *Geometry
	Material *Material
	Light    *PointLight
	Text     *FontBoard

	// InstanceOf points at the prototype whose GPU state and geometry this
	// node reuses. Only the prototype is drawn, once per frame, with one
	// transform per instance.
	InstanceOf *Node

	Billboard bool
	Skybox    bool
	// Dirty marks geometry that must be re-uploaded before the next draw.
	Dirty bool

	// Class names the shader set looked up when UseClassDerivedShader is set.
	Class                 string
	UseClassDerivedShader bool
	ShaderPreference      *ShaderPreference

	// Cached world transform
	worldMatrixDirty bool
	worldMatrix      mgl32.Mat4

	claimOnce sync.Once
	claim     *semaphore.Weighted
	claimed   atomic.Bool
}

var nodeIDCounter uint32

func NewNode(name string) *Node {
	return &Node{
		Name:             name,
		ID:               atomic.AddUint32(&nodeIDCounter, 1),
		Transform:        core.NewTransform(),
		Visible:          true,
		worldMatrixDirty: true,
	}
}

// NewInstance creates a node drawing prototype's geometry with its own transform.
func NewInstance(name string, prototype *Node) *Node {
	n := NewNode(name)
	n.InstanceOf = prototype
	n.Material = prototype.Material
	return n
}

// HasGeometry reports whether the node carries vertex data, directly or via
// its prototype.
func (n *Node) HasGeometry() bool {
	if n.InstanceOf != nil {
		return n.InstanceOf.Geometry != nil
	}
	return n.Geometry != nil
}

// Renderable reports whether the node has something to shade.
func (n *Node) Renderable() bool {
	return n.Material != nil || n.Text != nil || n.InstanceOf != nil
}

func (n *Node) IsLight() bool {
	return n.Light != nil
}

// TryClaim attempts to take the node's exclusive resource claim without
// blocking. It returns false when another caller holds it.
func (n *Node) TryClaim() bool {
	n.claimOnce.Do(func() { n.claim = semaphore.NewWeighted(1) })
	if !n.claim.TryAcquire(1) {
		return false
	}
	n.claimed.Store(true)
	return true
}

// ReleaseClaim releases a claim taken with TryClaim. Without a held claim
// it does nothing.
func (n *Node) ReleaseClaim() {
	if !n.claimed.CompareAndSwap(true, false) {
		return
	}
	n.claim.Release(1)
}

func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	child.MarkWorldMatrixDirty()
	n.Children = append(n.Children, child)
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.MarkWorldMatrixDirty()
			return
		}
	}
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	if n.worldMatrixDirty {
		local := n.Transform.Matrix()
		if n.Parent != nil {
			n.worldMatrix = n.Parent.WorldMatrix().Mul4(local)
		} else {
			n.worldMatrix = local
		}
		n.worldMatrixDirty = false
	}
	return n.worldMatrix
}

// WorldPosition returns the translation part of the world matrix.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

func (n *Node) MarkWorldMatrixDirty() {
	n.worldMatrixDirty = true
	for _, child := range n.Children {
		child.MarkWorldMatrixDirty()
	}
}

func (n *Node) SetPosition(pos mgl32.Vec3) {
	n.Transform.Position = pos
	n.MarkWorldMatrixDirty()
}

func (n *Node) SetRotation(rot mgl32.Quat) {
	n.Transform.Rotation = rot
	n.MarkWorldMatrixDirty()
}

func (n *Node) SetScale(scale mgl32.Vec3) {
	n.Transform.Scale = scale
	n.MarkWorldMatrixDirty()
}

func (n *Node) Rotate(axis mgl32.Vec3, angle float32) {
	rotation := mgl32.QuatRotate(angle, axis.Normalize())
	n.Transform.Rotation = n.Transform.Rotation.Mul(rotation).Normalize()
	n.MarkWorldMatrixDirty()
}

// Traverse visits the node and its descendants depth-first, parents first.
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// Find finds a node by name
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}
