package scene

import "github.com/go-gl/mathgl/mgl32"

// Scene manages a collection of nodes and the active camera
type Scene struct {
	Root   *Node
	Camera *Camera
}

// PointLight is the light component of a Node; its position is the node's
// world position.
type PointLight struct {
	Color     mgl32.Vec3
	Intensity float32
	Linear    float32
	Quadratic float32
}

func NewScene() *Scene {
	return &Scene{
		Root: NewNode("Root"),
	}
}

// NewPointLight creates a light node at position.
func NewPointLight(name string, position, color mgl32.Vec3, intensity float32) *Node {
	n := NewNode(name)
	n.SetPosition(position)
	n.Light = &PointLight{
		Color:     color,
		Intensity: intensity,
		Linear:    0.7,
		Quadratic: 1.8,
	}
	return n
}

func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

func (s *Scene) RemoveNode(node *Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

// Discover returns every node for which match returns true, in depth-first
// order, parents before children.
func (s *Scene) Discover(match func(*Node) bool) []*Node {
	var found []*Node
	s.Root.Traverse(func(node *Node) {
		if match(node) {
			found = append(found, node)
		}
	})
	return found
}

// FindObserver returns the camera rendering this scene, or nil.
func (s *Scene) FindObserver() *Camera {
	return s.Camera
}

// Lights returns all visible light nodes.
func (s *Scene) Lights() []*Node {
	return s.Discover(func(n *Node) bool { return n.IsLight() && n.Visible })
}
