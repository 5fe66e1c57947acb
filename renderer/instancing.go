package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
	"deferred-engine/scene"
)

const (
	instanceLocationBase = 3
	matrixColumns        = 4
	matrixFloats         = 16
)

// InstanceBatch holds the transforms of one instanced draw: 16 floats per
// instance per matrix, column-major, in instance order.
type InstanceBatch struct {
	Model     []float32
	ModelView []float32
	MVP       []float32
	Count     int
}

// BatchInstances computes each instance's transforms the same way a single
// node is drawn, using the instance's own world matrix.
func BatchInstances(view, projection mgl32.Mat4, instances []*scene.Node) InstanceBatch {
	n := len(instances)
	b := InstanceBatch{
		Model:     make([]float32, 0, n*matrixFloats),
		ModelView: make([]float32, 0, n*matrixFloats),
		MVP:       make([]float32, 0, n*matrixFloats),
		Count:     n,
	}
	for _, inst := range instances {
		t := transformsFor(inst.WorldMatrix(), view, projection)
		b.Model = append(b.Model, t.model[:]...)
		b.ModelView = append(b.ModelView, t.modelView[:]...)
		b.MVP = append(b.MVP, t.mvp[:]...)
	}
	return b
}

func (b InstanceBatch) buffer(name string) []float32 {
	switch name {
	case "Model":
		return b.Model
	case "ModelView":
		return b.ModelView
	case "MVP":
		return b.MVP
	}
	return nil
}

// ensureInstanceBuffers creates the per-instance matrix buffers of a
// prototype. Matrix i occupies attribute locations 3+4i .. 6+4i, one vec4
// column each, advancing once per instance.
func (r *Renderer) ensureInstanceBuffers(st *RenderState) {
	const stride = int32(matrixFloats * 4)

	for i, name := range instanceMatrices {
		if _, ok := st.InstanceBuffers[name]; ok {
			continue
		}
		buf := r.dev.CreateBuffer()
		st.InstanceBuffers[name] = buf
		for col := 0; col < matrixColumns; col++ {
			loc := uint32(instanceLocationBase + i*matrixColumns + col)
			r.dev.VertexAttrib(st.VAO, buf, loc, 4, stride, col*4*4, 1)
		}
	}
}

// drawInstanced uploads batch into the prototype's instance buffers and
// draws every instance with one call.
func (r *Renderer) drawInstanced(proto *scene.Node, st *RenderState, batch InstanceBatch, projection mgl32.Mat4) {
	if batch.Count == 0 || st.Program == nil {
		return
	}
	r.ensureInstanceBuffers(st)
	for _, name := range instanceMatrices {
		r.dev.UploadFloats(ArrayBuffer, st.InstanceBuffers[name], batch.buffer(name), DynamicDraw)
	}
	logger.Log.Debug("instanced draw",
		zap.String("prototype", proto.Name), zap.Int("instances", batch.Count))

	p := st.Program
	p.Use()
	r.applyFaceCulling(proto)
	p.SetMat4("ProjectionMatrix", projection)
	p.SetBool("isBillboard", proto.Billboard)
	p.SetInt("instanced", 1)
	r.setMaterialUniforms(proto, st, p)
	r.drawState(st, batch.Count)
	p.SetInt("instanced", 0)
}
