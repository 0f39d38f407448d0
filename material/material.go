package material

import (
	"slices"
	"sync"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// Material is a resolved material: terminal backend nodes plus the flags
// collected while building them. It owns the nodes it was built from until
// Release.
type Material struct {
	mu sync.Mutex

	path  network.Path
	name  string
	id    int
	nodes map[network.Path]shadegraph.Node

	// retained is the single compiled node of a MaterialX material.
	retained backend.MaterialNode

	surface      backend.MaterialNode
	volume       backend.MaterialNode
	displacement backend.MaterialNode

	uvPrimvarName     string
	shadowCatcher     bool
	reflectionCatcher bool
	displacementScale network.Value

	finalized bool
	released  bool
}

func newStandardized(path network.Path, node backend.MaterialNode) *Material {
	return &Material{
		path:      path,
		name:      path.String(),
		id:        -1,
		retained:  node,
		surface:   node,
		finalized: true,
	}
}

// Surface returns the surface terminal node, or nil.
func (m *Material) Surface() backend.MaterialNode { return m.surface }

// Volume returns the volume terminal node, or nil.
func (m *Material) Volume() backend.MaterialNode { return m.volume }

// Displacement returns the displacement terminal node, or nil.
func (m *Material) Displacement() backend.MaterialNode { return m.displacement }

// UVPrimvarName returns the primvar read for texture coordinates.
func (m *Material) UVPrimvarName() string { return m.uvPrimvarName }

// IsShadowCatcher reports whether the surface was flagged as a shadow catcher.
func (m *Material) IsShadowCatcher() bool { return m.shadowCatcher }

// IsReflectionCatcher reports whether the surface was flagged as a
// reflection catcher.
func (m *Material) IsReflectionCatcher() bool { return m.reflectionCatcher }

// DisplacementScale returns the authored displacement scale, or nil.
func (m *Material) DisplacementScale() network.Value { return m.displacementScale }

// MaterialID returns the id assigned to the surface node, or -1.
func (m *Material) MaterialID() int { return m.id }

// Name returns the name assigned to the surface node.
func (m *Material) Name() string { return m.name }

// Path returns the material path.
func (m *Material) Path() network.Path { return m.path }

// IsMaterialX reports whether the material was compiled from MaterialX.
func (m *Material) IsMaterialX() bool { return m.retained != nil }

// Nodes returns the number of owned nodes.
func (m *Material) Nodes() int {
	if m.retained != nil {
		return 1
	}
	return len(m.nodes)
}

// finalize records the terminal outputs and context flags. It fails with
// ErrNoTerminals when no terminal is a backend node.
func (m *Material) finalize(ctx *shadegraph.BuilderContext, surface, displacement, volume backend.MaterialNode, name string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return ErrFinalized
	}

	m.surface = surface
	m.displacement = displacement
	m.volume = volume
	m.shadowCatcher = ctx.IsShadowCatcher
	m.reflectionCatcher = ctx.IsReflectionCatcher
	m.uvPrimvarName = ctx.UVPrimvarName
	m.displacementScale = ctx.DisplacementScale
	m.name = name
	m.id = id

	if surface != nil {
		if id >= 0 {
			surface.SetID(uint32(id))
		}
		surface.SetName(name)
	}

	m.finalized = true
	if surface == nil && displacement == nil && volume == nil {
		return ErrNoTerminals
	}
	return nil
}

// Release releases every owned node. Later calls do nothing.
func (m *Material) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return
	}
	m.released = true

	if m.retained != nil {
		m.retained.Destroy()
	}
	paths := make([]network.Path, 0, len(m.nodes))
	for p := range m.nodes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		m.nodes[p].Release()
	}
	m.nodes = nil
	m.retained = nil
	m.surface, m.displacement, m.volume = nil, nil, nil
}
