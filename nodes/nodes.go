// Package nodes implements the built-in shading nodes: the UsdPreviewSurface
// family and the composite principled shader.
//
// Call RegisterBuiltins once before resolving materials:
//
//	reg := registry.New()
//	nodes.RegisterBuiltins(reg)
package nodes

import (
	"errors"
	"slices"
	"sync"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
	"github.com/gogpu/shadegraph/registry"
)

// Built-in node type identifiers.
const (
	PreviewSurfaceID = "UsdPreviewSurface"
	UVTextureID      = "UsdUVTexture"
	PrimvarReaderID  = "UsdPrimvarReader_float2"
	Transform2dID    = "UsdTransform2d"
)

// Arithmetic operations understood by backend arithmetic nodes.
const (
	OpSub     = "sub"
	OpSelectX = "select_x"
	OpSelectY = "select_y"
	OpSelectZ = "select_z"
	OpSelectW = "select_w"
)

var errNoBackend = errors.New("nodes: builder context has no backend")

// RegisterBuiltins registers every built-in node in reg.
func RegisterBuiltins(reg *registry.Registry) {
	reg.Register(PreviewSurfaceID, NewPreviewSurface, registry.Info{
		Group:   "Shaders",
		Source:  registry.SourceBuiltin,
		Inputs:  sortedKeys(previewSurfaceInputs),
		Outputs: []string{"surface", "displacement"},
	})
	reg.Register(UVTextureID, NewUVTexture, registry.Info{
		Group:   "Textures",
		Source:  registry.SourceBuiltin,
		Inputs:  append([]string{"file", "sourceColorSpace", "wrapS", "wrapT"}, sortedKeys(uvTextureInputs)...),
		Outputs: []string{"rgb", "rgba", "r", "g", "b", "a"},
	})
	reg.Register(PrimvarReaderID, NewPrimvarReader, registry.Info{
		Group:   "Primvars",
		Source:  registry.SourceBuiltin,
		Inputs:  []string{"varname"},
		Outputs: []string{"result"},
	})
	reg.Register(Transform2dID, NewTransform2d, registry.Info{
		Group:   "Transforms",
		Source:  registry.SourceBuiltin,
		Inputs:  []string{"in", "translation", "rotation", "scale"},
		Outputs: []string{"result"},
	})
}

// mapped is a node backed by one backend node. Inputs are renamed through
// the input map; names missing from the map are ignored.
type mapped struct {
	node    backend.MaterialNode
	inputs  map[string]string
	outputs []string
	guard   releaseGuard
}

func newMapped(ctx *shadegraph.BuilderContext, kind string, inputs map[string]string, outputs ...string) (*mapped, error) {
	if ctx.Backend == nil {
		return nil, errNoBackend
	}
	bn, err := ctx.Backend.CreateNode(kind)
	if err != nil {
		return nil, err
	}
	bn.SetName(ctx.CurrentNodePath.Name())
	return &mapped{node: bn, inputs: inputs, outputs: outputs}, nil
}

func (m *mapped) SetInput(name string, value shadegraph.Value) error {
	target, ok := m.inputs[name]
	if !ok {
		return nil
	}
	return m.node.SetInput(target, value)
}

func (m *mapped) Output(name string) shadegraph.Value {
	if slices.Contains(m.outputs, name) {
		return m.node
	}
	return nil
}

func (m *mapped) Release() {
	m.guard.release()
	m.node.Destroy()
}

// releaseGuard orders texture callbacks against Release. Texture batches
// commit after resolution, possibly after the owning material was released.
type releaseGuard struct {
	mu       sync.Mutex
	released bool
}

// bindImage sets node's image input unless the owner was released. It
// reports whether the owner was still live.
func (g *releaseGuard) bindImage(node backend.MaterialNode, img backend.Image) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return false, nil
	}
	return true, node.SetInput(ImageInput, img)
}

// release marks the owner released. No bind runs after it returns.
func (g *releaseGuard) release() {
	g.mu.Lock()
	g.released = true
	g.mu.Unlock()
}

// setParams forwards params in name order, skipping the names in skip.
func setParams(n shadegraph.Node, params map[string]network.Value, skip ...string) error {
	for _, name := range sortedKeys(params) {
		if slices.Contains(skip, name) {
			continue
		}
		if err := n.SetInput(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
