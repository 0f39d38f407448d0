package registry

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/gpu"
	"github.com/gogpu/shadegraph/network"
)

// Shader node inputs set at construction.
const (
	ShaderInputSPIRV = "spirv"
	ShaderInputLabel = "label"
)

// scanWGSL registers a shader node named after the file stem. The source is
// compiled once, at scan time.
func (r *Registry) scanWGSL(file, group string) (int, error) {
	src, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return 0, err
	}
	words, err := gpu.CompileWGSL(string(src))
	if err != nil {
		return 0, err
	}

	id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	construct := func(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
		if ctx.Backend == nil {
			return nil, errNoBackend
		}
		bn, err := ctx.Backend.CreateNode(backend.KindShader)
		if err != nil {
			return nil, err
		}
		bn.SetName(ctx.CurrentNodePath.Name())

		node := &shaderNode{node: bn}
		if err := bn.SetInput(ShaderInputSPIRV, words); err != nil {
			node.Release()
			return nil, err
		}
		if err := bn.SetInput(ShaderInputLabel, id); err != nil {
			node.Release()
			return nil, err
		}
		for _, name := range slices.Sorted(maps.Keys(params)) {
			if err := bn.SetInput(name, params[name]); err != nil {
				node.Release()
				return nil, err
			}
		}
		return node, nil
	}

	r.Register(id, construct, Info{Group: group, Source: SourceWGSL, Path: file, Outputs: []string{"out"}})
	return 1, nil
}

type shaderNode struct {
	node backend.MaterialNode
}

func (n *shaderNode) SetInput(name string, value shadegraph.Value) error {
	return n.node.SetInput(name, value)
}

func (n *shaderNode) Output(string) shadegraph.Value { return n.node }

func (n *shaderNode) Release() { n.node.Destroy() }
