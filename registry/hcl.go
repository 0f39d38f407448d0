package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// hclFile is the schema of a .hcl node mapping file:
//
//	node "MyChecker" {
//	  backend_node = "arithmetic"
//	  outputs      = ["out"]
//	  input "scale" {
//	    backend_input = "color1"
//	    default       = [1, 1, 1]
//	  }
//	}
type hclFile struct {
	Nodes []hclNode `hcl:"node,block"`
}

type hclNode struct {
	ID          string     `hcl:"id,label"`
	BackendNode string     `hcl:"backend_node"`
	Outputs     []string   `hcl:"outputs,optional"`
	Inputs      []hclInput `hcl:"input,block"`
}

type hclInput struct {
	Name         string    `hcl:"name,label"`
	BackendInput string    `hcl:"backend_input,optional"`
	Default      cty.Value `hcl:"default,optional"`
}

var errNoBackend = errors.New("registry: builder context has no backend")

func (r *Registry) scanHCL(file, group string) (int, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return 0, fmt.Errorf("parse: %s", diags.Error())
	}

	var root hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return 0, fmt.Errorf("decode: %s", diags.Error())
	}
	if len(root.Nodes) == 0 {
		r.log().Warn("registry: file has no node definitions", "file", file)
		return 0, nil
	}

	// Convert everything first so a bad default rejects the whole file.
	mappings := make([]*mapping, 0, len(root.Nodes))
	for _, n := range root.Nodes {
		m, err := newMapping(n)
		if err != nil {
			return 0, err
		}
		mappings = append(mappings, m)
	}

	for _, m := range mappings {
		r.Register(m.id, m.construct, Info{
			Group:   group,
			Source:  SourceHCL,
			Path:    file,
			Inputs:  slices.Clone(m.inputOrder),
			Outputs: m.outputs,
		})
	}
	return len(mappings), nil
}

// mapping forwards node inputs to one backend node.
type mapping struct {
	id         string
	kind       string
	outputs    []string
	inputOrder []string
	targets    map[string]string
	defaults   map[string]network.Value
}

func newMapping(n hclNode) (*mapping, error) {
	m := &mapping{
		id:       n.ID,
		kind:     n.BackendNode,
		outputs:  n.Outputs,
		targets:  make(map[string]string),
		defaults: make(map[string]network.Value),
	}
	for _, in := range n.Inputs {
		m.inputOrder = append(m.inputOrder, in.Name)
		if in.BackendInput != "" {
			m.targets[in.Name] = in.BackendInput
		}
		v, err := ctyToValue(in.Default)
		if err != nil {
			return nil, fmt.Errorf("node %q input %q: %w", n.ID, in.Name, err)
		}
		if v != nil {
			m.defaults[in.Name] = v
		}
	}
	return m, nil
}

func (m *mapping) construct(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
	if ctx.Backend == nil {
		return nil, errNoBackend
	}
	bn, err := ctx.Backend.CreateNode(m.kind)
	if err != nil {
		return nil, err
	}
	bn.SetName(ctx.CurrentNodePath.Name())

	node := &mappedNode{node: bn, mapping: m}
	// Sorted order keeps the wiring stable when two inputs share a target.
	for _, name := range slices.Sorted(maps.Keys(m.defaults)) {
		if _, ok := params[name]; ok {
			continue
		}
		if err := node.SetInput(name, m.defaults[name]); err != nil {
			node.Release()
			return nil, err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if err := node.SetInput(name, params[name]); err != nil {
			node.Release()
			return nil, err
		}
	}
	return node, nil
}

type mappedNode struct {
	node    backend.MaterialNode
	mapping *mapping
}

func (n *mappedNode) SetInput(name string, value shadegraph.Value) error {
	target, ok := n.mapping.targets[name]
	if !ok {
		target = name
	}
	return n.node.SetInput(target, value)
}

// Output returns the backend node for declared outputs. Nodes that declare
// no outputs expose the backend node under any name.
func (n *mappedNode) Output(name string) shadegraph.Value {
	if len(n.mapping.outputs) == 0 {
		return n.node
	}
	for _, out := range n.mapping.outputs {
		if out == name {
			return n.node
		}
	}
	return nil
}

func (n *mappedNode) Release() { n.node.Destroy() }

// ctyToValue converts an HCL default into a parameter value. Numeric
// tuples of length 2 to 4 become vectors.
func ctyToValue(v cty.Value) (network.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, err
		}
		return b, nil

	case ty == cty.Number:
		if bf := v.AsBigFloat(); bf.IsInt() {
			var i int
			if err := gocty.FromCtyValue(v, &i); err == nil {
				return i, nil
			}
		}
		var f float32
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil

	case ty.IsTupleType() || ty.IsListType():
		fs := make([]float32, 0, 4)
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			if elem.Type() != cty.Number {
				return nil, fmt.Errorf("unsupported %s element in default", elem.Type().FriendlyName())
			}
			var f float32
			if err := gocty.FromCtyValue(elem, &f); err != nil {
				return nil, err
			}
			fs = append(fs, f)
		}
		switch len(fs) {
		case 2:
			return network.Vec2f{fs[0], fs[1]}, nil
		case 3:
			return network.Vec3f{fs[0], fs[1], fs[2]}, nil
		case 4:
			return network.Vec4f{fs[0], fs[1], fs[2], fs[3]}, nil
		}
		return nil, fmt.Errorf("vector default must have 2 to 4 elements, got %d", len(fs))
	}
	return nil, fmt.Errorf("unsupported default type %s", ty.FriendlyName())
}
