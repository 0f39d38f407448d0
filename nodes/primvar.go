package nodes

import (
	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// NewPrimvarReader builds a UV lookup node and records the primvar name on
// ctx. Only texture coordinates are supported.
func NewPrimvarReader(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
	if name, ok := network.String(params["varname"]); ok && name != "" {
		ctx.UVPrimvarName = name
	}

	m, err := newMapped(ctx, backend.KindInputLookup, nil, "result")
	if err != nil {
		return nil, err
	}
	if err := m.node.SetInput("value", "uv"); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// NewTransform2d builds a UV transform node. An identity transform returns
// shadegraph.ErrNodeEmpty so the resolver passes the input through.
func NewTransform2d(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
	translation := vec2(params["translation"], network.Vec2f{0, 0})
	scale := vec2(params["scale"], network.Vec2f{1, 1})
	rotation, _ := network.Float(params["rotation"])

	if translation == (network.Vec2f{0, 0}) && scale == (network.Vec2f{1, 1}) && rotation == 0 {
		return nil, shadegraph.ErrNodeEmpty
	}

	m, err := newMapped(ctx, backend.KindUVTransform, map[string]string{"in": "uv"}, "result")
	if err != nil {
		return nil, err
	}
	for name, v := range map[string]any{
		"translation": translation,
		"scale":       scale,
		"rotation":    rotation,
	} {
		if err := m.node.SetInput(name, v); err != nil {
			m.Release()
			return nil, err
		}
	}
	return m, nil
}

func vec2(v network.Value, fallback network.Vec2f) network.Vec2f {
	switch t := v.(type) {
	case network.Vec2f:
		return t
	case [2]float32:
		return t
	}
	return fallback
}
