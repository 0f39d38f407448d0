package nodes

import (
	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// Renderer flags read from preview surface parameters.
const (
	ShadowCatcherParam     = "rpr:shadowCatcher"
	ReflectionCatcherParam = "rpr:reflectionCatcher"
	DisplacementScaleParam = "rpr:displacementScale"
)

var previewSurfaceInputs = map[string]string{
	"diffuseColor":        "diffuse.color",
	"roughness":           "reflection.roughness",
	"metallic":            "reflection.metalness",
	"specularColor":       "reflection.color",
	"emissiveColor":       "emission.color",
	"clearcoat":           "coating.weight",
	"clearcoatRoughness":  "coating.roughness",
	"ior":                 "refraction.ior",
	"normal":              "normal",
	"displacement":        "displacement",
	"occlusion":           "ambient_occlusion",
	"useSpecularWorkflow": "reflection.mode",
}

type previewSurface struct {
	*mapped
	backend backend.Context
	helpers []backend.MaterialNode
}

// NewPreviewSurface builds an uber node from UsdPreviewSurface parameters.
// The catcher flags and displacement scale are recorded on ctx.
func NewPreviewSurface(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
	m, err := newMapped(ctx, backend.KindUber, previewSurfaceInputs, "surface", "displacement")
	if err != nil {
		return nil, err
	}
	n := &previewSurface{mapped: m, backend: ctx.Backend}

	if b, ok := network.Bool(params[ShadowCatcherParam]); ok {
		ctx.IsShadowCatcher = b
	}
	if b, ok := network.Bool(params[ReflectionCatcherParam]); ok {
		ctx.IsReflectionCatcher = b
	}
	if v, ok := params[DisplacementScaleParam]; ok {
		ctx.DisplacementScale = v
	}

	if err := setParams(n, params, ShadowCatcherParam, ReflectionCatcherParam, DisplacementScaleParam); err != nil {
		n.Release()
		return nil, err
	}
	return n, nil
}

func (n *previewSurface) SetInput(name string, value shadegraph.Value) error {
	if name == "opacity" {
		return n.setOpacity(value)
	}
	return n.mapped.SetInput(name, value)
}

// setOpacity binds transparency = 1 - opacity. Connected values go through
// an arithmetic node.
func (n *previewSurface) setOpacity(value shadegraph.Value) error {
	if f, ok := network.Float(value); ok {
		return n.node.SetInput("transparency", 1-f)
	}

	inv, err := n.backend.CreateNode(backend.KindArithmetic)
	if err != nil {
		return err
	}
	n.helpers = append(n.helpers, inv)
	for _, in := range []struct {
		name  string
		value any
	}{
		{"op", OpSub},
		{"color0", float32(1)},
		{"color1", value},
	} {
		if err := inv.SetInput(in.name, in.value); err != nil {
			return err
		}
	}
	return n.node.SetInput("transparency", inv)
}

func (n *previewSurface) Release() {
	for _, h := range n.helpers {
		h.Destroy()
	}
	n.helpers = nil
	n.mapped.Release()
}
