package nodes

import (
	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

// CompositePart identifies one half of a composite shader whose surface and
// displacement are authored as separate nodes without a registered type.
type CompositePart int

const (
	CompositeSurface CompositePart = iota + 1
	CompositeDisplacement
)

func (p CompositePart) String() string {
	switch p {
	case CompositeSurface:
		return "surface"
	case CompositeDisplacement:
		return "displacement"
	}
	return "unknown"
}

// Principled shader type identifiers.
const (
	PrincipledSurfaceID      = "principledshader::2.0_surface"
	PrincipledDisplacementID = "principledshader::2.0_displacement"
)

// DetectPrincipled reports whether typeID is a half of the principled shader.
func DetectPrincipled(typeID string) (CompositePart, bool) {
	switch typeID {
	case PrincipledSurfaceID:
		return CompositeSurface, true
	case PrincipledDisplacementID:
		return CompositeDisplacement, true
	}
	return 0, false
}

var principledInputs = map[string]string{
	"basecolor":    "diffuse.color",
	"rough":        "reflection.roughness",
	"metallic":     "reflection.metalness",
	"reflecttint":  "reflection.color",
	"emitcolor":    "emission.color",
	"coat":         "coating.weight",
	"coatrough":    "coating.roughness",
	"ior":          "refraction.ior",
	"transparency": "transparency",
}

// Principled displacement parameters.
const (
	dispEnable  = "dispTex_enable"
	dispTexture = "dispTex_texture"
	dispScale   = "dispTex_scale"
)

type principled struct {
	*mapped
	helpers []backend.MaterialNode
}

// NewPrincipledShader builds one uber node from the surface and (optional)
// displacement halves of a principled shader.
func NewPrincipledShader(ctx *shadegraph.BuilderContext, surface, displacement map[string]network.Value) (shadegraph.Node, error) {
	m, err := newMapped(ctx, backend.KindUber, principledInputs, "surface", "displacement")
	if err != nil {
		return nil, err
	}
	n := &principled{mapped: m}
	if err := setParams(n, surface); err != nil {
		n.Release()
		return nil, err
	}

	if on, _ := network.Bool(displacement[dispEnable]); on {
		if err := n.setupDisplacement(ctx, displacement); err != nil {
			n.Release()
			return nil, err
		}
	}
	return n, nil
}

func (n *principled) setupDisplacement(ctx *shadegraph.BuilderContext, params map[string]network.Value) error {
	file, _ := network.String(params[dispTexture])
	if file == "" {
		return nil
	}
	if scale, ok := network.Float(params[dispScale]); ok {
		ctx.DisplacementScale = network.Vec2f{0, scale}
	}

	tex, err := ctx.Backend.CreateNode(backend.KindImageTexture)
	if err != nil {
		return err
	}
	n.helpers = append(n.helpers, tex)

	log := ctx.Log()
	ctx.SubmitTexture(shadegraph.TextureCommit{
		Path:       file,
		ColorSpace: "raw",
		Wrap:       WrapMode("repeat"),
		Channels:   1,
		OnImage: func(img backend.Image) {
			if img == nil {
				log.Warn("nodes: displacement texture not loaded", "file", file)
				return
			}
			live, err := n.guard.bindImage(tex, img)
			switch {
			case !live:
				log.Debug("nodes: texture ready after release, not bound", "file", file)
			case err != nil:
				log.Error("nodes: failed to bind texture", "file", file, "err", err)
			}
		},
	})
	return n.node.SetInput("displacement", tex)
}

func (n *principled) Release() {
	n.guard.release()
	for _, h := range n.helpers {
		h.Destroy()
	}
	n.helpers = nil
	n.mapped.Release()
}
