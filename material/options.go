package material

import (
	"log/slog"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/mtlx"
	"github.com/gogpu/shadegraph/network"
	"github.com/gogpu/shadegraph/nodes"
	"github.com/gogpu/shadegraph/registry"
)

// CompositeDetector reports whether the node at path is one half of a
// composite shader that has no registered type.
type CompositeDetector func(path network.Path, node *network.Node) (nodes.CompositePart, bool)

// CompositeConstructor builds a single node from the parameters of both
// halves of a composite shader. displacement is nil when the network has
// no displacement half.
type CompositeConstructor func(ctx *shadegraph.BuilderContext, surface, displacement map[string]network.Value) (shadegraph.Node, error)

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry sets the node registry. The default is registry.Default().
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Resolver) { r.registry = reg }
}

// WithMaterialX enables the MaterialX path. Surface terminals whose node
// type is defined in defs are translated with translator (nil selects
// mtlx.NetworkTranslator) and compiled by the backend.
func WithMaterialX(defs *mtlx.Definitions, translator mtlx.Translator) Option {
	return func(r *Resolver) {
		r.defs = defs
		r.translator = translator
	}
}

// WithCompositeShader replaces the composite shader detection and
// construction. The default handles the principled shader.
func WithCompositeShader(detect CompositeDetector, construct CompositeConstructor) Option {
	return func(r *Resolver) {
		r.detect = detect
		r.composite = construct
	}
}

// WithLogger sets the logger. The default is shadegraph.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithDumpDir writes every network to dir as YAML before it is resolved.
func WithDumpDir(dir string) Option {
	return func(r *Resolver) { r.dumpDir = dir }
}

func detectPrincipled(_ network.Path, node *network.Node) (nodes.CompositePart, bool) {
	return nodes.DetectPrincipled(node.TypeID)
}
