// Package material resolves material networks into backend materials.
//
// A Resolver first tries to compile the network as MaterialX when the
// surface node is a MaterialX definition and the backend can compile it.
// Otherwise every node is constructed through the registry and the graph
// is walked from the terminals, wiring each node's inputs exactly once.
package material

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/mtlx"
	"github.com/gogpu/shadegraph/network"
	"github.com/gogpu/shadegraph/nodes"
	"github.com/gogpu/shadegraph/registry"
)

// Errors.
var (
	// ErrNoTerminals is returned when no terminal resolves to a backend node.
	ErrNoTerminals = errors.New("material: no terminal produced a material node")

	// ErrFinalized is returned when a material is finalized twice.
	ErrFinalized = errors.New("material: already finalized")
)

// Surface node parameters copied onto the surface backend node.
const (
	IDParam              = "id"
	CryptomatteNameParam = "cryptomatteName"
)

// Resolver builds materials. It holds no per-material state and is safe
// for concurrent use as long as its registry is.
type Resolver struct {
	registry   *registry.Registry
	defs       *mtlx.Definitions
	translator mtlx.Translator
	detect     CompositeDetector
	composite  CompositeConstructor
	logger     *slog.Logger
	dumpDir    string
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		detect:    detectPrincipled,
		composite: nodes.NewPrincipledShader,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = registry.Default()
	}
	if r.defs != nil && r.translator == nil {
		r.translator = mtlx.NetworkTranslator{}
	}
	return r
}

// CreateMaterial resolves net into a material for backend. Texture requests
// made by nodes are queued on textures and bound when the caller commits
// them.
//
// Node failures are logged and leave the node absent. CreateMaterial fails
// only when no terminal yields a backend node; all constructed nodes are
// released in that case.
func (r *Resolver) CreateMaterial(materialPath network.Path, net *network.Network, be backend.Context, textures shadegraph.TextureSubmitter) (*Material, error) {
	log := shadegraph.OrDefault(r.logger).With("material", materialPath.String())
	if net == nil {
		return nil, fmt.Errorf("%w: nil network", ErrNoTerminals)
	}

	if r.dumpDir != "" {
		if file, err := network.DumpFile(r.dumpDir, materialPath, net); err != nil {
			log.Warn("material: failed to dump network", "err", err)
		} else {
			log.Debug("material: dumped network", "file", file)
		}
	}

	ctx := &shadegraph.BuilderContext{
		Network:      net,
		MaterialPath: materialPath,
		Backend:      be,
		Textures:     textures,
		Logger:       log,
	}

	if !net.IsVolume() {
		if m := r.tryMaterialX(ctx); m != nil {
			return m, nil
		}
	}
	return r.buildDirect(ctx)
}

// tryMaterialX compiles the network as a MaterialX document. Any failure,
// including a panic in the translator or the backend, returns nil.
func (r *Resolver) tryMaterialX(ctx *shadegraph.BuilderContext) (m *Material) {
	if r.defs == nil {
		return nil
	}
	term, ok := ctx.Network.Terminal(network.TerminalSurface)
	if !ok {
		return nil
	}
	node, ok := ctx.Network.Node(term.Node)
	if !ok || !r.defs.IsMaterialX(node.TypeID) {
		return nil
	}
	compiler, ok := backend.AsMaterialXCompiler(ctx.Backend)
	if !ok {
		ctx.Logger.Debug("material: backend cannot compile MaterialX")
		return nil
	}

	log := ctx.Logger
	defer func() {
		if p := recover(); p != nil {
			log.Error("material: MaterialX translation panicked", "panic", p)
			m = nil
		}
	}()

	doc, err := r.translator.BuildDocument(ctx.Network, term.Node, ctx.MaterialPath, r.defs)
	if err != nil {
		log.Warn("material: failed to build MaterialX document", "err", err)
		return nil
	}
	text, err := doc.Serialize()
	if err != nil {
		log.Warn("material: failed to serialize MaterialX document", "err", err)
		return nil
	}
	mn, err := compiler.CompileMaterialX(text)
	if err != nil || mn == nil {
		log.Warn("material: failed to compile MaterialX", "err", err)
		return nil
	}
	return newStandardized(ctx.MaterialPath, mn)
}

// buildDirect constructs every node, walks the terminals and finalizes.
func (r *Resolver) buildDirect(ctx *shadegraph.BuilderContext) (*Material, error) {
	net := ctx.Network
	built := r.constructNodes(ctx)

	t := &traversal{
		net:         net,
		nodes:       built,
		state:       make(map[network.Path]visitState, net.Len()),
		passthrough: make(map[network.Path]shadegraph.Value),
		log:         ctx.Logger,
	}
	volume := t.terminal(network.TerminalVolume)
	surface := t.terminal(network.TerminalSurface)
	displacement := t.terminal(network.TerminalDisplacement)

	name, id := ctx.MaterialPath.String(), -1
	if term, ok := net.Terminal(network.TerminalSurface); ok {
		if node, ok := net.Node(term.Node); ok {
			if v, ok := node.Parameters[IDParam].(int); ok {
				id = v
			}
			if v, ok := node.Parameters[CryptomatteNameParam].(string); ok {
				name = v
			}
		}
	}

	m := &Material{path: ctx.MaterialPath, id: -1, nodes: built}
	if err := m.finalize(ctx, t.node(surface), t.node(displacement), t.node(volume), name, id); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// constructNodes builds a node for every network node that has a
// registered type, plus one composite node if both halves were seen.
func (r *Resolver) constructNodes(ctx *shadegraph.BuilderContext) map[network.Path]shadegraph.Node {
	net := ctx.Network
	built := make(map[network.Path]shadegraph.Node, net.Len())

	var (
		compositePath    network.Path
		surface          map[string]network.Value
		displacement     map[string]network.Value
		haveSurface      bool
		haveDisplacement bool
	)
	for _, path := range net.Paths() {
		node, _ := net.Node(path)
		ctx.CurrentNodePath = path

		if reg, ok := r.registry.Lookup(node.TypeID); ok {
			r.record(ctx, built, shadegraph.Construct(ctx, node.TypeID, reg.Construct, node.Parameters))
			continue
		}
		if part, ok := r.detect(path, node); ok {
			switch part {
			case nodes.CompositeSurface:
				compositePath, surface, haveSurface = path, nonNil(node.Parameters), true
			case nodes.CompositeDisplacement:
				displacement, haveDisplacement = nonNil(node.Parameters), true
			}
			continue
		}
		ctx.Log().Warn("material: unknown node type", "type", node.TypeID)
	}

	if haveSurface {
		ctx.CurrentNodePath = compositePath
		construct := func(ctx *shadegraph.BuilderContext, params map[string]network.Value) (shadegraph.Node, error) {
			return r.composite(ctx, params, displacement)
		}
		r.record(ctx, built, shadegraph.Construct(ctx, "composite", construct, surface))
	} else if haveDisplacement {
		ctx.Logger.Warn("material: composite displacement without surface")
	}
	ctx.CurrentNodePath = ""
	return built
}

func (r *Resolver) record(ctx *shadegraph.BuilderContext, built map[network.Path]shadegraph.Node, res shadegraph.Result) {
	switch res.Outcome {
	case shadegraph.OutcomeSuccess:
		built[ctx.CurrentNodePath] = res.Node
	case shadegraph.OutcomeEmpty:
		ctx.Log().Warn("material: empty node")
	case shadegraph.OutcomeError:
		ctx.Log().Error("material: failed to create node", "err", res.Err)
	}
}

// nonNil returns params, or an empty map for a node authored without
// parameters.
func nonNil(params map[string]network.Value) map[string]network.Value {
	if params == nil {
		return map[string]network.Value{}
	}
	return params
}
