// Package registry maps node type identifiers to constructors.
//
// A Registry is filled by explicit registration (built-in nodes) and by
// scanning a definitions root for asset files (MaterialX nodedefs, HCL node
// mappings, WGSL shader nodes). Lookups take a read lock and are safe from
// any number of concurrent resolutions.
package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/mtlx"
)

// Definition sources.
const (
	SourceBuiltin = "builtin"
	SourceMtlx    = "mtlx"
	SourceHCL     = "hcl"
	SourceWGSL    = "wgsl"
)

// Info describes a registered node for listings and UI grouping.
type Info struct {
	// Group is the display group, e.g. "Patterns".
	Group string

	// Source is where the definition came from (SourceBuiltin etc).
	Source string

	// Path is the definition file, empty for built-ins.
	Path string

	Inputs  []string
	Outputs []string
}

// Node is a registered node type.
type Node struct {
	ID        string
	Construct shadegraph.Constructor
	Info      Info
}

// MaterialXFactory returns a constructor for a scanned MaterialX nodedef,
// or nil to skip the definition.
type MaterialXFactory func(def *mtlx.NodeDef, file string) shadegraph.Constructor

// Option configures a Registry.
type Option func(*Registry)

// WithMaterialXFactory sets the factory used for scanned nodedefs. Without
// one, MaterialX definitions are parsed but not registered.
func WithMaterialXFactory(f MaterialXFactory) Option {
	return func(r *Registry) { r.factory = f }
}

// WithLogger sets the logger for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// Registry is a concurrent map from type id to node.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	factory MaterialXFactory
	logger  *slog.Logger

	scanMu  sync.Mutex
	scanned bool
	root    string
	count   int
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{nodes: make(map[string]*Node)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetMaterialXFactory replaces the nodedef factory. It affects later scans
// only.
func (r *Registry) SetMaterialXFactory(f MaterialXFactory) {
	r.scanMu.Lock()
	r.factory = f
	r.scanMu.Unlock()
}

// Register adds or replaces the node for id.
// Panics if construct is nil.
func (r *Registry) Register(id string, construct shadegraph.Constructor, info Info) {
	if construct == nil {
		panic("registry: nil constructor for " + id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[id] = &Node{ID: id, Construct: construct, Info: info}
}

// Unregister removes the node for id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Lookup returns the node for id.
func (r *Registry) Lookup(id string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// IDs returns all registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

func (r *Registry) log() *slog.Logger {
	return shadegraph.OrDefault(r.logger)
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds a node to the default registry.
func Register(id string, construct shadegraph.Constructor, info Info) {
	defaultRegistry.Register(id, construct, info)
}

// Lookup finds a node in the default registry.
func Lookup(id string) (*Node, bool) {
	return defaultRegistry.Lookup(id)
}
