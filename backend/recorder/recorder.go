// Package recorder provides an in-memory backend that records the nodes it
// creates and every input bound to them instead of driving a renderer.
//
// It is the reference backend for tests and for the shadegraph CLI:
//
//	ctx := recorder.New()
//	mat, err := resolver.CreateMaterial("/World/Looks/Wood", net, ctx, pipeline)
//	for _, n := range ctx.Nodes() {
//	    fmt.Println(n.Kind(), n.Inputs())
//	}
//
// A Context is safe for concurrent use.
package recorder

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/shadegraph/backend"
)

// Name is the backend name registered by Register.
const Name = "recorder"

// Register registers the recorder backend under Name. Each context the
// factory returns is created with opts.
func Register(opts ...Option) {
	backend.Register(Name, func() backend.Context { return New(opts...) })
}

// Option configures a Context.
type Option func(*Context)

// WithMaterialX enables MaterialX compilation. compile is called with each
// serialized document; a non-nil error fails the compilation.
func WithMaterialX(compile func(document string) error) Option {
	return func(c *Context) {
		c.compile = compile
	}
}

// WithFailingKind makes CreateNode fail for kind with err.
func WithFailingKind(kind string, err error) Option {
	return func(c *Context) {
		c.failing[kind] = err
	}
}

// Context records node creation.
type Context struct {
	mu        sync.Mutex
	nodes     []*Node
	documents []string
	failing   map[string]error
	compile   func(string) error
}

// New creates a recording context. Without options every node kind is
// accepted and MaterialX compilation is unsupported.
func New(opts ...Option) *Context {
	c := &Context{failing: make(map[string]error)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements backend.Context.
func (c *Context) Name() string { return Name }

// CreateNode implements backend.Context.
func (c *Context) CreateNode(kind string) (backend.MaterialNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.failing[kind]; ok {
		return nil, fmt.Errorf("recorder: create %s: %w", kind, err)
	}
	n := newNode(kind)
	c.nodes = append(c.nodes, n)
	return n, nil
}

// CompileMaterialX implements backend.MaterialXCompiler.
func (c *Context) CompileMaterialX(document string) (backend.MaterialNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compile == nil {
		return nil, backend.ErrMaterialXUnsupported
	}
	if err := c.compile(document); err != nil {
		return nil, fmt.Errorf("recorder: compile MaterialX: %w", err)
	}
	c.documents = append(c.documents, document)
	n := newNode(backend.KindMaterialX)
	c.nodes = append(c.nodes, n)
	return n, nil
}

// Nodes returns all nodes created so far, in creation order.
func (c *Context) Nodes() []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.nodes)
}

// NodesOfKind returns the created nodes of one kind.
func (c *Context) NodesOfKind(kind string) []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*Node
	for _, n := range c.nodes {
		if n.kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Documents returns the MaterialX documents compiled successfully.
func (c *Context) Documents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.documents)
}

// Node is a recorded material node.
type Node struct {
	mu        sync.Mutex
	kind      string
	inputs    map[string]any
	calls     map[string]int
	name      string
	id        uint32
	hasID     bool
	destroyed int
}

func newNode(kind string) *Node {
	return &Node{
		kind:   kind,
		inputs: make(map[string]any),
		calls:  make(map[string]int),
	}
}

// Kind implements backend.MaterialNode.
func (n *Node) Kind() string { return n.kind }

// SetInput implements backend.MaterialNode.
func (n *Node) SetInput(name string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.destroyed > 0 {
		return fmt.Errorf("recorder: set %s on destroyed %s node", name, n.kind)
	}
	n.inputs[name] = value
	n.calls[name]++
	return nil
}

// SetName implements backend.MaterialNode.
func (n *Node) SetName(name string) {
	n.mu.Lock()
	n.name = name
	n.mu.Unlock()
}

// SetID implements backend.MaterialNode.
func (n *Node) SetID(id uint32) {
	n.mu.Lock()
	n.id, n.hasID = id, true
	n.mu.Unlock()
}

// Destroy implements backend.MaterialNode.
func (n *Node) Destroy() {
	n.mu.Lock()
	n.destroyed++
	n.mu.Unlock()
}

// Input returns the last value bound to name.
func (n *Node) Input(name string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.inputs[name]
	return v, ok
}

// Inputs returns a copy of all bound inputs.
func (n *Node) Inputs() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(n.inputs)
}

// SetInputCalls returns how many times SetInput was called for name.
func (n *Node) SetInputCalls(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[name]
}

// Name returns the assigned name.
func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

// ID returns the assigned material id.
func (n *Node) ID() (uint32, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id, n.hasID
}

// DestroyCount returns how many times Destroy was called.
func (n *Node) DestroyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.destroyed
}
