// Package network holds the renderer-agnostic material network model:
// shading nodes keyed by scene path, their parameters and input
// connections, and the terminal outputs of a material.
//
// A Network is built by a scene collaborator (or decoded from YAML with
// [Decode]) and treated as read-only by the resolver.
package network

import (
	"slices"
	"strings"
)

// Terminal names.
const (
	TerminalSurface      = "surface"
	TerminalVolume       = "volume"
	TerminalDisplacement = "displacement"
)

// Path is a scene path identifying a node, e.g. "/World/Looks/Wood/Preview".
type Path string

// Name returns the last element of the path.
func (p Path) Name() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (p Path) String() string { return string(p) }

// Connection is an edge from an upstream node output.
type Connection struct {
	Node   Path
	Output string
}

// Node describes one shading node of a network.
type Node struct {
	// TypeID names the node type, e.g. "UsdPreviewSurface".
	TypeID string

	// Parameters holds authored (unconnected) values.
	Parameters map[string]Value

	// Inputs maps an input name to its upstream connections. More than one
	// connection per input is representable but unsupported by resolution.
	Inputs map[string][]Connection
}

// InputNames returns the node's connected input names in sorted order.
func (n *Node) InputNames() []string {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Parameter returns the parameter value for name.
func (n *Node) Parameter(name string) (Value, bool) {
	v, ok := n.Parameters[name]
	return v, ok
}

// Network is an ordered set of nodes plus terminals.
//
// Network is not safe for concurrent mutation. Concurrent reads are fine.
type Network struct {
	order []Path
	nodes map[Path]*Node

	// Terminals maps a terminal name to its single upstream connection.
	Terminals map[string]Connection

	// Primvars lists the primvar names the material reads.
	Primvars []string
}

// New creates an empty network.
func New() *Network {
	return &Network{
		nodes:     make(map[Path]*Node),
		Terminals: make(map[string]Connection),
	}
}

// Add inserts a node. Adding an existing path replaces the node but keeps
// its original position.
func (n *Network) Add(path Path, node *Node) {
	if n.nodes == nil {
		n.nodes = make(map[Path]*Node)
	}
	if _, ok := n.nodes[path]; !ok {
		n.order = append(n.order, path)
	}
	n.nodes[path] = node
}

// Connect sets the terminal to the given upstream output.
func (n *Network) Connect(terminal string, node Path, output string) {
	if n.Terminals == nil {
		n.Terminals = make(map[string]Connection)
	}
	n.Terminals[terminal] = Connection{Node: node, Output: output}
}

// Node returns the node at path.
func (n *Network) Node(path Path) (*Node, bool) {
	node, ok := n.nodes[path]
	return node, ok
}

// Paths returns node paths in insertion order.
func (n *Network) Paths() []Path {
	return slices.Clone(n.order)
}

// Len returns the number of nodes.
func (n *Network) Len() int { return len(n.order) }

// Terminal returns the connection bound to the named terminal.
func (n *Network) Terminal(name string) (Connection, bool) {
	c, ok := n.Terminals[name]
	return c, ok
}

// IsVolume reports whether the network drives a volume terminal.
func (n *Network) IsVolume() bool {
	_, ok := n.Terminals[TerminalVolume]
	return ok
}

// SelectTerminals resolves render-context terminals. A terminal named
// "<selector>:<name>" replaces the universal "<name>" terminal; terminals
// qualified with any other context are dropped.
func (n *Network) SelectTerminals(selector string) {
	selected := make(map[string]Connection, len(n.Terminals))
	for name, c := range n.Terminals {
		if !strings.Contains(name, ":") {
			if _, ok := selected[name]; !ok {
				selected[name] = c
			}
		}
	}
	prefix := selector + ":"
	for name, c := range n.Terminals {
		if bare, ok := strings.CutPrefix(name, prefix); ok && bare != "" {
			selected[bare] = c
		}
	}
	n.Terminals = selected
}
