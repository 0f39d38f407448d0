package shadegraph

import (
	"github.com/gogpu/shadegraph/network"
)

// Value is a value flowing through the material graph: parameter values,
// backend material nodes, images and vectors.
type Value = any

// Node is a constructed shading node.
//
// A node receives the values of its connected inputs through SetInput and
// exposes named outputs. The resolver calls SetInput at most once per input
// within one resolution.
type Node interface {
	// SetInput binds the value flowing into the named input.
	SetInput(name string, value Value) error

	// Output returns the value of the named output, or nil if the node has
	// no such output.
	Output(name string) Value

	// Release frees backend resources held by the node.
	Release()
}

// Constructor builds a node from its authored parameters.
//
// Constructors return ErrNodeEmpty when the node intentionally produces
// nothing (for example an identity transform), and any other error for a
// construction failure.
type Constructor func(ctx *BuilderContext, params map[string]network.Value) (Node, error)
