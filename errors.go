package shadegraph

import (
	"errors"
	"fmt"

	"github.com/gogpu/shadegraph/network"
)

// ErrNodeEmpty is returned by a Constructor that intentionally produces no
// node. The resolver omits the node and passes its input through.
var ErrNodeEmpty = errors.New("shadegraph: empty node")

// NodeError describes a failed node construction.
type NodeError struct {
	Path   network.Path
	TypeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("shadegraph: failed to create %s(%s): %v", e.Path, e.TypeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Outcome classifies the result of a node construction.
type Outcome int

const (
	// OutcomeSuccess means a node was constructed.
	OutcomeSuccess Outcome = iota
	// OutcomeError means construction failed; the node is absent.
	OutcomeError
	// OutcomeEmpty means the node was intentionally omitted.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeEmpty:
		return "empty"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the classified outcome of one construction.
type Result struct {
	Node    Node
	Outcome Outcome
	Err     error
}

// Construct runs construct for the node at ctx.CurrentNodePath and classifies
// the outcome. A panicking constructor is reported as OutcomeError; a
// constructor returning neither node nor error counts as empty.
func Construct(ctx *BuilderContext, typeID string, construct Constructor, params map[string]network.Value) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Outcome: OutcomeError,
				Err:     &NodeError{Path: ctx.CurrentNodePath, TypeID: typeID, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()

	node, err := construct(ctx, params)
	switch {
	case errors.Is(err, ErrNodeEmpty):
		if node != nil {
			node.Release()
		}
		return Result{Outcome: OutcomeEmpty, Err: err}
	case err != nil:
		if node != nil {
			node.Release()
		}
		return Result{Outcome: OutcomeError, Err: &NodeError{Path: ctx.CurrentNodePath, TypeID: typeID, Err: err}}
	case node == nil:
		return Result{Outcome: OutcomeEmpty, Err: ErrNodeEmpty}
	}
	return Result{Node: node, Outcome: OutcomeSuccess}
}
