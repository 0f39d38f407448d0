package material

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/network"
)

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

// traversal resolves node outputs on demand. Each node's inputs are wired
// on its first visit only; nodes that were not constructed forward the
// value of their first input.
type traversal struct {
	net         *network.Network
	nodes       map[network.Path]shadegraph.Node
	state       map[network.Path]visitState
	passthrough map[network.Path]shadegraph.Value
	log         *slog.Logger
}

func (t *traversal) terminal(name string) shadegraph.Value {
	conn, ok := t.net.Terminal(name)
	if !ok {
		return nil
	}
	return t.output(conn)
}

// output returns the value of one upstream output, or nil if it cannot be
// resolved.
func (t *traversal) output(conn network.Connection) shadegraph.Value {
	path := conn.Node
	node, ok := t.net.Node(path)
	if !ok {
		t.log.Error("material: invalid connection", "node", path.String())
		return nil
	}

	switch t.state[path] {
	case inProgress:
		t.log.Error("material: cycle detected", "node", path.String())
		return nil
	case done:
		if built, ok := t.nodes[path]; ok {
			return built.Output(conn.Output)
		}
		return t.passthrough[path]
	}

	t.state[path] = inProgress
	defer func() { t.state[path] = done }()

	built, ok := t.nodes[path]
	if !ok {
		v := t.forward(path, node)
		t.passthrough[path] = v
		return v
	}

	for _, name := range node.InputNames() {
		conns := node.Inputs[name]
		if len(conns) != 1 {
			if len(conns) > 1 {
				t.log.Error("material: connected array elements are not supported", "node", path.String(), "input", name)
			}
			continue
		}
		v := t.output(conns[0])
		if v == nil {
			continue
		}
		if err := built.SetInput(name, v); err != nil {
			t.log.Error("material: failed to set input", "node", path.String(), "input", name, "err", err)
		}
	}
	return built.Output(conn.Output)
}

// forward returns the value of the first input of a node that was not
// constructed.
func (t *traversal) forward(path network.Path, node *network.Node) shadegraph.Value {
	names := node.InputNames()
	if len(names) == 0 {
		return nil
	}
	conns := node.Inputs[names[0]]
	if len(conns) != 1 {
		if len(conns) > 1 {
			t.log.Error("material: connected array elements are not supported", "node", path.String(), "input", names[0])
		}
		return nil
	}
	return t.output(conns[0])
}

// node converts a terminal value to a backend node.
func (t *traversal) node(v shadegraph.Value) backend.MaterialNode {
	if v == nil {
		return nil
	}
	mn, ok := v.(backend.MaterialNode)
	if !ok {
		t.log.Error("material: terminal node should output material node", "type", fmt.Sprintf("%T", v))
		return nil
	}
	return mn
}
