package mtlx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/shadegraph/network"
)

// Translator builds a MaterialX document for the subgraph upstream of one
// terminal node.
type Translator interface {
	BuildDocument(net *network.Network, terminal, materialPath network.Path, stdlib *Definitions) (*Document, error)
}

// NetworkTranslator is the default Translator. Every node upstream of the
// terminal must have a definition in stdlib; the terminal is bound to a
// surfacematerial named after the material.
type NetworkTranslator struct{}

var errCycle = errors.New("mtlx: cycle in network")

// BuildDocument implements Translator.
func (NetworkTranslator) BuildDocument(net *network.Network, terminal, materialPath network.Path, stdlib *Definitions) (*Document, error) {
	if net == nil || stdlib == nil {
		return nil, ErrNoDocument
	}
	if _, ok := net.Node(terminal); !ok {
		return nil, fmt.Errorf("%w: terminal %s not in network", ErrNoDocument, terminal)
	}

	b := &builder{
		net:    net,
		defs:   stdlib,
		doc:    New(),
		names:  make(map[network.Path]string),
		types:  make(map[network.Path]string),
		used:   make(map[string]bool),
		active: make(map[network.Path]bool),
	}
	if err := b.visit(terminal); err != nil {
		return nil, err
	}

	b.doc.Nodes = append(b.doc.Nodes, Node{
		XMLName: xml.Name{Local: "surfacematerial"},
		Name:    b.uniqueName(materialPath.Name()),
		Type:    "material",
		Inputs: []Input{{
			Name:     "surfaceshader",
			Type:     "surfaceshader",
			NodeName: b.names[terminal],
		}},
	})
	return b.doc, nil
}

type builder struct {
	net    *network.Network
	defs   *Definitions
	doc    *Document
	names  map[network.Path]string
	types  map[network.Path]string
	used   map[string]bool
	active map[network.Path]bool
}

// visit emits path after everything it depends on.
func (b *builder) visit(path network.Path) error {
	if _, done := b.names[path]; done {
		return nil
	}
	if b.active[path] {
		return fmt.Errorf("%w at %s", errCycle, path)
	}
	b.active[path] = true
	defer delete(b.active, path)

	node, ok := b.net.Node(path)
	if !ok {
		return fmt.Errorf("%w: dangling connection to %s", ErrNoDocument, path)
	}
	def, ok := b.defs.Lookup(node.TypeID)
	if !ok {
		return fmt.Errorf("%w: %s (%s)", ErrUnknownNode, node.TypeID, path)
	}

	elem := Node{
		XMLName: xml.Name{Local: def.Node},
		Type:    def.OutputType(),
	}

	for _, name := range node.InputNames() {
		conns := node.Inputs[name]
		if len(conns) == 0 {
			continue
		}
		if len(conns) > 1 {
			return fmt.Errorf("mtlx: %s.%s: multiple connections are not supported", path, name)
		}
		up := conns[0]
		if err := b.visit(up.Node); err != nil {
			return err
		}
		in := Input{Name: name, Type: b.types[up.Node], NodeName: b.names[up.Node]}
		if d, ok := def.Input(name); ok {
			in.Type = d.Type
		}
		if up.Output != "" && up.Output != "out" {
			in.Output = up.Output
		}
		elem.Inputs = append(elem.Inputs, in)
	}

	for _, name := range sortedKeys(node.Parameters) {
		if len(node.Inputs[name]) > 0 {
			continue
		}
		value, typ := FormatValue(node.Parameters[name])
		if d, ok := def.Input(name); ok {
			typ = d.Type
		}
		elem.Inputs = append(elem.Inputs, Input{Name: name, Type: typ, Value: value})
	}

	elem.Name = b.uniqueName(path.Name())
	b.names[path] = elem.Name
	b.types[path] = elem.Type
	b.doc.Nodes = append(b.doc.Nodes, elem)
	return nil
}

func (b *builder) uniqueName(base string) string {
	name := sanitizeName(base)
	candidate := name
	for i := 2; b.used[candidate]; i++ {
		candidate = name + "_" + strconv.Itoa(i)
	}
	b.used[candidate] = true
	return candidate
}

// sanitizeName maps s to a valid MaterialX element name.
func sanitizeName(s string) string {
	if s == "" {
		return "node"
	}
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('N')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// FormatValue renders a parameter value as a MaterialX value string and
// returns the MaterialX type it maps to.
func FormatValue(v network.Value) (value, typ string) {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t), "boolean"
	case int:
		return strconv.Itoa(t), "integer"
	case float32:
		return formatFloat(t), "float"
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), "float"
	case string:
		return t, "string"
	case network.AssetPath:
		return string(t), "filename"
	case network.Vec2f:
		return joinFloats(t[:]), "vector2"
	case network.Vec3f:
		return joinFloats(t[:]), "color3"
	case network.Vec4f:
		return joinFloats(t[:]), "color4"
	}
	return fmt.Sprint(v), "string"
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func joinFloats(fs []float32) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]network.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
