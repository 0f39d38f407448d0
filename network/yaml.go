package network

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when a YAML network is structurally invalid.
var ErrInvalidDocument = errors.New("network: invalid document")

// document is the YAML shape of a network.
//
//	material: /World/Looks/Wood
//	terminals:
//	  surface: {node: /World/Looks/Wood/Preview, output: surface}
//	primvars: [st]
//	nodes:
//	  - path: /World/Looks/Wood/Preview
//	    type: UsdPreviewSurface
//	    parameters:
//	      roughness: 0.4
//	      diffuseColor: [0.8, 0.5, 0.2]
//	    inputs:
//	      diffuseColor: [{node: /World/Looks/Wood/Tex, output: rgb}]
type document struct {
	Material  string                   `yaml:"material,omitempty"`
	Terminals map[string]connectionDoc `yaml:"terminals,omitempty"`
	Primvars  []string                 `yaml:"primvars,omitempty"`
	Nodes     []nodeDoc                `yaml:"nodes"`
}

type connectionDoc struct {
	Node   string `yaml:"node"`
	Output string `yaml:"output"`
}

type nodeDoc struct {
	Path       string                     `yaml:"path"`
	Type       string                     `yaml:"type"`
	Parameters parameterMap               `yaml:"parameters,omitempty"`
	Inputs     map[string][]connectionDoc `yaml:"inputs,omitempty"`
}

// parameterMap keeps the Go value types of parameters across YAML.
type parameterMap map[string]Value

func (m *parameterMap) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: parameters must be a mapping (line %d)", ErrInvalidDocument, n.Line)
	}
	out := make(parameterMap, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := decodeValue(n.Content[i+1])
		if err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = v
	}
	*m = out
	return nil
}

func (m parameterMap) MarshalYAML() (any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = encodeValue(v)
	}
	return out, nil
}

func decodeValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			err := n.Decode(&b)
			return b, err
		case "!!int":
			var i int
			err := n.Decode(&i)
			return i, err
		case "!!float":
			var f float32
			err := n.Decode(&f)
			return f, err
		}
		s := n.Value
		if len(s) >= 2 && strings.HasPrefix(s, "@") && strings.HasSuffix(s, "@") {
			return AssetPath(s[1 : len(s)-1]), nil
		}
		return s, nil

	case yaml.SequenceNode:
		var fs []float32
		if err := n.Decode(&fs); err != nil {
			return nil, fmt.Errorf("%w: sequences must be numeric vectors (line %d)", ErrInvalidDocument, n.Line)
		}
		switch len(fs) {
		case 2:
			return Vec2f(fs), nil
		case 3:
			return Vec3f(fs), nil
		case 4:
			return Vec4f(fs), nil
		}
		return nil, fmt.Errorf("%w: vector of %d components (line %d)", ErrInvalidDocument, len(fs), n.Line)
	}
	return nil, fmt.Errorf("%w: unsupported value (line %d)", ErrInvalidDocument, n.Line)
}

func encodeValue(v Value) any {
	switch t := v.(type) {
	case AssetPath:
		return "@" + string(t) + "@"
	case Vec2f:
		return floatSeq(t[:])
	case Vec3f:
		return floatSeq(t[:])
	case Vec4f:
		return floatSeq(t[:])
	case Path:
		return string(t)
	}
	return v
}

func floatSeq(fs []float32) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, f := range fs {
		n.Content = append(n.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Value: strconv.FormatFloat(float64(f), 'g', -1, 32),
		})
	}
	return n
}

// Decode reads a network from YAML. It returns the material path recorded in
// the document, which may be empty.
func Decode(r io.Reader) (Path, *Network, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("network: decode: %w", err)
	}

	net := New()
	for _, nd := range doc.Nodes {
		if nd.Path == "" {
			return "", nil, fmt.Errorf("%w: node without path", ErrInvalidDocument)
		}
		node := &Node{
			TypeID:     nd.Type,
			Parameters: map[string]Value(nd.Parameters),
			Inputs:     make(map[string][]Connection, len(nd.Inputs)),
		}
		if node.Parameters == nil {
			node.Parameters = make(map[string]Value)
		}
		for input, conns := range nd.Inputs {
			for _, c := range conns {
				node.Inputs[input] = append(node.Inputs[input], Connection{Node: Path(c.Node), Output: c.Output})
			}
		}
		net.Add(Path(nd.Path), node)
	}
	for name, c := range doc.Terminals {
		net.Connect(name, Path(c.Node), c.Output)
	}
	net.Primvars = doc.Primvars
	return Path(doc.Material), net, nil
}

// Encode writes the network as YAML. Node order is preserved.
func Encode(w io.Writer, material Path, net *Network) error {
	doc := document{
		Material:  string(material),
		Terminals: make(map[string]connectionDoc, len(net.Terminals)),
		Primvars:  net.Primvars,
		Nodes:     make([]nodeDoc, 0, net.Len()),
	}
	for name, c := range net.Terminals {
		doc.Terminals[name] = connectionDoc{Node: string(c.Node), Output: c.Output}
	}
	for _, path := range net.order {
		node := net.nodes[path]
		nd := nodeDoc{
			Path:       string(path),
			Type:       node.TypeID,
			Parameters: parameterMap(node.Parameters),
		}
		if len(node.Inputs) > 0 {
			nd.Inputs = make(map[string][]connectionDoc, len(node.Inputs))
			for input, conns := range node.Inputs {
				for _, c := range conns {
					nd.Inputs[input] = append(nd.Inputs[input], connectionDoc{Node: string(c.Node), Output: c.Output})
				}
			}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("network: encode: %w", err)
	}
	return enc.Close()
}
