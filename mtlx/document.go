// Package mtlx reads and writes MaterialX documents and translates material
// networks into them.
//
// Only the subset used for material translation is modelled: node
// definitions, node instances with inputs, and the document header.
package mtlx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Version is the MaterialX version written into new documents.
const Version = "1.38"

// Errors.
var (
	// ErrNoDocument is returned when a document cannot be built.
	ErrNoDocument = errors.New("mtlx: no document")

	// ErrUnknownNode is returned when a network node has no definition.
	ErrUnknownNode = errors.New("mtlx: unknown node definition")
)

// Document is a MaterialX document.
type Document struct {
	XMLName    xml.Name  `xml:"materialx"`
	Version    string    `xml:"version,attr"`
	ColorSpace string    `xml:"colorspace,attr,omitempty"`
	NodeDefs   []NodeDef `xml:"nodedef"`
	Nodes      []Node    `xml:",any"`
}

// NodeDef declares a node type.
type NodeDef struct {
	Name      string   `xml:"name,attr"`
	Node      string   `xml:"node,attr"`
	NodeGroup string   `xml:"nodegroup,attr,omitempty"`
	UIName    string   `xml:"uiname,attr,omitempty"`
	Inputs    []Input  `xml:"input"`
	Outputs   []Output `xml:"output"`
}

// Input returns the declared input called name.
func (d *NodeDef) Input(name string) (Input, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// OutputType returns the type of the first output, or "" if none.
func (d *NodeDef) OutputType() string {
	if len(d.Outputs) == 0 {
		return ""
	}
	return d.Outputs[0].Type
}

// Node is a node instance. The element name is the node category.
type Node struct {
	XMLName xml.Name
	Name    string  `xml:"name,attr"`
	Type    string  `xml:"type,attr,omitempty"`
	Inputs  []Input `xml:"input"`
}

// Category returns the node category (the element name).
func (n *Node) Category() string { return n.XMLName.Local }

// Input is a node or nodedef input. Exactly one of Value and NodeName is
// set on instances.
type Input struct {
	Name       string `xml:"name,attr"`
	Type       string `xml:"type,attr"`
	Value      string `xml:"value,attr,omitempty"`
	NodeName   string `xml:"nodename,attr,omitempty"`
	Output     string `xml:"output,attr,omitempty"`
	ColorSpace string `xml:"colorspace,attr,omitempty"`
}

// Output is a nodedef output.
type Output struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// New creates an empty document.
func New() *Document {
	return &Document{Version: Version}
}

// Parse decodes a document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("mtlx: parse: %w", err)
	}
	return &doc, nil
}

// ReadFile parses the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("mtlx: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Serialize returns the document as indented XML with a declaration.
func (d *Document) Serialize() (string, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	enc := xml.NewEncoder(&b)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("mtlx: serialize: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("mtlx: serialize: %w", err)
	}
	b.WriteByte('\n')
	return b.String(), nil
}

// Node returns the node instance called name.
func (d *Document) Node(name string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}
