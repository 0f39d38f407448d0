package mtlx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Definitions is a library of node definitions, typically the MaterialX
// standard libraries plus renderer-specific ones. It answers whether a node
// type can be expressed in MaterialX.
//
// Definitions is safe for concurrent use.
type Definitions struct {
	mu   sync.RWMutex
	defs map[string]*NodeDef
	docs []*Document
}

// NewDefinitions creates an empty library.
func NewDefinitions() *Definitions {
	return &Definitions{defs: make(map[string]*NodeDef)}
}

// Add registers every nodedef of doc. Later definitions of the same name
// replace earlier ones.
func (d *Definitions) Add(doc *Document) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.docs = append(d.docs, doc)
	for i := range doc.NodeDefs {
		def := &doc.NodeDefs[i]
		d.defs[def.Name] = def
	}
}

// LoadDir adds every .mtlx file under dir (recursively). Files that fail to
// parse are returned as a joined error after the rest are loaded.
func (d *Definitions) LoadDir(dir string) (int, error) {
	var (
		loaded int
		errs   []error
	)
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mtlx") {
			return nil
		}
		doc, err := ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		d.Add(doc)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("mtlx: load %s: %w", dir, err)
	}
	return loaded, errors.Join(errs...)
}

// Lookup returns the nodedef named typeID.
func (d *Definitions) Lookup(typeID string) (*NodeDef, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.defs[typeID]
	return def, ok
}

// IsMaterialX reports whether typeID names a known nodedef.
func (d *Definitions) IsMaterialX(typeID string) bool {
	_, ok := d.Lookup(typeID)
	return ok
}

// Names returns all nodedef names in sorted order.
func (d *Definitions) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.defs))
	for name := range d.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Documents returns the loaded documents in load order.
func (d *Definitions) Documents() []*Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.docs)
}
