package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/shadegraph/mtlx"
)

// MaterialsDir is the directory below the scan root holding one
// subdirectory per node group.
const MaterialsDir = "materials"

// ScanAssetSources registers every node definition found under
// <root>/materials/<group>/. The scan runs once per root; later calls return
// the memoized count until Invalidate is called.
//
// Files that fail to parse are logged and skipped. The only error returned
// is ctx's.
func (r *Registry) ScanAssetSources(ctx context.Context, root string) (int, error) {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	if r.scanned && r.root == root {
		return r.count, nil
	}

	count, err := r.scan(ctx, root)
	if err != nil {
		return count, err
	}
	r.scanned = true
	r.root = root
	r.count = count
	return count, nil
}

// Invalidate forces the next ScanAssetSources to rescan.
func (r *Registry) Invalidate() {
	r.scanMu.Lock()
	r.scanned = false
	r.scanMu.Unlock()
}

func (r *Registry) scan(ctx context.Context, root string) (int, error) {
	log := r.log()
	if root == "" {
		log.Warn("registry: definitions root is not set")
		return 0, nil
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		log.Warn("registry: definitions root does not exist", "root", root)
		return 0, nil
	}

	files, err := filepath.Glob(filepath.Join(root, MaterialsDir, "*", "*"))
	if err != nil {
		return 0, fmt.Errorf("registry: scan %s: %w", root, err)
	}

	var (
		count int
		found bool
	)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		group := groupName(filepath.Base(filepath.Dir(file)))

		var (
			n   int
			err error
		)
		switch strings.ToLower(filepath.Ext(file)) {
		case ".mtlx":
			n, err = r.scanMtlx(file, group)
		case ".hcl":
			n, err = r.scanHCL(file, group)
		case ".wgsl":
			n, err = r.scanWGSL(file, group)
		default:
			continue
		}
		found = true
		if err != nil {
			log.Error("registry: failed to load definitions", "file", file, "err", err)
			continue
		}
		log.Debug("registry: loaded definitions", "file", file, "nodes", n)
		count += n
	}
	if !found {
		log.Warn("registry: no materials found", "root", root)
	}
	return count, nil
}

// groupName turns a directory name such as "surface_shaders" into the
// display group "Surface Shaders". Casers keep state, so each call gets its
// own.
func groupName(dir string) string {
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(dir))
}

func (r *Registry) scanMtlx(file, group string) (int, error) {
	doc, err := mtlx.ReadFile(file)
	if err != nil {
		return 0, err
	}
	if len(doc.NodeDefs) == 0 {
		r.log().Warn("registry: file has no node definitions", "file", file)
		return 0, nil
	}
	if r.factory == nil {
		return 0, nil
	}

	n := 0
	for i := range doc.NodeDefs {
		def := &doc.NodeDefs[i]
		construct := r.factory(def, file)
		if construct == nil {
			continue
		}
		info := Info{Group: group, Source: SourceMtlx, Path: file}
		for _, in := range def.Inputs {
			info.Inputs = append(info.Inputs, in.Name)
		}
		for _, out := range def.Outputs {
			info.Outputs = append(info.Outputs, out.Name)
		}
		r.Register(def.Name, construct, info)
		n++
	}
	return n, nil
}
