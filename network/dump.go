package network

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dump writes a human-readable description of the network: a summary header
// followed by the YAML form accepted by [Decode].
func Dump(w io.Writer, material Path, net *Network) error {
	if _, err := fmt.Fprintf(w, "# material %s: %d nodes, %d terminals\n", material, net.Len(), len(net.Terminals)); err != nil {
		return err
	}
	return Encode(w, material, net)
}

// DumpFileName returns the file name used for a material's dump: the
// material path with separators replaced by underscores.
func DumpFileName(material Path) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(string(material))
	return name + ".yaml"
}

// DumpFile writes the dump of net into dir and returns the file path.
func DumpFile(dir string, material Path, net *Network) (string, error) {
	path := filepath.Join(dir, DumpFileName(material))
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("network: create dump: %w", err)
	}
	if err := Dump(f, material, net); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
