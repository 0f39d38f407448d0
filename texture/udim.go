package texture

import (
	"os"
	"strconv"
	"strings"
)

// UDIM template token and the probed tile range.
const (
	UDIMToken = "<UDIM>"

	FirstUDIMTile = 1001
	LastUDIMTile  = 1100
)

// IsUDIM reports whether path is a UDIM template: it contains exactly one
// UDIM token.
func IsUDIM(path string) bool {
	return strings.Count(path, UDIMToken) == 1
}

// TilePath substitutes tile into a UDIM template.
func TilePath(template string, tile int) string {
	return strings.Replace(template, UDIMToken, strconv.Itoa(tile), 1)
}

// ExpandUDIM probes every tile in [FirstUDIMTile, LastUDIMTile] and returns
// the existing ones in ascending tile order. Tiles outside the range are
// never discovered.
func ExpandUDIM(template string, exists func(path string) bool) []Tile {
	if exists == nil {
		exists = FileExists
	}
	var tiles []Tile
	for id := FirstUDIMTile; id <= LastUDIMTile; id++ {
		p := TilePath(template, id)
		if exists(p) {
			tiles = append(tiles, Tile{ID: id, Path: p})
		}
	}
	return tiles
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
