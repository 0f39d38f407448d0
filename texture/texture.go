// Package texture resolves the texture requests queued while material
// networks are translated.
//
// Requests are collected by a [Pipeline] and resolved in one batch by
// [Pipeline.Commit]: cached images are delivered immediately, UDIM templates
// are expanded into the tiles present on disk, every unique file is loaded
// once on a worker pool, and images are then realized one request at a time
// through an [ImageCache].
package texture

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadegraph/backend"
)

// Data is decoded 8-bit pixel data, row-major with no padding.
type Data struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// Tile is one loaded texture of a request. Non-UDIM requests have exactly
// one tile with ID 0.
type Tile struct {
	ID   int
	Path string
	Data *Data
}

// ImageCache realizes images from loaded tiles.
//
// GetOrCreateImage with nil tiles is a probe: it returns an existing image
// for the key or nil, and never creates one. With tiles it returns the
// cached image or creates one from the tiles. Implementations are only
// called from the serialized realization phase of a commit.
type ImageCache interface {
	GetOrCreateImage(path, colorSpace string, wrap gputypes.AddressMode, tiles []Tile, channels int) backend.Image
}

// Loader reads pixel data from storage.
type Loader interface {
	Load(path string) (*Data, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (*Data, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (*Data, error) { return f(path) }

// Pixels returns the pixel data converted to the given channel count, using
// the gray, gray+alpha, RGB and RGBA layouts for 1 to 4 channels. Gray
// replicates into color channels and a missing alpha is opaque.
// channels <= 0 or equal to d.Channels returns d.Pix unchanged.
func (d *Data) Pixels(channels int) []byte {
	if channels <= 0 || channels == d.Channels {
		return d.Pix
	}
	n := d.Width * d.Height
	out := make([]byte, n*channels)
	src := d.Channels
	for i := range n {
		s := d.Pix[i*src : i*src+src]
		var r, g, b, a byte
		switch src {
		case 1:
			r, g, b, a = s[0], s[0], s[0], 0xff
		case 2:
			r, g, b, a = s[0], s[0], s[0], s[1]
		case 3:
			r, g, b, a = s[0], s[1], s[2], 0xff
		default:
			r, g, b, a = s[0], s[1], s[2], s[3]
		}

		o := out[i*channels : i*channels+channels]
		switch channels {
		case 1:
			o[0] = r
		case 2:
			o[0], o[1] = r, a
		case 3:
			o[0], o[1], o[2] = r, g, b
		default:
			o[0], o[1], o[2], o[3] = r, g, b, a
		}
	}
	return out
}
