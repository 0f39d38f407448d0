package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when no decoder recognizes the file.
	ErrUnsupportedFormat = errors.New("texture: unsupported format")
)

// FileLoader decodes PNG, JPEG, BMP, TIFF and WebP files.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(path string) (*Data, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("texture: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode decodes an image from r, auto-detecting the format.
func Decode(r io.Reader) (*Data, error) {
	img, _, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts a standard library image. Gray images keep one
// channel; everything else becomes non-premultiplied RGBA.
func FromImage(img image.Image) *Data {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		d := &Data{Width: w, Height: h, Channels: 1, Pix: make([]byte, w*h)}
		for y := range h {
			start := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(d.Pix[y*w:(y+1)*w], src.Pix[start:start+w])
		}
		return d

	case *image.NRGBA:
		d := &Data{Width: w, Height: h, Channels: 4, Pix: make([]byte, w*h*4)}
		for y := range h {
			start := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(d.Pix[y*w*4:(y+1)*w*4], src.Pix[start:start+w*4])
		}
		return d
	}

	// Generic slow path; RGBA() is premultiplied 16-bit.
	d := &Data{Width: w, Height: h, Channels: 4, Pix: make([]byte, w*h*4)}
	for y := range h {
		for x := range w {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a != 0 && a != 0xffff {
				r = r * 0xffff / a
				g = g * 0xffff / a
				bl = bl * 0xffff / a
			}
			o := d.Pix[(y*w+x)*4:]
			o[0], o[1], o[2], o[3] = byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8)
		}
	}
	return d
}
