// Package gpu realizes texture images on a wgpu HAL device and compiles
// WGSL shader nodes.
//
// ImageCache implements texture.ImageCache: each realized image owns one
// 2D texture per UDIM tile, uploaded through the device queue.
//
//	cache := gpu.NewImageCache(device, queue)
//	defer cache.Close()
//	pipeline.Commit(cache)
package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/internal/cache"
	"github.com/gogpu/shadegraph/texture"
)

// DefaultCapacity is the default soft limit on cached images.
const DefaultCapacity = 512

// ErrNoHalProvider is returned when a device provider does not expose HAL
// device and queue.
var ErrNoHalProvider = errors.New("gpu: provider does not expose HAL types")

type imageKey struct {
	path       string
	colorSpace string
	wrap       gputypes.AddressMode
	channels   int
}

// TileTexture is the GPU texture of one tile.
type TileTexture struct {
	ID      int
	Width   int
	Height  int
	Texture hal.Texture
}

// Image is a realized texture. Images are owned by the ImageCache that
// created them and are destroyed by ReleaseEvicted (once evicted) or Close.
type Image struct {
	device    hal.Device
	format    gputypes.TextureFormat
	wrap      gputypes.AddressMode
	tiles     []TileTexture
	destroyed atomic.Bool
}

// Format returns the texture format of every tile.
func (i *Image) Format() gputypes.TextureFormat { return i.format }

// Wrap returns the address mode for samplers of this image.
func (i *Image) Wrap() gputypes.AddressMode { return i.wrap }

// Tiles returns the tile textures in ascending tile order.
func (i *Image) Tiles() []TileTexture { return i.tiles }

// Destroy releases the tile textures. Safe to call more than once.
func (i *Image) Destroy() {
	if !i.destroyed.CompareAndSwap(false, true) {
		return
	}
	for _, t := range i.tiles {
		if t.Texture != nil {
			i.device.DestroyTexture(t.Texture)
		}
	}
}

// Option configures an ImageCache.
type Option func(*ImageCache)

// WithCapacity sets the soft limit on cached images (0 is unlimited).
// Evicted images are no longer returned for new requests but stay valid
// until ReleaseEvicted or Close.
func WithCapacity(n int) Option {
	return func(c *ImageCache) { c.capacity = n }
}

// WithLogger sets the logger. The default is shadegraph.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(c *ImageCache) { c.logger = l }
}

// ImageCache creates and caches images on a HAL device.
//
// Thread Safety: ImageCache is safe for concurrent use. Image creation is
// serialized by a mutex.
type ImageCache struct {
	mu       sync.Mutex
	device   hal.Device
	queue    hal.Queue
	images   *cache.Cache[imageKey, *Image]
	capacity int
	logger   *slog.Logger
	created  atomic.Int64

	// evicted images may still be bound to live materials.
	evicted []*Image
}

// NewImageCache creates a cache that uploads through device and queue.
func NewImageCache(device hal.Device, queue hal.Queue, opts ...Option) *ImageCache {
	c := &ImageCache{
		device:   device,
		queue:    queue,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = shadegraph.OrDefault(c.logger)
	c.images = cache.New[imageKey, *Image](c.capacity)
	c.images.OnEvict(func(_ imageKey, img *Image) { c.evicted = append(c.evicted, img) })
	return c
}

// NewImageCacheFromProvider creates a cache on a shared device. The provider
// must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewImageCacheFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*ImageCache, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalProvider)
	}
	return NewImageCache(device, queue, opts...), nil
}

// GetOrCreateImage implements texture.ImageCache.
func (c *ImageCache) GetOrCreateImage(path, colorSpace string, wrap gputypes.AddressMode, tiles []texture.Tile, channels int) backend.Image {
	key := imageKey{path: path, colorSpace: colorSpace, wrap: wrap, channels: channels}

	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.images.Get(key); ok {
		return img
	}
	if tiles == nil {
		return nil
	}

	img, err := c.create(path, colorSpace, wrap, tiles, channels)
	if err != nil {
		c.logger.Error("gpu: failed to create image", "path", path, "err", err)
		return nil
	}
	c.images.Set(key, img)
	c.created.Add(1)
	return img
}

func (c *ImageCache) create(path, colorSpace string, wrap gputypes.AddressMode, tiles []texture.Tile, channels int) (*Image, error) {
	if len(tiles) == 0 || tiles[0].Data == nil {
		return nil, errors.New("no tile data")
	}
	if channels <= 0 {
		channels = tiles[0].Data.Channels
	}
	format, upload := FormatFor(colorSpace, channels)

	img := &Image{device: c.device, format: format, wrap: wrap}
	for _, t := range tiles {
		tex, err := c.upload(fmt.Sprintf("%s#%d", path, t.ID), format, upload, t.Data)
		if err != nil {
			img.Destroy()
			return nil, fmt.Errorf("tile %d: %w", t.ID, err)
		}
		img.tiles = append(img.tiles, TileTexture{ID: t.ID, Width: t.Data.Width, Height: t.Data.Height, Texture: tex})
	}
	return img, nil
}

func (c *ImageCache) upload(label string, format gputypes.TextureFormat, channels int, data *texture.Data) (hal.Texture, error) {
	if data.Width <= 0 || data.Height <= 0 {
		return nil, fmt.Errorf("texture dimensions must be positive, got %dx%d", data.Width, data.Height)
	}

	size := hal.Extent3D{
		Width:              uint32(data.Width),  //nolint:gosec // validated positive
		Height:             uint32(data.Height), //nolint:gosec // validated positive
		DepthOrArrayLayers: 1,
	}
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture: %w", err)
	}

	dst := &hal.ImageCopyTexture{
		Texture:  tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
		Aspect:   gputypes.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(data.Width * channels), //nolint:gosec // validated positive
		RowsPerImage: uint32(data.Height),           //nolint:gosec // validated positive
	}
	if err := c.queue.WriteTexture(dst, data.Pixels(channels), layout, &size); err != nil {
		c.device.DestroyTexture(tex)
		return nil, fmt.Errorf("failed to upload texture: %w", err)
	}
	return tex, nil
}

// FormatFor returns the texture format for a color space and channel count,
// and the channel count of the upload buffer. Three-channel data is
// uploaded as RGBA since there is no 24-bit format.
func FormatFor(colorSpace string, channels int) (gputypes.TextureFormat, int) {
	srgb := strings.EqualFold(colorSpace, "srgb")
	switch {
	case channels == 1 && !srgb:
		return gputypes.TextureFormatR8Unorm, 1
	case channels == 2 && !srgb:
		return gputypes.TextureFormatRG8Unorm, 2
	case srgb:
		return gputypes.TextureFormatRGBA8UnormSrgb, 4
	}
	return gputypes.TextureFormatRGBA8Unorm, 4
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int { return c.images.Len() }

// Created returns the number of images created over the cache lifetime.
func (c *ImageCache) Created() int { return int(c.created.Load()) }

// Evicted returns the number of evicted images not yet destroyed.
func (c *ImageCache) Evicted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evicted)
}

// ReleaseEvicted destroys evicted images. Call it once no material created
// before the eviction is still in use.
func (c *ImageCache) ReleaseEvicted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseEvicted()
}

func (c *ImageCache) releaseEvicted() {
	for _, img := range c.evicted {
		img.Destroy()
	}
	c.evicted = nil
}

// Close destroys every cached and evicted image.
func (c *ImageCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images.Clear()
	c.releaseEvicted()
}
