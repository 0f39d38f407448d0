package texture

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
)

// countingLoader returns 1x1 gray data and counts reads per path.
type countingLoader struct {
	mu      sync.Mutex
	reads   map[string]int
	missing map[string]bool
}

func newCountingLoader(missing ...string) *countingLoader {
	l := &countingLoader{reads: make(map[string]int), missing: make(map[string]bool)}
	for _, m := range missing {
		l.missing[m] = true
	}
	return l
}

func (l *countingLoader) Load(path string) (*Data, error) {
	l.mu.Lock()
	l.reads[path]++
	l.mu.Unlock()
	if l.missing[path] {
		return nil, fmt.Errorf("open %s: %w", path, errors.New("no such file"))
	}
	return &Data{Width: 1, Height: 1, Channels: 1, Pix: []byte{0x80}}, nil
}

func (l *countingLoader) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.reads {
		n += c
	}
	return n
}

type fakeImage struct {
	path  string
	tiles []Tile
}

func (*fakeImage) Destroy() {}

type cacheKey struct {
	path     string
	cs       string
	wrap     gputypes.AddressMode
	channels int
}

// memoCache creates one image per key and records calls.
type memoCache struct {
	images  map[cacheKey]*fakeImage
	lookups int
	creates int
	calls   int
}

func newMemoCache() *memoCache {
	return &memoCache{images: make(map[cacheKey]*fakeImage)}
}

func (c *memoCache) GetOrCreateImage(path, cs string, wrap gputypes.AddressMode, tiles []Tile, channels int) backend.Image {
	c.calls++
	k := cacheKey{path, cs, wrap, channels}
	if img, ok := c.images[k]; ok {
		return img
	}
	if tiles == nil {
		c.lookups++
		return nil
	}
	c.creates++
	img := &fakeImage{path: path, tiles: tiles}
	c.images[k] = img
	return img
}

func newTestPipeline(t *testing.T, l Loader, exists func(string) bool) *Pipeline {
	t.Helper()
	p := NewPipeline(WithLoader(l), WithExists(exists), WithWorkers(4))
	t.Cleanup(p.Close)
	return p
}

func collect(results []backend.Image, i int) func(backend.Image) {
	return func(img backend.Image) { results[i] = img }
}

func TestCommit_DedupSamePath(t *testing.T) {
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, nil)
	cache := newMemoCache()

	results := make([]backend.Image, 5)
	for i := range results {
		p.Submit(shadegraph.TextureCommit{Path: "wood.png", Channels: 3, OnImage: collect(results, i)})
	}
	p.Commit(cache)

	assert.Equal(t, 1, loader.total(), "one storage read for five requests")
	assert.Equal(t, 1, cache.creates)
	require.NotNil(t, results[0])
	for i := 1; i < len(results); i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestCommit_UDIMExpansion(t *testing.T) {
	present := map[string]bool{
		"skin.1050.png": true,
		"skin.1001.png": true,
		"skin.1003.png": true,
		"skin.1101.png": true, // outside the scanned range
		"skin.1000.png": true, // outside the scanned range
	}
	var scanned []string
	exists := func(p string) bool {
		scanned = append(scanned, p)
		return present[p]
	}
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, exists)
	cache := newMemoCache()

	var got backend.Image
	p.Submit(shadegraph.TextureCommit{Path: "skin.<UDIM>.png", OnImage: func(img backend.Image) { got = img }})
	p.Commit(cache)

	require.NotNil(t, got)
	img := got.(*fakeImage)
	require.Len(t, img.tiles, 3)
	assert.Equal(t, []int{1001, 1003, 1050}, []int{img.tiles[0].ID, img.tiles[1].ID, img.tiles[2].ID})
	assert.Equal(t, "skin.1003.png", img.tiles[1].Path)
	assert.Len(t, scanned, LastUDIMTile-FirstUDIMTile+1)
	assert.Equal(t, 3, loader.total())
}

func TestCommit_UDIMTilesSharedAcrossRequests(t *testing.T) {
	exists := func(p string) bool { return p == "a.1001.png" || p == "a.1002.png" }
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, exists)

	// Same template with different color spaces realizes two images from
	// the same loaded tiles.
	p.Submit(shadegraph.TextureCommit{Path: "a.<UDIM>.png", ColorSpace: "srgb"})
	p.Submit(shadegraph.TextureCommit{Path: "a.<UDIM>.png", ColorSpace: "raw"})
	cache := newMemoCache()
	p.Commit(cache)

	assert.Equal(t, 2, loader.total())
	assert.Equal(t, 2, cache.creates)
}

func TestCommit_PartialFailure(t *testing.T) {
	loader := newCountingLoader("c.png")
	p := newTestPipeline(t, loader, nil)

	paths := []string{"a.png", "b.png", "c.png", "d.png", "e.png"}
	results := make([]backend.Image, len(paths))
	called := make([]bool, len(paths))
	for i, path := range paths {
		p.Submit(shadegraph.TextureCommit{Path: path, OnImage: func(img backend.Image) {
			results[i] = img
			called[i] = true
		}})
	}
	p.Commit(newMemoCache())

	for i, path := range paths {
		assert.True(t, called[i], "callback for %s", path)
		if path == "c.png" {
			assert.Nil(t, results[i])
		} else {
			assert.NotNil(t, results[i], path)
		}
	}
}

func TestCommit_CacheHitSkipsLoad(t *testing.T) {
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, nil)
	cache := newMemoCache()
	cached := &fakeImage{path: "hit.png"}
	cache.images[cacheKey{path: "hit.png", cs: "srgb", wrap: gputypes.AddressModeRepeat, channels: 4}] = cached

	var got backend.Image
	p.Submit(shadegraph.TextureCommit{
		Path: "hit.png", ColorSpace: "srgb", Wrap: gputypes.AddressModeRepeat, Channels: 4,
		OnImage: func(img backend.Image) { got = img },
	})
	p.Commit(cache)

	assert.Same(t, cached, got)
	assert.Zero(t, loader.total())
	assert.Zero(t, cache.creates)
}

func TestCommit_EmptyBatchIsNoop(t *testing.T) {
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, func(string) bool {
		t.Fatal("storage scanned on empty commit")
		return false
	})
	cache := newMemoCache()

	p.Commit(cache)

	assert.Zero(t, loader.total())
	assert.Zero(t, cache.calls)
}

func TestCommit_ClearsBatch(t *testing.T) {
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, nil)
	cache := newMemoCache()

	p.Submit(shadegraph.TextureCommit{Path: "a.png"})
	assert.Equal(t, 1, p.Pending())
	p.Commit(cache)
	assert.Zero(t, p.Pending())

	calls := cache.calls
	p.Commit(cache)
	assert.Equal(t, calls, cache.calls)
	assert.Equal(t, 1, loader.total())
}

func TestCommit_AllTilesMissing(t *testing.T) {
	p := newTestPipeline(t, newCountingLoader(), func(string) bool { return false })
	cache := newMemoCache()

	called := false
	p.Submit(shadegraph.TextureCommit{Path: "none.<UDIM>.exr", OnImage: func(img backend.Image) {
		called = true
		assert.Nil(t, img)
	}})
	p.Commit(cache)

	assert.True(t, called)
	assert.Zero(t, cache.creates)
}

func TestPipeline_ConcurrentSubmit(t *testing.T) {
	loader := newCountingLoader()
	p := newTestPipeline(t, loader, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				p.Submit(shadegraph.TextureCommit{Path: fmt.Sprintf("t%d.png", (i+j)%5)})
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 80, p.Pending())

	p.Commit(newMemoCache())
	assert.Equal(t, 5, loader.total())
}

func TestPipeline_CommitAfterClose(t *testing.T) {
	loader := newCountingLoader()
	p := NewPipeline(WithLoader(loader))
	p.Close()

	var got backend.Image
	p.Submit(shadegraph.TextureCommit{Path: "late.png", OnImage: func(img backend.Image) { got = img }})
	p.Commit(newMemoCache())

	assert.NotNil(t, got)
	assert.Equal(t, 1, loader.total())
}
