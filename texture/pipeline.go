package texture

import (
	"log/slog"
	"sync"

	"github.com/gogpu/shadegraph"
	"github.com/gogpu/shadegraph/backend"
	"github.com/gogpu/shadegraph/internal/parallel"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader sets the pixel loader. The default is FileLoader.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithExists sets the file probe used for UDIM expansion. The default is
// FileExists.
func WithExists(exists func(path string) bool) Option {
	return func(p *Pipeline) { p.exists = exists }
}

// WithWorkers sets the number of load workers. 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithLogger sets the logger. The default is shadegraph.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline batches texture requests.
//
// Submit is safe to call from concurrent resolutions. Commit processes the
// whole pending batch; concurrent Commit calls are serialized.
type Pipeline struct {
	loader  Loader
	exists  func(string) bool
	workers int
	logger  *slog.Logger
	pool    *parallel.WorkerPool

	mu      sync.Mutex
	pending []shadegraph.TextureCommit

	commitMu sync.Mutex
}

// NewPipeline creates a pipeline and starts its load workers.
// Call Close to stop them.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		loader: FileLoader{},
		exists: FileExists,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = shadegraph.OrDefault(p.logger)
	p.pool = parallel.NewWorkerPool(p.workers)
	return p
}

// Submit queues a request. No I/O is performed.
func (p *Pipeline) Submit(commit shadegraph.TextureCommit) {
	p.mu.Lock()
	p.pending = append(p.pending, commit)
	p.mu.Unlock()
}

// Pending returns the number of queued requests.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// entry is one unique file of a batch. data is written by exactly one load
// worker.
type entry struct {
	path string
	tile int
	data *Data
}

type entryKey struct {
	path string
	tile int
}

// request is a commit that missed the cache, with indices into the batch
// entries.
type request struct {
	commit  shadegraph.TextureCommit
	entries []int
}

// Commit resolves every pending request against cache and clears the batch.
// An empty batch returns immediately without touching storage or cache.
func (p *Pipeline) Commit(cache ImageCache) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	var (
		entries  []entry
		index    = make(map[entryKey]int)
		requests []request
		hits     int
	)
	add := func(path string, tile int) int {
		k := entryKey{path: path, tile: tile}
		if i, ok := index[k]; ok {
			return i
		}
		entries = append(entries, entry{path: path, tile: tile})
		index[k] = len(entries) - 1
		return len(entries) - 1
	}

	for _, c := range batch {
		if img := cache.GetOrCreateImage(c.Path, c.ColorSpace, c.Wrap, nil, c.Channels); img != nil {
			hits++
			deliver(c, img)
			continue
		}

		r := request{commit: c}
		if IsUDIM(c.Path) {
			tiles := ExpandUDIM(c.Path, p.exists)
			if len(tiles) == 0 {
				p.logger.Warn("texture: no UDIM tiles found", "path", c.Path)
			}
			for _, t := range tiles {
				r.entries = append(r.entries, add(t.Path, t.ID))
			}
		} else {
			r.entries = append(r.entries, add(c.Path, 0))
		}
		requests = append(requests, r)
	}

	p.logger.Debug("texture: commit",
		"requests", len(batch), "cache_hits", hits, "unique_files", len(entries))

	p.pool.Run(len(entries), func(i int) {
		e := &entries[i]
		data, err := p.loader.Load(e.path)
		if err != nil {
			p.logger.Error("texture: failed to load", "path", e.path, "err", err)
			return
		}
		e.data = data
	})

	// Realization is serial: the image cache is not reentrant.
	for _, r := range requests {
		tiles := make([]Tile, 0, len(r.entries))
		for _, i := range r.entries {
			if e := entries[i]; e.data != nil {
				tiles = append(tiles, Tile{ID: e.tile, Path: e.path, Data: e.data})
			}
		}

		var img backend.Image
		if len(tiles) > 0 {
			img = cache.GetOrCreateImage(r.commit.Path, r.commit.ColorSpace, r.commit.Wrap, tiles, r.commit.Channels)
		}
		if img == nil {
			p.logger.Warn("texture: no image realized", "path", r.commit.Path)
		}
		deliver(r.commit, img)
	}
}

func deliver(c shadegraph.TextureCommit, img backend.Image) {
	if c.OnImage != nil {
		c.OnImage(img)
	}
}

// Close stops the load workers. Commits after Close load on the calling
// goroutine.
func (p *Pipeline) Close() {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()
	p.pool.Close()
}
