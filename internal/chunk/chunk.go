// Package chunk implements one tile's pixel state (SPEC_FULL.md §4.4): the
// base RGB layer, its LZ4 cache, the compositor overlay stack, and the set
// of sessions currently streaming this tile.
package chunk

import (
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// WholeChunkThreshold is the pixel-count above which a batch of writes is
// sent as a full ChunkImage rather than a pixel-pack (1/5 of 65536).
const WholeChunkThreshold = pixel.ChunkSizePx * pixel.ChunkSizePx / 5

// Outbound is anything a Chunk can push an encoded frame into. Sessions
// implement it; Chunk never holds anything but this interface plus a handle,
// so it never keeps a session (or the session's goroutines) alive.
type Outbound interface {
	Enqueue(frame []byte)
}

type linkEntry struct {
	handle      compositor.SessionHandle
	out         Outbound
	outOfBounds int
}

// Chunk is one 256x256 tile. The zero value is not usable; use New.
type Chunk struct {
	Pos pixel.Pos

	mu   sync.RWMutex // guards base
	base []pixel.RGB  // nil when not materialised (lazy)

	cacheMu     sync.Mutex
	cacheBytes  []byte // LZ4 of base, or nil if stale/absent
	cacheRawLen int

	modified atomic.Bool

	linkedMu sync.Mutex
	linked   []linkEntry

	Compositor *compositor.Compositor

	// onUnlinkedEmpty is invoked (by the owning ChunkSystem) whenever
	// unlink drops the link count to zero, arming the GC signal.
	onUnlinkedEmpty func(pos pixel.Pos)
}

// New constructs a chunk that has not yet been loaded from storage; loaded
// is whatever ChunkSystem.GetChunk read back (nil for a brand new chunk).
func New(pos pixel.Pos, loaded []byte, rawLen int, onUnlinkedEmpty func(pixel.Pos)) *Chunk {
	c := &Chunk{
		Pos:             pos,
		Compositor:      compositor.New(),
		onUnlinkedEmpty: onUnlinkedEmpty,
	}
	if loaded != nil {
		c.cacheBytes = loaded
		c.cacheRawLen = rawLen
	}
	return c
}

var (
	emptyChunkOnce sync.Once
	emptyChunkLZ4  []byte
)

// emptyChunkBlob returns the shared, once-computed LZ4 blob of an all-white
// chunk, avoiding any allocation for rooms nobody has painted in yet
// (SPEC_FULL.md §4.4 "Policy").
func emptyChunkBlob() []byte {
	emptyChunkOnce.Do(func() {
		raw := make([]byte, pixel.ChunkImageSizeRGB)
		for i := range raw {
			raw[i] = 255
		}
		emptyChunkLZ4 = codec.CompressLZ4(raw)
	})
	return emptyChunkLZ4
}

// AllocateImage ensures base is materialised, decoding the LZ4 cache if
// present or filling with white.
func (c *Chunk) AllocateImage() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocateImageLocked()
}

func (c *Chunk) allocateImageLocked() error {
	if c.base != nil {
		return nil
	}
	c.cacheMu.Lock()
	cache, rawLen := c.cacheBytes, c.cacheRawLen
	c.cacheMu.Unlock()

	if cache == nil {
		c.base = make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
		for i := range c.base {
			c.base[i] = pixel.White
		}
		return nil
	}

	raw, err := codec.DecompressLZ4(cache, rawLen)
	if err != nil {
		// DecompressionError policy (SPEC_FULL.md §7): log, substitute white.
		c.base = make([]pixel.RGB, pixel.ChunkSizePx*pixel.ChunkSizePx)
		for i := range c.base {
			c.base[i] = pixel.White
		}
		return err
	}
	c.base = rgbBytesToPixels(raw)
	return nil
}

func rgbBytesToPixels(raw []byte) []pixel.RGB {
	n := len(raw) / 3
	out := make([]pixel.RGB, n)
	for i := 0; i < n; i++ {
		out[i] = pixel.RGB{R: raw[i*3], G: raw[i*3+1], B: raw[i*3+2]}
	}
	return out
}

func pixelsToRGBBytes(px []pixel.RGB) []byte {
	out := make([]byte, len(px)*3)
	for i, p := range px {
		out[i*3] = p.R
		out[i*3+1] = p.G
		out[i*3+2] = p.B
	}
	return out
}

// At returns the base color at local (x,y); AllocateImage must have been
// called (directly or via a caller holding the write side) first.
func (c *Chunk) At(x, y int) pixel.RGB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.base == nil {
		return pixel.White
	}
	return c.base[y*pixel.ChunkSizePx+x]
}

// Modified reports the fast-path modified flag without taking the main
// lock, per SPEC_FULL.md §5's "shared fast-path flags".
func (c *Chunk) Modified() bool {
	return c.modified.Load()
}
