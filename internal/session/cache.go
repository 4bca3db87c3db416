package session

import (
	"github.com/ehrlich-b/multipixel/internal/chunk"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/room"
	"github.com/ehrlich-b/multipixel/internal/tool"
)

// chunkCache implements tool.ChunkCache: it batches global-pixel reads and
// writes across potentially many chunks during one tool update, resolving
// each chunk at most once (SPEC_FULL.md §2's "1-deep chunk cache") by
// remembering the single most recently touched chunk before falling back to
// a map for gestures that straddle more than one tile (e.g. a brush stroke
// crossing a chunk boundary).
type chunkCache struct {
	rm *room.Room

	lastPos   pixel.Pos
	lastEntry *cacheEntry
	haveLast  bool

	entries map[pixel.Pos]*cacheEntry
}

type cacheEntry struct {
	c        *chunk.Chunk
	writes   map[pixel.Pos]pixel.RGB
	original map[pixel.Pos]pixel.RGB
}

func newChunkCache(rm *room.Room) *chunkCache {
	return &chunkCache{rm: rm, entries: make(map[pixel.Pos]*cacheEntry)}
}

func (cc *chunkCache) entryFor(chunkPos pixel.Pos) *cacheEntry {
	if cc.haveLast && cc.lastPos == chunkPos {
		return cc.lastEntry
	}
	if e, ok := cc.entries[chunkPos]; ok {
		cc.lastPos, cc.lastEntry, cc.haveLast = chunkPos, e, true
		return e
	}
	c, err := cc.rm.ChunkSystem.GetChunk(chunkPos)
	if err != nil {
		// StorageError policy (SPEC_FULL.md §7): log and continue. The chunk
		// system returns no chunk on a failed load, so this gesture paints
		// into a blank chunk that the chunk system does not hold; those
		// writes are neither persisted nor broadcast.
		logger.Error("session: chunk load failed", "x", chunkPos.X, "y", chunkPos.Y, "err", err)
		c = chunk.New(chunkPos, nil, 0, nil)
	}
	e := &cacheEntry{c: c, writes: make(map[pixel.Pos]pixel.RGB), original: make(map[pixel.Pos]pixel.RGB)}
	cc.entries[chunkPos] = e
	cc.lastPos, cc.lastEntry, cc.haveLast = chunkPos, e, true
	return e
}

// GetPixel implements tool.ChunkCache, returning the pending write if this
// gesture has already touched (gx,gy), otherwise the chunk's current base
// color.
func (cc *chunkCache) GetPixel(gx, gy int32) pixel.RGB {
	chunkPos, local := pixel.GlobalPixelToChunk(gx, gy)
	e := cc.entryFor(chunkPos)
	if v, ok := e.writes[local]; ok {
		return v
	}
	if err := e.c.AllocateImage(); err != nil {
		logger.Error("session: allocate image failed, substituting white", "x", chunkPos.X, "y", chunkPos.Y, "err", err)
	}
	return e.c.At(int(local.X), int(local.Y))
}

// SetPixel implements tool.ChunkCache, recording the pixel's original color
// the first time this gesture touches it.
func (cc *chunkCache) SetPixel(gx, gy int32, color pixel.RGB) {
	chunkPos, local := pixel.GlobalPixelToChunk(gx, gy)
	e := cc.entryFor(chunkPos)
	if _, ok := e.original[local]; !ok {
		if err := e.c.AllocateImage(); err != nil {
			logger.Error("session: allocate image failed, substituting white", "x", chunkPos.X, "y", chunkPos.Y, "err", err)
		}
		e.original[local] = e.c.At(int(local.X), int(local.Y))
	}
	e.writes[local] = color
}

// Flush implements tool.ChunkCache: dispatches every buffered write to its
// owning chunk (choosing whole-chunk vs pixel-pack per SPEC_FULL.md §4.4's
// policy) and returns the set of pixels that actually changed, in global
// coordinates, for history recording.
func (cc *chunkCache) Flush() []tool.PixelDelta {
	var deltas []tool.PixelDelta
	for chunkPos, e := range cc.entries {
		if len(e.writes) == 0 {
			continue
		}
		writes := make([]chunk.PixelWrite, 0, len(e.writes))
		for local, color := range e.writes {
			writes = append(writes, chunk.PixelWrite{Pos: local, Color: color})
			if orig, ok := e.original[local]; ok && orig != color {
				deltas = append(deltas, tool.PixelDelta{
					Pos: pixel.Pos{X: chunkPos.X*pixel.ChunkSizePx + local.X, Y: chunkPos.Y*pixel.ChunkSizePx + local.Y},
					Old: orig,
				})
			}
		}
		sendWhole := len(writes) > chunk.WholeChunkThreshold
		e.c.SetPixels(writes, sendWhole)
	}
	cc.entries = make(map[pixel.Pos]*cacheEntry)
	cc.haveLast = false
	return deltas
}
