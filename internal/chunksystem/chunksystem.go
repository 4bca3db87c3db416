package chunksystem

import (
	"context"
	"sync"
	"time"

	"github.com/ehrlich-b/multipixel/internal/chunk"
	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/storage"
)

// LayerCmdKind selects which compositor operation a processor command
// performs once woken.
type LayerCmdKind int

const (
	// LayerRemove drops a compositor layer outright: the session's own
	// synchronous chunk-cache write already committed its pixels to the
	// base (Line's cursor-up, a disconnecting session's in-progress
	// overlay), so the processor only needs to tear the overlay down.
	LayerRemove LayerCmdKind = iota
)

// LayerCmd asks the processor goroutine to drop a compositor layer once
// woken.
type LayerCmd struct {
	Kind  LayerCmdKind
	Pos   pixel.Pos
	Layer compositor.LayerID
}

// ChunkSystem owns every loaded Chunk for one room.
type ChunkSystem struct {
	store *storage.Store

	mu     sync.RWMutex
	chunks map[pixel.Pos]*chunk.Chunk

	gc       *Signal
	layerCmd chan LayerCmd

	autosaveInterval time.Duration
	lastAutosave     time.Time

	// enqueuePreview is called with each chunk's upper-tile coordinate
	// whenever that chunk is persisted with clearModified=true.
	enqueuePreview func(pos pixel.Pos)
	// processPreview drains one pass of the preview pyramid; invoked after
	// every autosave tick.
	processPreview func()
}

func New(store *storage.Store, autosaveInterval time.Duration, enqueuePreview func(pixel.Pos), processPreview func()) *ChunkSystem {
	return &ChunkSystem{
		store:            store,
		chunks:           make(map[pixel.Pos]*chunk.Chunk),
		gc:               NewSignal(),
		layerCmd:         make(chan LayerCmd, 64),
		autosaveInterval: autosaveInterval,
		enqueuePreview:   enqueuePreview,
		processPreview:   processPreview,
	}
}

// GetChunk returns the chunk at pos, loading it from storage on first
// access.
func (cs *ChunkSystem) GetChunk(pos pixel.Pos) (*chunk.Chunk, error) {
	cs.mu.RLock()
	c, ok := cs.chunks[pos]
	cs.mu.RUnlock()
	if ok {
		return c, nil
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.chunks[pos]; ok {
		return c, nil
	}

	blob, err := cs.store.ChunkLoad(pos.X, pos.Y)
	if err != nil {
		return nil, err
	}
	var cached []byte
	var rawLen int
	if blob != nil {
		cached, rawLen, err = rgbCacheFromStoredRGBA(blob)
		if err != nil {
			logger.Error("chunksystem: corrupt stored chunk, starting blank", "x", pos.X, "y", pos.Y, "err", err)
			cached, rawLen = nil, 0
		}
	}
	newChunk := chunk.New(pos, cached, rawLen, cs.onChunkUnlinkedEmpty)
	cs.chunks[pos] = newChunk
	return newChunk, nil
}

// rgbCacheFromStoredRGBA converts a stored RGBA row (SPEC_FULL.md §4.2's
// on-disk encoding) back into the RGB-compressed cache Chunk expects in
// memory (SPEC_FULL.md §3's base_layer invariant: exactly 256*256*3 bytes).
func rgbCacheFromStoredRGBA(blob *storage.ChunkBlob) (compressedRGB []byte, rawLen int, err error) {
	rgba, err := codec.DecompressLZ4(blob.Data, pixel.ChunkImageSizeRGBA)
	if err != nil {
		return nil, 0, err
	}
	rgb := pixel.RGBABytesToRGBBytes(rgba)
	return codec.CompressLZ4(rgb), len(rgb), nil
}

func (cs *ChunkSystem) onChunkUnlinkedEmpty(pos pixel.Pos) {
	cs.gc.Notify()
}

// SubmitLayerCmd enqueues an asynchronous compositor resolution. Non-blocking
// by design (SPEC_FULL.md §5): on a full queue this command is dropped and
// logged rather than stalling the caller, since a subsequent GC pass will
// still reconcile state.
func (cs *ChunkSystem) SubmitLayerCmd(cmd LayerCmd) {
	select {
	case cs.layerCmd <- cmd:
	default:
		logger.Warn("chunksystem: layer command queue full, dropping", "kind", cmd.Kind)
	}
}

// Run starts the tick and processor goroutines; it blocks until ctx is
// cancelled.
func (cs *ChunkSystem) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); cs.tickLoop(ctx) }()
	go func() { defer wg.Done(); cs.processorLoop(ctx) }()
	wg.Wait()
}

func (cs *ChunkSystem) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.tick()
		}
	}
}

func (cs *ChunkSystem) tick() {
	if time.Since(cs.lastAutosave) < cs.autosaveInterval {
		return
	}
	cs.lastAutosave = time.Now()

	cs.mu.RLock()
	var modified []*chunk.Chunk
	for _, c := range cs.chunks {
		if c.Modified() {
			modified = append(modified, c)
		}
	}
	cs.mu.RUnlock()

	for _, c := range modified {
		cs.persist(c)
	}
	if cs.processPreview != nil {
		cs.processPreview()
	}
}

func (cs *ChunkSystem) persist(c *chunk.Chunk) {
	compressedRGB, rawLen := c.EncodeChunkData(true)
	rgb, err := codec.DecompressLZ4(compressedRGB, rawLen)
	if err != nil {
		logger.Error("chunksystem: encode chunk for storage failed", "x", c.Pos.X, "y", c.Pos.Y, "err", err)
		return
	}
	rgba := pixel.RGBBytesToRGBABytes(rgb)
	compressedRGBA := codec.CompressLZ4(rgba)

	if err := cs.store.ChunkSave(c.Pos.X, c.Pos.Y, compressedRGBA, storage.CompressionLZ4); err != nil {
		logger.Error("chunksystem: save chunk failed", "x", c.Pos.X, "y", c.Pos.Y, "err", err)
		return
	}
	if cs.enqueuePreview != nil {
		cs.enqueuePreview(c.UpperPos())
	}
}

func (cs *ChunkSystem) processorLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.gc.Wake():
			if cs.gc.CheckAndClear() {
				cs.garbageCollect()
			}
		case cmd := <-cs.layerCmd:
			cs.handleLayerCmd(cmd)
		}
	}
}

func (cs *ChunkSystem) garbageCollect() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for pos, c := range cs.chunks {
		if c.LinkedSessionCount() > 0 {
			continue
		}
		if c.Modified() {
			cs.persist(c)
		}
		delete(cs.chunks, pos)
	}
}

func (cs *ChunkSystem) handleLayerCmd(cmd LayerCmd) {
	cs.mu.RLock()
	c, ok := cs.chunks[cmd.Pos]
	cs.mu.RUnlock()
	if !ok {
		return
	}
	switch cmd.Kind {
	case LayerRemove:
		c.Compositor.RemoveLayer(cmd.Layer)
	}
}

// SaveAll persists every modified chunk synchronously, used by
// save_and_exit (SPEC_FULL.md §4.10).
func (cs *ChunkSystem) SaveAll() {
	cs.mu.RLock()
	var modified []*chunk.Chunk
	for _, c := range cs.chunks {
		if c.Modified() {
			modified = append(modified, c)
		}
	}
	cs.mu.RUnlock()
	for _, c := range modified {
		cs.persist(c)
	}
}

// ChunkCount reports the number of currently loaded chunks, used by the
// admin dump command.
func (cs *ChunkSystem) ChunkCount() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}
