package chunk

import (
	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// PixelWrite is one (local position, new color) entry of a paint batch.
type PixelWrite struct {
	Pos   pixel.Pos
	Color pixel.RGB
}

// SetPixels applies writes to the base layer (SPEC_FULL.md §4.4). When
// sendWhole is true every write is applied and a full ChunkImage is pushed
// to every linked session; otherwise only writes that actually change a
// pixel are kept, batched into one ChunkPixelPack. Sessions with an active
// overlay anywhere on the chunk (SHOW_FOR_ALL, DESIGN.md open question #1)
// receive a per-session composited version instead of the shared one.
func (c *Chunk) SetPixels(writes []PixelWrite, sendWhole bool) {
	c.mu.Lock()
	c.allocateImageLocked()

	var changed []PixelWrite
	for _, w := range writes {
		idx := int(w.Pos.Y)*pixel.ChunkSizePx + int(w.Pos.X)
		if !sendWhole && c.base[idx] == w.Color {
			continue
		}
		c.base[idx] = w.Color
		changed = append(changed, w)
	}
	if len(changed) == 0 && !sendWhole {
		c.mu.Unlock()
		return
	}

	c.modified.Store(true)
	c.cacheMu.Lock()
	c.cacheBytes = nil
	c.cacheMu.Unlock()

	baseSnapshot := make([]pixel.RGB, len(c.base))
	copy(baseSnapshot, c.base)
	c.mu.Unlock()

	composed := c.Compositor.HasAnyComposition()

	if sendWhole {
		c.broadcastWholeChunk(baseSnapshot, composed)
		return
	}
	c.broadcastPixelPack(changed, baseSnapshot, composed)
}

func (c *Chunk) broadcastWholeChunk(base []pixel.RGB, composed bool) {
	plain := pixelsToRGBBytes(base)
	var plainFrame []byte

	c.linkedMu.Lock()
	entries := append([]linkEntry(nil), c.linked...)
	c.linkedMu.Unlock()

	for _, e := range entries {
		if composed {
			rgb := c.Compositor.Composite(base)
			e.out.Enqueue(codec.EncodeChunkImage(c.Pos.X, c.Pos.Y, pixelsToRGBBytes(rgb)))
			continue
		}
		if plainFrame == nil {
			plainFrame = codec.EncodeChunkImage(c.Pos.X, c.Pos.Y, plain)
		}
		e.out.Enqueue(plainFrame)
	}
}

func (c *Chunk) broadcastPixelPack(changed []PixelWrite, base []pixel.RGB, composed bool) {
	plainPixels := make([]codec.Pixel, len(changed))
	for i, w := range changed {
		plainPixels[i] = codec.Pixel{X: uint8(w.Pos.X), Y: uint8(w.Pos.Y), R: w.Color.R, G: w.Color.G, B: w.Color.B}
	}
	var plainFrame []byte

	c.linkedMu.Lock()
	entries := append([]linkEntry(nil), c.linked...)
	c.linkedMu.Unlock()

	for _, e := range entries {
		if composed {
			composedPixels := make([]codec.Pixel, len(changed))
			for i, w := range changed {
				rgb := c.Compositor.CalcPixel(w.Color, int(w.Pos.X), int(w.Pos.Y))
				composedPixels[i] = codec.Pixel{X: uint8(w.Pos.X), Y: uint8(w.Pos.Y), R: rgb.R, G: rgb.G, B: rgb.B}
			}
			e.out.Enqueue(codec.EncodeChunkPixelPack(c.Pos.X, c.Pos.Y, composedPixels))
			continue
		}
		if plainFrame == nil {
			plainFrame = codec.EncodeChunkPixelPack(c.Pos.X, c.Pos.Y, plainPixels)
		}
		e.out.Enqueue(plainFrame)
	}
}

// SendPixelUpdates pushes composited values at coords (no base mutation),
// used by the compositor code path (e.g. the Line tool's live preview).
func (c *Chunk) SendPixelUpdates(coords []pixel.Pos) {
	if err := c.AllocateImage(); err != nil {
		logger.Error("chunk: allocate image failed, substituting white", "x", c.Pos.X, "y", c.Pos.Y, "err", err)
	}

	c.mu.RLock()
	pixels := make([]codec.Pixel, len(coords))
	for i, p := range coords {
		base := c.base[int(p.Y)*pixel.ChunkSizePx+int(p.X)]
		rgb := c.Compositor.CalcPixel(base, int(p.X), int(p.Y))
		pixels[i] = codec.Pixel{X: uint8(p.X), Y: uint8(p.Y), R: rgb.R, G: rgb.G, B: rgb.B}
	}
	c.mu.RUnlock()

	frame := codec.EncodeChunkPixelPack(c.Pos.X, c.Pos.Y, pixels)
	c.linkedMu.Lock()
	entries := append([]linkEntry(nil), c.linked...)
	c.linkedMu.Unlock()
	for _, e := range entries {
		e.out.Enqueue(frame)
	}
}

// SendChunkDataToSession sends a ChunkImage to one session: composited if
// it (or any session, per SHOW_FOR_ALL) has an overlay, the shared cached
// snapshot otherwise.
func (c *Chunk) SendChunkDataToSession(out Outbound) {
	if c.Compositor.HasAnyComposition() {
		if err := c.AllocateImage(); err != nil {
			logger.Error("chunk: allocate image failed, substituting white", "x", c.Pos.X, "y", c.Pos.Y, "err", err)
		}

		c.mu.RLock()
		base := append([]pixel.RGB(nil), c.base...)
		c.mu.RUnlock()
		rgb := c.Compositor.Composite(base)
		out.Enqueue(codec.EncodeChunkImage(c.Pos.X, c.Pos.Y, pixelsToRGBBytes(rgb)))
		return
	}

	raw, rawLen := c.EncodeChunkData(false)
	out.Enqueue(encodedChunkImageFrame(c.Pos, raw, rawLen))
}

func encodedChunkImageFrame(pos pixel.Pos, compressed []byte, rawLen int) []byte {
	w := codec.NewWriter()
	w.I32(pos.X)
	w.I32(pos.Y)
	w.U32(uint32(rawLen))
	w.Bytes32(compressed)
	return w.Finish(codec.ServerChunkImage)
}

// EncodeChunkData returns the LZ4-compressed base plus its raw length. If
// clearModified, it also unloads the base buffer and clears the modified
// flag; enqueueing this chunk's upper-tile coordinate into the preview
// pipeline is left to the caller (ChunkSystem.persist, SPEC_FULL.md §4.4/§4.6).
func (c *Chunk) EncodeChunkData(clearModified bool) (compressed []byte, rawLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.base == nil {
		// Never allocated: this is the lazy empty chunk.
		blob := emptyChunkBlob()
		return blob, pixel.ChunkImageSizeRGB
	}

	c.cacheMu.Lock()
	if c.cacheBytes != nil {
		compressed, rawLen = c.cacheBytes, c.cacheRawLen
		c.cacheMu.Unlock()
	} else {
		raw := pixelsToRGBBytes(c.base)
		compressed = codec.CompressLZ4(raw)
		rawLen = len(raw)
		c.cacheBytes, c.cacheRawLen = compressed, rawLen
		c.cacheMu.Unlock()
	}

	if clearModified {
		c.base = nil
		c.modified.Store(false)
	}
	return compressed, rawLen
}

// UpperPos returns floor(pos/2), the coordinate this chunk feeds into the
// first preview layer.
func (c *Chunk) UpperPos() pixel.Pos {
	return c.Pos.Upper()
}

// LinkSession appends a unique linked-session entry.
func (c *Chunk) LinkSession(h compositor.SessionHandle, out Outbound) {
	c.linkedMu.Lock()
	defer c.linkedMu.Unlock()
	for _, e := range c.linked {
		if e.handle == h {
			return // duplicate link; ignore (original logs a warning)
		}
	}
	c.linked = append(c.linked, linkEntry{handle: h, out: out})
}

// UnlinkSession removes h from the linked set and dereferences h's
// compositor layers. If the set becomes empty it also arms the chunk-system
// GC signal via the onUnlinkedEmpty callback.
func (c *Chunk) UnlinkSession(h compositor.SessionHandle) {
	c.linkedMu.Lock()
	empty := false
	for i, e := range c.linked {
		if e.handle == h {
			c.linked = append(c.linked[:i], c.linked[i+1:]...)
			break
		}
	}
	empty = len(c.linked) == 0
	c.linkedMu.Unlock()

	c.Compositor.DereferenceSession(h)

	if empty && c.onUnlinkedEmpty != nil {
		c.onUnlinkedEmpty(c.Pos)
	}
}

// LinkedSessionCount reports the current number of linked sessions without
// touching the main RWMutex (the fast-path flag of SPEC_FULL.md §5).
func (c *Chunk) LinkedSessionCount() int {
	c.linkedMu.Lock()
	defer c.linkedMu.Unlock()
	return len(c.linked)
}
