package preview

import (
	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/storage"
)

const (
	tileSide    = 512 // 2x2 children stitched together before downscale
	outSide     = 256
	bytesPerPx  = 4 // RGBA throughout the pyramid
)

// System is one room's preview pyramid.
type System struct {
	store  *storage.Store
	layers [LayerCount]*queue
}

func New(store *storage.Store) *System {
	s := &System{store: store}
	for i := range s.layers {
		s.layers[i] = newQueue()
	}
	return s
}

// Enqueue schedules zoom-1 tile pos (a chunk's UpperPos) for (re)render at
// the first pyramid layer. Called by the chunk system whenever a chunk is
// persisted.
func (s *System) Enqueue(pos pixel.Pos) {
	s.layers[0].enqueue(pos)
}

// EnqueueAll schedules every known chunk position, used when
// preview_system.process_all_at_start is set or the admin
// process_preview_system command runs (SPEC_FULL.md §4.8, §12).
func (s *System) EnqueueAll() error {
	positions, err := s.store.ChunkListAll()
	if err != nil {
		return err
	}
	for _, p := range positions {
		s.layers[0].enqueue(pixel.Pos{X: p.X, Y: p.Y}.Upper())
	}
	return nil
}

// Process drains every layer fully, layer by layer (zoom 1 before zoom 2,
// etc.), so a freshly enqueued upper tile from layer N is available to be
// rendered on this same pass once it reaches layer N+1.
func (s *System) Process() {
	for z := 1; z <= LayerCount; z++ {
		layer := s.layers[z-1]
		for {
			pos, ok := layer.dequeue()
			if !ok {
				break
			}
			if err := s.buildTile(pos, z); err != nil {
				logger.Error("preview: build tile failed", "x", pos.X, "y", pos.Y, "zoom", z, "err", err)
			}
		}
	}
}

// buildTile fuses the four children of pos at zoom z into one downscaled
// tile and persists it, cascading the upper coordinate into the next layer.
func (s *System) buildTile(pos pixel.Pos, zoom int) error {
	canvas := make([]byte, tileSide*tileSide*bytesPerPx)

	children := [4]pixel.Pos{
		{X: pos.X * 2, Y: pos.Y * 2},
		{X: pos.X*2 + 1, Y: pos.Y * 2},
		{X: pos.X * 2, Y: pos.Y*2 + 1},
		{X: pos.X*2 + 1, Y: pos.Y*2 + 1},
	}

	for i, child := range children {
		blob, err := s.loadChild(child, zoom)
		if err != nil {
			return err
		}
		if blob == nil {
			continue // empty child: leave transparent
		}
		ox := (i % 2) * outSide
		oy := (i / 2) * outSide
		blit(canvas, tileSide, blob, outSide, ox, oy)
	}

	downscaled := downscale2x(canvas, tileSide)
	compressed := codec.CompressLZ4(downscaled)
	if err := s.store.PreviewSave(pos.X, pos.Y, uint8(zoom), compressed); err != nil {
		return err
	}

	if zoom < LayerCount {
		s.layers[zoom].enqueue(pos.Upper())
	}
	return nil
}

// loadChild fetches and decompresses one child tile: a chunk_data row
// (stored RGBA, see internal/chunksystem) at zoom 1, or the previous preview
// layer's tile at zoom >= 2.
func (s *System) loadChild(pos pixel.Pos, zoom int) ([]byte, error) {
	if zoom == 1 {
		blob, err := s.store.ChunkLoad(pos.X, pos.Y)
		if err != nil || blob == nil {
			return nil, err
		}
		return codec.DecompressLZ4(blob.Data, pixel.ChunkImageSizeRGBA)
	}
	data, err := s.store.PreviewLoad(pos.X, pos.Y, uint8(zoom-1))
	if err != nil || data == nil {
		return nil, err
	}
	return codec.DecompressLZ4(data, outSide*outSide*bytesPerPx)
}

func blit(dst []byte, dstSide int, src []byte, srcSide, ox, oy int) {
	for y := 0; y < srcSide; y++ {
		srcRow := src[y*srcSide*bytesPerPx : (y+1)*srcSide*bytesPerPx]
		dstOff := ((oy+y)*dstSide + ox) * bytesPerPx
		copy(dst[dstOff:dstOff+srcSide*bytesPerPx], srcRow)
	}
}

// downscale2x averages each 2x2 block of src (side x side) per channel,
// producing a (side/2 x side/2) RGBA buffer.
func downscale2x(src []byte, side int) []byte {
	half := side / 2
	out := make([]byte, half*half*bytesPerPx)
	for y := 0; y < half; y++ {
		for x := 0; x < half; x++ {
			for ch := 0; ch < bytesPerPx; ch++ {
				sum := uint16(src[idx(side, x*2, y*2, ch)]) +
					uint16(src[idx(side, x*2+1, y*2, ch)]) +
					uint16(src[idx(side, x*2, y*2+1, ch)]) +
					uint16(src[idx(side, x*2+1, y*2+1, ch)])
				out[(y*half+x)*bytesPerPx+ch] = uint8(sum / 4)
			}
		}
	}
	return out
}

func idx(side, x, y, ch int) int {
	return (y*side+x)*bytesPerPx + ch
}

// RequestData returns the stored preview blob at (pos, zoom), or nil if it
// has never been rendered (SPEC_FULL.md §4.6 "Serve").
func (s *System) RequestData(pos pixel.Pos, zoom uint8) ([]byte, error) {
	return s.store.PreviewLoad(pos.X, pos.Y, zoom)
}

// PendingCount reports the total number of queued tiles across every layer,
// used by the admin dump command.
func (s *System) PendingCount() int {
	n := 0
	for _, l := range s.layers {
		n += l.len()
	}
	return n
}
