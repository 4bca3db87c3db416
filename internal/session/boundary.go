package session

import (
	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// outOfBoundsLimit is the number of consecutive ticks a linked chunk may sit
// outside the viewport before it is unlinked (SPEC_FULL.md §4.8
// "tick_chunks_cleanup").
const outOfBoundsLimit = 5

func (s *Session) inBoundary(pos pixel.Pos) bool {
	b := s.boundary
	if !b.Set || b.Zoom <= BoundaryZoomMin {
		return false
	}
	return pos.X >= b.StartX && pos.X <= b.EndX && pos.Y >= b.StartY && pos.Y <= b.EndY
}

// tickBoundaryCheck links as many not-yet-linked in-viewport chunks as the
// backpressure window allows this tick, nearest to the cursor first
// (SPEC_FULL.md §4.8).
func (s *Session) tickBoundaryCheck() {
	b := s.boundary
	if !b.Set || b.Zoom <= BoundaryZoomMin {
		return
	}

	budget := int(BackpressureWindow) - int(s.chunksSent.Load()-s.chunksReceived.Load())
	if budget <= 0 {
		return
	}

	linked := make(map[pixel.Pos]bool, len(s.linked))
	for _, lc := range s.linked {
		linked[lc.pos] = true
	}

	var candidates []pixel.Pos
	for y := b.StartY; y <= b.EndY; y++ {
		for x := b.StartX; x <= b.EndX; x++ {
			p := pixel.Pos{X: x, Y: y}
			if !linked[p] {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return
	}

	cursorChunk, _ := pixel.GlobalPixelToChunk(s.cursor.X, s.cursor.Y)

	for budget > 0 && len(candidates) > 0 {
		best := 0
		bestDist := pixel.EuclideanDistance(cursorChunk, candidates[0])
		for i := 1; i < len(candidates); i++ {
			d := pixel.EuclideanDistance(cursorChunk, candidates[i])
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		pos := candidates[best]
		candidates = append(candidates[:best], candidates[best+1:]...)

		s.linkChunk(pos)
		budget--
	}
}

func (s *Session) linkChunk(pos pixel.Pos) {
	c, err := s.room.ChunkSystem.GetChunk(pos)
	if err != nil {
		return
	}
	c.LinkSession(s.ID, s)
	s.linked = append(s.linked, &linkedChunk{pos: pos, chunk: c})
	s.Enqueue(codec.EncodeChunkCreate(pos.X, pos.Y))
	c.SendChunkDataToSession(s)
	s.chunksSent.Add(1)
}

// tickChunksCleanup unlinks chunks that have fallen outside the viewport for
// outOfBoundsLimit consecutive ticks.
func (s *Session) tickChunksCleanup() {
	kept := s.linked[:0]
	for _, lc := range s.linked {
		if s.inBoundary(lc.pos) {
			lc.outOfBounds = 0
			kept = append(kept, lc)
			continue
		}
		lc.outOfBounds++
		if lc.outOfBounds < outOfBoundsLimit {
			kept = append(kept, lc)
			continue
		}
		lc.chunk.UnlinkSession(s.ID)
		s.Enqueue(codec.EncodeChunkRemove(lc.pos.X, lc.pos.Y))
	}
	s.linked = kept
}
