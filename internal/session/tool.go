package session

import (
	"github.com/ehrlich-b/multipixel/internal/chunksystem"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/tool"
)

// applyStroke runs the session's current non-Line, non-Fill tool across the
// segment from prev to cur and records every changed pixel into snap
// (SPEC_FULL.md §4.7).
func (s *Session) applyStroke(prev, cur pixel.Pos, snap *tool.Snapshot) {
	cache := newChunkCache(s.room)
	size, flow, color := s.params.Size, s.params.Flow, s.params.Color

	switch s.params.Type {
	case tool.Brush:
		shape := s.room.ShapeCache.Circle(size)
		tool.StampBrush(cache, shape, color, tool.StepPoints(prev, cur, tool.BrushStep(size)))
	case tool.SquareBrush:
		shape := s.room.ShapeCache.Square(size)
		tool.StampBrush(cache, shape, color, tool.StepPoints(prev, cur, tool.BrushStep(size)))
	case tool.SmoothBrush:
		tool.SmoothBrush(cache, size, flow, color, tool.StepPoints(prev, cur, tool.BrushStep(size)))
	case tool.Spray:
		tool.Spray(cache, size, flow, color, tool.StepPoints(prev, cur, tool.BrushStep(size)), s.rng)
	case tool.Blur:
		tool.Blur(cache, size, flow, cur)
	case tool.Smudge:
		tool.Smudge(cache, size, flow, prev, cur)
	default:
		return
	}

	s.recordDeltas(cache.Flush(), snap)
}

func (s *Session) applyFill(snap *tool.Snapshot) {
	cache := newChunkCache(s.room)
	tool.Fill(cache, s.cursor, s.params.Color)
	s.recordDeltas(cache.Flush(), snap)
}

func (s *Session) recordDeltas(deltas []tool.PixelDelta, snap *tool.Snapshot) {
	if snap == nil {
		return
	}
	for _, d := range deltas {
		snap.Record(d.Pos, d.Old)
	}
}

// beginLine starts a Line gesture: a fresh per-chunk compositor overlay,
// keyed by a generation unique to this session so a stale overlay from a
// previous gesture can never be confused with the current one.
func (s *Session) beginLine() {
	id := compositor.LayerID{Generation: s.layerGen, Session: compositor.SessionHandle(s.ID)}
	s.layerGen++
	ls := tool.NewLineState(s.cursor, id)
	s.toolState = &toolState{line: ls}
	s.applyLineOverlay(ls, s.cursor)
}

func (s *Session) moveLine(target pixel.Pos) {
	if s.toolState == nil || s.toolState.line == nil {
		return
	}
	s.applyLineOverlay(s.toolState.line, target)
}

// applyLineOverlay recomputes the line's affected-pixel set against target
// and pushes the resulting overlay clear/paint to every chunk it touches.
func (s *Session) applyLineOverlay(ls *tool.LineState, target pixel.Pos) {
	cleared, painted := ls.Recompute(target, s.params.Size)
	color := s.params.Color.ToRGBA()

	touched := make(map[pixel.Pos]bool)
	clearedByChunk := groupByChunk(cleared, touched)
	paintedByChunk := groupByChunk(painted, touched)

	for chunkPos := range touched {
		c, err := s.room.ChunkSystem.GetChunk(chunkPos)
		if err != nil {
			continue
		}
		layer, ok := c.Compositor.Layer(ls.LayerID)
		if !ok {
			layer = c.Compositor.NewLayer(ls.LayerID)
		}
		layer.Clear(clearedByChunk[chunkPos])
		for _, local := range paintedByChunk[chunkPos] {
			layer.Set(int(local.X), int(local.Y), color)
		}
		coords := append(append([]pixel.Pos(nil), clearedByChunk[chunkPos]...), paintedByChunk[chunkPos]...)
		c.SendPixelUpdates(coords)
	}
}

// commitLine writes the line's final affected pixels into the base layer
// (producing ordinary undo history) and drops the overlay, per SPEC_FULL.md
// §4.7 "On cursor-up: commit".
func (s *Session) commitLine(snap *tool.Snapshot) {
	ls := s.toolState.line
	s.toolState.line = nil

	pixels := make([]pixel.Pos, 0, len(ls.Affected))
	for p := range ls.Affected {
		pixels = append(pixels, p)
	}

	cache := newChunkCache(s.room)
	for _, p := range pixels {
		cache.SetPixel(p.X, p.Y, s.params.Color)
	}
	s.recordDeltas(cache.Flush(), snap)

	touched := make(map[pixel.Pos]bool)
	groupByChunk(pixels, touched)
	for chunkPos := range touched {
		s.room.ChunkSystem.SubmitLayerCmd(chunksystem.LayerCmd{
			Kind:  chunksystem.LayerRemove,
			Pos:   chunkPos,
			Layer: ls.LayerID,
		})
	}
}

// groupByChunk buckets global pixel positions by owning chunk, converting
// each to its chunk-local coordinate, and records every chunk touched into
// touched.
func groupByChunk(positions []pixel.Pos, touched map[pixel.Pos]bool) map[pixel.Pos][]pixel.Pos {
	out := make(map[pixel.Pos][]pixel.Pos)
	for _, p := range positions {
		chunkPos, local := pixel.GlobalPixelToChunk(p.X, p.Y)
		out[chunkPos] = append(out[chunkPos], local)
		touched[chunkPos] = true
	}
	return out
}
