package tool

import (
	"math"

	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// LineState is a session's transient state while the Line tool is active:
// a compositor overlay showing the in-progress line to the author and (per
// DESIGN.md open-question #1, SHOW_FOR_ALL) every peer, kept out of the base
// layer until the cursor is released.
type LineState struct {
	Start    pixel.Pos
	Last     pixel.Pos
	LayerID  compositor.LayerID
	Affected map[pixel.Pos]bool
}

func NewLineState(start pixel.Pos, layerID compositor.LayerID) *LineState {
	return &LineState{Start: start, Last: start, LayerID: layerID, Affected: make(map[pixel.Pos]bool)}
}

// Recompute rasterises the line from s.Start to target at the given
// thickness (see linePixels), diffs it against the previous Affected set,
// and returns the overlay pixels to clear (no longer covered) and to
// (re)paint (the whole new set). It updates s.Last and s.Affected.
func (s *LineState) Recompute(target pixel.Pos, size uint8) (cleared, painted []pixel.Pos) {
	newSet := linePixels(s.Start, target, size)

	for p := range s.Affected {
		if !newSet[p] {
			cleared = append(cleared, p)
		}
	}
	for p := range newSet {
		painted = append(painted, p)
	}

	s.Affected = newSet
	s.Last = target
	return cleared, painted
}

// linePixels rasterises a thick line from a to b: a filled disk of the
// given diameter at every integer step along the segment, unioned.
func linePixels(a, b pixel.Pos, size uint8) map[pixel.Pos]bool {
	radius := math.Max(float64(size)/2, 0.5)
	offsets := CircleOffsets(radius)

	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	dist := math.Hypot(dx, dy)
	steps := int(dist) + 1

	out := make(map[pixel.Pos]bool)
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		cx := a.X + int32(math.Round(dx*t))
		cy := a.Y + int32(math.Round(dy*t))
		for _, o := range offsets {
			out[pixel.Pos{X: cx + o.X, Y: cy + o.Y}] = true
		}
	}
	return out
}
