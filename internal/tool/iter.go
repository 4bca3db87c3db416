package tool

import (
	"math"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// StepPoints samples the segment from prev to cur at increments of step
// pixels, always including the final point, mirroring
// original_source/tool/iter.rs's LineMoveIter used to keep fast cursor
// movements from leaving gaps between brush stamps.
func StepPoints(prev, cur pixel.Pos, step float64) []pixel.Pos {
	if step < 1 {
		step = 1
	}
	dx := float64(cur.X - prev.X)
	dy := float64(cur.Y - prev.Y)
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return []pixel.Pos{cur}
	}
	n := int(dist / step)
	out := make([]pixel.Pos, 0, n+1)
	for i := 1; i <= n; i++ {
		t := float64(i) * step / dist
		out = append(out, pixel.Pos{
			X: prev.X + int32(math.Round(dx*t)),
			Y: prev.Y + int32(math.Round(dy*t)),
		})
	}
	if n == 0 || out[len(out)-1] != cur {
		out = append(out, cur)
	}
	return out
}

// BrushStep returns the sampling step in pixels for a brush of the given
// size (SPEC_FULL.md §4.7: "step = 1 + size/6 pixels").
func BrushStep(size uint8) float64 {
	return 1 + float64(size)/6
}
