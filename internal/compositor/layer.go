// Package compositor implements the per-chunk overlay stack (SPEC_FULL.md §4.3):
// transient per-session RGBA layers blended on top of a chunk's RGB base so
// in-progress tools (the Line tool's preview) are visible without committing
// to the base.
package compositor

import "github.com/ehrlich-b/multipixel/internal/pixel"

// SessionHandle identifies a session without holding a reference to it,
// breaking the Chunk<->Session ownership cycle (SPEC_FULL.md §9).
type SessionHandle uint16

// LayerID names one compositor layer: a monotonic generation counter paired
// with the session that owns it, so a session's overlay from a previous tool
// gesture is never confused with its current one.
type LayerID struct {
	Generation uint64
	Session    SessionHandle
}

// Layer is a dense 256x256 RGBA buffer.
type Layer struct {
	Pixels []pixel.RGBA
}

func NewLayer() *Layer {
	return &Layer{Pixels: make([]pixel.RGBA, pixel.ChunkSizePx*pixel.ChunkSizePx)}
}

func (l *Layer) At(x, y int) pixel.RGBA {
	return l.Pixels[y*pixel.ChunkSizePx+x]
}

func (l *Layer) Set(x, y int, c pixel.RGBA) {
	l.Pixels[y*pixel.ChunkSizePx+x] = c
}

// Clear resets the pixels at coords to fully transparent.
func (l *Layer) Clear(coords []pixel.Pos) {
	for _, p := range coords {
		l.Set(int(p.X), int(p.Y), pixel.RGBA{})
	}
}
