// Package tool implements the paint tool pipeline (SPEC_FULL.md §4.7):
// brush shapes, smooth brush, spray, blur, smudge, flood fill, the Line
// overlay tool, and undo history. Cursor rate limiting lives in
// internal/session.
package tool

import "github.com/ehrlich-b/multipixel/internal/pixel"

// ChunkCache batches global-pixel reads/writes across potentially many
// chunks during a single tool update, so a brush stroke straddling a chunk
// boundary only touches each chunk's lock once per Flush. Implemented by
// internal/session against its room's chunk system.
type ChunkCache interface {
	GetPixel(gx, gy int32) pixel.RGB
	SetPixel(gx, gy int32, c pixel.RGB)
	// Flush dispatches every buffered write to its owning chunk, choosing
	// whole-chunk vs pixel-pack broadcast per SPEC_FULL.md §4.4's policy,
	// and returns the set of (position, previous color) pairs that actually
	// changed, for history recording.
	Flush() []PixelDelta
}

// PixelDelta is one pixel's old color before a paint operation replaced it,
// used to build undo history snapshots.
type PixelDelta struct {
	Pos pixel.Pos
	Old pixel.RGB
}
