package tool

import (
	"math"
	"math/rand"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// StampBrush rasterises a brush stroke along stepPoints: the shape's Filled
// footprint at the first sample, Outline at every sample after (so a
// continuous stroke doesn't re-darken overlapping interior pixels at full
// opacity repeatedly), per SPEC_FULL.md §4.7.
func StampBrush(cache ChunkCache, shape *Shape, color pixel.RGB, stepPoints []pixel.Pos) {
	for i, center := range stepPoints {
		offsets := shape.Outline
		if i == 0 {
			offsets = shape.Filled
		}
		for _, o := range offsets {
			cache.SetPixel(center.X+o.X, center.Y+o.Y, color)
		}
	}
}

// SmoothBrush blends toward the tool color with alpha falling off from the
// stamp center, alpha = flow^2 * 255 * (1-d).
func SmoothBrush(cache ChunkCache, size uint8, flow float32, color pixel.RGB, stepPoints []pixel.Pos) {
	radius := float64(size) / 2
	offsets := CircleOffsets(radius)
	for _, center := range stepPoints {
		for _, o := range offsets {
			d := math.Hypot(float64(o.X), float64(o.Y)) / radius
			if d > 1 {
				continue
			}
			alpha := uint8(clamp0to255(float64(flow) * float64(flow) * 255 * (1 - d)))
			blendPixelInPlace(cache, center.X+o.X, center.Y+o.Y, color, alpha)
		}
	}
}

// Spray paints each pixel under a circle with independent probability
// approx 0.001 + flow^4*0.05 per sampled line point.
func Spray(cache ChunkCache, size uint8, flow float32, color pixel.RGB, stepPoints []pixel.Pos, rng *rand.Rand) {
	radius := float64(size) / 2
	offsets := CircleOffsets(radius)
	p := 0.001 + math.Pow(float64(flow), 4)*0.05
	for _, center := range stepPoints {
		for _, o := range offsets {
			if rng.Float64() < p {
				cache.SetPixel(center.X+o.X, center.Y+o.Y, color)
			}
		}
	}
}

// Blur averages each pixel's 4-neighbours and blends the result into the
// center pixel with alpha = flow*255. Unlike the other tools it runs once
// per cursor step, not per sampled sub-point (SPEC_FULL.md §4.7).
func Blur(cache ChunkCache, size uint8, flow float32, center pixel.Pos) {
	radius := float64(size) / 2
	offsets := CircleOffsets(radius)
	alpha := uint8(clamp0to255(float64(flow) * 255))
	for _, o := range offsets {
		x, y := center.X+o.X, center.Y+o.Y
		n := cache.GetPixel(x, y-1)
		s := cache.GetPixel(x, y+1)
		e := cache.GetPixel(x+1, y)
		w := cache.GetPixel(x-1, y)
		avg := pixel.RGB{
			R: uint8((int(n.R) + int(s.R) + int(e.R) + int(w.R)) / 4),
			G: uint8((int(n.G) + int(s.G) + int(e.G) + int(w.G)) / 4),
			B: uint8((int(n.B) + int(s.B) + int(e.B) + int(w.B)) / 4),
		}
		blendPixelInPlace(cache, x, y, avg, alpha)
	}
}

// Smudge walks from prev to cur; at each step, every pixel under the circle
// is blended with the pixel offset by the inverse step delta, alpha =
// flow*255, carrying paint along the stroke direction.
func Smudge(cache ChunkCache, size uint8, flow float32, prev, cur pixel.Pos) {
	radius := float64(size) / 2
	offsets := CircleOffsets(radius)
	step := BrushStep(size)
	points := StepPoints(prev, cur, step)
	alpha := uint8(clamp0to255(float64(flow) * 255))

	last := prev
	for _, p := range points {
		dx := p.X - last.X
		dy := p.Y - last.Y
		for _, o := range offsets {
			x, y := p.X+o.X, p.Y+o.Y
			src := cache.GetPixel(x-dx, y-dy)
			blendPixelInPlace(cache, x, y, src, alpha)
		}
		last = p
	}
}

func blendPixelInPlace(cache ChunkCache, x, y int32, to pixel.RGB, alpha uint8) {
	from := cache.GetPixel(x, y)
	blended := pixel.RGB{
		R: pixel.BlendChannel(from.R, to.R, alpha),
		G: pixel.BlendChannel(from.G, to.G, alpha),
		B: pixel.BlendChannel(from.B, to.B, alpha),
	}
	cache.SetPixel(x, y, blended)
}

func clamp0to255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
