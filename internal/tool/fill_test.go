package tool

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// memCache is a minimal in-memory ChunkCache over global pixel coordinates,
// defaulting every unset pixel to white (matching a freshly allocated
// chunk), for testing tool algorithms without a real chunk/session.
type memCache struct {
	px map[pixel.Pos]pixel.RGB
}

func newMemCache() *memCache {
	return &memCache{px: make(map[pixel.Pos]pixel.RGB)}
}

func (m *memCache) GetPixel(gx, gy int32) pixel.RGB {
	if c, ok := m.px[pixel.Pos{X: gx, Y: gy}]; ok {
		return c
	}
	return pixel.White
}

func (m *memCache) SetPixel(gx, gy int32, c pixel.RGB) {
	m.px[pixel.Pos{X: gx, Y: gy}] = c
}

func (m *memCache) Flush() []PixelDelta { return nil }

func TestFillStopsAtManhattanDistance301(t *testing.T) {
	cache := newMemCache()
	seed := pixel.Pos{X: 0, Y: 0}
	target := pixel.RGB{} // black; the memCache default is white, so set explicitly below
	cache.SetPixel(seed.X, seed.Y, target)

	// Build a 1D line of target-colored pixels out past the fill radius, to
	// check the fill paints up to distance 300 but never touches 301+.
	for x := int32(-305); x <= 305; x++ {
		cache.SetPixel(x, 0, target)
	}

	Fill(cache, seed, pixel.RGB{R: 255})

	for x := int32(-300); x <= 300; x++ {
		if got := cache.GetPixel(x, 0); got != (pixel.RGB{R: 255}) {
			t.Fatalf("pixel at distance %d = %v, want filled", abs(x), got)
		}
	}
	for _, x := range []int32{-301, -305, 301, 305} {
		if got := cache.GetPixel(x, 0); got == (pixel.RGB{R: 255}) {
			t.Fatalf("pixel at distance %d should NOT be filled, got %v", abs(x), got)
		}
	}
}

func TestFillIsNoOpWhenSeedAlreadyToolColor(t *testing.T) {
	cache := newMemCache()
	color := pixel.RGB{R: 10, G: 20, B: 30}
	cache.SetPixel(0, 0, color)

	Fill(cache, pixel.Pos{X: 0, Y: 0}, color)

	if got := cache.GetPixel(1, 0); got != pixel.White {
		t.Fatalf("fill should not have touched any pixel, neighbor = %v", got)
	}
}

func TestFillRespectsWalls(t *testing.T) {
	cache := newMemCache()
	target := pixel.RGB{}
	wall := pixel.RGB{R: 1, G: 1, B: 1}
	// a 5x5 region of target color surrounded by a wall.
	for y := int32(-2); y <= 2; y++ {
		for x := int32(-2); x <= 2; x++ {
			cache.SetPixel(x, y, target)
		}
	}
	for y := int32(-3); y <= 3; y++ {
		cache.SetPixel(-3, y, wall)
		cache.SetPixel(3, y, wall)
	}
	for x := int32(-3); x <= 3; x++ {
		cache.SetPixel(x, -3, wall)
		cache.SetPixel(x, 3, wall)
	}

	Fill(cache, pixel.Pos{X: 0, Y: 0}, pixel.RGB{R: 255})

	if got := cache.GetPixel(0, 0); got != (pixel.RGB{R: 255}) {
		t.Fatalf("seed should be filled, got %v", got)
	}
	if got := cache.GetPixel(-3, 0); got != wall {
		t.Fatalf("wall pixel should be untouched, got %v", got)
	}
	if got := cache.GetPixel(-4, 0); got != pixel.White {
		t.Fatalf("pixel beyond the wall should be untouched, got %v", got)
	}
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
