package tool

import (
	"math"
	"sync"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// Shape is a brush footprint: Filled covers every pixel inside the shape,
// Outline covers only its border (stamped on every sample after the first,
// per SPEC_FULL.md §4.7).
type Shape struct {
	Filled  []pixel.Pos
	Outline []pixel.Pos
}

// ShapeCache precomputes and caches Circle/Square shapes per size, one
// instance per room (SPEC_FULL.md §4.9 "brush-shape cache").
type ShapeCache struct {
	mu     sync.Mutex
	circle map[uint8]*Shape
	square map[uint8]*Shape
}

func NewShapeCache() *ShapeCache {
	return &ShapeCache{
		circle: make(map[uint8]*Shape),
		square: make(map[uint8]*Shape),
	}
}

func (c *ShapeCache) Circle(size uint8) *Shape {
	return c.get(c.circle, size, buildCircle)
}

func (c *ShapeCache) Square(size uint8) *Shape {
	return c.get(c.square, size, buildSquare)
}

func (c *ShapeCache) get(m map[uint8]*Shape, size uint8, build func(uint8) *Shape) *Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := m[size]; ok {
		return s
	}
	s := build(size)
	m[size] = s
	return s
}

// buildCircle rasterises a filled disk and its 1px outline of the given
// diameter. Sizes 1 and 2 use the shortcuts named in SPEC_FULL.md §4.7.
func buildCircle(size uint8) *Shape {
	if size <= 1 {
		return &Shape{Filled: []pixel.Pos{{}}, Outline: []pixel.Pos{{}}}
	}
	if size == 2 {
		pts := plusShape()
		return &Shape{Filled: pts, Outline: pts}
	}

	r := float64(size) / 2
	var filled, outline []pixel.Pos
	ir := int32(math.Ceil(r))
	for y := -ir; y <= ir; y++ {
		for x := -ir; x <= ir; x++ {
			d := math.Hypot(float64(x), float64(y))
			if d <= r {
				filled = append(filled, pixel.Pos{X: x, Y: y})
				if d > r-1.5 {
					outline = append(outline, pixel.Pos{X: x, Y: y})
				}
			}
		}
	}
	return &Shape{Filled: filled, Outline: outline}
}

func buildSquare(size uint8) *Shape {
	if size <= 1 {
		return &Shape{Filled: []pixel.Pos{{}}, Outline: []pixel.Pos{{}}}
	}
	half := int32(size) / 2
	var filled, outline []pixel.Pos
	for y := -half; y < int32(size)-half; y++ {
		for x := -half; x < int32(size)-half; x++ {
			filled = append(filled, pixel.Pos{X: x, Y: y})
			if x == -half || y == -half || x == int32(size)-half-1 || y == int32(size)-half-1 {
				outline = append(outline, pixel.Pos{X: x, Y: y})
			}
		}
	}
	return &Shape{Filled: filled, Outline: outline}
}

// plusShape is the 5-pixel "+" shortcut used for size-2 brushes.
func plusShape() []pixel.Pos {
	return []pixel.Pos{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}
}

// CircleOffsets returns every offset within radius r of the origin, used by
// the smooth brush / blur / smudge / spray tools which need per-pixel
// distance, not just a stamp shape.
func CircleOffsets(radius float64) []pixel.Pos {
	ir := int32(math.Ceil(radius))
	var out []pixel.Pos
	for y := -ir; y <= ir; y++ {
		for x := -ir; x <= ir; x++ {
			if math.Hypot(float64(x), float64(y)) <= radius {
				out = append(out, pixel.Pos{X: x, Y: y})
			}
		}
	}
	return out
}
