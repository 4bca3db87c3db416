package tool

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

func TestStepPointsAlwaysIncludesEndpoint(t *testing.T) {
	prev := pixel.Pos{X: 0, Y: 0}
	cur := pixel.Pos{X: 100, Y: 0}
	pts := StepPoints(prev, cur, BrushStep(2))
	if len(pts) == 0 {
		t.Fatal("expected at least one step point")
	}
	if pts[len(pts)-1] != cur {
		t.Fatalf("last step point = %v, want %v", pts[len(pts)-1], cur)
	}
}

func TestStepPointsZeroDistanceReturnsCurrent(t *testing.T) {
	p := pixel.Pos{X: 5, Y: 5}
	pts := StepPoints(p, p, 3)
	if len(pts) != 1 || pts[0] != p {
		t.Fatalf("StepPoints with no movement = %v, want [%v]", pts, p)
	}
}

func TestShapeCacheReturnsConsistentShapeForSameSize(t *testing.T) {
	c := NewShapeCache()
	a := c.Circle(8)
	b := c.Circle(8)
	if len(a.Filled) != len(b.Filled) {
		t.Fatal("ShapeCache should return the same cached shape for repeated calls")
	}
}

func TestCircleShapeFilledContainsOrigin(t *testing.T) {
	c := NewShapeCache()
	s := c.Circle(10)
	found := false
	for _, p := range s.Filled {
		if p == (pixel.Pos{}) {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("a circle brush shape should always cover its own center")
	}
}

func TestSquareShapeOutlineIsSubsetOfFilled(t *testing.T) {
	c := NewShapeCache()
	s := c.Square(8)
	filled := make(map[pixel.Pos]bool, len(s.Filled))
	for _, p := range s.Filled {
		filled[p] = true
	}
	for _, p := range s.Outline {
		if !filled[p] {
			t.Fatalf("outline point %v is not in the filled set", p)
		}
	}
}

func TestStampBrushUsesFilledOnFirstSampleOnly(t *testing.T) {
	cache := newMemCache()
	shape := &Shape{
		Filled:  []pixel.Pos{{X: 0, Y: 0}, {X: 1, Y: 0}},
		Outline: []pixel.Pos{{X: 0, Y: 0}},
	}
	color := pixel.RGB{R: 9}
	StampBrush(cache, shape, color, []pixel.Pos{{X: 0, Y: 0}, {X: 10, Y: 0}})

	if got := cache.GetPixel(1, 0); got != color {
		t.Errorf("first sample should use the filled footprint: (1,0) = %v", got)
	}
	if got := cache.GetPixel(11, 0); got != pixel.White {
		t.Errorf("later samples should use outline only: (11,0) = %v, want untouched", got)
	}
	if got := cache.GetPixel(10, 0); got != color {
		t.Errorf("outline point at second sample should be painted: (10,0) = %v", got)
	}
}
