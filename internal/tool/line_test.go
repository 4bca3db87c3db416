package tool

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/pixel"
)

func TestLineStateRecomputeClearsStalePixels(t *testing.T) {
	ls := NewLineState(pixel.Pos{X: 0, Y: 0}, compositor.LayerID{Generation: 1, Session: 1})

	_, painted1 := ls.Recompute(pixel.Pos{X: 10, Y: 0}, 1)
	if len(painted1) == 0 {
		t.Fatal("first Recompute should paint at least the seed pixel")
	}

	cleared, painted2 := ls.Recompute(pixel.Pos{X: 0, Y: 0}, 1)
	if len(painted2) == 0 {
		t.Fatal("second Recompute should paint the new (shorter) line")
	}
	if len(cleared) == 0 {
		t.Fatal("retracting the line should clear pixels no longer covered")
	}
	for _, p := range cleared {
		if ls.Affected[p] {
			t.Errorf("cleared pixel %v should not be in the new affected set", p)
		}
	}
}

func TestLineStateAffectedSetHasNoDuplicatesAcrossSteps(t *testing.T) {
	ls := NewLineState(pixel.Pos{}, compositor.LayerID{Generation: 1, Session: 1})
	ls.Recompute(pixel.Pos{X: 20, Y: 20}, 4)
	seen := make(map[pixel.Pos]bool, len(ls.Affected))
	for p := range ls.Affected {
		if seen[p] {
			t.Fatalf("duplicate position %v in Affected set", p)
		}
		seen[p] = true
	}
}

func TestLineStateZeroLengthLineStillCoversSeed(t *testing.T) {
	ls := NewLineState(pixel.Pos{X: 5, Y: 5}, compositor.LayerID{Generation: 1, Session: 1})
	_, painted := ls.Recompute(pixel.Pos{X: 5, Y: 5}, 1)
	if !ls.Affected[pixel.Pos{X: 5, Y: 5}] {
		t.Fatal("a zero-length line should still cover its own start point")
	}
	if len(painted) == 0 {
		t.Fatal("expected at least one painted pixel for a zero-length line")
	}
}
