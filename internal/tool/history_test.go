package tool

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

func TestSnapshotDedupesByPosition(t *testing.T) {
	s := newSnapshot()
	p := pixel.Pos{X: 1, Y: 1}
	s.Record(p, pixel.RGB{R: 1})
	s.Record(p, pixel.RGB{R: 2}) // second write to same pos: first color wins
	if len(s.order) != 1 {
		t.Fatalf("snapshot has %d entries for one position, want 1", len(s.order))
	}
	if s.old[p] != (pixel.RGB{R: 1}) {
		t.Errorf("snapshot kept %v, want the first-recorded color", s.old[p])
	}
}

func TestHistoryUndoLaw(t *testing.T) {
	h := &History{}
	s := h.Begin()
	s.Record(pixel.Pos{X: 0, Y: 0}, pixel.RGB{R: 10})
	s.Record(pixel.Pos{X: 1, Y: 0}, pixel.RGB{R: 20})
	h.Push(s)

	if h.Len() != 1 {
		t.Fatalf("History.Len() = %d, want 1", h.Len())
	}

	deltas := h.Undo()
	if len(deltas) != 2 {
		t.Fatalf("Undo() returned %d deltas, want 2", len(deltas))
	}
	want := map[pixel.Pos]pixel.RGB{
		{X: 0, Y: 0}: {R: 10},
		{X: 1, Y: 0}: {R: 20},
	}
	for _, d := range deltas {
		if d.Old != want[d.Pos] {
			t.Errorf("delta at %v = %v, want %v", d.Pos, d.Old, want[d.Pos])
		}
	}
	if h.Len() != 0 {
		t.Fatalf("History.Len() after Undo = %d, want 0", h.Len())
	}
}

func TestHistoryUndoOnEmptyReturnsNil(t *testing.T) {
	h := &History{}
	if got := h.Undo(); got != nil {
		t.Fatalf("Undo on empty history = %v, want nil", got)
	}
}

func TestHistoryPushDropsEmptySnapshot(t *testing.T) {
	h := &History{}
	h.Push(h.Begin()) // no Record calls: empty
	if h.Len() != 0 {
		t.Fatalf("History.Len() = %d, want 0 (empty snapshot should be dropped)", h.Len())
	}
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	h := &History{}
	for i := 0; i < HistoryMax+5; i++ {
		s := h.Begin()
		s.Record(pixel.Pos{X: int32(i), Y: 0}, pixel.RGB{R: uint8(i)})
		h.Push(s)
	}
	if h.Len() != HistoryMax {
		t.Fatalf("History.Len() = %d, want %d", h.Len(), HistoryMax)
	}
	// the most recent push should still be undoable first.
	deltas := h.Undo()
	if len(deltas) != 1 || deltas[0].Pos.X != int32(HistoryMax+4) {
		t.Fatalf("Undo() after ring overflow = %+v, want the last pushed snapshot", deltas)
	}
}
