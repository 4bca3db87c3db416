package tool

import "github.com/ehrlich-b/multipixel/internal/pixel"

// HistoryMax is the maximum number of undo snapshots retained per session
// (SPEC_FULL.md §3, §4.7).
const HistoryMax = 50

// Snapshot records, for one paint gesture, every base pixel it replaced
// along with its prior color, deduplicated by position within the
// snapshot (only the first old color seen for a position is kept: later
// writes to the same pixel within one gesture must not overwrite the
// "undo" value).
type Snapshot struct {
	order []pixel.Pos
	old   map[pixel.Pos]pixel.RGB
}

func newSnapshot() *Snapshot {
	return &Snapshot{old: make(map[pixel.Pos]pixel.RGB)}
}

// Record stores pos's pre-paint color the first time it's seen in this
// snapshot.
func (s *Snapshot) Record(pos pixel.Pos, old pixel.RGB) {
	if _, ok := s.old[pos]; ok {
		return
	}
	s.old[pos] = old
	s.order = append(s.order, pos)
}

func (s *Snapshot) Empty() bool {
	return len(s.order) == 0
}

// History is a ring of at most HistoryMax snapshots.
type History struct {
	snapshots []*Snapshot
}

// Begin starts a new snapshot, to be filled via its Record method and
// finalized with Push once the gesture (CursorDown..CursorUp) completes.
func (h *History) Begin() *Snapshot {
	return newSnapshot()
}

// Push appends a completed snapshot, evicting the oldest if the ring is
// full. Empty snapshots (no pixels actually changed) are dropped.
func (h *History) Push(s *Snapshot) {
	if s == nil || s.Empty() {
		return
	}
	h.snapshots = append(h.snapshots, s)
	if len(h.snapshots) > HistoryMax {
		h.snapshots = h.snapshots[len(h.snapshots)-HistoryMax:]
	}
}

// Len reports the number of retained snapshots.
func (h *History) Len() int {
	return len(h.snapshots)
}

// Undo pops the most recent snapshot and returns its (position, original
// color) pairs in the order they were first recorded, for the caller to
// write back into the base layer. Undo itself does not push new history.
func (h *History) Undo() []PixelDelta {
	if len(h.snapshots) == 0 {
		return nil
	}
	last := h.snapshots[len(h.snapshots)-1]
	h.snapshots = h.snapshots[:len(h.snapshots)-1]

	out := make([]PixelDelta, len(last.order))
	for i, pos := range last.order {
		out[i] = PixelDelta{Pos: pos, Old: last.old[pos]}
	}
	return out
}
