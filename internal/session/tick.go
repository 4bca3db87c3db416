package session

import (
	"context"
	"time"

	"github.com/ehrlich-b/multipixel/internal/codec"
)

const tickInterval = 50 * time.Millisecond

// tickLoop is the session's third cooperative goroutine (SPEC_FULL.md §4.8):
// every 50ms it broadcasts the cursor if it moved, checks the viewport
// boundary, and every 20th tick sweeps chunks that have aged out of view.
func (s *Session) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.announced {
		return
	}

	s.tickCount++

	// tick_tool_state: a no-op here, since CursorPos already progresses the
	// Line overlay synchronously (SPEC_FULL.md §4.7); kept as its own step
	// for fidelity with the documented tick sequence.

	s.broadcastCursorIfMoved()
	s.tickBoundaryCheck()
	if s.tickCount%20 == 0 {
		s.tickChunksCleanup()
	}
}

func (s *Session) broadcastCursorIfMoved() {
	if s.cursor == s.cursorLastSent {
		return
	}
	s.cursorLastSent = s.cursor
	if s.room != nil {
		s.room.Broadcast(codec.EncodeUserCursorPos(uint16(s.ID), s.cursor.X, s.cursor.Y), s.ID, true)
	}
}
