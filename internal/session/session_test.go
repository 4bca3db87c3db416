package session

import (
	"testing"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"golang.org/x/crypto/bcrypt"
)

func newTestSession() *Session {
	return New(1, nil, nil)
}

func TestValidRoomName(t *testing.T) {
	cases := map[string]bool{
		"ab":                     false, // too short
		"abc":                    true,
		"Alpha1":                 true,
		"this-name-is-too-long-for-a-room": false,
		"has space":               false,
		"has_underscore":          false,
	}
	for name, want := range cases {
		if got := validRoomName(name); got != want {
			t.Errorf("validRoomName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidNickname(t *testing.T) {
	cases := map[string]bool{
		"ab":        false,
		"bob":       true,
		"bob_the-2": true,
		"has space": false,
		"x":         false,
	}
	for nick, want := range cases {
		if got := validNickname(nick); got != want {
			t.Errorf("validNickname(%q) = %v, want %v", nick, got, want)
		}
	}
}

func TestCheckAdminPasswordEmptyHashAlwaysFails(t *testing.T) {
	if checkAdminPassword(nil, "anything") {
		t.Fatal("empty hash should never authenticate")
	}
}

func TestCheckAdminPasswordMatchesHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword: %v", err)
	}
	if !checkAdminPassword(hash, "secret") {
		t.Fatal("expected matching password to authenticate")
	}
	if checkAdminPassword(hash, "wrong") {
		t.Fatal("expected non-matching password to fail")
	}
}

func TestHandleBoundaryCapsSpanTo20Chunks(t *testing.T) {
	s := newTestSession()
	s.announced = true
	err := s.handleBoundary(codec.BoundaryMsg{StartX: 0, StartY: 0, EndX: 1000, EndY: 1000, Zoom: 1})
	if err != nil {
		t.Fatalf("handleBoundary: %v", err)
	}
	if s.boundary.EndX-s.boundary.StartX != MaxBoundarySpan {
		t.Errorf("EndX-StartX = %d, want %d", s.boundary.EndX-s.boundary.StartX, MaxBoundarySpan)
	}
	if s.boundary.EndY-s.boundary.StartY != MaxBoundarySpan {
		t.Errorf("EndY-StartY = %d, want %d", s.boundary.EndY-s.boundary.StartY, MaxBoundarySpan)
	}
}

func TestHandleBoundaryClampsNegativeSpanToStart(t *testing.T) {
	s := newTestSession()
	s.announced = true
	if err := s.handleBoundary(codec.BoundaryMsg{StartX: 5, StartY: 5, EndX: 2, EndY: 2, Zoom: 1}); err != nil {
		t.Fatalf("handleBoundary: %v", err)
	}
	if s.boundary.EndX != s.boundary.StartX || s.boundary.EndY != s.boundary.StartY {
		t.Errorf("negative span not clamped: boundary = %+v", s.boundary)
	}
}

func TestHandleChunksReceivedRejectsNonMonotonic(t *testing.T) {
	s := newTestSession()
	s.chunksSent.Store(10)
	if err := s.handleChunksReceived(5); err != nil {
		t.Fatalf("handleChunksReceived(5): %v", err)
	}
	if err := s.handleChunksReceived(3); err == nil {
		t.Fatal("expected a protocol error for a non-monotonic ack")
	}
}

func TestHandleChunksReceivedRejectsExceedingSent(t *testing.T) {
	s := newTestSession()
	s.chunksSent.Store(5)
	if err := s.handleChunksReceived(6); err == nil {
		t.Fatal("expected a protocol error for an ack exceeding chunks_sent")
	}
}

func TestInBoundaryFalseBelowZoomMin(t *testing.T) {
	s := newTestSession()
	s.boundary = Boundary{Set: true, StartX: -5, StartY: -5, EndX: 5, EndY: 5, Zoom: BoundaryZoomMin}
	if s.inBoundary(pixel.Pos{}) {
		t.Fatal("inBoundary should be false at or below BoundaryZoomMin")
	}
}
