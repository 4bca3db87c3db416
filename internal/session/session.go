// Package session implements the per-connection state machine (SPEC_FULL.md
// §4.8): WebSocket frame dispatch, viewport-driven chunk streaming with
// backpressure, the tool pipeline, undo history, and admin/chat commands.
// Grounded on the teacher's internal/relay/handler.go WebSocket accept loop
// shape (three cooperating goroutines per connection: reader, sender,
// ticker) generalized from JSON envelopes to the binary codec frames of
// internal/codec.
package session

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/ehrlich-b/multipixel/internal/chunk"
	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/compositor"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/protoerr"
	"github.com/ehrlich-b/multipixel/internal/room"
	"github.com/ehrlich-b/multipixel/internal/tool"
)

// BackpressureWindow is the maximum number of un-acked ChunkImage frames a
// session may have outstanding (SPEC_FULL.md §5).
const BackpressureWindow = 20

// BoundaryZoomMin is BOUNDARY_ZOOM_MIN: below this zoom the viewport is
// considered too far out to stream individual chunks.
const BoundaryZoomMin = 0.45

// RateLimitManhattan is the Manhattan distance between consecutive cursor
// samples above which the cursor auto-releases (SPEC_FULL.md §4.7).
const RateLimitManhattan = 250

// MaxBoundarySpan caps (end-start) per axis to this many chunks
// (SPEC_FULL.md §4.8).
const MaxBoundarySpan = 20

const (
	roomNameMin, roomNameMax = 3, 24
	nickMin, nickMax         = 3, 24
)

// Conn is the subset of *websocket.Conn a Session needs; narrowed to an
// interface so tests can substitute a fake transport.
type Conn interface {
	Read(ctx context.Context) (int, []byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
}

// Boundary is the client's current viewport rectangle, in chunk space, plus
// its zoom level.
type Boundary struct {
	Set            bool
	StartX, StartY int32
	EndX, EndY     int32
	Zoom           float32
}

type linkedChunk struct {
	pos         pixel.Pos
	chunk       *chunk.Chunk
	outOfBounds int
}

// Session is one client connection's full state (SPEC_FULL.md §3 "Session
// entity").
type Session struct {
	ID   compositor.SessionHandle
	conn Conn
	srv  AdminAuthority

	nickMu sync.Mutex // short lock per SPEC_FULL.md §4.9, separate from mu
	nick   string

	mu sync.Mutex // guards everything below except nick, kicked, counters

	announced bool
	room      *room.Room

	cursor, cursorPrev, cursorLastSent pixel.Pos
	cursorDown                         bool
	justClicked                        bool

	boundary Boundary
	linked   []*linkedChunk

	params       tool.Params
	toolState    *toolState
	history      tool.History
	snapshot     *tool.Snapshot // current gesture's in-progress undo snapshot, nil when cursor is up
	layerGen     uint64
	adminMode    bool

	kicked atomic.Bool

	chunksSent     atomic.Uint32
	chunksReceived atomic.Uint32

	outbound chan []byte
	limiter  *rate.Limiter
	rng      *rand.Rand

	tickCount uint64
}

// toolState holds the Line tool's transient overlay state; nil when no
// gesture is in progress or the active tool isn't Line.
type toolState struct {
	line *tool.LineState
}

// AdminAuthority is the subset of the server the session needs to validate
// an admin password and run admin-only operations it cannot itself host
// (SPEC_FULL.md §4.8 "admin <password>", "process_preview_system").
type AdminAuthority interface {
	AdminPasswordHash() []byte
	ProcessPreviewSystemAll(roomName string) error
	Kick(h compositor.SessionHandle, reason string)
	// JoinRoom resolves (creating if necessary) the room registered under
	// name, used by the Announce handler (SPEC_FULL.md §4.8).
	JoinRoom(name string) *room.Room
}

// New constructs a session bound to conn, not yet announced into any room.
func New(id compositor.SessionHandle, conn Conn, srv AdminAuthority) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		srv:      srv,
		params:   tool.DefaultParams(),
		outbound: make(chan []byte, 256),
		limiter:  rate.NewLimiter(rate.Limit(200), 400),
		rng:      rand.New(rand.NewSource(int64(id) + time.Now().UnixNano())),
	}
	return s
}

// Enqueue implements chunk.Outbound and room.Member: a non-blocking send to
// the session's outbound queue, dropping (and logging) on overflow rather
// than stalling the producer (SPEC_FULL.md §5 "Outbound queue").
func (s *Session) Enqueue(frame []byte) {
	select {
	case s.outbound <- frame:
	default:
		logger.Warn("session: outbound queue full, dropping frame", "session", s.ID)
	}
}

// Handle implements room.Member.
func (s *Session) Handle() compositor.SessionHandle { return s.ID }

// Nickname implements room.Member, reading the short dedicated mutex
// instead of the main session lock (SPEC_FULL.md §4.9).
func (s *Session) Nickname() string {
	s.nickMu.Lock()
	defer s.nickMu.Unlock()
	return s.nick
}

func (s *Session) setNickname(n string) {
	s.nickMu.Lock()
	s.nick = n
	s.nickMu.Unlock()
}

// Kicked reports whether the session has been (or is being) kicked.
func (s *Session) Kicked() bool { return s.kicked.Load() }

// Kick marks the session kicked and queues a Kick frame. Idempotent
// (SPEC_FULL.md §7): a second call is a no-op.
func (s *Session) Kick(reason string) {
	if !s.kicked.CompareAndSwap(false, true) {
		return
	}
	s.Enqueue(codec.EncodeKick(reason))
}

// Run drives the session's three cooperating goroutines (reader, sender,
// ticker) until ctx is cancelled or the connection fails, then performs
// cleanup. It blocks until every goroutine has exited.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.senderLoop(ctx) }()
	go func() { defer wg.Done(); s.tickLoop(ctx); }()

	s.readerLoop(ctx)
	cancel()
	wg.Wait()
	s.cleanup()
}

func (s *Session) senderLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drainOutbound()
			return
		case frame := <-s.outbound:
			if err := s.conn.Write(ctx, frame); err != nil {
				return
			}
		}
	}
}

// drainOutbound flushes any already-queued frames (e.g. a Kick) after
// cancellation, per SPEC_FULL.md §4.10 "kicks all sessions ... flushing
// their sender task".
func (s *Session) drainOutbound() {
	writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case frame := <-s.outbound:
			s.conn.Write(writeCtx, frame)
		default:
			return
		}
	}
}

func (s *Session) readerLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		if !s.limiter.Allow() {
			continue // per-connection flood guard (SPEC_FULL.md §11); does not kick, just sheds load
		}
		if err := s.handleFrame(data); err != nil {
			if se, ok := err.(*protoerr.Storage); ok {
				// StorageError: logged, the client gets nothing back, and the
				// session goes on.
				logger.Error("session: storage error", "session", s.ID, "err", se)
				continue
			}
			s.handleError(err)
			return
		}
	}
}

func (s *Session) handleError(err error) {
	switch e := err.(type) {
	case *protoerr.Protocol:
		logger.Info("session: protocol error", "session", s.ID, "err", e)
		s.Kick("User error: " + e.Reason)
	case *protoerr.Internal:
		logger.Error("session: internal error", "session", s.ID, "err", e)
		s.Kick("Internal server error")
	case *protoerr.Transport:
		logger.Debug("session: transport error", "session", s.ID, "err", e)
	default:
		logger.Error("session: unhandled error", "session", s.ID, "err", err)
	}
}

func (s *Session) cleanup() {
	s.mu.Lock()
	rm := s.room
	linked := s.linked
	s.linked = nil
	s.mu.Unlock()

	for _, lc := range linked {
		lc.chunk.UnlinkSession(s.ID)
	}
	if rm != nil {
		rm.Broadcast(codec.EncodeUserRemove(uint16(s.ID)), s.ID, true)
		rm.Leave(s.ID)
	}
	s.conn.Close("session closed")
}

// validRoomName reports whether name meets SPEC_FULL.md §4.8's room-name
// rules: ASCII alphanumeric, length in [3,24].
func validRoomName(name string) bool {
	if len(name) < roomNameMin || len(name) > roomNameMax {
		return false
	}
	for _, r := range name {
		if r > unicode.MaxASCII || !isAlnumASCII(r) {
			return false
		}
	}
	return true
}

func isAlnumASCII(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// validNickname reports whether nick meets SPEC_FULL.md §4.8's nickname
// rules: Unicode alphanumeric plus '_'/'-', length in [3,24] runes.
func validNickname(nick string) bool {
	n := 0
	for _, r := range nick {
		n++
		if n > nickMax {
			return false
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return false
		}
	}
	return n >= nickMin
}

// checkAdminPassword compares candidate against the server-wide admin
// password hash using a constant-time bcrypt comparison (SPEC_FULL.md §11).
func checkAdminPassword(hash []byte, candidate string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
}

// lowerASCII case-folds a room name to lowercase with strings.ToLower; room
// names are ASCII-only, so this is a plain ASCII fold.
func lowerASCII(s string) string {
	return strings.ToLower(s)
}
