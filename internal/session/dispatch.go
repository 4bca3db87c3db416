package session

import (
	"strings"

	"github.com/ehrlich-b/multipixel/internal/codec"
	"github.com/ehrlich-b/multipixel/internal/pixel"
	"github.com/ehrlich-b/multipixel/internal/protoerr"
	"github.com/ehrlich-b/multipixel/internal/tool"
)

const maxMessageLen = 1024

// handleFrame decodes and dispatches one client frame under the session
// mutex (SPEC_FULL.md §4.8 "reader ... dispatches by command id under the
// session mutex").
func (s *Session) handleFrame(data []byte) error {
	frame, err := codec.DecodeClientFrame(data)
	if err != nil {
		return protoerr.WrapProtocol("malformed frame", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.Op != codec.ClientAnnounce && !s.announced {
		return protoerr.NewProtocol("frame before announce")
	}
	if frame.Op == codec.ClientAnnounce && s.announced {
		return protoerr.NewProtocol("duplicate announce")
	}

	switch frame.Op {
	case codec.ClientAnnounce:
		return s.handleAnnounce(frame.Announce)
	case codec.ClientMessage:
		return s.handleMessage(frame.Message)
	case codec.ClientPing:
		return nil
	case codec.ClientCursorPos:
		return s.handleCursorPos(pixel.Pos{X: frame.CursorPos.X, Y: frame.CursorPos.Y})
	case codec.ClientCursorDown:
		return s.handleCursorDown()
	case codec.ClientCursorUp:
		return s.handleCursorUp()
	case codec.ClientBoundary:
		return s.handleBoundary(frame.Boundary)
	case codec.ClientChunksReceived:
		return s.handleChunksReceived(frame.Count)
	case codec.ClientPreviewRequest:
		return s.handlePreviewRequest(frame.Preview)
	case codec.ClientToolType:
		return s.handleToolType(frame.ToolType)
	case codec.ClientToolColor:
		s.params.Color = pixel.RGB{R: frame.ToolColor.R, G: frame.ToolColor.G, B: frame.ToolColor.B}
		return nil
	case codec.ClientToolSize:
		s.params.Size = frame.ToolSize
		s.params.ClampSize()
		return nil
	case codec.ClientToolFlow:
		s.params.Flow = frame.ToolFlow
		return nil
	case codec.ClientUndo:
		return s.handleUndo()
	default:
		return protoerr.NewProtocol("unsupported opcode")
	}
}

func (s *Session) handleAnnounce(a codec.AnnounceMsg) error {
	if !validRoomName(a.Room) {
		return protoerr.NewProtocol("invalid room name")
	}
	if !validNickname(a.Nick) {
		return protoerr.NewProtocol("invalid nickname")
	}

	rm := s.srv.JoinRoom(lowerASCII(a.Room))
	nick := rm.Join(s, a.Nick)
	s.setNickname(nick)
	s.room = rm
	s.announced = true

	s.Enqueue(codec.EncodeYourId(uint16(s.ID)))
	for _, entry := range rm.Roster() {
		if entry.Handle == s.ID {
			continue
		}
		s.Enqueue(codec.EncodeUserCreate(uint16(entry.Handle), entry.Nick))
	}
	rm.Broadcast(codec.EncodeUserCreate(uint16(s.ID), nick), s.ID, true)
	return nil
}

func (s *Session) handleMessage(text string) error {
	if len(text) > maxMessageLen {
		return protoerr.NewProtocol("message too long")
	}
	if strings.HasPrefix(text, "/") {
		return s.handleCommand(strings.TrimPrefix(text, "/"))
	}
	s.room.Broadcast(codec.EncodeMessage(s.Nickname()+": "+text), s.ID, true)
	return nil
}

func (s *Session) handleToolType(v uint8) error {
	if v > uint8(tool.Line) {
		return protoerr.NewProtocol("invalid tool type")
	}
	s.params.Type = tool.Type(v)
	s.params.ClampSize()
	return nil
}

func (s *Session) handleChunksReceived(count uint32) error {
	prev := s.chunksReceived.Load()
	if count < prev {
		return protoerr.NewProtocol("non-monotonic chunks_received ack")
	}
	if count > s.chunksSent.Load() {
		return protoerr.NewProtocol("chunks_received ack exceeds chunks_sent")
	}
	s.chunksReceived.Store(count)
	return nil
}

func (s *Session) handlePreviewRequest(req codec.PreviewRequestMsg) error {
	data, err := s.room.PreviewSystem.RequestData(pixel.Pos{X: req.X, Y: req.Y}, req.Zoom)
	if err != nil {
		return protoerr.WrapStorage("preview request", err)
	}
	if data == nil {
		return nil
	}
	s.Enqueue(codec.EncodePreviewImage(req.X, req.Y, req.Zoom, data))
	return nil
}

func (s *Session) handleBoundary(b codec.BoundaryMsg) error {
	sx, sy, ex, ey := b.StartX, b.StartY, b.EndX, b.EndY
	if ex < sx {
		ex = sx
	}
	if ey < sy {
		ey = sy
	}
	if ex-sx > MaxBoundarySpan {
		ex = sx + MaxBoundarySpan
	}
	if ey-sy > MaxBoundarySpan {
		ey = sy + MaxBoundarySpan
	}
	s.boundary = Boundary{Set: true, StartX: sx, StartY: sy, EndX: ex, EndY: ey, Zoom: b.Zoom}
	return nil
}

func (s *Session) handleUndo() error {
	deltas := s.history.Undo()
	if len(deltas) == 0 {
		return nil
	}
	cache := newChunkCache(s.room)
	for _, d := range deltas {
		cache.SetPixel(d.Pos.X, d.Pos.Y, d.Old)
	}
	cache.Flush()
	return nil
}

func (s *Session) handleCursorDown() error {
	if s.cursorDown {
		return nil
	}
	s.cursorDown = true
	s.justClicked = true
	s.cursorPrev = s.cursor
	snap := s.history.Begin()
	s.snapshot = snap

	switch s.params.Type {
	case tool.Fill:
		s.applyFill(snap)
	case tool.Line:
		s.beginLine()
	default:
		s.applyStroke(s.cursor, s.cursor, snap)
	}
	return nil
}

func (s *Session) handleCursorPos(pos pixel.Pos) error {
	if s.cursorDown && pixel.ManhattanDistance(s.cursor, pos) > RateLimitManhattan {
		// Rate limit (SPEC_FULL.md §4.7): treat as griefing/lag and release
		// the cursor instead of painting the jump.
		s.finishGesture()
		s.cursorDown = false
		s.cursor = pos
		return nil
	}

	s.cursorPrev = s.cursor
	s.cursor = pos

	if !s.cursorDown {
		return nil
	}
	switch s.params.Type {
	case tool.Fill:
		// single-click only; drag is ignored (SPEC_FULL.md §4.7)
	case tool.Line:
		s.moveLine(pos)
	default:
		s.applyStroke(s.cursorPrev, pos, s.snapshot)
	}
	s.justClicked = false
	return nil
}

func (s *Session) handleCursorUp() error {
	if !s.cursorDown {
		return nil
	}
	s.cursorDown = false
	s.finishGesture()
	return nil
}

// finishGesture commits any in-progress Line overlay to the base and pushes
// the accumulated undo snapshot.
func (s *Session) finishGesture() {
	if s.toolState != nil && s.toolState.line != nil {
		s.commitLine(s.snapshot)
	}
	s.history.Push(s.snapshot)
	s.snapshot = nil
}
