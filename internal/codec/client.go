package codec

import (
	"encoding/binary"
	"fmt"
)

// ClientFrame is the decoded form of one client->server WebSocket message.
// Exactly one of the typed fields is meaningful, selected by Op.
type ClientFrame struct {
	Op ClientOpcode

	Message   string
	Announce  AnnounceMsg
	CursorPos PosMsg
	Boundary  BoundaryMsg
	Count     uint32 // ChunksReceived
	Preview   PreviewRequestMsg
	ToolType  uint8
	ToolColor pixelColor
	ToolSize  uint8
	ToolFlow  float32
}

type pixelColor struct {
	R, G, B uint8
}

type AnnounceMsg struct {
	Room string
	Nick string
}

type PosMsg struct {
	X, Y int32
}

type BoundaryMsg struct {
	StartX, StartY int32
	EndX, EndY     int32
	Zoom           float32
}

type PreviewRequestMsg struct {
	X, Y int32
	Zoom uint8
}

// DecodeClientFrame parses a single binary WebSocket message. msg must
// include the leading u16 opcode.
func DecodeClientFrame(msg []byte) (ClientFrame, error) {
	if len(msg) < 2 {
		return ClientFrame{}, fmt.Errorf("codec: frame shorter than opcode field")
	}
	r := NewReader(msg[2:])
	op := ClientOpcode(binary.BigEndian.Uint16(msg))

	var f ClientFrame
	f.Op = op

	switch op {
	case ClientMessage:
		f.Message = r.StringU16()
	case ClientAnnounce:
		f.Announce.Room = r.StringU8()
		f.Announce.Nick = r.StringU8()
	case ClientPing:
		// no payload
	case ClientCursorPos:
		f.CursorPos.X = r.I32()
		f.CursorPos.Y = r.I32()
	case ClientCursorDown, ClientCursorUp:
		// no payload
	case ClientBoundary:
		f.Boundary.StartX = r.I32()
		f.Boundary.StartY = r.I32()
		f.Boundary.EndX = r.I32()
		f.Boundary.EndY = r.I32()
		f.Boundary.Zoom = r.F32()
	case ClientChunksReceived:
		f.Count = r.U32()
	case ClientPreviewRequest:
		f.Preview.X = r.I32()
		f.Preview.Y = r.I32()
		f.Preview.Zoom = r.U8()
	case ClientToolType:
		f.ToolType = r.U8()
	case ClientToolColor:
		f.ToolColor.R = r.U8()
		f.ToolColor.G = r.U8()
		f.ToolColor.B = r.U8()
	case ClientToolSize:
		f.ToolSize = r.U8()
	case ClientToolFlow:
		f.ToolFlow = r.F32()
	case ClientUndo:
		// no payload
	default:
		return ClientFrame{}, fmt.Errorf("codec: unknown client opcode %d", op)
	}

	if err := r.Err(); err != nil {
		return ClientFrame{}, err
	}
	return f, nil
}
