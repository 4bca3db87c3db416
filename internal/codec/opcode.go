package codec

// ClientOpcode identifies a client->server frame. Wire format: u16 big-endian
// opcode followed by opcode-specific fields, per SPEC_FULL.md §4.1.
type ClientOpcode uint16

const (
	ClientMessage ClientOpcode = iota
	ClientAnnounce
	ClientPing
	ClientCursorPos
	ClientCursorDown
	ClientCursorUp
	ClientBoundary
	ClientChunksReceived
	ClientPreviewRequest
	ClientToolType
	ClientToolColor
	ClientToolSize
	ClientToolFlow
	ClientUndo
)

// ServerOpcode identifies a server->client frame.
type ServerOpcode uint16

const (
	ServerMessage ServerOpcode = iota
	ServerYourId
	ServerKick
	ServerChunkImage
	ServerChunkPixelPack
	ServerChunkCreate
	ServerChunkRemove
	ServerPreviewImage
	ServerUserCreate
	ServerUserRemove
	ServerUserCursorPos
	ServerProcessingStatusText
)
