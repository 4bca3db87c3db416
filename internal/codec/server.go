package codec

// Pixel is one entry of a pixel-pack frame: a local-to-chunk coordinate plus
// its new color.
type Pixel struct {
	X, Y    uint8
	R, G, B uint8
}

func EncodeMessage(text string) []byte {
	w := NewWriter()
	w.StringU16(text)
	return w.Finish(ServerMessage)
}

func EncodeYourId(id uint16) []byte {
	w := NewWriter()
	w.U16(id)
	return w.Finish(ServerYourId)
}

func EncodeKick(reason string) []byte {
	w := NewWriter()
	w.StringU16(reason)
	return w.Finish(ServerKick)
}

// EncodeChunkImage encodes a whole composited/raw chunk snapshot. raw is the
// uncompressed RGB buffer; it is LZ4-compressed here.
func EncodeChunkImage(x, y int32, raw []byte) []byte {
	compressed := CompressLZ4(raw)
	w := NewWriter()
	w.I32(x)
	w.I32(y)
	w.U32(uint32(len(raw)))
	w.Bytes32(compressed)
	return w.Finish(ServerChunkImage)
}

// EncodeChunkPixelPack encodes a batch of per-pixel updates within one
// chunk.
func EncodeChunkPixelPack(x, y int32, pixels []Pixel) []byte {
	raw := NewWriter()
	for _, p := range pixels {
		raw.U8(p.X)
		raw.U8(p.Y)
		raw.U8(p.R)
		raw.U8(p.G)
		raw.U8(p.B)
	}
	rawBytes := raw.buf.Bytes()
	compressed := CompressLZ4(rawBytes)

	w := NewWriter()
	w.I32(x)
	w.I32(y)
	w.U32(uint32(len(pixels)))
	w.U32(uint32(len(rawBytes)))
	w.Bytes32(compressed)
	return w.Finish(ServerChunkPixelPack)
}

func EncodeChunkCreate(x, y int32) []byte {
	w := NewWriter()
	w.I32(x)
	w.I32(y)
	return w.Finish(ServerChunkCreate)
}

func EncodeChunkRemove(x, y int32) []byte {
	w := NewWriter()
	w.I32(x)
	w.I32(y)
	return w.Finish(ServerChunkRemove)
}

func EncodePreviewImage(x, y int32, zoom uint8, compressed []byte) []byte {
	w := NewWriter()
	w.I32(x)
	w.I32(y)
	w.U8(zoom)
	w.Bytes32(compressed)
	return w.Finish(ServerPreviewImage)
}

func EncodeUserCreate(id uint16, nick string) []byte {
	w := NewWriter()
	w.U16(id)
	w.StringU8(nick)
	return w.Finish(ServerUserCreate)
}

func EncodeUserRemove(id uint16) []byte {
	w := NewWriter()
	w.U16(id)
	return w.Finish(ServerUserRemove)
}

func EncodeUserCursorPos(id uint16, x, y int32) []byte {
	w := NewWriter()
	w.U16(id)
	w.I32(x)
	w.I32(y)
	return w.Finish(ServerUserCursorPos)
}

func EncodeProcessingStatusText(text string) []byte {
	w := NewWriter()
	w.StringU16(text)
	return w.Finish(ServerProcessingStatusText)
}
