package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// MaxStringLen bounds length-prefixed strings; anything longer is a protocol
// violation (SPEC_FULL.md §7 ProtocolError: "over-long message").
const MaxStringLen = 1 << 15

// Reader sequentially decodes fields from a single frame's payload. The first
// error encountered sticks; callers should check Err() once at the end
// rather than after every field.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.fail(fmt.Errorf("codec: truncated frame: need %d bytes at offset %d, have %d", n, r.off, len(r.buf)))
		return false
	}
	return true
}

func (r *Reader) U8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// StringU8 reads a u8-length-prefixed UTF-8 string.
func (r *Reader) StringU8() string {
	n := int(r.U8())
	return r.stringBytes(n)
}

// StringU16 reads a u16-length-prefixed UTF-8 string.
func (r *Reader) StringU16() string {
	n := int(r.U16())
	if n > MaxStringLen {
		r.fail(fmt.Errorf("codec: string length %d exceeds max %d", n, MaxStringLen))
		return ""
	}
	return r.stringBytes(n)
}

func (r *Reader) stringBytes(n int) string {
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	if !isValidUTF8(s) {
		r.fail(fmt.Errorf("codec: invalid utf8 string"))
		return ""
	}
	return s
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Remaining reads all bytes left in the frame.
func (r *Reader) Remaining() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

// Writer sequentially encodes a frame's payload, big-endian.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) U16(v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) U32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *Writer) I32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

func (w *Writer) StringU8(s string) {
	w.U8(uint8(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) StringU16(s string) {
	w.U16(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) Bytes(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) Bytes16(b []byte) {
	w.U16(uint16(len(b)))
	w.buf.Write(b)
}

func (w *Writer) Bytes32(b []byte) {
	w.U32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *Writer) Finish(op ServerOpcode) []byte {
	out := make([]byte, 2+w.buf.Len())
	binary.BigEndian.PutUint16(out, uint16(op))
	copy(out[2:], w.buf.Bytes())
	return out
}
