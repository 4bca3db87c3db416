package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v3"
)

// CompressLZ4 block-compresses raw. The caller must separately record
// len(raw); decompression requires it. Always returns a genuine LZ4 block:
// CompressBlock signals "wouldn't shrink" by returning n==0, and since
// neither the wire frames nor the stored blob carry a spare tag bit to mark
// "this blob is raw, not LZ4", that case is encoded by hand as a single
// literal-only sequence rather than falling back to untagged raw bytes.
func CompressLZ4(raw []byte) []byte {
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))
	ht := make([]int, 1<<16)
	n, err := lz4.CompressBlock(raw, buf, ht)
	if err != nil || n == 0 {
		return literalBlock(raw)
	}
	return buf[:n]
}

// literalBlock encodes raw as the single trailing literal-only sequence the
// LZ4 block format uses to represent a run of bytes with no match: a token
// byte (literal length in the high nibble, extended past 15 with following
// 0xFF-terminated bytes) followed directly by the literal bytes, with no
// offset or match-length fields at all.
func literalBlock(raw []byte) []byte {
	n := len(raw)
	var token byte
	var extra []byte
	if n < 15 {
		token = byte(n) << 4
	} else {
		token = 0xF0
		rem := n - 15
		for rem >= 255 {
			extra = append(extra, 255)
			rem -= 255
		}
		extra = append(extra, byte(rem))
	}
	out := make([]byte, 0, 1+len(extra)+n)
	out = append(out, token)
	out = append(out, extra...)
	out = append(out, raw...)
	return out
}

// DecompressLZ4 block-decompresses compressed into a buffer of exactly
// rawSize bytes. It fails closed: any size mismatch or corruption is an
// error, never a partial/garbage result.
func DecompressLZ4(compressed []byte, rawSize int) ([]byte, error) {
	dst := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(compressed, dst)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 decompress: %w", err)
	}
	if n != rawSize {
		return nil, fmt.Errorf("codec: lz4 decompress: got %d bytes, want %d", n, rawSize)
	}
	return dst, nil
}
