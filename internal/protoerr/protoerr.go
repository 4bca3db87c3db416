// Package protoerr implements the five error kinds of SPEC_FULL.md §7:
// ProtocolError, TransportError, StorageError, DecompressionError, and
// InternalError. Session's top-level frame handler type-switches on these
// to decide whether a kick, a silent close, or a logged-and-continue is
// the right response.
package protoerr

import "fmt"

// Protocol wraps a client-caused framing violation: unknown opcode,
// truncated frame, invalid UTF-8, an out-of-range value, an out-of-order
// Announce, a non-monotonic ChunksReceived ack, or an over-long message.
// Action: kick with "User error: ..." and close.
type Protocol struct {
	Reason string
	Err    error
}

func (e *Protocol) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *Protocol) Unwrap() error { return e.Err }

func NewProtocol(reason string) *Protocol { return &Protocol{Reason: reason} }

func WrapProtocol(reason string, err error) *Protocol { return &Protocol{Reason: reason, Err: err} }

// Transport wraps a socket I/O failure. Action: close the session without a
// kick packet; cleanup still runs.
type Transport struct {
	Err error
}

func (e *Transport) Error() string  { return fmt.Sprintf("transport error: %v", e.Err) }
func (e *Transport) Unwrap() error  { return e.Err }
func WrapTransport(err error) *Transport { return &Transport{Err: err} }

// Storage wraps a database I/O failure. Action: log and surface to the
// caller; autosave logs and continues, a client-triggered read returns
// nothing to the client.
type Storage struct {
	Op  string
	Err error
}

func (e *Storage) Error() string { return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err) }
func (e *Storage) Unwrap() error { return e.Err }
func WrapStorage(op string, err error) *Storage { return &Storage{Op: op, Err: err} }

// Decompression wraps a corrupted tile. Action: log, substitute a white
// tile.
type Decompression struct {
	Err error
}

func (e *Decompression) Error() string { return fmt.Sprintf("decompression error: %v", e.Err) }
func (e *Decompression) Unwrap() error { return e.Err }
func WrapDecompression(err error) *Decompression { return &Decompression{Err: err} }

// Internal wraps an invariant violation. Action: kick with a generic
// message; propagate upward for the top-level logger.
type Internal struct {
	Reason string
}

func (e *Internal) Error() string { return fmt.Sprintf("internal error: %s", e.Reason) }

func NewInternal(reason string) *Internal { return &Internal{Reason: reason} }
