// ABOUTME: Length-prefixed framing codec for byte-oriented streams
// ABOUTME: Preserves message boundaries over TCP with a u32 little-endian length header
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds the length header accepted by Decode. A sender never
// emits a larger frame; a receiver treats a larger declared length as a
// protocol violation rather than allocating on attacker-controlled input.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MiB

const lengthHeaderSize = 4

// ErrPayloadTooLarge is returned by Encode when the payload exceeds MaxFrameSize.
var ErrPayloadTooLarge = errors.New("frame: payload exceeds max frame size")

// ErrFrameTooLarge is returned by Decode when the declared frame length
// exceeds MaxFrameSize. The payload buffer is never allocated in this case.
var ErrFrameTooLarge = errors.New("frame: declared length exceeds max frame size")

// ErrConnectionClosed is returned by Decode when the stream ends cleanly
// before a complete frame (header or payload) has been read. It is distinct
// from a frame-level protocol error: it means the peer went away in an
// orderly fashion, not that it sent something malformed.
var ErrConnectionClosed = errors.New("frame: connection closed before frame completed")

// Encode writes one length-prefixed frame containing payload to w. Both the
// length header and the payload are written to the same destination; short
// writes are retried internally by io.Writer composition (Write implementations
// used here are expected to behave like net.Conn: no silent truncation).
func Encode(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	var header [lengthHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("frame: writing length header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("frame: writing payload: %w", err)
	}
	return nil
}

// Decode reads exactly one frame from r, returning its payload. buf, if
// non-nil and large enough, is reused to avoid an allocation per frame; the
// returned slice aliases buf when it was reused.
func Decode(r io.Reader, buf []byte) ([]byte, error) {
	var header [lengthHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, mapReadError(err, "reading frame length")
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, length)
	}

	if cap(buf) < int(length) {
		buf = make([]byte, length)
	} else {
		buf = buf[:length]
	}
	if length == 0 {
		return buf, nil
	}

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, mapReadError(err, "reading frame payload")
	}
	return buf, nil
}

// AppendFrame appends the length-prefixed encoding of payload to dst and
// returns the result, without ever allocating an io.Writer. Broadcasting the
// same framed bytes to many connections this way builds the frame once per
// message rather than once per connection.
func AppendFrame(dst []byte, payload []byte) []byte {
	var header [lengthHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	dst = append(dst, header[:]...)
	dst = append(dst, payload...)
	return dst
}

func mapReadError(err error, context string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: %v", ErrConnectionClosed, context, err)
	}
	return fmt.Errorf("frame: %s: %w", context, err)
}
