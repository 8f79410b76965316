package wire

import (
	"fmt"
	"io"

	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
)

// MaxPayloadSize bounds a single frame's JSON payload, guarding against a
// corrupt or hostile length field causing an unbounded allocation.
const MaxPayloadSize = 64 * 1024 * 1024

// WriteFrame writes one frame (token + length-prefixed payload) to w. It is
// the caller's responsibility to serialize writes across goroutines (the
// Connection's writer lock, per the concurrency model) — WriteFrame itself
// performs two Write calls and is not atomic against interleaving.
func WriteFrame(w io.Writer, token uint64, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &docqlerrors.ProtocolError{Reason: fmt.Sprintf("payload of %d bytes exceeds max frame size", len(payload))}
	}
	hdr := EncodeHeader(make([]byte, 0, HeaderSize), token, uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return &docqlerrors.IoError{Op: "write", Err: err}
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return &docqlerrors.IoError{Op: "write", Err: err}
	}
	return nil
}

// ReadFrame reads one frame (token + length-prefixed payload) from r.
func ReadFrame(r io.Reader) (token uint64, payload []byte, err error) {
	var hdrBuf [HeaderSize]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return 0, nil, &docqlerrors.IoError{Op: "read", Err: err}
	}
	hdr, err := DecodeHeader(hdrBuf[:])
	if err != nil {
		return 0, nil, &docqlerrors.ProtocolError{Reason: "malformed frame header", Err: err}
	}
	if hdr.Length > MaxPayloadSize {
		return 0, nil, &docqlerrors.ProtocolError{Reason: fmt.Sprintf("frame length %d exceeds max frame size", hdr.Length)}
	}
	payload = make([]byte, hdr.Length)
	if hdr.Length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, &docqlerrors.IoError{Op: "read", Err: err}
		}
	}
	return hdr.Token, payload, nil
}
