package wire

import (
	"encoding/binary"
	"io"

	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
)

const (
	// versionMagicV04 is the protocol V0_4 handshake magic number.
	versionMagicV04 uint32 = 0x400c2d20
	// jsonProtocolMagic marks the JSON wire protocol (as opposed to the
	// legacy protobuf one).
	jsonProtocolMagic uint32 = 0x7e6970c7

	// maxHandshakeResponse bounds the NUL-terminated handshake reply.
	maxHandshakeResponse = 1024

	successMessage = "SUCCESS"
)

// Handshake performs the connect-time handshake over rw: it writes the
// version magic, the auth key length and bytes, and the JSON-protocol
// magic, then reads a NUL-terminated ASCII reply and checks it against
// "SUCCESS" exactly.
func Handshake(rw io.ReadWriter, authKey string) error {
	if err := writeHandshakeRequest(rw, authKey); err != nil {
		return err
	}
	return readHandshakeResponse(rw)
}

func writeHandshakeRequest(w io.Writer, authKey string) error {
	buf := make([]byte, 0, 4+4+len(authKey)+4)
	buf = binary.LittleEndian.AppendUint32(buf, versionMagicV04)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(authKey)))
	buf = append(buf, authKey...)
	buf = binary.LittleEndian.AppendUint32(buf, jsonProtocolMagic)

	if _, err := w.Write(buf); err != nil {
		return &docqlerrors.IoError{Op: "write", Err: err}
	}
	return nil
}

// readHandshakeResponse reads one byte at a time (rather than through a
// buffered reader) so it never consumes bytes belonging to the first frame
// the server sends after a successful handshake.
func readHandshakeResponse(r io.Reader) error {
	msg := make([]byte, 0, 64)
	var b [1]byte
	for len(msg) < maxHandshakeResponse {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return &docqlerrors.IoError{Op: "read", Err: err}
		}
		if b[0] == 0 {
			if string(msg) == successMessage {
				return nil
			}
			return &docqlerrors.AuthError{ServerMessage: string(msg)}
		}
		msg = append(msg, b[0])
	}
	return &docqlerrors.ProtocolError{Reason: "handshake response exceeded 1024 bytes without a NUL terminator"}
}
