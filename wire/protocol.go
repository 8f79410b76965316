// Package wire implements the binary network protocol for the driver:
// frame layout, the connect-time handshake, and decoding a response Datum
// into a typed Response.
//
// Frame format (both directions, after the handshake):
//
//	[8 bytes: token, little-endian][4 bytes: payload length, little-endian][payload: UTF-8 JSON]
//
// This mirrors the shape of the teacher's own IPC framing
// (docdb/internal/ipc.RequestFrame/ResponseFrame: fixed-width LE header
// fields followed by a length-prefixed payload) adapted to this protocol's
// exact byte layout: an 8-byte token rather than an 8-byte request ID plus
// DB ID, and a bare JSON payload rather than a typed operation list.
package wire

import (
	"encoding/binary"
	"fmt"
)

// QueryKind is the client->server query-type code, the first element of the
// `[query_type_int, term?, optargs?]` envelope.
type QueryKind int

const (
	QueryStart        QueryKind = 1
	QueryContinue     QueryKind = 2
	QueryStop         QueryKind = 3
	QueryNoreplyWait  QueryKind = 4
	QueryServerInfo   QueryKind = 5
)

// ResponseKind is the server->client response-kind code, the `t` field of
// the response object.
type ResponseKind int

const (
	ResponseSuccessAtom     ResponseKind = 1
	ResponseSuccessSequence ResponseKind = 2
	ResponseSuccessPartial  ResponseKind = 3
	ResponseWaitComplete    ResponseKind = 4
	ResponseServerInfo      ResponseKind = 5
	ResponseClientError     ResponseKind = 16
	ResponseCompileError    ResponseKind = 17
	ResponseRuntimeError    ResponseKind = 18
)

// IsTerminal reports whether a response of this kind means no further
// frames will carry the token (anything other than SUCCESS_PARTIAL).
func (k ResponseKind) IsTerminal() bool { return k != ResponseSuccessPartial }

func (k ResponseKind) String() string {
	switch k {
	case ResponseSuccessAtom:
		return "SUCCESS_ATOM"
	case ResponseSuccessSequence:
		return "SUCCESS_SEQUENCE"
	case ResponseSuccessPartial:
		return "SUCCESS_PARTIAL"
	case ResponseWaitComplete:
		return "WAIT_COMPLETE"
	case ResponseServerInfo:
		return "SERVER_INFO"
	case ResponseClientError:
		return "CLIENT_ERROR"
	case ResponseCompileError:
		return "COMPILE_ERROR"
	case ResponseRuntimeError:
		return "RUNTIME_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// ErrorKind is the server->client RUNTIME_ERROR sub-kind, the `e` field.
type ErrorKind int

const (
	ErrorInternal         ErrorKind = 1000000
	ErrorResourceLimit    ErrorKind = 2000000
	ErrorQueryLogic       ErrorKind = 3000000
	ErrorNonExistence     ErrorKind = 3100000
	ErrorOpFailed         ErrorKind = 4100000
	ErrorOpIndeterminate  ErrorKind = 4200000
	ErrorUser             ErrorKind = 5000000
	ErrorPermission       ErrorKind = 6000000
)

const (
	// TokenSize is the width in bytes of a frame's token field.
	TokenSize = 8
	// LengthSize is the width in bytes of a frame's payload-length field.
	LengthSize = 4
	// HeaderSize is TokenSize + LengthSize.
	HeaderSize = TokenSize + LengthSize
)

// Header is a decoded frame header (token + payload length), without the
// payload itself.
type Header struct {
	Token  uint64
	Length uint32
}

// EncodeHeader appends token and payload length, little-endian, to buf.
func EncodeHeader(buf []byte, token uint64, length uint32) []byte {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[0:TokenSize], token)
	binary.LittleEndian.PutUint32(hdr[TokenSize:], length)
	return append(buf, hdr[:]...)
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("wire: short header (%d bytes)", len(buf))
	}
	return Header{
		Token:  binary.LittleEndian.Uint64(buf[0:TokenSize]),
		Length: binary.LittleEndian.Uint32(buf[TokenSize:HeaderSize]),
	}, nil
}
