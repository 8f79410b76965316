package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback fakes a server's handshake reply over a buffer pair: writes go
// to in, reads come from out.
type loopback struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (l *loopback) Write(p []byte) (int, error) { return l.in.Write(p) }
func (l *loopback) Read(p []byte) (int, error)  { return l.out.Read(p) }

func TestHandshakeSuccess(t *testing.T) {
	l := &loopback{in: &bytes.Buffer{}, out: bytes.NewBufferString("SUCCESS\x00")}
	err := Handshake(l, "secret")
	require.NoError(t, err)

	var gotMagic uint32
	require.NoError(t, binary.Read(bytes.NewReader(l.in.Bytes()[:4]), binary.LittleEndian, &gotMagic))
	assert.Equal(t, versionMagicV04, gotMagic)
}

func TestHandshakeAuthRejected(t *testing.T) {
	l := &loopback{in: &bytes.Buffer{}, out: bytes.NewBufferString("ERROR: bad auth key\x00")}
	err := Handshake(l, "wrong")
	require.Error(t, err)
	var authErr *docqlerrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "ERROR: bad auth key", authErr.ServerMessage)
}

func TestHandshakeResponseTooLongWithoutNul(t *testing.T) {
	l := &loopback{in: &bytes.Buffer{}, out: bytes.NewBuffer(bytes.Repeat([]byte{'x'}, maxHandshakeResponse+1))}
	err := Handshake(l, "secret")
	require.Error(t, err)
	var perr *docqlerrors.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestHandshakeDoesNotOverreadIntoNextFrame(t *testing.T) {
	tail := []byte{0xAA, 0xBB, 0xCC}
	out := bytes.NewBufferString("SUCCESS\x00")
	out.Write(tail)

	l := &loopback{in: &bytes.Buffer{}, out: out}
	require.NoError(t, Handshake(l, "secret"))

	assert.Equal(t, tail, l.out.Bytes())
}
