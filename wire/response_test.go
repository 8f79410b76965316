package wire

import (
	"testing"

	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponseSuccessAtom(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"t":1,"r":[42]}`))
	require.NoError(t, err)
	assert.Equal(t, ResponseSuccessAtom, resp.Kind)
	require.Len(t, resp.Result, 1)
	n, _ := resp.Result[0].GetNumber()
	assert.Equal(t, float64(42), n)
}

func TestDecodeResponseSuccessAtomWrongArityIsProtocolError(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"t":1,"r":[1,2]}`))
	require.Error(t, err)
	var perr *docqlerrors.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestDecodeResponseRuntimeErrorRequiresErrorKind(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"t":18,"r":["boom"]}`))
	require.Error(t, err)
}

func TestDecodeResponseUnknownKindIsProtocolError(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"t":999,"r":[]}`))
	require.Error(t, err)
	var perr *docqlerrors.ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestResponseToServerError(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"t":18,"r":["no such table"],"e":3100000}`))
	require.NoError(t, err)
	assert.True(t, resp.IsError())

	serverErr := resp.ToServerError()
	var se *docqlerrors.ServerError
	require.ErrorAs(t, serverErr, &se)
	assert.Equal(t, docqlerrors.ErrorKindNonExistence, se.Kind)
	assert.Equal(t, "no such table", se.Message)
}

func TestResponseNotErrorForSuccess(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"t":2,"r":[1,2,3]}`))
	require.NoError(t, err)
	assert.False(t, resp.IsError())
}
