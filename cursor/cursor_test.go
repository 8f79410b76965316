package cursor

import (
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/docql/datum"
	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
	"github.com/kartikbazzad/bunbase/docql/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn drives a scripted sequence of batches for one token, recording
// every Continue/Stop call.
type fakeConn struct {
	batches   [][]datum.Datum
	next      int
	continues int
	stops     int
	stopToken uint64
}

func (f *fakeConn) ContinueQuery(token uint64) error {
	f.continues++
	return nil
}

func (f *fakeConn) StopQuery(token uint64) error {
	f.stops++
	f.stopToken = token
	return nil
}

func (f *fakeConn) WaitForResponse(token uint64, timeout time.Duration) (wire.Response, error) {
	if f.next >= len(f.batches) {
		return wire.Response{}, &docqlerrors.NoMoreData{}
	}
	batch := f.batches[f.next]
	f.next++
	kind := wire.ResponseSuccessPartial
	if f.next == len(f.batches) {
		kind = wire.ResponseSuccessSequence
	}
	return wire.Response{Kind: kind, Result: batch}, nil
}

func numDatums(vals ...float64) []datum.Datum {
	out := make([]datum.Datum, len(vals))
	for i, v := range vals {
		out[i] = datum.NewNumber(v)
	}
	return out
}

func TestCursorDrainsMultipleBatches(t *testing.T) {
	// batches are what each ContinueQuery's WaitForResponse returns; the
	// cursor's first batch (1, 2) was already handed to New as the query's
	// initial response.
	conn := &fakeConn{batches: [][]datum.Datum{numDatums(3)}}
	first := wire.Response{Kind: wire.ResponseSuccessPartial, Result: numDatums(1, 2)}

	c, err := New(conn, 7, first)
	require.NoError(t, err)

	values, err := c.ToArray(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 3)
	n0, _ := values[0].GetNumber()
	n2, _ := values[2].GetNumber()
	assert.Equal(t, float64(1), n0)
	assert.Equal(t, float64(3), n2)
	assert.Equal(t, 1, conn.continues)
}

func TestCursorSuccessAtomIsSingleElement(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseSuccessAtom, Result: numDatums(42)}

	c, err := New(conn, 1, resp)
	require.NoError(t, err)

	d, err := c.ToDatum()
	require.NoError(t, err)
	n, _ := d.GetNumber()
	assert.Equal(t, float64(42), n)

	_, err = c.Next(time.Second)
	require.NoError(t, err)
	_, err = c.Next(time.Second)
	var noMore *docqlerrors.NoMoreData
	assert.ErrorAs(t, err, &noMore)
}

func TestCursorToDatumRejectsDoubleRead(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseSuccessAtom, Result: numDatums(7)}
	c, err := New(conn, 1, resp)
	require.NoError(t, err)

	_, err = c.ToDatum()
	require.NoError(t, err)

	_, err = c.Next(time.Second)
	require.NoError(t, err)

	_, err = c.ToDatum()
	var noMore *docqlerrors.NoMoreData
	assert.ErrorAs(t, err, &noMore, "ToDatum after the value has already been consumed via Next must fail")
}

func TestCursorToArrayUnwrapsSingleArrayAtom(t *testing.T) {
	conn := &fakeConn{}
	inner := datum.NewArray(numDatums(1, 2, 3)...)
	resp := wire.Response{Kind: wire.ResponseSuccessAtom, Result: []datum.Datum{inner}}
	c, err := New(conn, 1, resp)
	require.NoError(t, err)

	values, err := c.ToArray(time.Second)
	require.NoError(t, err)
	require.Len(t, values, 3)
	n0, _ := values[0].GetNumber()
	assert.Equal(t, float64(1), n0)

	// The unwrap must consume the cursor: a further read sees exhaustion.
	_, err = c.ToDatum()
	var noMore *docqlerrors.NoMoreData
	assert.ErrorAs(t, err, &noMore)
}

func TestCursorNoreplyIsImmediatelyExhausted(t *testing.T) {
	conn := &fakeConn{}
	c := NewNoreply(conn, 5)

	_, err := c.ToDatum()
	var noMore *docqlerrors.NoMoreData
	assert.ErrorAs(t, err, &noMore)

	_, err = c.Next(time.Second)
	assert.ErrorAs(t, err, &noMore)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, conn.stops, "a noreply cursor was never streaming, so Close must not send STOP")
}

func TestCursorErrorResponseIsRejected(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseRuntimeError, Result: numDatums(), ErrorKind: wire.ErrorQueryLogic}
	_, err := New(conn, 1, resp)
	require.Error(t, err)
}

func TestCursorCloseStopsStreamingQuery(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseSuccessPartial, Result: numDatums(1)}
	c, err := New(conn, 9, resp)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, conn.stops)
	assert.Equal(t, uint64(9), conn.stopToken)

	// Closing twice is a no-op.
	require.NoError(t, c.Close())
	assert.Equal(t, 1, conn.stops)
}

func TestCursorCloseOnExhaustedDoesNotStop(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseSuccessSequence, Result: numDatums(1)}
	c, err := New(conn, 2, resp)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, conn.stops)
}

func TestCursorEachStopsEarly(t *testing.T) {
	conn := &fakeConn{}
	resp := wire.Response{Kind: wire.ResponseSuccessSequence, Result: numDatums(1, 2, 3)}
	c, err := New(conn, 3, resp)
	require.NoError(t, err)

	var seen []float64
	err = c.Each(time.Second, func(d datum.Datum) (bool, error) {
		n, _ := d.GetNumber()
		seen = append(seen, n)
		return n < 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, seen)
}
