// Package cursor implements the driver's pull-based result cursor: a
// Next()/Value()-shaped iterator (grounded on bundoc's Iterator interface)
// layered over the CONTINUE/STOP query lifecycle described by the core's
// response demultiplexer.
package cursor

import (
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/docql/datum"
	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
	"github.com/kartikbazzad/bunbase/docql/wire"
)

// Conn is the narrow slice of Connection a Cursor needs. Defining it here
// rather than importing the root package keeps cursor free of an import
// cycle: the root Connection type satisfies this interface structurally,
// with no explicit assertion required on either side.
type Conn interface {
	ContinueQuery(token uint64) error
	StopQuery(token uint64) error
	WaitForResponse(token uint64, timeout time.Duration) (wire.Response, error)
}

// state tracks where in its lifecycle a Cursor is, per the core's
// fresh/streaming/exhausted/closed states.
type state int

const (
	stateFresh state = iota
	stateStreaming
	stateExhausted
	stateClosed
)

// Cursor is a pull-based, lazily-fetched sequence of Datum values. A single
// atom result is exposed as a one-element cursor whose first Next() drains
// it and whose second call reports exhaustion, matching the core's
// "SUCCESS_ATOM is a Cursor of size one" rule.
type Cursor struct {
	mu    sync.Mutex
	conn  Conn
	token uint64

	st      state
	buffer  []datum.Datum
	readIdx int

	// single marks a SUCCESS_ATOM-backed cursor: ToArray/each treat a
	// one-element, never-to-be-continued buffer as the whole result.
	single bool
}

// newFromResponse classifies the first Response for a query per the
// distilled rule set:
//
//	SUCCESS_ATOM      -> single-element cursor, exhausted after one Next
//	SUCCESS_SEQUENCE  -> cursor with buffer = r, exhausted once drained
//	SUCCESS_PARTIAL   -> cursor with buffer = r, streaming (CONTINUE on drain)
//	SERVER_INFO       -> treated like SUCCESS_ATOM (one-shot informational result)
//	WAIT_COMPLETE     -> not a cursor; caller handles this before reaching here
//	*_ERROR           -> not a cursor; caller converts to error before reaching here
func newFromResponse(conn Conn, token uint64, resp wire.Response) (*Cursor, error) {
	if resp.IsError() {
		return nil, resp.ToServerError()
	}

	c := &Cursor{conn: conn, token: token, buffer: resp.Result}

	switch resp.Kind {
	case wire.ResponseSuccessAtom, wire.ResponseServerInfo:
		c.single = true
		c.st = stateExhausted
	case wire.ResponseSuccessSequence:
		c.st = stateExhausted
	case wire.ResponseSuccessPartial:
		c.st = stateStreaming
	default:
		return nil, &docqlerrors.ProtocolError{Reason: "response kind is not a cursor-bearing kind"}
	}
	return c, nil
}

// New wraps resp, the first Response observed for token, into a Cursor.
// Exported so the root package's Query.Run can hand off its first
// WaitForResponse result without cursor needing to re-derive the classification.
func New(conn Conn, token uint64, resp wire.Response) (*Cursor, error) {
	return newFromResponse(conn, token, resp)
}

// NewNoreply returns an already-exhausted, empty Cursor for a fire-and-forget
// noreply query: the server sends no response at all for it, so there is
// nothing to wait for and the cursor reports no_more immediately.
func NewNoreply(conn Conn, token uint64) *Cursor {
	return &Cursor{conn: conn, token: token, st: stateExhausted, single: true}
}

// fetchMore issues CONTINUE and blocks for the next batch, appending it to
// buffer. Called with mu held.
func (c *Cursor) fetchMore(timeout time.Duration) error {
	if err := c.conn.ContinueQuery(c.token); err != nil {
		return err
	}
	resp, err := c.conn.WaitForResponse(c.token, timeout)
	if err != nil {
		return err
	}
	if resp.IsError() {
		c.st = stateExhausted
		return resp.ToServerError()
	}
	c.buffer = append(c.buffer, resp.Result...)
	if resp.Kind != wire.ResponseSuccessPartial {
		c.st = stateExhausted
	}
	return nil
}

// HasNext reports whether a call to Next would return a value, fetching
// another batch from the server if the local buffer is drained and the
// cursor is still streaming.
func (c *Cursor) HasNext(timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasNextLocked(timeout)
}

func (c *Cursor) hasNextLocked(timeout time.Duration) (bool, error) {
	if c.st == stateClosed {
		return false, &docqlerrors.NoMoreData{}
	}
	for c.readIdx >= len(c.buffer) {
		if c.st != stateStreaming {
			return false, nil
		}
		if err := c.fetchMore(timeout); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Next returns the next Datum in the sequence, fetching more from the
// server as needed. It returns *errors.NoMoreData once the sequence (or the
// single atom) is exhausted.
func (c *Cursor) Next(timeout time.Duration) (datum.Datum, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.hasNextLocked(timeout)
	if err != nil {
		return datum.Nil, err
	}
	if !ok {
		return datum.Nil, &docqlerrors.NoMoreData{}
	}
	d := c.buffer[c.readIdx]
	c.readIdx++
	return d, nil
}

// Peek returns the next Datum without consuming it.
func (c *Cursor) Peek(timeout time.Duration) (datum.Datum, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.hasNextLocked(timeout)
	if err != nil {
		return datum.Nil, err
	}
	if !ok {
		return datum.Nil, &docqlerrors.NoMoreData{}
	}
	return c.buffer[c.readIdx], nil
}

// Each calls fn for every remaining Datum in the sequence, stopping early
// (without error) if fn returns false.
func (c *Cursor) Each(timeout time.Duration, fn func(datum.Datum) (bool, error)) error {
	for {
		d, err := c.Next(timeout)
		if err != nil {
			if _, ok := err.(*docqlerrors.NoMoreData); ok {
				return nil
			}
			return err
		}
		cont, err := fn(d)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// ToArray drains the entire sequence into a slice. A SUCCESS_ATOM cursor
// whose sole value is itself an ARRAY is unwrapped: its elements are
// returned directly rather than a one-element slice holding the array. A
// single-value cursor whose value is not an ARRAY is an *errors.TypeMismatch.
func (c *Cursor) ToArray(timeout time.Duration) ([]datum.Datum, error) {
	c.mu.Lock()
	if c.single && c.st == stateExhausted && c.readIdx == 0 && len(c.buffer) == 1 {
		elems, ok := c.buffer[0].GetArray()
		if !ok {
			c.mu.Unlock()
			return nil, &docqlerrors.TypeMismatch{Accessor: "ToArray", Actual: c.buffer[0].Tag().String()}
		}
		c.readIdx = 1
		c.mu.Unlock()
		return elems, nil
	}
	c.mu.Unlock()

	var out []datum.Datum
	err := c.Each(timeout, func(d datum.Datum) (bool, error) {
		out = append(out, d)
		return true, nil
	})
	return out, err
}

// ToDatum returns the cursor's sole value for a SUCCESS_ATOM/SERVER_INFO
// cursor, or an *errors.TypeMismatch if the cursor is a multi-element
// sequence. Calling it a second time, after the value has already been
// consumed via Next, is an *errors.NoMoreData.
func (c *Cursor) ToDatum() (datum.Datum, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.single {
		return datum.Nil, &docqlerrors.TypeMismatch{Accessor: "ToDatum", Actual: "sequence cursor"}
	}
	if len(c.buffer) == 0 || c.readIdx != 0 {
		return datum.Nil, &docqlerrors.NoMoreData{}
	}
	return c.buffer[0], nil
}

// Close releases server-side query state. It issues STOP if the cursor is
// still streaming; it is a no-op once already exhausted or closed, per the
// lifecycle rule that STOP on an already-terminal query is unnecessary.
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st == stateClosed {
		return nil
	}
	streaming := c.st == stateStreaming
	c.st = stateClosed
	c.buffer = nil

	if streaming {
		return c.conn.StopQuery(c.token)
	}
	return nil
}
