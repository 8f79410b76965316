// Package docql is a client driver for a document database speaking a
// binary-framed, JSON-payload request/response protocol: a single TCP
// connection multiplexes many concurrent queries by token, a background
// reader goroutine demultiplexes responses, and a pull-based Cursor walks
// each query's results.
//
// Architecture:
//   - wire: frame and handshake encode/decode, the query/response envelopes.
//   - datum: the tagged-variant JSON value type queries are built from and
//     results are decoded into.
//   - internal/cache: the per-token response cache the reader loop fills and
//     callers drain.
//   - cursor: the pull-based Next()/Each() iterator over a query's results.
//   - Connection (this package): owns the socket, the token counter, and the
//     reader goroutine; implements cursor.Conn.
//   - Query/Var/term constructors (this package): the term-tree builder with
//     alpha-renaming for bound variables.
package docql

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/bunbase/docql/config"
	"github.com/kartikbazzad/bunbase/docql/datum"
	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
	"github.com/kartikbazzad/bunbase/docql/internal/cache"
	"github.com/kartikbazzad/bunbase/docql/internal/logger"
	"github.com/kartikbazzad/bunbase/docql/wire"
)

// Connection owns one TCP socket to the server and every query
// multiplexed over it. The zero value is not usable; construct with
// Connect.
type Connection struct {
	cfg config.Config
	log *logger.Logger

	conn net.Conn

	writeMu sync.Mutex
	cache   *cache.Cache

	nextToken atomic.Uint64

	// pool bounds concurrent response-dispatch goroutines, per docdb's
	// ants.Pool-backed connection handler dispatch, repurposed here for
	// delivering responses off the reader goroutine so a slow consumer
	// never stalls the socket read.
	pool *ants.Pool

	closed     atomic.Bool
	readerDone chan struct{}
}

// Connect dials host:port, performs the protocol handshake with authKey,
// and starts the background reader goroutine.
func Connect(cfg config.Config) (*Connection, error) {
	log := cfg.EffectiveLog()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, &docqlerrors.IoError{Op: "dial", Err: err}
	}

	if cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.DialTimeout))
	}
	if err := wire.Handshake(conn, cfg.AuthKey); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	pool, err := ants.NewPool(cfg.EffectiveWorkerPoolSize(), ants.WithPanicHandler(func(v any) {
		log.Error("response dispatch panic: %v", v)
	}))
	if err != nil {
		conn.Close()
		return nil, &docqlerrors.IoError{Op: "worker pool init", Err: err}
	}

	c := &Connection{
		cfg:        cfg,
		log:        log,
		conn:       conn,
		cache:      cache.New(),
		pool:       pool,
		readerDone: make(chan struct{}),
	}
	go c.readLoop()

	log.Info("connected to %s", addr)
	return c, nil
}

// newConnectionForTest builds a Connection around an already-handshaken
// net.Conn, skipping Connect's dial/handshake steps — used by tests that
// drive a fake server over net.Pipe, which has no dialer to intercept.
func newConnectionForTest(cfg config.Config, conn net.Conn) *Connection {
	log := cfg.EffectiveLog()
	pool, err := ants.NewPool(cfg.EffectiveWorkerPoolSize())
	if err != nil {
		panic(err)
	}
	c := &Connection{
		cfg:        cfg,
		log:        log,
		conn:       conn,
		cache:      cache.New(),
		pool:       pool,
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// readLoop is the single goroutine demultiplexing frames by token. It runs
// until the socket errors or Close is called.
func (c *Connection) readLoop() {
	defer close(c.readerDone)
	for {
		token, payload, err := wire.ReadFrame(c.conn)
		if err != nil {
			if !c.closed.Load() {
				c.log.Warn("connection reader stopped: %v", err)
			}
			c.cache.CloseAll()
			return
		}

		resp, err := wire.DecodeResponse(payload)
		if err != nil {
			c.log.Warn("dropping malformed frame for token %d: %v", token, err)
			continue
		}

		submitErr := c.pool.Submit(func() {
			if !c.cache.Deliver(token, resp) {
				c.log.Debug("dropped response for unknown or closed token %d", token)
			}
		})
		if submitErr != nil {
			// Pool saturated or stopped: deliver inline rather than drop,
			// at the cost of briefly stalling the reader.
			if !c.cache.Deliver(token, resp) {
				c.log.Debug("dropped response for unknown or closed token %d", token)
			}
		}
	}
}

// allocToken returns the next monotonically increasing query token.
func (c *Connection) allocToken() uint64 {
	return c.nextToken.Add(1)
}

// writeQuery sends one [query_type, term?, optargs?] envelope under the
// token, holding the writer lock so frames never interleave on the wire.
func (c *Connection) writeQuery(token uint64, kind wire.QueryKind, term, optargs *datum.Datum) error {
	payload := wire.EncodeQuery(kind, term, optargs)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return &docqlerrors.ConnectionClosed{}
	}
	return wire.WriteFrame(c.conn, token, payload)
}

// StartQuery sends a QueryStart for term/optargs under a freshly allocated
// token, waits for the first response, and returns the token with that
// response. It is the entry point Query.Run calls; Run builds the Cursor.
func (c *Connection) StartQuery(term datum.Datum, optargs *datum.Datum, timeout time.Duration) (uint64, wire.Response, error) {
	token := c.allocToken()
	c.cache.Register(token)

	if err := c.writeQuery(token, wire.QueryStart, &term, optargs); err != nil {
		return token, wire.Response{}, err
	}

	resp, err := c.WaitForResponse(token, timeout)
	return token, resp, err
}

// StartQueryNoreply sends a QueryStart for term/optargs but never waits for
// a response, since the server sends none for a noreply query: there is no
// cache entry to register and nothing to deliver into. Used by Query.Run
// when the merged run options carry noreply = true.
func (c *Connection) StartQueryNoreply(term datum.Datum, optargs *datum.Datum) (uint64, error) {
	token := c.allocToken()
	if err := c.writeQuery(token, wire.QueryStart, &term, optargs); err != nil {
		return token, err
	}
	return token, nil
}

// ContinueQuery implements cursor.Conn: it requests the next batch for an
// already-running streaming query.
func (c *Connection) ContinueQuery(token uint64) error {
	return c.writeQuery(token, wire.QueryContinue, nil, nil)
}

// StopQuery implements cursor.Conn: it tells the server to discard
// server-side state for token and marks the local cache entry closed so no
// further CONTINUE is ever issued for it. It sends STOP only if the token's
// cache entry still exists and is not already closed; a STOP for a token
// the cache no longer knows about, or has already closed, is a no-op.
func (c *Connection) StopQuery(token uint64) error {
	if !c.cache.Exists(token) || c.cache.IsClosed(token) {
		return nil
	}
	c.cache.Stop(token)
	return c.writeQuery(token, wire.QueryStop, nil, nil)
}

// NoreplyWait blocks until every query started with the noreply optarg has
// completed server-side, per the protocol's explicit synchronization point.
func (c *Connection) NoreplyWait(timeout time.Duration) error {
	token := c.allocToken()
	c.cache.Register(token)
	if err := c.writeQuery(token, wire.QueryNoreplyWait, nil, nil); err != nil {
		return err
	}
	resp, err := c.WaitForResponse(token, timeout)
	if err != nil {
		return err
	}
	if resp.Kind != wire.ResponseWaitComplete {
		return &docqlerrors.ProtocolError{Reason: "NOREPLY_WAIT did not receive WAIT_COMPLETE"}
	}
	return nil
}

// ServerInfo requests the server's identification document.
func (c *Connection) ServerInfo(timeout time.Duration) (datum.Datum, error) {
	token := c.allocToken()
	c.cache.Register(token)
	if err := c.writeQuery(token, wire.QueryServerInfo, nil, nil); err != nil {
		return datum.Nil, err
	}
	resp, err := c.WaitForResponse(token, timeout)
	if err != nil {
		return datum.Nil, err
	}
	if len(resp.Result) != 1 {
		return datum.Nil, &docqlerrors.ProtocolError{Reason: "SERVER_INFO response did not carry exactly one result"}
	}
	return resp.Result[0], nil
}

// WaitForResponse implements cursor.Conn: it blocks for the next queued
// Response for token, converting cache/timeout states into the driver's
// error taxonomy.
func (c *Connection) WaitForResponse(token uint64, timeout time.Duration) (wire.Response, error) {
	effective := timeout
	if effective == 0 {
		effective = c.cfg.Timeout
	}

	resp, closed, connClosed, timedOut := c.cache.Wait(token, effective)
	switch {
	case connClosed:
		return wire.Response{}, &docqlerrors.ConnectionClosed{}
	case timedOut:
		return wire.Response{}, &docqlerrors.Timeout{Token: token}
	case closed:
		return wire.Response{}, &docqlerrors.NoMoreData{}
	default:
		return resp, nil
	}
}

// Close shuts down the reader goroutine, releases the worker pool, and
// closes the socket. It is safe to call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cache.CloseAll()
	err := c.conn.Close()
	<-c.readerDone
	c.pool.Release()
	c.log.Info("connection closed")
	if err != nil {
		return &docqlerrors.IoError{Op: "close", Err: err}
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// contextTimeout derives a time.Duration from ctx's deadline, if any,
// falling back to fallback when ctx carries none. Exposed for Query.Run,
// which accepts a context.Context per the driver's blocking-operation
// convention.
func contextTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	if ctx == nil {
		return fallback
	}
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return time.Nanosecond
	}
	return fallback
}
