package docql

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/bunbase/docql/config"
	"github.com/kartikbazzad/bunbase/docql/wire"
)

// fakeServer performs the handshake and then replies to every query it
// reads with a fixed SUCCESS_ATOM, so tests can exercise the real wire
// encode/decode path without a TCP listener.
func fakeServer(t *testing.T, conn net.Conn) {
	t.Helper()
	go func() {
		buf := make([]byte, 4+4+len("testsecret")+4)
		if _, err := readFull(conn, buf); err != nil {
			return
		}
		conn.Write(append([]byte("SUCCESS"), 0))

		for {
			token, _, err := wire.ReadFrame(conn)
			if err != nil {
				return
			}
			payload := []byte(`{"t":1,"r":[1]}`)
			if err := wire.WriteFrame(conn, token, payload); err != nil {
				return
			}
		}
	}()
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// dialPipe monkeypatches nothing — instead it builds a Connection directly
// via the same steps Connect takes, against an in-memory net.Pipe, since
// net.Dialer has no pipe-based dial hook to intercept.
func dialPipe(t *testing.T) (*Connection, func()) {
	t.Helper()
	client, server := net.Pipe()
	fakeServer(t, server)

	cfg := config.Default()
	cfg.AuthKey = "testsecret"
	cfg.Timeout = 2 * time.Second

	require.NoError(t, wire.Handshake(client, cfg.AuthKey))

	c := newConnectionForTest(cfg, client)
	return c, func() { c.Close() }
}

func TestConnectionRunRoundTrip(t *testing.T) {
	conn, closeFn := dialPipe(t)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cur, err := Table("users").Get("1").Run(ctx, conn)
	require.NoError(t, err)
	defer cur.Close()

	d, err := cur.ToDatum()
	require.NoError(t, err)
	n, ok := d.GetNumber()
	require.True(t, ok)
	require.Equal(t, float64(1), n)
}

func TestStopQueryIsNoopForUnknownToken(t *testing.T) {
	conn, closeFn := dialPipe(t)
	defer closeFn()

	// No query was ever started under this token, so the cache never saw
	// Register for it: StopQuery must not write a STOP frame.
	require.NoError(t, conn.StopQuery(999))
}

func TestStopQueryIsNoopAfterAlreadyClosed(t *testing.T) {
	conn, closeFn := dialPipe(t)
	defer closeFn()

	token := conn.allocToken()
	conn.cache.Register(token)
	conn.cache.Deliver(token, wire.Response{Kind: wire.ResponseSuccessSequence})

	// The cache entry exists but is already closed: StopQuery must not
	// write a second STOP frame for it.
	require.NoError(t, conn.StopQuery(token))
}

func TestRunWithNoreplyDoesNotBlockForResponse(t *testing.T) {
	conn, closeFn := dialPipe(t)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cur, err := Table("users").Insert(map[string]any{"name": "ada"}).Run(ctx, conn, RunOptions{"noreply": true})
	require.NoError(t, err)

	// A noreply cursor is exhausted immediately; no frame round trip needed.
	_, err = cur.Next(time.Second)
	require.Error(t, err)
}
