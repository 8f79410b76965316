package cache

import (
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/docql/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverThenWait(t *testing.T) {
	c := New()
	c.Register(1)

	ok := c.Deliver(1, wire.Response{Kind: wire.ResponseSuccessAtom})
	assert.True(t, ok)

	resp, closed, connClosed, timedOut := c.Wait(1, time.Second)
	assert.False(t, closed)
	assert.False(t, connClosed)
	assert.False(t, timedOut)
	assert.Equal(t, wire.ResponseSuccessAtom, resp.Kind)
}

func TestWaitBlocksUntilDeliver(t *testing.T) {
	c := New()
	c.Register(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, closed, connClosed, timedOut := c.Wait(1, time.Second)
		assert.False(t, closed)
		assert.False(t, connClosed)
		assert.False(t, timedOut)
		assert.Equal(t, wire.ResponseSuccessSequence, resp.Kind)
	}()

	time.Sleep(20 * time.Millisecond)
	c.Deliver(1, wire.Response{Kind: wire.ResponseSuccessSequence})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock after Deliver")
	}
}

func TestWaitTimesOut(t *testing.T) {
	c := New()
	c.Register(1)

	_, closed, connClosed, timedOut := c.Wait(1, 20*time.Millisecond)
	assert.False(t, closed)
	assert.False(t, connClosed)
	assert.True(t, timedOut)
	// The entry survives a timeout: a later deliver is still observable.
	assert.True(t, c.Exists(1))
}

func TestStopClosesEntryWithoutResponse(t *testing.T) {
	c := New()
	c.Register(1)
	c.Stop(1)

	_, closed, connClosed, timedOut := c.Wait(1, time.Second)
	assert.True(t, closed)
	assert.False(t, connClosed)
	assert.False(t, timedOut)
}

func TestCloseAllWakesEveryWaiter(t *testing.T) {
	c := New()
	c.Register(1)
	c.Register(2)

	results := make(chan bool, 2)
	for _, token := range []uint64{1, 2} {
		token := token
		go func() {
			_, _, connClosed, _ := c.Wait(token, time.Second)
			results <- connClosed
		}()
	}

	time.Sleep(20 * time.Millisecond)
	c.CloseAll()

	for i := 0; i < 2; i++ {
		select {
		case connClosed := <-results:
			assert.True(t, connClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter was not woken by CloseAll")
		}
	}
}

func TestDeliverAfterCloseIsRejected(t *testing.T) {
	c := New()
	c.Register(1)
	c.Stop(1)

	ok := c.Deliver(1, wire.Response{Kind: wire.ResponseSuccessPartial})
	assert.False(t, ok)
}

func TestDeliverToUnregisteredTokenIsRejected(t *testing.T) {
	c := New()
	ok := c.Deliver(99, wire.Response{Kind: wire.ResponseSuccessAtom})
	assert.False(t, ok)
}

func TestPartialResponseStaysOpen(t *testing.T) {
	c := New()
	c.Register(1)
	c.Deliver(1, wire.Response{Kind: wire.ResponseSuccessPartial})

	require.False(t, c.IsClosed(1))
	resp, closed, _, _ := c.Wait(1, time.Second)
	assert.False(t, closed)
	assert.Equal(t, wire.ResponseSuccessPartial, resp.Kind)
	assert.False(t, c.IsClosed(1))
}
