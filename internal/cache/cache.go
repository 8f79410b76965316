// Package cache implements the Connection's per-token response cache: a
// shared lock plus one condition variable, keyed on the cache map, per the
// distilled spec's option (a) in its response-demultiplexing design note.
// The reader goroutine is the sole producer; wait_for_response callers are
// consumers blocking on the same condition variable.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/docql/wire"
)

// entry is a token's cache record: {closed, queue}. Waiters block on the
// Cache-wide condition variable rather than on a per-entry one.
type entry struct {
	closed bool
	queue  *list.List // of wire.Response
}

// Cache is the Connection-wide token->entry map guarded by one mutex/cond.
type Cache struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[uint64]*entry
	// closedAll is set once the owning Connection has shut down; every
	// waiter then observes "closed" regardless of its own token's state.
	closedAll bool
}

// New constructs an empty Cache.
func New() *Cache {
	c := &Cache{entries: make(map[uint64]*entry)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Register creates a cache entry for token. Called by StartQuery before the
// START frame is written, so a response racing ahead of the caller's first
// wait is never dropped as "unknown token".
func (c *Cache) Register(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = &entry{queue: list.New()}
}

// Deliver enqueues resp for token and wakes any waiter. It is called only
// from the reader goroutine. A frame for an unregistered or already-closed
// token is dropped (reported via the ok return so the caller can log it).
func (c *Cache) Deliver(token uint64, resp wire.Response) (ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[token]
	if !exists || e.closed {
		return false
	}
	e.queue.PushBack(resp)
	if resp.Kind.IsTerminal() {
		e.closed = true
	}
	c.cond.Broadcast()
	return true
}

// Wait blocks until token's queue is non-empty, the token's entry is closed,
// the whole cache has closed, or timeout elapses (timeout <= 0 means
// forever). It pops and returns the oldest queued Response when one is
// available.
//
// closed reports whether the entry was observed closed with an empty queue
// (and has consequently been erased from the map — no further Wait on this
// token will succeed). connClosed reports whether the whole Connection shut
// down. Both are mutually exclusive with a non-nil Response.
func (c *Cache) Wait(token uint64, timeout time.Duration) (resp wire.Response, closed bool, connClosed bool, timedOut bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if c.closedAll {
			return wire.Response{}, false, true, false
		}

		e, exists := c.entries[token]
		if !exists {
			// Already drained and erased: treat as closed-with-nothing-more.
			return wire.Response{}, true, false, false
		}

		if e.queue.Len() > 0 {
			front := e.queue.Front()
			e.queue.Remove(front)
			resp := front.Value.(wire.Response)
			if e.closed && e.queue.Len() == 0 {
				delete(c.entries, token)
			}
			return resp, false, false, false
		}

		if e.closed {
			delete(c.entries, token)
			return wire.Response{}, true, false, false
		}

		if timeout <= 0 {
			c.cond.Wait()
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return wire.Response{}, false, false, true
		}
		if !c.timedWait(remaining) {
			return wire.Response{}, false, false, true
		}
	}
}

// timedWait waits on the condition variable for at most d, returning false
// if it timed out. sync.Cond has no native timeout, so this arms a timer
// that grabs the lock and broadcasts after d, nudging every waiter (this
// one included) to re-check its deadline.
func (c *Cache) timedWait(d time.Duration) bool {
	timer := time.AfterFunc(d, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	before := time.Now()
	c.cond.Wait()
	return time.Since(before) < d
}

// Stop marks token's entry closed without enqueueing a response, erasing it
// at once if its queue is empty. Used by Connection.StopQuery: the reader may still
// deliver one straggler frame, which Deliver will now reject since closed
// is already true — matching "at most one further batch... no further
// CONTINUE is emitted".
func (c *Cache) Stop(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[token]; ok {
		e.closed = true
		if e.queue.Len() == 0 {
			delete(c.entries, token)
		}
		c.cond.Broadcast()
	}
}

// Exists reports whether token still has a live (non-erased) cache entry.
func (c *Cache) Exists(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[token]
	return ok
}

// IsClosed reports whether token's entry is marked closed (it may still
// have queued, not-yet-consumed responses).
func (c *Cache) IsClosed(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[token]
	return !ok || e.closed
}

// CloseAll marks the whole cache closed and wakes every waiter; called once
// from Connection.Close() (or from the reader loop on a fatal I/O error).
func (c *Cache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closedAll = true
	c.cond.Broadcast()
}
