// Package connserver implements the accept loop and per-client state from
// spec.md §4.6: request parsing, reply buffering/writing, and
// blocking-client bookkeeping.
//
// spec.md models the reactor multiplexing every client socket itself
// (non-blocking fds driven by a single epoll-based loop). This package
// instead gives each connection its own goroutine reading with ordinary
// blocking I/O — the idiomatic Go shape for a server whose connections
// vastly outnumber CPUs (the same shape the teacher's net/http-based
// cc-backend uses one handler invocation per request) — and funnels every
// parsed command through a single Server-wide mutex before it touches the
// keyspace. That preserves spec.md §5's invariants verbatim ("commands
// from the same connection execute in arrival order", "each command is
// atomic with respect to others because execution is serial", "the
// keyspace is exclusively owned by the main loop") without hand-rolling
// non-blocking socket multiplexing that Go's scheduler already solves.
// internal/eventloop is retained and exercised for the OTHER half of
// spec.md §4.4 this substitution doesn't touch: periodic cron tasks
// (expiration sampling, idle-client sweep, save-params checks) — see
// internal/server.
package connserver

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/mkvs-io/kvstored/internal/object"
	"github.com/mkvs-io/kvstored/internal/resp"
)

// Client is one connected socket's parse/reply state.
type Client struct {
	conn    net.Conn
	reader  *resp.Reader
	id      int64
	dbIndex int

	authenticated bool

	writeMu sync.Mutex // serializes writes from the dispatcher against an async close

	createdAt  time.Time
	lastActive time.Time
	closed     bool
}

func newClient(id int64, conn net.Conn) *Client {
	now := time.Now()
	return &Client{
		conn:       conn,
		reader:     resp.NewReader(bufio.NewReader(conn)),
		id:         id,
		createdAt:  now,
		lastActive: now,
	}
}

// Write sends reply bytes to the client, per spec.md §4.6's outbound
// writing (simplified here: net.Conn.Write already performs the
// short-write retry loop the spec's MAX_WRITE_PER_EVENT cursor hand-rolls).
func (c *Client) Write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(b)
	return err
}

// Deliver implements keyspace.Waiter for a client parked on a blocking
// list-pop (spec.md §4.3's blocking_keys design; no blocking command is
// in the command surface, so this exists for the waiter bookkeeping's own
// sake but is never driven by a registered handler today).
func (c *Client) Deliver(key string, value *object.String) {}

func (c *Client) close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.conn.Close()
}

// IdleFor reports how long it has been since the client last completed a
// command, for the cron idle-timeout sweep (spec.md §4.4 "Cancellation /
// timeouts").
func (c *Client) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.lastActive)
}
