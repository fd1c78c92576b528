package session

import (
	"sync"
	"time"
)

// DefaultBufferSize is the outbound capacity of a connection
const DefaultBufferSize = 10

// Frame is one item on a connection's outbound queue: either an event or a
// keep-alive probe the transport must write and then acknowledge.
type Frame struct {
	event Event
	ack   chan struct{}
}

// Event returns the frame's event, nil for probes
func (f Frame) Event() Event { return f.event }

// IsProbe reports whether the frame is a keep-alive
func (f Frame) IsProbe() bool { return f.ack != nil }

// Ack confirms a probe was written to the peer. No-op on event frames.
func (f Frame) Ack() {
	if f.ack == nil {
		return
	}
	select {
	case f.ack <- struct{}{}:
	default:
	}
}

// Conn is the outbound side of one player's event stream. Producers push
// without blocking; a single transport goroutine drains Frames.
type Conn struct {
	playerID string
	out      chan Frame
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewConn binds a new connection to playerID
func NewConn(playerID string, bufferSize int) *Conn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Conn{
		playerID: playerID,
		out:      make(chan Frame, bufferSize),
		done:     make(chan struct{}),
	}
}

// PlayerID returns the identity bound at construction
func (c *Conn) PlayerID() string { return c.playerID }

// Frames is the queue consumed by the transport
func (c *Conn) Frames() <-chan Frame { return c.out }

// Done is closed when the connection is closed
func (c *Conn) Done() <-chan struct{} { return c.done }

// Push enqueues ev. A closed connection or a full buffer fails immediately,
// and a full buffer also closes the connection.
func (c *Conn) Push(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.out <- Frame{event: ev}:
		return nil
	default:
		c.closeLocked()
		return ErrConnFull
	}
}

// Probe sends a keep-alive and waits up to timeout for the transport to
// acknowledge it. A failed probe does not close the connection.
func (c *Conn) Probe(timeout time.Duration) bool {
	ack := make(chan struct{}, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.out <- Frame{ack: ack}:
	default:
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ack:
		return true
	case <-c.done:
		return false
	case <-timer.C:
		return false
	}
}

// Close marks the connection closed and releases the transport. Safe to
// call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Closed reports whether Close was called or a push overflowed
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
