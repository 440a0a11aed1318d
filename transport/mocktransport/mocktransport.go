// Package mocktransport implements an in-memory pty.Transport and pty.Child
// pair for tests that exercise the session engine without spawning a real
// process, grounded on the teacher's session_test.go style of constructing
// bare structs instead of real subprocesses.
package mocktransport

import (
	"bytes"
	"context"
	"sync"

	"github.com/tassie-labs/expect/pty"
)

// Transport is an in-memory byte pipe: bytes passed to Feed become readable
// via Read, and bytes the session writes are recorded for Sent, so tests
// can script output and assert on input.
type Transport struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	sent   bytes.Buffer
	closed bool
	size   pty.WindowSize
}

// New returns an empty mock transport.
func New() *Transport {
	t := &Transport{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Feed appends bytes that a subsequent Read will return, simulating output
// arriving from the child.
func (t *Transport) Feed(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Write(p)
	t.cond.Broadcast()
}

// FeedEOF marks the transport closed, simulating the child exiting: Read
// returns whatever is still buffered and then EOF, and Write fails with
// pty.ErrClosed.
func (t *Transport) FeedEOF() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cond.Broadcast()
}

// Read blocks until data or EOF is available.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.data.Len() == 0 && !t.closed {
		t.cond.Wait()
	}
	if t.data.Len() == 0 {
		return 0, nil
	}
	return t.data.Read(p)
}

// Write records bytes sent by the session so tests can assert on them via
// Sent.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, pty.ErrClosed
	}
	return t.sent.Write(p)
}

// Sent returns a copy of every byte written so far.
func (t *Transport) Sent() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.sent.Bytes()...)
}

func (t *Transport) Resize(size pty.WindowSize) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = size
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cond.Broadcast()
	return nil
}

func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Child is a stand-in pty.Child: it never exits on its own; tests end it
// with Exit, or with Kill, which exits it with a Signaled status. Signal
// is a no-op.
type Child struct {
	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
	status  pty.ExitStatus
}

// NewChild returns a Child in the running state.
func NewChild() *Child {
	return &Child{running: true, doneCh: make(chan struct{})}
}

func (c *Child) Pid() int { return 1 }

func (c *Child) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Exit marks the child as having exited with the given status, unblocking
// Wait.
func (c *Child) Exit(status pty.ExitStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	c.status = status
	close(c.doneCh)
}

func (c *Child) Wait(ctx context.Context) (pty.ExitStatus, error) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, nil
	case <-ctx.Done():
		return pty.ExitStatus{}, ctx.Err()
	}
}

func (c *Child) TryWait() (pty.ExitStatus, bool) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, true
	default:
		return pty.ExitStatus{}, false
	}
}

func (c *Child) Signal(sig pty.Signal) error { return nil }

func (c *Child) Kill() error {
	c.Exit(pty.ExitStatus{Kind: pty.Signaled, Signo: int(pty.Kill)})
	return nil
}
