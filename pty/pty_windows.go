//go:build windows

package pty

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/UserExistsError/conpty"
)

// Master is the Windows pseudo-console master (C7, "ConPTY"): a pair of
// anonymous pipes multiplexed by the console subsystem, exposed by
// UserExistsError/conpty as a single ReadWriteCloser-shaped handle.
type Master struct {
	mu   sync.Mutex
	cpty *conpty.ConPty
	open atomic.Bool
}

// Spawn creates a pseudo console sized to cfg.Dims and starts cfg.Command
// attached to it (C7+C8). Windows has no fork/exec distinction or
// controlling-terminal concept; CreateProcess with the
// PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE attribute (wrapped by conpty.Start)
// plays the role spec.md §4.5 assigns to Setsid/Setctty on Unix.
func Spawn(cfg SpawnConfig) (*Master, Child, error) {
	if cfg.Command == "" {
		return nil, nil, &AllocError{Err: errors.New("empty command")}
	}

	cmdLine := buildCommandLine(cfg.Command, cfg.Args)
	opts := []conpty.ConPtyOption{
		conpty.ConPtyDimensions(int(cfg.Dims.Cols), int(cfg.Dims.Rows)),
	}
	if cfg.Dir != "" {
		opts = append(opts, conpty.ConPtyWorkDir(cfg.Dir))
	}
	if len(cfg.Env) > 0 {
		opts = append(opts, conpty.ConPtyEnv(cfg.Env))
	}

	cpty, err := conpty.Start(cmdLine, opts...)
	if err != nil {
		return nil, nil, &AllocError{Err: err}
	}

	m := &Master{cpty: cpty}
	m.open.Store(true)

	c := &windowsChild{cpty: cpty, doneCh: make(chan struct{})}
	go c.reap()

	return m, c, nil
}

func buildCommandLine(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}

// Read implements Transport.
func (m *Master) Read(p []byte) (int, error) {
	if !m.open.Load() {
		return 0, ErrClosed
	}
	n, err := m.cpty.Read(p)
	if err != nil {
		return n, nil // pipe closed at the remote end means EOF under this contract
	}
	return n, nil
}

// Write implements Transport.
func (m *Master) Write(p []byte) (int, error) {
	if !m.open.Load() {
		return 0, ErrClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cpty.Write(p)
}

// Resize implements Transport.
func (m *Master) Resize(size WindowSize) error {
	if !m.open.Load() {
		return ErrClosed
	}
	return m.cpty.Resize(int(size.Cols), int(size.Rows))
}

// Close implements Transport.
func (m *Master) Close() error {
	if !m.open.CompareAndSwap(true, false) {
		return nil
	}
	return m.cpty.Close()
}

// IsOpen implements Transport.
func (m *Master) IsOpen() bool { return m.open.Load() }

// windowsChild wraps conpty.ConPty's process handle as a Child. Windows has
// no signal delivery in the POSIX sense; Signal emulates the small subset
// ConPty exposes and rejects the rest with ErrUnsupportedSignal.
type windowsChild struct {
	cpty *conpty.ConPty

	mu     sync.Mutex
	status ExitStatus
	exited bool
	doneCh chan struct{}
}

// ErrUnsupportedSignal is returned by Child.Signal on Windows for signals
// that have no console-control equivalent.
var ErrUnsupportedSignal = errors.New("pty: signal not supported on windows")

func (c *windowsChild) reap() {
	code, err := c.cpty.Wait(context.Background())
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exited = true
	if err != nil {
		c.status = ExitStatus{Kind: Exited, Code: -1}
	} else {
		c.status = ExitStatus{Kind: Exited, Code: int(code)}
	}
	close(c.doneCh)
}

func (c *windowsChild) Pid() int { return c.cpty.Pid() }

func (c *windowsChild) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exited
}

func (c *windowsChild) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func (c *windowsChild) TryWait() (ExitStatus, bool) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, true
	default:
		return ExitStatus{}, false
	}
}

func (c *windowsChild) Signal(sig Signal) error {
	switch sig {
	case Terminate, Kill:
		return c.cpty.Close()
	default:
		return ErrUnsupportedSignal
	}
}

func (c *windowsChild) Kill() error {
	return c.cpty.Close()
}
