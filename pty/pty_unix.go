//go:build unix

package pty

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	ptylib "github.com/creack/pty/v2"
)

// Master is the Unix PTY master (C5): a non-blocking file descriptor
// obtained from the OS pseudo-terminal multiplexer. At most one reader and
// one writer may use it at a time, matching spec.md §4.4's invariant; the
// file itself is the sole owner of the descriptor.
type Master struct {
	mu   sync.Mutex
	file *os.File
	open atomic.Bool
}

// Spawn allocates a master/slave pair and execs cfg.Command as a session
// leader attached to the slave as its controlling terminal (C5+C6). This
// mirrors the sequence spec.md §4.5 describes between fork and exec:
// Setsid creates a new session, Setctty assigns the controlling TTY; the
// actual fork/exec/dup2 dance happens inside creack/pty's forkpty wrapper,
// which is the idiomatic Go way to drive this syscall sequence without
// hand-rolling async-signal-unsafe code in a Go runtime that cannot safely
// fork without exec (goroutine scheduler state would be corrupted).
func Spawn(cfg SpawnConfig) (*Master, Child, error) {
	if cfg.Command == "" {
		return nil, nil, &AllocError{Err: errors.New("empty command")}
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	ws := &ptylib.Winsize{
		Rows: cfg.Dims.Rows,
		Cols: cfg.Dims.Cols,
		X:    cfg.Dims.XPixel,
		Y:    cfg.Dims.YPixel,
	}
	f, err := ptylib.StartWithSize(cmd, ws)
	if err != nil {
		return nil, nil, &AllocError{Err: err}
	}

	m := &Master{file: f}
	m.open.Store(true)

	c := &unixChild{cmd: cmd, doneCh: make(chan struct{})}
	go c.reap()

	return m, c, nil
}

// Read implements Transport. A read of zero bytes (or the Linux PTY quirk
// where the master surfaces EIO once every slave fd has closed) is
// reported as EOF: (0, nil), never an error.
func (m *Master) Read(p []byte) (int, error) {
	if !m.open.Load() {
		return 0, ErrClosed
	}
	n, err := m.file.Read(p)
	if err != nil {
		if isEOFLike(err) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// Write implements Transport, retrying internally is the caller's
// responsibility (spec.md: "partial writes are permitted"); Write here
// simply forwards to the underlying descriptor once per call.
func (m *Master) Write(p []byte) (int, error) {
	if !m.open.Load() {
		return 0, ErrClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Write(p)
}

// Resize issues the terminal ioctl that sets window dimensions, which
// triggers SIGWINCH in the child (C5).
func (m *Master) Resize(size WindowSize) error {
	if !m.open.Load() {
		return ErrClosed
	}
	return ptylib.Setsize(m.file, &ptylib.Winsize{
		Rows: size.Rows,
		Cols: size.Cols,
		X:    size.XPixel,
		Y:    size.YPixel,
	})
}

// WindowSizeOf reads back the master's current window size.
func (m *Master) WindowSizeOf() (WindowSize, error) {
	if !m.open.Load() {
		return WindowSize{}, ErrClosed
	}
	ws, err := ptylib.GetsizeFull(m.file)
	if err != nil {
		return WindowSize{}, err
	}
	return WindowSize{Rows: ws.Rows, Cols: ws.Cols, XPixel: ws.X, YPixel: ws.Y}, nil
}

// Close marks the master closed and closes its descriptor. Later Read,
// Write and Resize calls fail with ErrClosed; a Read already blocked on the
// descriptor returns the closed-file error. Reads after Close are not
// reported as EOF.
func (m *Master) Close() error {
	if !m.open.CompareAndSwap(true, false) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}

// IsOpen reports whether the master has been closed.
func (m *Master) IsOpen() bool { return m.open.Load() }

func isEOFLike(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr.Err, syscall.EIO)
	}
	return errors.Is(err, syscall.EIO)
}

// unixChild wraps an *exec.Cmd as a Child (C6): the parent retains the
// child's PID, Wait blocks until the process transitions out of running,
// TryWait never blocks, Signal maps the platform-neutral enum to a real
// signal number, Kill sends SIGKILL.
type unixChild struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	status ExitStatus
	err    error
	exited bool
	doneCh chan struct{}
}

func (c *unixChild) reap() {
	err := c.cmd.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exited = true
	c.err = err
	if err == nil {
		c.status = ExitStatus{Kind: Exited, Code: 0}
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			c.status = ExitStatus{Kind: Signaled, Signo: int(ws.Signal())}
		} else {
			c.status = ExitStatus{Kind: Exited, Code: exitErr.ExitCode()}
		}
	} else {
		c.status = ExitStatus{Kind: Exited, Code: -1}
	}
	close(c.doneCh)
}

func (c *unixChild) Pid() int { return c.cmd.Process.Pid }

func (c *unixChild) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exited
}

func (c *unixChild) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func (c *unixChild) TryWait() (ExitStatus, bool) {
	select {
	case <-c.doneCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, true
	default:
		return ExitStatus{}, false
	}
}

func (c *unixChild) Signal(sig Signal) error {
	osSig, err := mapSignal(sig)
	if err != nil {
		return err
	}
	if c.cmd.Process == nil {
		return errors.New("pty: process not started")
	}
	return c.cmd.Process.Signal(osSig)
}

func (c *unixChild) Kill() error {
	if c.cmd.Process == nil {
		return errors.New("pty: process not started")
	}
	return c.cmd.Process.Kill()
}

func mapSignal(sig Signal) (syscall.Signal, error) {
	switch sig {
	case Interrupt:
		return syscall.SIGINT, nil
	case Quit:
		return syscall.SIGQUIT, nil
	case Terminate:
		return syscall.SIGTERM, nil
	case Kill:
		return syscall.SIGKILL, nil
	case Hangup:
		return syscall.SIGHUP, nil
	case WindowChange:
		return syscall.SIGWINCH, nil
	case Stop:
		return syscall.SIGSTOP, nil
	case Continue:
		return syscall.SIGCONT, nil
	case User1:
		return syscall.SIGUSR1, nil
	case User2:
		return syscall.SIGUSR2, nil
	default:
		return 0, errors.New("pty: unsupported signal")
	}
}
