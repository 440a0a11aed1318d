// Package sshtransport implements pty.Transport and pty.Child over a
// remote PTY obtained through golang.org/x/crypto/ssh, the external
// collaborator spec.md §1 names as "SSH transport backend". It lets
// session.Builder.WithTransport drive a remote shell exactly like a local
// PTY, since both satisfy the same transport contract (§6).
package sshtransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"

	"github.com/tassie-labs/expect/pty"
)

// Config collects the parameters needed to open a remote PTY session.
type Config struct {
	Addr       string // "host:port"
	ClientConf *ssh.ClientConfig
	Dims       pty.WindowSize
	TermName   string // defaults to "xterm-256color"
	Command    string // empty starts an interactive shell
}

// Transport bridges an ssh.Session's stdin/stdout to the pty.Transport
// contract.
type Transport struct {
	client  *ssh.Client
	sess    *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	open    atomic.Bool
	closeMu sync.Mutex
}

// Dial connects, authenticates, requests a PTY sized to cfg.Dims, and
// starts cfg.Command (or an interactive shell if empty). The returned
// Child's Wait blocks on the remote command's exit.
func Dial(ctx context.Context, cfg Config) (*Transport, *Child, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, nil, &pty.AllocError{Err: fmt.Errorf("sshtransport: dial: %w", err)}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr, cfg.ClientConf)
	if err != nil {
		conn.Close()
		return nil, nil, &pty.AllocError{Err: fmt.Errorf("sshtransport: handshake: %w", err)}
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, nil, &pty.AllocError{Err: fmt.Errorf("sshtransport: new session: %w", err)}
	}

	term := cfg.TermName
	if term == "" {
		term = "xterm-256color"
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(term, int(cfg.Dims.Rows), int(cfg.Dims.Cols), modes); err != nil {
		sess.Close()
		client.Close()
		return nil, nil, &pty.AllocError{Err: fmt.Errorf("sshtransport: request pty: %w", err)}
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, nil, &pty.AllocError{Err: err}
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, nil, &pty.AllocError{Err: err}
	}

	if cfg.Command != "" {
		if err := sess.Start(cfg.Command); err != nil {
			sess.Close()
			client.Close()
			return nil, nil, &pty.AllocError{Err: err}
		}
	} else {
		if err := sess.Shell(); err != nil {
			sess.Close()
			client.Close()
			return nil, nil, &pty.AllocError{Err: err}
		}
	}

	t := &Transport{client: client, sess: sess, stdin: stdin, stdout: stdout}
	t.open.Store(true)

	c := &Child{sess: sess, doneCh: make(chan struct{})}
	go c.reap()

	return t, c, nil
}

// Read implements pty.Transport. Remote EOF (pipe closed, or the usual
// io.EOF from the underlying channel) is reported as (0, nil) per the
// contract, matching the local PTY behavior.
func (t *Transport) Read(p []byte) (int, error) {
	if !t.open.Load() {
		return 0, pty.ErrClosed
	}
	n, err := t.stdout.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// Write implements pty.Transport.
func (t *Transport) Write(p []byte) (int, error) {
	if !t.open.Load() {
		return 0, pty.ErrClosed
	}
	return t.stdin.Write(p)
}

// Resize implements pty.Transport via the SSH window-change request.
func (t *Transport) Resize(size pty.WindowSize) error {
	if !t.open.Load() {
		return pty.ErrClosed
	}
	return t.sess.WindowChange(int(size.Rows), int(size.Cols))
}

// Close implements pty.Transport.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if !t.open.CompareAndSwap(true, false) {
		return nil
	}
	sessErr := t.sess.Close()
	clientErr := t.client.Close()
	if sessErr != nil {
		return sessErr
	}
	return clientErr
}

// IsOpen implements pty.Transport.
func (t *Transport) IsOpen() bool { return t.open.Load() }

// Child wraps an ssh.Session as a pty.Child. SSH has no local PID or
// POSIX signal delivery; Pid returns 0 and Signal maps the portable subset
// ssh.Session.Signal accepts.
type Child struct {
	sess *ssh.Session

	mu     sync.Mutex
	status pty.ExitStatus
	exited bool
	doneCh chan struct{}
}

func (c *Child) reap() {
	err := c.sess.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exited = true
	if err == nil {
		c.status = pty.ExitStatus{Kind: pty.Exited, Code: 0}
	} else if exitErr, ok := err.(*ssh.ExitError); ok {
		c.status = pty.ExitStatus{Kind: pty.Exited, Code: exitErr.ExitStatus()}
	} else {
		c.status = pty.ExitStatus{Kind: pty.Exited, Code: -1}
	}
	close(c.doneCh)
}

func (c *Child) Pid() int { return 0 }

func (c *Child) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exited
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

var signalTable = map[pty.Signal]ssh.Signal{
	pty.Interrupt: ssh.SIGINT,
	pty.Quit:      ssh.SIGQUIT,
	pty.Terminate: ssh.SIGTERM,
	pty.Kill:      ssh.SIGKILL,
	pty.Hangup:    ssh.SIGHUP,
}

func (c *Child) Signal(sig pty.Signal) error {
	ssig, ok := signalTable[sig]
	if !ok {
		return fmt.Errorf("sshtransport: signal %s has no remote equivalent", sig)
	}
	return c.sess.Signal(ssig)
}

func (c *Child) Kill() error {
	return c.Signal(pty.Kill)
}
