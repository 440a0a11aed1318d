// Package pty provides the platform-specific pseudo-terminal transport the
// session engine drives: master/slave allocation and non-blocking I/O on
// Unix (backed by github.com/creack/pty/v2), pseudo-console attachment on
// Windows (backed by github.com/UserExistsError/conpty), child-process
// lifecycle for both, and the Unix signal bridge that fans SIGWINCH/SIGCHLD
// out to subscribed sessions.
package pty

import (
	"errors"
	"fmt"
)

// WindowSize describes a terminal's character grid and, where known, its
// pixel dimensions.
type WindowSize struct {
	Cols   uint16
	Rows   uint16
	XPixel uint16
	YPixel uint16
}

// Transport is the contract any byte-stream pseudo-terminal (or remote
// equivalent, see transport/sshtransport) must satisfy for a session to
// drive it. Read returning (0, nil) signals EOF; partial writes are
// permitted and the caller retries until all bytes are accepted or an
// error surfaces.
type Transport interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Resize(size WindowSize) error
	Close() error
	IsOpen() bool
}

// ErrClosed is returned by Read/Write/Resize once the transport has been
// closed.
var ErrClosed = errors.New("pty: transport closed")

// AllocError wraps a failure to allocate a master/slave pair or pseudo
// console, per spec.md §7's "Spawn failure" error class.
type AllocError struct {
	Err error
}

func (e *AllocError) Error() string { return fmt.Sprintf("pty: allocation failed: %v", e.Err) }
func (e *AllocError) Unwrap() error { return e.Err }

// SpawnConfig collects spawn parameters shared by both platforms.
type SpawnConfig struct {
	Command string
	Args    []string
	Env     []string // full environment to exec with (already merged)
	Dir     string
	Dims    WindowSize
}
