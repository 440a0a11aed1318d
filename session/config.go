package session

import (
	"fmt"
	"time"

	"github.com/tassie-labs/expect/buffer"
	"github.com/tassie-labs/expect/pty"
)

// LineEnding selects the terminator SendLine appends.
type LineEnding int

const (
	LF LineEnding = iota
	CRLF
	CR
)

func (l LineEnding) bytes() []byte {
	switch l {
	case CRLF:
		return []byte("\r\n")
	case CR:
		return []byte("\r")
	default:
		return []byte("\n")
	}
}

// Control identifies a control character sendable via SendControl: CtrlA
// through CtrlZ map to bytes 0x01-0x1A, Escape is 0x1B, CtrlBackslash is
// 0x1C, per spec.md §6.
type Control byte

const (
	CtrlA Control = iota + 1
	CtrlB
	CtrlC
	CtrlD
	CtrlE
	CtrlF
	CtrlG
	CtrlH
	CtrlI
	CtrlJ
	CtrlK
	CtrlL
	CtrlM
	CtrlN
	CtrlO
	CtrlP
	CtrlQ
	CtrlR
	CtrlS
	CtrlT
	CtrlU
	CtrlV
	CtrlW
	CtrlX
	CtrlY
	CtrlZ
	Escape
	CtrlBackslash
)

func (c Control) byte() byte { return byte(c) }

// Config collects the recognized session options from spec.md §6.
type Config struct {
	Command string
	Args    []string
	Env     []string
	Dir     string

	Dimensions pty.WindowSize

	DefaultTimeout time.Duration
	TimeoutSpawn   time.Duration
	TimeoutClose   time.Duration
	TimeoutRead    time.Duration
	TimeoutWrite   time.Duration

	BufferMaxSize      int
	BufferSearchWindow int
	RingBuffer         bool // stored but not read by the session: overflow always drops the oldest bytes, whatever its value

	LineEnding LineEnding

	StripANSI         bool
	NormalizeNewlines bool
}

func (c Config) validate() error {
	if c.Command == "" {
		return fmt.Errorf("session: config: empty command")
	}
	if c.Dimensions.Cols == 0 || c.Dimensions.Rows == 0 {
		return fmt.Errorf("session: config: dimensions must be non-zero")
	}
	if c.BufferMaxSize < 0 {
		return fmt.Errorf("session: config: negative buffer.max_size")
	}
	return nil
}

func (c Config) bufferCapacity() int {
	if c.BufferMaxSize <= 0 {
		return buffer.DefaultCapacity
	}
	return c.BufferMaxSize
}
