// Package screen implements the VT100/xterm screen buffer the core
// explicitly excludes (spec.md §1: "the core does not parse or interpret
// escape sequences; bytes flow through untouched"). It sits beside a
// session.Session as an optional consumer: feed it the same bytes a
// session buffers, and it maintains a rendered grid plus scrollback for
// callers that want a human-viewable screen rather than raw matching.
package screen

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/vt"
)

var ansiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07|\x1b[()][0-9A-Za-z]`)

func stripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}

const defaultScrollback = 10000

// Screen wraps charmbracelet/x/vt's terminal emulator with a bounded
// scrollback ring, grounded on wingthing's egg/vterm.go. All methods are
// safe for concurrent use.
type Screen struct {
	mu sync.Mutex

	emu        *vt.Emulator
	scrollback []string
	sbHead     int
	sbLen      int

	altScreen    bool
	cursorHidden bool
	cols, rows   int
}

// New returns a Screen sized to cols x rows with the default scrollback
// capacity.
func New(cols, rows int) *Screen {
	return NewWithScrollback(cols, rows, defaultScrollback)
}

// NewWithScrollback is like New but with an explicit scrollback line cap.
func NewWithScrollback(cols, rows, scrollback int) *Screen {
	s := &Screen{
		emu:        vt.NewEmulator(cols, rows),
		scrollback: make([]string, scrollback),
		cols:       cols,
		rows:       rows,
	}
	s.emu.SetCallbacks(vt.Callbacks{
		ScrollOut: func(lines []uv.Line) {
			if s.altScreen {
				return
			}
			for _, line := range lines {
				s.pushScrollback(line.Render())
			}
		},
		ScrollbackClear: func() {
			for i := range s.scrollback {
				s.scrollback[i] = ""
			}
			s.sbLen, s.sbHead = 0, 0
		},
		AltScreen: func(on bool) { s.altScreen = on },
		CursorVisibility: func(visible bool) {
			s.cursorHidden = !visible
		},
	})
	return s
}

func (s *Screen) pushScrollback(rendered string) {
	if s.sbLen == len(s.scrollback) {
		s.scrollback[s.sbHead] = ""
	}
	s.scrollback[s.sbHead] = rendered
	s.sbHead = (s.sbHead + 1) % len(s.scrollback)
	if s.sbLen < len(s.scrollback) {
		s.sbLen++
	}
}

// Write feeds bytes (typically the same stream a session buffers) into
// the VT parser.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emu.Write(p)
}

// Resize changes the terminal dimensions.
func (s *Screen) Resize(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emu.Resize(cols, rows)
	s.cols, s.rows = cols, rows
}

// Render returns the current visible grid as ANSI text.
func (s *Screen) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emu.Render()
}

// PlainText returns the current visible grid with escape sequences and
// styling stripped, useful for pattern matching against what a human
// would actually see rather than raw PTY bytes.
func (s *Screen) PlainText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stripANSI(s.emu.Render())
}

// ScrollbackLines returns the captured scrollback, oldest first.
func (s *Screen) ScrollbackLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.sbLen)
	start := (s.sbHead - s.sbLen + len(s.scrollback)) % len(s.scrollback)
	for i := 0; i < s.sbLen; i++ {
		out = append(out, s.scrollback[(start+i)%len(s.scrollback)])
	}
	return out
}

// CursorPosition returns the cursor's current (col, row), 0-based.
func (s *Screen) CursorPosition() (col, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.emu.CursorPosition()
	return pos.X, pos.Y
}

// Snapshot builds a reconnect payload: scrollback, a screen-full of
// padding to push it into a real terminal's own scrollback, a style
// reset + home + grid repaint, and a cursor restore — the same four-part
// shape wingthing's VTerm.Snapshot produces for its reconnecting clients.
func (s *Screen) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf strings.Builder
	lines := s.scrollbackLinesLocked()
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	if len(lines) > 0 {
		for i := 0; i < s.rows-1; i++ {
			buf.WriteByte('\n')
		}
	}
	buf.WriteString("\x1b[m\x1b[H")
	buf.WriteString(s.emu.Render())
	pos := s.emu.CursorPosition()
	buf.WriteString(cursorRestore(pos.Y+1, pos.X+1))
	return []byte(buf.String())
}

func (s *Screen) scrollbackLinesLocked() []string {
	out := make([]string, 0, s.sbLen)
	start := (s.sbHead - s.sbLen + len(s.scrollback)) % len(s.scrollback)
	for i := 0; i < s.sbLen; i++ {
		out = append(out, s.scrollback[(start+i)%len(s.scrollback)])
	}
	return out
}

func cursorRestore(row, col int) string {
	return "\x1b[" + strconv.Itoa(row) + ";" + strconv.Itoa(col) + "H"
}
