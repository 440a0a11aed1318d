// Package session implements the duplex expect/send engine (C9): it drives
// reads from a transport into a bounded buffer, evaluates pattern matches
// against that buffer, enforces per-call deadlines, and surfaces EOF and
// process-exit as distinct outcomes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tassie-labs/expect/buffer"
	"github.com/tassie-labs/expect/pattern"
	"github.com/tassie-labs/expect/pty"
)

// State is a session's lifecycle stage (§3): Starting -> Running ->
// Closing -> (Closed | Exited).
type State int32

const (
	Starting State = iota
	Running
	Closing
	Closed
	Exited
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Observer receives session lifecycle callbacks without the session engine
// taking a dependency on any particular sink (metrics, logging, audit).
// Implementations must not block or call back into the session that
// invoked them. The engine calls OnMatch and OnTimeout synchronously from
// the goroutine that called Expect/ExpectAny, and OnEOF and
// OnBytesDiscarded from the session's background reader goroutine. This
// interface mirrors how the teacher keeps internal/session free of any
// import on internal/server.
type Observer interface {
	OnMatch(sessionID string, elapsed time.Duration)
	OnTimeout(sessionID string)
	OnEOF(sessionID string)
	OnBytesDiscarded(sessionID string, n int)
}

// Match is the session-level result of a successful expect call (§3):
// before is the buffer content strictly preceding the match, matched is
// the matched substring, after is the remaining buffer tail; both before
// and matched have already been consumed from the session's buffer by the
// time Match is returned.
type Match struct {
	Before       []byte
	Matched      []byte
	After        []byte
	PatternIndex int
	Captures     []string
	NamedCaps    map[string]string
}

// Session is the duplex engine for one child process. It owns its
// transport and buffer exclusively; a Session value is not safe to copy
// and its handle is meant to be used by a single owner, per spec.md §3.
type Session struct {
	id     string
	cfg    Config
	log    *slog.Logger
	buf    *buffer.Ring
	trans  pty.Transport
	child  pty.Child

	state atomic.Int32
	eof   atomic.Bool
	ioErr atomic.Value // stores error, set once the reader observes one

	mu        sync.Mutex
	dims      pty.WindowSize
	lastMatch *Match
	winchCh   chan struct{}

	dataCh    chan struct{}
	closeOnce sync.Once
	closeErr  error

	obsMu     sync.Mutex
	observers []Observer
	subs      map[chan []byte]struct{}
}

// Builder constructs a Session. Use NewBuilder, chain setters, then Build.
type Builder struct {
	cfg       Config
	log       *slog.Logger
	trans     pty.Transport
	child     pty.Child
	useCustom bool
	observers []Observer
}

// NewBuilder returns a Builder with spec.md §6 defaults: dimensions
// 80x24, LF line ending, ring-buffer overflow mode, default timeout 30s.
func NewBuilder(command string) *Builder {
	return &Builder{
		cfg: Config{
			Command:        command,
			Dimensions:     pty.WindowSize{Cols: 80, Rows: 24},
			DefaultTimeout: 30 * time.Second,
			RingBuffer:     true,
			LineEnding:     LF,
		},
		log: slog.Default(),
	}
}

func (b *Builder) Args(args ...string) *Builder         { b.cfg.Args = args; return b }
func (b *Builder) Env(env ...string) *Builder            { b.cfg.Env = env; return b }
func (b *Builder) Dir(dir string) *Builder               { b.cfg.Dir = dir; return b }
func (b *Builder) Dimensions(cols, rows uint16) *Builder {
	b.cfg.Dimensions = pty.WindowSize{Cols: cols, Rows: rows}
	return b
}
func (b *Builder) DefaultTimeout(d time.Duration) *Builder { b.cfg.DefaultTimeout = d; return b }
func (b *Builder) BufferMaxSize(n int) *Builder            { b.cfg.BufferMaxSize = n; return b }
func (b *Builder) BufferSearchWindow(n int) *Builder       { b.cfg.BufferSearchWindow = n; return b }
func (b *Builder) RingBufferMode(enabled bool) *Builder    { b.cfg.RingBuffer = enabled; return b }
func (b *Builder) LineEndingMode(le LineEnding) *Builder   { b.cfg.LineEnding = le; return b }
func (b *Builder) StripANSI(enabled bool) *Builder         { b.cfg.StripANSI = enabled; return b }
func (b *Builder) NormalizeNewlines(enabled bool) *Builder { b.cfg.NormalizeNewlines = enabled; return b }
func (b *Builder) Logger(l *slog.Logger) *Builder          { b.log = l; return b }

// Observe registers an Observer that will receive callbacks for every
// match, timeout, EOF, and buffer-overflow discard on the built Session.
func (b *Builder) Observe(o Observer) *Builder {
	b.observers = append(b.observers, o)
	return b
}

// WithTransport injects an already-constructed transport and child instead
// of spawning a local PTY, used by tests (transport/mocktransport) and by
// transport/sshtransport where there is no local PTY child to spawn.
func (b *Builder) WithTransport(t pty.Transport, c pty.Child) *Builder {
	b.trans, b.child, b.useCustom = t, c, true
	return b
}

// Build validates the configuration, spawns (or adopts) a transport, and
// returns a running Session.
func (b *Builder) Build() (*Session, error) {
	if err := b.cfg.validate(); err != nil {
		return nil, &Error{Kind: KindConfig, Op: "build", Err: err}
	}

	id := "sess_" + uuid.NewString()

	var trans pty.Transport
	var child pty.Child
	if b.useCustom {
		trans, child = b.trans, b.child
	} else {
		m, c, err := pty.Spawn(pty.SpawnConfig{
			Command: b.cfg.Command,
			Args:    b.cfg.Args,
			Env:     b.cfg.Env,
			Dir:     b.cfg.Dir,
			Dims:    b.cfg.Dimensions,
		})
		if err != nil {
			return nil, &Error{Kind: KindSpawn, Op: "build", SessionID: id, Err: err}
		}
		trans, child = m, c
	}

	s := &Session{
		id:      id,
		cfg:     b.cfg,
		log:     b.log.With("session_id", id),
		buf:     buffer.New(b.cfg.bufferCapacity()),
		trans:   trans,
		child:   child,
		dims:    b.cfg.Dimensions,
		winchCh: make(chan struct{}, 1),
		dataCh:  make(chan struct{}, 1),
		subs:    make(map[chan []byte]struct{}),
	}
	s.observers = append(s.observers, b.observers...)
	s.state.Store(int32(Running))
	pty.GlobalBridge().SubscribeWinch(s.winchCh)
	go s.readLoop()
	s.log.Debug("session started", "command", b.cfg.Command, "args", b.cfg.Args)
	return s, nil
}

// readLoop is the session's single background reader task: it issues
// blocking reads against the transport continuously, independent of
// whether a caller currently has an Expect call in flight, so the live
// output feed (Subscribe) and the buffer stay current even when nothing
// is calling Expect — the way the teacher's own read goroutine feeds its
// session unconditionally rather than only while a reader is attached.
// It owns buf.Append, the discard/broadcast notifications, and the
// EOF-observed state transition; ExpectAny only evaluates and consumes
// from the buffer this loop fills, waking on dataCh when new bytes (or a
// terminal outcome) arrive.
func (s *Session) readLoop() {
	p := make([]byte, 32*1024)
	for {
		n, err := s.trans.Read(p)
		if n > 0 {
			s.broadcast(p[:n])
			before := s.buf.BytesDiscarded()
			s.buf.Append(p[:n])
			s.notifyDiscard(s.buf.BytesDiscarded() - before)
		}
		if err != nil {
			s.ioErr.Store(err)
			s.signalData()
			return
		}
		if n == 0 {
			s.eof.Store(true)
			s.notifyEOF()
			s.markExited()
			s.signalData()
			return
		}
		s.signalData()
	}
}

// signalData wakes any ExpectAny call blocked waiting for new buffer
// content or a terminal outcome. Non-blocking: dataCh only needs to carry
// "something changed, recheck," not one event per chunk.
func (s *Session) signalData() {
	select {
	case s.dataCh <- struct{}{}:
	default:
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() State { return State(s.state.Load()) }

// BufferLen returns the number of bytes currently buffered.
func (s *Session) BufferLen() int { return s.buf.Len() }

// Pid returns the child's process id.
func (s *Session) Pid() int { return s.child.Pid() }

// Dimensions returns the last-known window size.
func (s *Session) Dimensions() pty.WindowSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// BufferBytes returns a copy of the bytes currently buffered and not yet
// consumed by a match, for callers (wsbridge, screen) that want to replay
// already-arrived output to a newly attached consumer.
func (s *Session) BufferBytes() []byte {
	data, _ := s.bufferSnapshot()
	return data
}

// LastMatch returns the most recent successful Match, or nil.
func (s *Session) LastMatch() *Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMatch
}

// Subscribe returns a channel of raw output chunks as they are read from
// the transport, for consumers that want a live feed alongside (not
// instead of) pattern matching — screen, transcript, wsbridge. Cancel
// stops delivery and must be called when the subscriber is done, or the
// channel holds a reference to the session for its lifetime. Delivery is
// non-blocking: a subscriber that falls behind drops the oldest chunks it
// hasn't read rather than stalling the read loop.
func (s *Session) Subscribe() (ch <-chan []byte, cancel func()) {
	c := make(chan []byte, 64)
	s.obsMu.Lock()
	if s.closed() {
		s.obsMu.Unlock()
		close(c)
		return c, func() {}
	}
	s.subs[c] = struct{}{}
	s.obsMu.Unlock()
	return c, func() {
		s.obsMu.Lock()
		delete(s.subs, c)
		s.obsMu.Unlock()
	}
}

func (s *Session) broadcast(p []byte) {
	if len(p) == 0 {
		return
	}
	cp := append([]byte(nil), p...)
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for c := range s.subs {
		select {
		case c <- cp:
		default:
			select {
			case <-c:
			default:
			}
			select {
			case c <- cp:
			default:
			}
		}
	}
}

func (s *Session) notifyMatch(elapsed time.Duration) {
	s.obsMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, o := range obs {
		o.OnMatch(s.id, elapsed)
	}
}

func (s *Session) notifyTimeout() {
	s.obsMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, o := range obs {
		o.OnTimeout(s.id)
	}
}

func (s *Session) notifyEOF() {
	s.obsMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, o := range obs {
		o.OnEOF(s.id)
	}
}

func (s *Session) notifyDiscard(n int) {
	if n <= 0 {
		return
	}
	s.obsMu.Lock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.Unlock()
	for _, o := range obs {
		o.OnBytesDiscarded(s.id, n)
	}
}

func (s *Session) closed() bool {
	st := s.State()
	return st == Closed || st == Exited
}

// Expect drives reads until pattern p matches, EOF occurs, or the
// deadline is reached (§4.8). ctx supplies cancellation; a zero deadline
// on ctx falls back to the session's configured default timeout.
func (s *Session) Expect(ctx context.Context, p pattern.Pattern) (Match, error) {
	set := pattern.NewSet(p)
	return s.ExpectAny(ctx, set)
}

// ExpectAny runs the evaluate-before-read loop from spec.md §4.8 against
// an ordered pattern set, returning the winning pattern's index per the
// selection rule in §3.
func (s *Session) ExpectAny(ctx context.Context, set *pattern.Set) (Match, error) {
	const op = "expect"
	if st := s.State(); st == Closing || st == Closed {
		return Match{}, newError(KindClosed, op, s.id)
	}

	dl := s.callDeadline(ctx)
	start := time.Now()

	for {
		// Step 2: evaluate current buffer contents before waiting for more.
		if m, ok := s.tryMatch(set); ok {
			s.notifyMatch(time.Since(start))
			return m, nil
		}

		if v := s.ioErr.Load(); v != nil {
			return Match{}, &Error{Kind: KindIO, Op: op, SessionID: s.id, Elapsed: time.Since(start), Err: v.(error), BufTail: s.tailForDiag()}
		}

		if s.eof.Load() {
			// The background reader has already observed EOF and no match
			// was found against whatever remains buffered.
			if idx := set.IndexOfKind(pattern.EOF); idx >= 0 {
				return s.finalizeMatch(Match{PatternIndex: idx}), nil
			}
			return Match{}, &Error{Kind: KindEOF, Op: op, SessionID: s.id, Elapsed: time.Since(start), BufTail: s.tailForDiag()}
		}

		if dl.IsExpired() {
			if idx := set.IndexOfKind(pattern.Timeout); idx >= 0 {
				s.notifyMatch(time.Since(start))
				return s.finalizeMatch(Match{PatternIndex: idx}), nil
			}
			s.notifyTimeout()
			return Match{}, s.timeoutErr(op, start, set)
		}

		// Step 3: wait for the background reader to make progress, or for
		// the deadline/context to expire, whichever comes first.
		if err := s.waitForSignal(ctx, dl); err != nil {
			if idx := set.IndexOfKind(pattern.Timeout); idx >= 0 {
				s.notifyMatch(time.Since(start))
				return s.finalizeMatch(Match{PatternIndex: idx}), nil
			}
			s.notifyTimeout()
			return Match{}, s.timeoutErr(op, start, set)
		}
	}
}

// waitForSignal blocks until readLoop signals new buffer content or a
// terminal outcome, ctx is done, or dl expires.
func (s *Session) waitForSignal(ctx context.Context, dl Deadline) error {
	timer := time.NewTimer(dl.Remaining())
	defer timer.Stop()
	select {
	case <-s.dataCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

// tryMatch evaluates every ordinary pattern in set against the current
// buffer snapshot and, on a hit, performs the consume-on-match partition.
func (s *Session) tryMatch(set *pattern.Set) (Match, bool) {
	data, offset := s.bufferSnapshot()
	text := string(data)
	res, ok := set.EvaluateContent(data, text)
	if !ok {
		return Match{}, false
	}
	// res's offsets are relative to data, which is only the full buffer
	// when BufferSearchWindow is unset; rebase to absolute buffer
	// positions before consuming from the full buffer.
	before := s.buf.Consume(offset + res.Match.Start)
	matched := s.buf.Consume(res.Match.End - res.Match.Start)
	after := s.buf.Bytes()
	m := Match{
		Before:       before,
		Matched:      matched,
		After:        after,
		PatternIndex: res.Index,
		Captures:     res.Match.Captures,
		NamedCaps:    res.Match.NamedCaps,
	}
	return s.finalizeMatch(m), true
}

// bufferSnapshot returns the bytes to evaluate patterns against, together
// with that slice's absolute offset from the buffer's current front (0
// unless BufferSearchWindow bounds the view to a tail window).
func (s *Session) bufferSnapshot() ([]byte, int) {
	if s.cfg.BufferSearchWindow > 0 {
		return s.buf.TailWithOffset(s.cfg.BufferSearchWindow)
	}
	return s.buf.Bytes(), 0
}

func (s *Session) finalizeMatch(m Match) Match {
	s.mu.Lock()
	s.lastMatch = &m
	s.mu.Unlock()
	return m
}

func (s *Session) callDeadline(ctx context.Context) Deadline {
	if at, ok := ctx.Deadline(); ok {
		return DeadlineAt(at)
	}
	return NewDeadline(s.cfg.DefaultTimeout)
}

func (s *Session) timeoutErr(op string, start time.Time, set *pattern.Set) *Error {
	e := &Error{Kind: KindTimeout, Op: op, SessionID: s.id, Elapsed: time.Since(start), BufTail: s.tailForDiag()}
	if set.Len() > 0 {
		e.Pattern = set.At(0).Source
	}
	return e
}

func (s *Session) tailForDiag() []byte {
	const diagTail = 256
	return s.buf.Tail(diagTail)
}

func (s *Session) markExited() {
	s.state.CompareAndSwap(int32(Running), int32(Exited))
	s.closeSubscribers()
}

// closeSubscribers closes every live Subscribe channel so consumers
// ranging over it (cmd/expectctl's run loop, wsbridge's writeLoop) wake up
// and see ok == false instead of blocking forever once no more output will
// ever arrive. Safe to call more than once; already-removed channels are
// simply skipped.
func (s *Session) closeSubscribers() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for c := range s.subs {
		close(c)
		delete(s.subs, c)
	}
}

// Send writes all of p, retrying on partial writes (§4.8).
func (s *Session) Send(p []byte) (int, error) {
	const op = "send"
	if s.closed() {
		return 0, newError(KindClosed, op, s.id)
	}
	total := 0
	for total < len(p) {
		n, err := s.trans.Write(p[total:])
		total += n
		if err != nil {
			return total, &Error{Kind: KindIO, Op: op, SessionID: s.id, Err: err}
		}
	}
	return total, nil
}

// SendLine writes text followed by the session's configured line
// terminator.
func (s *Session) SendLine(text string) error {
	_, err := s.Send(append([]byte(text), s.cfg.LineEnding.bytes()...))
	return err
}

// SendControl writes the single byte for a Ctrl-@..Ctrl-_ / ESC control
// character.
func (s *Session) SendControl(c Control) error {
	_, err := s.Send([]byte{c.byte()})
	return err
}

// Resize forwards to the transport and records the new dimensions.
func (s *Session) Resize(cols, rows uint16) error {
	const op = "resize"
	if s.closed() {
		return newError(KindClosed, op, s.id)
	}
	size := pty.WindowSize{Cols: cols, Rows: rows}
	if err := s.trans.Resize(size); err != nil {
		return &Error{Kind: KindIO, Op: op, SessionID: s.id, Err: err}
	}
	s.mu.Lock()
	s.dims = size
	s.mu.Unlock()
	return nil
}

// Wait blocks until the child exits.
func (s *Session) Wait(ctx context.Context) (pty.ExitStatus, error) {
	status, err := s.child.Wait(ctx)
	if err == nil {
		s.markExited()
	}
	return status, err
}

// Kill sends the uncatchable kill signal to the child.
func (s *Session) Kill() error {
	return s.child.Kill()
}

// Close performs the best-effort shutdown from spec.md §3: mark closing,
// attempt to terminate, then release the transport. It is safe to call
// more than once; only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closing))
		pty.GlobalBridge().UnsubscribeWinch(s.winchCh)

		if s.child.IsRunning() {
			_ = s.child.Signal(pty.Terminate)
			ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout())
			defer cancel()
			if _, err := s.child.Wait(ctx); err != nil {
				_ = s.child.Kill()
			}
		}

		s.closeErr = s.trans.Close()
		s.state.Store(int32(Closed))
		s.closeSubscribers()
	})
	return s.closeErr
}

func (s *Session) closeTimeout() time.Duration {
	if s.cfg.TimeoutClose > 0 {
		return s.cfg.TimeoutClose
	}
	return 5 * time.Second
}

// WatchResize blocks until either the process-wide SIGWINCH bridge fires
// for this session or ctx is done, then re-applies s.Dimensions() to the
// transport. Sessions that want automatic propagation of a controlling
// terminal's resize run this in a background goroutine (C12).
func (s *Session) WatchResize(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.winchCh:
			d := s.Dimensions()
			if err := s.trans.Resize(d); err != nil {
				return fmt.Errorf("session: resize propagation: %w", err)
			}
		}
	}
}
