package session

import (
	"context"
	"testing"
	"time"

	"github.com/tassie-labs/expect/pattern"
	"github.com/tassie-labs/expect/pty"
	"github.com/tassie-labs/expect/transport/mocktransport"
)

func newMockSession(t *testing.T) (*Session, *mocktransport.Transport, *mocktransport.Child) {
	t.Helper()
	tr := mocktransport.New()
	ch := mocktransport.NewChild()
	s, err := NewBuilder("mock").
		DefaultTimeout(2 * time.Second).
		WithTransport(tr, ch).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s, tr, ch
}

func TestExpectMatchesBufferedContent(t *testing.T) {
	s, tr, _ := newMockSession(t)
	tr.Feed([]byte("login: "))

	m, err := s.Expect(context.Background(), pattern.NewLiteral("login:"))
	if err != nil {
		t.Fatalf("expect: %v", err)
	}
	if string(m.Matched) != "login:" {
		t.Fatalf("unexpected matched text: %q", m.Matched)
	}
	if string(m.After) != " " {
		t.Fatalf("unexpected buffer remainder: %q", m.After)
	}
}

func TestExpectWithSearchWindowRebasesMatchPosition(t *testing.T) {
	tr := mocktransport.New()
	ch := mocktransport.NewChild()
	s, err := NewBuilder("mock").
		DefaultTimeout(2 * time.Second).
		BufferSearchWindow(5).
		WithTransport(tr, ch).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The match ("hello") only falls inside the last 5 bytes of a longer
	// buffer, so its position from Set.EvaluateContent is relative to the
	// window, not the full buffer, and must be rebased before Consume.
	tr.Feed([]byte("xxxxxhello"))

	m, err := s.Expect(context.Background(), pattern.NewLiteral("hello"))
	if err != nil {
		t.Fatalf("expect: %v", err)
	}
	if string(m.Before) != "xxxxx" {
		t.Fatalf("unexpected before: %q", m.Before)
	}
	if string(m.Matched) != "hello" {
		t.Fatalf("unexpected matched: %q", m.Matched)
	}
	if string(m.After) != "" {
		t.Fatalf("unexpected after: %q", m.After)
	}
}

func TestExpectConsumesPriorExpects(t *testing.T) {
	s, tr, _ := newMockSession(t)
	tr.Feed([]byte("login: user\npassword: "))

	if _, err := s.Expect(context.Background(), pattern.NewLiteral("login: ")); err != nil {
		t.Fatalf("first expect: %v", err)
	}
	m, err := s.Expect(context.Background(), pattern.NewLiteral("password:"))
	if err != nil {
		t.Fatalf("second expect: %v", err)
	}
	if string(m.Before) != "user\n" {
		t.Fatalf("unexpected before: %q", m.Before)
	}
}

func TestExpectTimeout(t *testing.T) {
	s, _, _ := newMockSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Expect(ctx, pattern.NewLiteral("never"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	sessErr, ok := err.(*Error)
	if !ok || sessErr.Kind != KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
}

func TestExpectAnyReturnsTimeoutOutcomeWhenPatternPresent(t *testing.T) {
	s, _, _ := newMockSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	set := pattern.NewSet(pattern.NewLiteral("never"), pattern.NewTimeout())
	m, err := s.ExpectAny(ctx, set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PatternIndex != 1 {
		t.Fatalf("expected timeout pattern index 1, got %d", m.PatternIndex)
	}
}

func TestExpectEOFWithoutPatternFails(t *testing.T) {
	s, tr, _ := newMockSession(t)
	tr.FeedEOF()

	_, err := s.Expect(context.Background(), pattern.NewLiteral("never"))
	if err == nil {
		t.Fatal("expected EOF error")
	}
	sessErr, ok := err.(*Error)
	if !ok || sessErr.Kind != KindEOF {
		t.Fatalf("expected KindEOF, got %v", err)
	}
}

func TestExpectAnyResolvesEOFPattern(t *testing.T) {
	s, tr, _ := newMockSession(t)
	tr.FeedEOF()

	set := pattern.NewSet(pattern.NewLiteral("never"), pattern.NewEOF())
	m, err := s.ExpectAny(context.Background(), set)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PatternIndex != 1 {
		t.Fatalf("expected EOF pattern index 1, got %d", m.PatternIndex)
	}
	if s.State() != Exited {
		t.Fatalf("expected session state Exited, got %v", s.State())
	}
}

func TestSubscribeChannelClosesOnExit(t *testing.T) {
	s, tr, _ := newMockSession(t)
	ch, cancel := s.Subscribe()
	defer cancel()
	tr.FeedEOF()

	_, err := s.Expect(context.Background(), pattern.NewEOF())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel never closed after session exit")
	}
}

func TestSubscribeAfterExitReturnsClosedChannel(t *testing.T) {
	s, tr, _ := newMockSession(t)
	tr.FeedEOF()
	if _, err := s.Expect(context.Background(), pattern.NewEOF()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected already-closed channel")
		}
	default:
		t.Fatal("expected channel subscribed after exit to be closed immediately")
	}
}

func TestSendWritesThroughTransport(t *testing.T) {
	s, tr, _ := newMockSession(t)
	if err := s.SendLine("echo hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(tr.Sent()) != "echo hi\n" {
		t.Fatalf("unexpected sent bytes: %q", tr.Sent())
	}
}

func TestSendControlWritesSingleByte(t *testing.T) {
	s, tr, _ := newMockSession(t)
	if err := s.SendControl(CtrlC); err != nil {
		t.Fatalf("send control: %v", err)
	}
	if got := tr.Sent(); len(got) != 1 || got[0] != 0x03 {
		t.Fatalf("unexpected control bytes: %v", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _, ch := newMockSession(t)
	ch.Exit(pty.ExitStatus{Kind: pty.Exited, Code: 0})
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOperationAfterCloseFailsFast(t *testing.T) {
	s, _, ch := newMockSession(t)
	ch.Exit(pty.ExitStatus{Kind: pty.Exited, Code: 0})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := s.Expect(context.Background(), pattern.NewLiteral("x"))
	sessErr, ok := err.(*Error)
	if !ok || sessErr.Kind != KindClosed {
		t.Fatalf("expected KindClosed, got %v", err)
	}
}

func TestResizeUpdatesDimensions(t *testing.T) {
	s, _, _ := newMockSession(t)
	if err := s.Resize(120, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
	d := s.Dimensions()
	if d.Cols != 120 || d.Rows != 40 {
		t.Fatalf("unexpected dimensions: %+v", d)
	}
}
