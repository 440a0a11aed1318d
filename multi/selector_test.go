package multi

import (
	"context"
	"testing"
	"time"

	"github.com/tassie-labs/expect/pattern"
	"github.com/tassie-labs/expect/session"
	"github.com/tassie-labs/expect/transport/mocktransport"
)

func newMockSession(t *testing.T) (*session.Session, *mocktransport.Transport) {
	t.Helper()
	tr := mocktransport.New()
	ch := mocktransport.NewChild()
	s, err := session.NewBuilder("mock").
		DefaultTimeout(2 * time.Second).
		WithTransport(tr, ch).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return s, tr
}

func TestRegisterAssignsDistinctIDs(t *testing.T) {
	sel := New()
	s1, _ := newMockSession(t)
	s2, _ := newMockSession(t)
	id1 := sel.Register(s1)
	id2 := sel.Register(s2)
	if id1 == id2 {
		t.Fatal("expected distinct ids")
	}
	if sel.Len() != 2 {
		t.Fatalf("expected 2 registered sessions, got %d", sel.Len())
	}
}

func TestExpectAnySessionReturnsFirstReady(t *testing.T) {
	sel := New()
	sSlow, _ := newMockSession(t)
	sFast, trFast := newMockSession(t)
	sel.Register(sSlow)
	fastID := sel.Register(sFast)

	trFast.Feed([]byte("ready"))

	winner, _, err := sel.ExpectAnySession(context.Background(), nil, pattern.NewLiteral("ready"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner != fastID {
		t.Fatalf("expected session %d to win, got %d", fastID, winner)
	}
}

func TestExpectAllWaitsForEverySession(t *testing.T) {
	sel := New()
	s1, tr1 := newMockSession(t)
	s2, tr2 := newMockSession(t)
	sel.Register(s1)
	sel.Register(s2)
	tr1.Feed([]byte("ok"))
	tr2.Feed([]byte("ok"))

	results := sel.ExpectAll(context.Background(), nil, pattern.NewLiteral("ok"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected per-session error: %v", r.Err)
		}
	}
}

func TestSendAllFansOutWrites(t *testing.T) {
	sel := New()
	s1, tr1 := newMockSession(t)
	s2, tr2 := newMockSession(t)
	sel.Register(s1)
	sel.Register(s2)

	results := sel.SendAll(nil, []byte("hi"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if string(tr1.Sent()) != "hi" || string(tr2.Sent()) != "hi" {
		t.Fatalf("expected both transports to receive the write")
	}
}

func TestGroupTracksLabels(t *testing.T) {
	g := NewGroup("workers")
	s1, _ := newMockSession(t)
	id := g.Add("worker-1", s1)
	if g.Label(id) != "worker-1" {
		t.Fatalf("expected label worker-1, got %q", g.Label(id))
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 session in group, got %d", g.Len())
	}
}
