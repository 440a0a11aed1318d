package transcript

import (
	"bytes"
	"context"
	"path/filepath"
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

func TestStoreMigratesAndRoundTripsHeader(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "transcript.db")
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	now := time.Now()
	if err := store.CreateSession(Header{SessionID: "sess_1", Command: "bash", Cols: 80, Rows: 24, StartedAt: now}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	h, err := store.Header("sess_1")
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Command != "bash" || h.Cols != 80 || h.Rows != 24 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.EndedAt != nil {
		t.Fatal("expected nil EndedAt before EndSession")
	}
}

func TestAppendAndQueryEvents(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "transcript.db")
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.CreateSession(Header{SessionID: "sess_2", Command: "sh", Cols: 80, Rows: 24, StartedAt: time.Now()}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	events := []Event{
		{Seq: 1, ElapsedSeconds: 0.1, Kind: Output, Data: "hello"},
		{Seq: 2, ElapsedSeconds: 0.5, Kind: Output, Data: " world"},
	}
	if err := store.AppendEvents("sess_2", events); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Events("sess_2", 0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(got) != 2 || got[0].Data != "hello" || got[1].Data != " world" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestRecorderCapturesSessionOutput(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "transcript.db")
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess, tr := newMockSession(t)
	rec, err := Start(store, sess, "mock")
	if err != nil {
		t.Fatalf("start recorder: %v", err)
	}

	tr.Feed([]byte("hello there"))
	if _, err := sess.Expect(context.Background(), pattern.NewLiteral("there")); err != nil {
		t.Fatalf("expect: %v", err)
	}

	if err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	events, err := store.Events(sess.ID(), 0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one recorded event")
	}
	var all bytes.Buffer
	for _, e := range events {
		all.WriteString(e.Data)
	}
	if all.String() != "hello there" {
		t.Fatalf("unexpected recorded content: %q", all.String())
	}
}
