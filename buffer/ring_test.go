package buffer

import "testing"

func TestAppendBasic(t *testing.T) {
	r := New(100)
	r.Append([]byte("hello"))
	if r.Len() != 5 {
		t.Fatalf("expected len 5, got %d", r.Len())
	}
	if string(r.Bytes()) != "hello" {
		t.Fatalf("unexpected contents: %q", r.Bytes())
	}
}

func TestOverflowDiscardsOldest(t *testing.T) {
	r := New(10)
	r.Append([]byte("12345"))
	r.Append([]byte("67890"))
	r.Append([]byte("abc"))

	if r.Len() != 10 {
		t.Fatalf("expected len 10, got %d", r.Len())
	}
	if got := r.AsStringLossy(); got != "4567890abc" {
		t.Fatalf("expected %q, got %q", "4567890abc", got)
	}
	if r.BytesDiscarded() != 3 {
		t.Fatalf("expected 3 bytes discarded, got %d", r.BytesDiscarded())
	}
}

func TestSingleAppendLargerThanCapacity(t *testing.T) {
	r := New(4)
	r.Append([]byte("abcdefgh"))
	if got := r.AsStringLossy(); got != "efgh" {
		t.Fatalf("expected tail-only retention, got %q", got)
	}
	if r.BytesDiscarded() != 4 {
		t.Fatalf("expected 4 discarded, got %d", r.BytesDiscarded())
	}
}

func TestFind(t *testing.T) {
	r := New(100)
	r.Append([]byte("hello world"))
	if pos := r.Find([]byte("world")); pos != 6 {
		t.Fatalf("expected 6, got %d", pos)
	}
	if pos := r.Find([]byte("foo")); pos != -1 {
		t.Fatalf("expected -1, got %d", pos)
	}
}

func TestConsumeUntil(t *testing.T) {
	r := New(100)
	r.Append([]byte("login: username"))
	before, matched, ok := r.ConsumeUntil([]byte("login:"))
	if !ok {
		t.Fatal("expected match")
	}
	if string(before) != "" || string(matched) != "login:" {
		t.Fatalf("unexpected before/matched: %q %q", before, matched)
	}
	if got := r.AsStringLossy(); got != " username" {
		t.Fatalf("expected tail ' username', got %q", got)
	}
}

func TestTailAndHead(t *testing.T) {
	r := New(100)
	r.Append([]byte("hello world"))
	if string(r.Tail(5)) != "world" {
		t.Fatalf("unexpected tail: %q", r.Tail(5))
	}
	if string(r.Head(5)) != "hello" {
		t.Fatalf("unexpected head: %q", r.Head(5))
	}
}

func TestFindInTail(t *testing.T) {
	r := New(100)
	r.Append([]byte("the quick brown fox jumps over the lazy dog"))
	if pos := r.FindInTail([]byte("lazy"), 20); pos < 0 {
		t.Fatal("expected to find 'lazy' in the last 20 bytes")
	}
	if pos := r.FindInTail([]byte("quick"), 20); pos >= 0 {
		t.Fatal("did not expect to find 'quick' in the last 20 bytes")
	}
}

func TestConsumePanicsBeyondLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic consuming beyond buffer length")
		}
	}()
	r := New(10)
	r.Append([]byte("ab"))
	r.Consume(5)
}

func TestBufferLengthNeverExceedsMaxSize(t *testing.T) {
	r := New(16)
	for i := 0; i < 100; i++ {
		r.Append([]byte("A"))
	}
	if r.Len() != 16 {
		t.Fatalf("expected len 16, got %d", r.Len())
	}
	if r.BytesDiscarded() < 84 {
		t.Fatalf("expected at least 84 bytes discarded, got %d", r.BytesDiscarded())
	}
}
