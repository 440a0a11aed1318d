package pattern

import "testing"

func TestLiteralEvaluate(t *testing.T) {
	p := NewLiteral("world")
	m, ok := p.Evaluate([]byte("hello world"), "hello world")
	if !ok || m.Start != 6 || m.End != 11 {
		t.Fatalf("unexpected match: %+v ok=%v", m, ok)
	}
}

func TestRegexEvaluateCaptures(t *testing.T) {
	p := NewRegex(`user: (\w+)`)
	m, ok := p.Evaluate([]byte("login user: bob"), "login user: bob")
	if !ok {
		t.Fatal("expected match")
	}
	if len(m.Captures) != 1 || m.Captures[0] != "bob" {
		t.Fatalf("unexpected captures: %+v", m.Captures)
	}
}

func TestGlobEvaluate(t *testing.T) {
	p := NewGlob("error: *")
	if _, ok := p.Evaluate([]byte("error: disk full"), "error: disk full"); !ok {
		t.Fatal("expected glob match")
	}
	if _, ok := p.Evaluate([]byte("no match here"), "no match here"); ok {
		t.Fatal("did not expect a match")
	}
}

func TestSetSelectionSmallestStart(t *testing.T) {
	set := NewSet(NewLiteral("world"), NewLiteral("hello"))
	res, ok := set.EvaluateContent([]byte("hello world"), "hello world")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Index != 1 {
		t.Fatalf("expected index 1 (hello, smaller start), got %d", res.Index)
	}
}

func TestSetSelectionTieBreakByIndex(t *testing.T) {
	// Two patterns that both match starting at 0; the lower registration
	// index must win.
	set := NewSet(NewLiteral("he"), NewLiteral("hello"))
	res, ok := set.EvaluateContent([]byte("hello"), "hello")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.Index != 0 {
		t.Fatalf("expected index 0 (lowest registration index), got %d", res.Index)
	}
}

func TestSetNoMatch(t *testing.T) {
	set := NewSet(NewLiteral("nope"))
	if _, ok := set.EvaluateContent([]byte("hello"), "hello"); ok {
		t.Fatal("did not expect a match")
	}
}

func TestSetHasKind(t *testing.T) {
	set := NewSet(NewLiteral("x"), NewEOF(), NewTimeout())
	if !set.HasKind(EOF) || !set.HasKind(Timeout) {
		t.Fatal("expected EOF and Timeout present")
	}
	if set.HasKind(Glob) {
		t.Fatal("did not expect Glob present")
	}
}

func TestRegexCacheReuse(t *testing.T) {
	cache := NewRegexCache(4)
	re1, err := cache.Get(`\d+`)
	if err != nil {
		t.Fatal(err)
	}
	re2, err := cache.Get(`\d+`)
	if err != nil {
		t.Fatal(err)
	}
	if re1 != re2 {
		t.Fatal("expected cache hit to return the same compiled regex")
	}
}

func TestRegexCacheEviction(t *testing.T) {
	cache := NewRegexCache(2)
	if _, err := cache.Get("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("c"); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected bounded length 2, got %d", cache.Len())
	}
}

func TestCompileErrorOnBadRegex(t *testing.T) {
	p := NewRegex("(unterminated")
	if err := p.Compile(); err == nil {
		t.Fatal("expected compile error")
	}
}
