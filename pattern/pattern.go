// Package pattern implements the pattern kinds and pattern set the session
// engine evaluates against buffered terminal output: literal, regex, glob,
// EOF, and timeout, with deterministic selection across a set (C2-C4).
package pattern

import (
	"bytes"
	"fmt"
)

// Kind identifies which variant a Pattern holds.
type Kind int

const (
	// Literal matches the first occurrence of a byte sequence.
	Literal Kind = iota
	// Regex matches the first occurrence of a compiled expression.
	Regex
	// Glob matches shell-style wildcards compiled to a regex.
	Glob
	// EOF matches when the transport has signaled end-of-input and the
	// buffer has been drained of earlier matches. Not evaluated against
	// bytes directly; the session engine resolves it (Session.ExpectAny).
	EOF
	// Timeout matches when the expect call's deadline (its context
	// deadline, or the session's default timeout) expires. It carries no
	// duration of its own and is not evaluated against buffer content.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Regex:
		return "regex"
	case Glob:
		return "glob"
	case EOF:
		return "eof"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Match is the result of evaluating a single Pattern against a buffer
// snapshot: 0 <= Start <= End <= len(snapshot).
type Match struct {
	Start      int
	End        int
	Captures   []string          // positional capture groups, regex only
	NamedCaps  map[string]string // named capture groups, regex only
}

// Pattern is a tagged value: one of the five kinds in Kind, cheap to
// construct, with compiled regex bodies interned via the process-wide
// RegexCache.
type Pattern struct {
	Kind   Kind
	Source string // literal text, regex source, or glob source
	cache  *RegexCache
}

// NewLiteral builds a Pattern matching the first occurrence of s.
func NewLiteral(s string) Pattern {
	return Pattern{Kind: Literal, Source: s}
}

// NewRegex builds a Pattern matching the compiled expression re, using the
// process-wide regex cache by default. Use NewRegexWithCache to inject a
// different cache (tests, bounded scopes).
func NewRegex(re string) Pattern {
	return Pattern{Kind: Regex, Source: re, cache: GlobalCache()}
}

// NewRegexWithCache is like NewRegex but looks up/compiles against cache
// instead of the process-wide default.
func NewRegexWithCache(re string, cache *RegexCache) Pattern {
	return Pattern{Kind: Regex, Source: re, cache: cache}
}

// NewGlob builds a Pattern matching shell-style wildcards `*`, `?`, `[...]`.
func NewGlob(g string) Pattern {
	return Pattern{Kind: Glob, Source: g, cache: GlobalCache()}
}

// NewEOF builds the special end-of-input Pattern.
func NewEOF() Pattern {
	return Pattern{Kind: EOF}
}

// NewTimeout builds the special elapsed-time Pattern. The session engine
// evaluates it against its own deadline, not via Evaluate.
func NewTimeout() Pattern {
	return Pattern{Kind: Timeout}
}

// Compile validates the pattern can be evaluated (for Regex/Glob, that the
// source compiles), surfacing a pattern-compile error eagerly rather than
// at first expect call.
func (p Pattern) Compile() error {
	switch p.Kind {
	case Regex:
		cache := p.cache
		if cache == nil {
			cache = GlobalCache()
		}
		_, err := cache.Get(p.Source)
		return err
	case Glob:
		cache := p.cache
		if cache == nil {
			cache = GlobalCache()
		}
		_, err := cache.Get(globToRegex(p.Source))
		return err
	default:
		return nil
	}
}

// Evaluate finds the first match of p against data (bytes) / text (the
// string view of the same bytes): literal patterns match on data, regex and
// glob (compiled to a regex) match on text, and offsets are byte offsets,
// the same in both views. EOF and Timeout never match via Evaluate; the
// session engine resolves them against transport/deadline state.
func (p Pattern) Evaluate(data []byte, text string) (Match, bool) {
	switch p.Kind {
	case Literal:
		return evaluateLiteral(data, []byte(p.Source))
	case Regex:
		return p.evaluateRegex(text, p.Source)
	case Glob:
		return p.evaluateRegex(text, globToRegex(p.Source))
	default:
		return Match{}, false
	}
}

func evaluateLiteral(data, needle []byte) (Match, bool) {
	if len(needle) == 0 {
		return Match{Start: 0, End: 0}, true
	}
	idx := bytes.Index(data, needle)
	if idx < 0 {
		return Match{}, false
	}
	return Match{Start: idx, End: idx + len(needle)}, true
}

func (p Pattern) evaluateRegex(text, source string) (Match, bool) {
	cache := p.cache
	if cache == nil {
		cache = GlobalCache()
	}
	re, err := cache.Get(source)
	if err != nil {
		return Match{}, false
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}
	m := Match{Start: loc[0], End: loc[1]}
	names := re.SubexpNames()
	for i := 1; i*2 < len(loc); i++ {
		if loc[i*2] < 0 {
			m.Captures = append(m.Captures, "")
			continue
		}
		cap := text[loc[i*2]:loc[i*2+1]]
		m.Captures = append(m.Captures, cap)
		if i < len(names) && names[i] != "" {
			if m.NamedCaps == nil {
				m.NamedCaps = make(map[string]string)
			}
			m.NamedCaps[names[i]] = cap
		}
	}
	return m, true
}

// CompileError wraps a pattern-compile failure with the offending source
// and kind, per spec.md §7's "Pattern compile" error class.
type CompileError struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern: failed to compile %s %q: %v", e.Kind, e.Source, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
