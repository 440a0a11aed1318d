// Package buffer implements the bounded byte accumulator that the session
// engine drains transport reads into and runs pattern matches against.
package buffer

import (
	"bytes"
	"sync"
)

// DefaultCapacity is the ring buffer size used when a session does not
// configure buffer.max_size explicitly.
const DefaultCapacity = 1024 * 1024 // 1MB

// Ring is a bounded, append-only byte accumulator. Bytes are never
// rewritten, only appended, searched, or consumed from the front. When an
// append would exceed MaxSize, the oldest bytes are dropped so the final
// length equals min(MaxSize, len+new); a single append larger than MaxSize
// retains only its trailing MaxSize bytes.
//
// Ring is safe for concurrent use: the session engine's background reader
// appends while the expect loop evaluates and consumes.
type Ring struct {
	mu             sync.Mutex
	data           []byte
	maxSize        int
	totalWritten   int
	bytesDiscarded int
}

// New creates a Ring with the given maximum size. A non-positive maxSize
// falls back to DefaultCapacity.
func New(maxSize int) *Ring {
	if maxSize <= 0 {
		maxSize = DefaultCapacity
	}
	return &Ring{
		data:    make([]byte, 0, maxSize),
		maxSize: maxSize,
	}
}

// Append adds data to the buffer, dropping the oldest bytes on overflow.
// Append never fails.
func (r *Ring) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalWritten += len(data)

	if len(data) >= r.maxSize {
		start := len(data) - r.maxSize
		r.bytesDiscarded += len(r.data) + start
		r.data = append(r.data[:0:0], data[start:]...)
		return
	}

	needed := len(r.data) + len(data) - r.maxSize
	if needed > 0 {
		r.bytesDiscarded += needed
		r.data = append(r.data[:0], r.data[needed:]...)
	}
	r.data = append(r.data, data...)
}

// Len returns the current number of bytes held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// MaxSize returns the configured capacity.
func (r *Ring) MaxSize() int {
	return r.maxSize
}

// TotalWritten returns the monotonic count of bytes ever appended.
func (r *Ring) TotalWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalWritten
}

// BytesDiscarded returns the monotonic count of bytes dropped on overflow.
func (r *Ring) BytesDiscarded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytesDiscarded
}

// Bytes returns a copy of the buffer's current contents.
func (r *Ring) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// AsStringLossy returns the buffer's contents as a string for regex/glob
// matching. The bytes are copied as-is, not re-encoded: invalid UTF-8 stays
// in the string (Go's regexp reads each such byte as U+FFFD), so offsets
// into the string are byte offsets into Bytes().
func (r *Ring) AsStringLossy() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.data)
}

// Find returns the offset of the first occurrence of needle, or -1.
// An empty needle matches at offset 0.
func (r *Ring) Find(needle []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(needle) == 0 {
		return 0
	}
	return bytes.Index(r.data, needle)
}

// FindInTail searches only the last window bytes of the buffer, returning
// an absolute offset (relative to the buffer start) or -1. Regex evaluation
// against megabyte-scale buffers is expensive when new data is small;
// callers that know patterns are recent can bound the search this way.
func (r *Ring) FindInTail(needle []byte, window int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := len(r.data) - window
	if start < 0 {
		start = 0
	}
	rel := bytes.Index(r.data[start:], needle)
	if rel < 0 {
		return -1
	}
	return start + rel
}

// Consume removes the first n bytes, returning them. n must be <= Len();
// violating this is an internal consistency error and panics, per spec.md
// §7 ("internal consistency violations may panic").
func (r *Ring) Consume(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 0 || n > len(r.data) {
		panic("buffer: consume beyond buffer length")
	}
	out := make([]byte, n)
	copy(out, r.data[:n])
	r.data = append(r.data[:0], r.data[n:]...)
	return out
}

// ConsumeUntil finds needle, then atomically consumes the bytes before it
// and the needle itself, returning (before, matched) and leaving only the
// tail in the buffer. Returns false if needle is not present.
func (r *Ring) ConsumeUntil(needle []byte) (before, matched []byte, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := bytes.Index(r.data, needle)
	if pos < 0 {
		return nil, nil, false
	}
	end := pos + len(needle)
	before = append([]byte{}, r.data[:pos]...)
	matched = append([]byte{}, r.data[pos:end]...)
	r.data = append(r.data[:0], r.data[end:]...)
	return before, matched, true
}

// Tail returns the last n bytes (or fewer, if the buffer is shorter).
func (r *Ring) Tail(n int) []byte {
	out, _ := r.TailWithOffset(n)
	return out
}

// TailWithOffset returns the last n bytes together with their absolute
// offset from the buffer's current front, so a caller that matches
// against the tail slice can rebase a match position back into a position
// valid for Consume against the full buffer.
func (r *Ring) TailWithOffset(n int) (data []byte, offset int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := len(r.data) - n
	if start < 0 {
		start = 0
	}
	out := make([]byte, len(r.data)-start)
	copy(out, r.data[start:])
	return out, start
}

// Head returns the first n bytes (or fewer, if the buffer is shorter).
func (r *Ring) Head(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.data) {
		n = len(r.data)
	}
	out := make([]byte, n)
	copy(out, r.data[:n])
	return out
}

// Clear empties the buffer without affecting TotalWritten/BytesDiscarded.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = r.data[:0]
}
