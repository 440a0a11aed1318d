// Package multi implements the multi-session selector (C11): first-ready
// waits across a set of registered sessions, with lowest-registration-index
// tie-break and per-session-result fan-out for expect_all/send_all.
package multi

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tassie-labs/expect/pattern"
	"github.com/tassie-labs/expect/session"
)

// ID identifies a session within a Selector's registration order.
type ID int

// ReadyType distinguishes why a session was reported ready, grounded on
// original_source's multi/select.rs ReadyType enum.
type ReadyType int

const (
	Readable ReadyType = iota
	Closed
	Errored
)

func (r ReadyType) String() string {
	switch r {
	case Readable:
		return "readable"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// SelectResult is the outcome of a first-ready wait: which session won,
// why, and its Match if it matched a pattern.
type SelectResult struct {
	ID    ID
	Type  ReadyType
	Match session.Match
	Err   error
}

// Selector maintains SessionId -> Session registrations and the
// first-ready operations from spec.md §4.10.
type Selector struct {
	mu       sync.Mutex
	sessions map[ID]*session.Session
	order    []ID
	nextID   ID
}

// New returns an empty Selector.
func New() *Selector {
	return &Selector{sessions: make(map[ID]*session.Session)}
}

// Register adds sess and returns its registration ID; registration order
// is what breaks ties when multiple sessions become ready in the same
// tick (§5: "the lowest-registration-index among sessions ready in the
// same tick").
func (s *Selector) Register(sess *session.Session) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.sessions[id] = sess
	s.order = append(s.order, id)
	return id
}

// Unregister removes a session from the selector.
func (s *Selector) Unregister(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered sessions.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Selector) snapshot(ids []ID) ([]ID, map[ID]*session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids == nil {
		ids = append([]ID(nil), s.order...)
	}
	subset := make(map[ID]*session.Session, len(ids))
	for _, id := range ids {
		if sess, ok := s.sessions[id]; ok {
			subset[id] = sess
		}
	}
	return ids, subset
}

// ExpectAnySession runs pattern p against every session in ids
// concurrently and returns whichever matches first (§4.10
// expect_any_session). Losers are cancelled; their buffers retain
// whatever bytes had already been read.
func (s *Selector) ExpectAnySession(ctx context.Context, ids []ID, p pattern.Pattern) (ID, session.Match, error) {
	orderedIDs, subset := s.snapshot(ids)

	type outcome struct {
		idx   int
		id    ID
		match session.Match
		err   error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan outcome, len(orderedIDs))
	var wg sync.WaitGroup
	for idx, id := range orderedIDs {
		sess, ok := subset[id]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(idx int, id ID, sess *session.Session) {
			defer wg.Done()
			m, err := sess.Expect(ctx, p)
			select {
			case resultCh <- outcome{idx: idx, id: id, match: m, err: err}:
			case <-ctx.Done():
			}
		}(idx, id, sess)
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var winners []outcome
	for o := range resultCh {
		if o.err == nil {
			winners = append(winners, o)
			// Take any other successes already queued alongside this one, so
			// the lowest registration index among them wins the tie.
			for more := true; more; {
				select {
				case o2, ok := <-resultCh:
					if !ok {
						more = false
					} else if o2.err == nil {
						winners = append(winners, o2)
					}
				default:
					more = false
				}
			}
			cancel()
			break
		}
	}
	// Drain remaining sends so the goroutines above don't block forever on
	// a full channel after we've stopped reading.
	go func() {
		for range resultCh {
		}
	}()

	if len(winners) == 0 {
		return 0, session.Match{}, fmt.Errorf("multi: no session matched %q", p.Source)
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].idx < winners[j].idx })
	w := winners[0]
	return w.id, w.match, nil
}

// SessionResult is one session's outcome within an ExpectAll call.
type SessionResult struct {
	ID    ID
	Match session.Match
	Err   error
}

// ExpectAll waits for every session in ids to match p (or its own
// deadline to expire) and returns all results once every session has
// resolved (§4.10 expect_all).
func (s *Selector) ExpectAll(ctx context.Context, ids []ID, p pattern.Pattern) []SessionResult {
	orderedIDs, subset := s.snapshot(ids)
	results := make([]SessionResult, len(orderedIDs))
	var wg sync.WaitGroup
	for i, id := range orderedIDs {
		sess, ok := subset[id]
		if !ok {
			results[i] = SessionResult{ID: id, Err: fmt.Errorf("multi: session %d not registered", id)}
			continue
		}
		wg.Add(1)
		go func(i int, id ID, sess *session.Session) {
			defer wg.Done()
			m, err := sess.Expect(ctx, p)
			results[i] = SessionResult{ID: id, Match: m, Err: err}
		}(i, id, sess)
	}
	wg.Wait()
	return results
}

// SendResult is one session's outcome within a SendAll call.
type SendResult struct {
	ID      ID
	Written int
	Err     error
}

// SendAll fans out a write to every session in ids in parallel (§4.10
// send_all).
func (s *Selector) SendAll(ids []ID, data []byte) []SendResult {
	orderedIDs, subset := s.snapshot(ids)
	results := make([]SendResult, len(orderedIDs))
	var wg sync.WaitGroup
	for i, id := range orderedIDs {
		sess, ok := subset[id]
		if !ok {
			results[i] = SendResult{ID: id, Err: fmt.Errorf("multi: session %d not registered", id)}
			continue
		}
		wg.Add(1)
		go func(i int, id ID, sess *session.Session) {
			defer wg.Done()
			n, err := sess.Send(data)
			results[i] = SendResult{ID: id, Written: n, Err: err}
		}(i, id, sess)
	}
	wg.Wait()
	return results
}
