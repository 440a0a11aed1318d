package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/tassie-labs/expect/session"
)

// defaultFlushInterval bounds how long output can sit unflushed in memory
// before a background tick forces it to disk, independent of the
// batchSize trigger.
const defaultFlushInterval = 500 * time.Millisecond

// Recorder subscribes to a session.Session's raw output feed and appends
// asciicast-v2-shaped events to a Store, batching writes rather than
// issuing one INSERT per chunk.
type Recorder struct {
	store     *Store
	sessionID string
	start     time.Time
	cancel    func()

	mu      sync.Mutex
	seq     int
	pending []Event

	batchSize int
	stop      chan struct{}
	done      chan struct{}
}

// Start begins recording sess's output under sessionID, writing the
// session header immediately and flushing batches of events as they
// accumulate. Call Stop to flush any remainder and stamp the end time.
func Start(store *Store, sess *session.Session, command string) (*Recorder, error) {
	start := time.Now()
	dims := sess.Dimensions()
	if err := store.CreateSession(Header{
		SessionID: sess.ID(),
		Command:   command,
		Cols:      dims.Cols,
		Rows:      dims.Rows,
		StartedAt: start,
	}); err != nil {
		return nil, err
	}

	ch, cancel := sess.Subscribe()
	r := &Recorder{
		store:     store,
		sessionID: sess.ID(),
		start:     start,
		cancel:    cancel,
		batchSize: 64,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.loop(ch)
	return r, nil
}

func (r *Recorder) loop(ch <-chan []byte) {
	defer close(r.done)
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				r.flush()
				return
			}
			r.record(Output, p)
		case <-ticker.C:
			r.flush()
		case <-r.stop:
			for drained := false; !drained; {
				select {
				case p, ok := <-ch:
					if ok {
						r.record(Output, p)
					} else {
						drained = true
					}
				default:
					drained = true
				}
			}
			r.flush()
			return
		}
	}
}

func (r *Recorder) record(kind Kind, p []byte) {
	r.mu.Lock()
	r.seq++
	r.pending = append(r.pending, Event{
		Seq:            r.seq,
		ElapsedSeconds: time.Since(r.start).Seconds(),
		Kind:           kind,
		Data:           string(p),
	})
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()
	if full {
		r.flush()
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	_ = r.store.AppendEvents(r.sessionID, batch)
}

// RecordInput records a sent-input event out of band, for callers that
// want keystrokes in the transcript alongside output (asciicast "i"
// events are conventionally used for exactly this).
func (r *Recorder) RecordInput(p []byte) {
	r.record(Input, p)
}

// Stop unsubscribes from the session, flushes any remaining events, and
// stamps the recording's end time.
func (r *Recorder) Stop(ctx context.Context) error {
	r.cancel()
	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.store.EndSession(r.sessionID, time.Now())
}
