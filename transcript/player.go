package transcript

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Player replays a recorded session's events against an io.Writer,
// honoring the original inter-event timing (scaled by Speed).
type Player struct {
	store *Store
	Speed float64
}

// NewPlayer returns a Player reading from store at real-time speed.
func NewPlayer(store *Store) *Player {
	return &Player{store: store, Speed: 1.0}
}

// Replay writes sessionID's Output events to w, sleeping between events to
// reproduce the original pacing divided by Speed (Speed <= 0 behaves as
// 1.0). It stops early if ctx is canceled.
func (p *Player) Replay(ctx context.Context, w io.Writer, sessionID string) error {
	events, err := p.store.Events(sessionID, 0, 0)
	if err != nil {
		return fmt.Errorf("transcript: replay: %w", err)
	}

	speed := p.Speed
	if speed <= 0 {
		speed = 1.0
	}

	var last float64
	for _, e := range events {
		if e.Kind != Output {
			continue
		}
		gap := time.Duration((e.ElapsedSeconds - last) / speed * float64(time.Second))
		last = e.ElapsedSeconds
		if gap > 0 {
			timer := time.NewTimer(gap)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		if _, err := io.WriteString(w, e.Data); err != nil {
			return fmt.Errorf("transcript: replay write: %w", err)
		}
	}
	return nil
}
