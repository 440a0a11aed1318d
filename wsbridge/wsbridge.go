// Package wsbridge streams a session's output over a websocket connection
// and accepts input/resize frames back, generalizing the teacher's
// internal/server websocket handler (§4.19) so it works with any
// *session.Session rather than a single CLI-tool-specific session type.
package wsbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/tassie-labs/expect/session"
)

// Message is the envelope every frame is wrapped in; Data carries the
// type-specific payload for re-marshaling into the concrete message
// struct below, mirroring the teacher's WSMessage/Data split.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outputMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type exitMsg struct {
	Type     string `json:"type"`
	ExitCode int    `json:"exitCode"`
	Live     bool   `json:"live"`
}

type scrollbackMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type inputMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type resizeMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// AcceptOptions configures the websocket handshake; OriginPatterns mirrors
// coder/websocket's own field so callers can restrict accepted origins.
type AcceptOptions struct {
	OriginPatterns []string
}

// Bridge streams one *session.Session over one websocket connection.
type Bridge struct {
	log *slog.Logger
}

// New returns a Bridge that logs with l (or the default logger if nil).
func New(l *slog.Logger) *Bridge {
	if l == nil {
		l = slog.Default()
	}
	return &Bridge{log: l}
}

// Serve upgrades r to a websocket, replays sess's current scrollback, then
// streams output and accepts input/resize frames until either side closes
// the connection or the request context is canceled. It returns once the
// connection is done.
func (b *Bridge) Serve(w http.ResponseWriter, r *http.Request, sess *session.Session, opts AcceptOptions) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: opts.OriginPatterns,
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()
	conn.SetReadLimit(64 * 1024)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	if buffered := sess.BufferBytes(); len(buffered) > 0 {
		msg := scrollbackMsg{Type: "scrollback", Data: base64.StdEncoding.EncodeToString(buffered)}
		if err := writeJSON(ctx, conn, msg); err != nil {
			return err
		}
	}

	go b.readLoop(ctx, cancel, conn, sess)
	go b.pingLoop(ctx, cancel, conn)

	return b.writeLoop(ctx, conn, sess, ch)
}

func (b *Bridge) pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				b.log.Debug("websocket ping failed", "err", err)
				return
			}
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session.Session) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			b.log.Debug("invalid ws message", "err", err)
			continue
		}

		switch msg.Type {
		case "input":
			var in inputMsg
			if err := json.Unmarshal(data, &in); err != nil {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(in.Data)
			if err != nil {
				continue
			}
			if _, err := sess.Send(decoded); err != nil {
				b.log.Debug("session send error", "err", err)
			}

		case "resize":
			var rs resizeMsg
			if err := json.Unmarshal(data, &rs); err != nil {
				continue
			}
			if err := sess.Resize(uint16(rs.Cols), uint16(rs.Rows)); err != nil {
				b.log.Debug("session resize error", "err", err)
			}

		default:
			b.log.Debug("unknown ws message type", "type", msg.Type)
		}
	}
}

func (b *Bridge) writeLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, ch <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			msg := outputMsg{Type: "output", Data: base64.StdEncoding.EncodeToString(data)}
			if err := writeJSON(ctx, conn, msg); err != nil {
				return err
			}
			if sess.State() == session.Exited {
				return writeExit(ctx, conn, 0, true)
			}
		}
	}
}

func writeExit(ctx context.Context, conn *websocket.Conn, exitCode int, live bool) error {
	return writeJSON(ctx, conn, exitMsg{Type: "exit", ExitCode: exitCode, Live: live})
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
