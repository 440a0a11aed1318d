package wsbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

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

func TestServeStreamsOutputAndAcceptsInput(t *testing.T) {
	sess, tr := newMockSession(t)
	bridge := New(nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = bridge.Serve(w, r, sess, AcceptOptions{OriginPatterns: []string{"*"}})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	tr.Feed([]byte("hello"))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "output" {
		t.Fatalf("got type %q want output", msg.Type)
	}
	var out outputMsg
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != "hello" {
		t.Fatalf("got %q want hello", decoded)
	}

	in := inputMsg{Type: "input", Data: base64.StdEncoding.EncodeToString([]byte("ping"))}
	payload, _ := json.Marshal(in)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write input: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(string(tr.Sent()), "ping") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected session to have received input, sent=%q", tr.Sent())
}
