package screen

import "testing"

func TestWriteAndPlainText(t *testing.T) {
	s := New(20, 5)
	if _, err := s.Write([]byte("hello\x1b[31m world\x1b[0m")); err != nil {
		t.Fatalf("write: %v", err)
	}
	text := s.PlainText()
	if text == "" {
		t.Fatal("expected non-empty rendered text")
	}
}

func TestResizeUpdatesDimensions(t *testing.T) {
	s := New(20, 5)
	s.Resize(40, 10)
	col, row := s.CursorPosition()
	if col < 0 || row < 0 {
		t.Fatalf("unexpected cursor position after resize: %d,%d", col, row)
	}
}

func TestStripANSIRemovesEscapeSequences(t *testing.T) {
	got := stripANSI("hello\x1b[31m world\x1b[0m")
	if got != "hello world" {
		t.Fatalf("unexpected stripped text: %q", got)
	}
}
