package sshtransport

import (
	"testing"

	"github.com/tassie-labs/expect/pty"
)

func TestSignalTableCoversPortableSignals(t *testing.T) {
	for _, sig := range []pty.Signal{pty.Interrupt, pty.Quit, pty.Terminate, pty.Kill, pty.Hangup} {
		if _, ok := signalTable[sig]; !ok {
			t.Fatalf("expected %s to have a remote signal mapping", sig)
		}
	}
}

func TestChildSignalRejectsUnmappedSignal(t *testing.T) {
	c := &Child{doneCh: make(chan struct{})}
	err := c.Signal(pty.WindowChange)
	if err == nil {
		t.Fatal("expected error for a signal with no remote equivalent")
	}
}
