package dialog

import (
	"context"
	"testing"
	"time"

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

func TestLoginDialogCreation(t *testing.T) {
	d := Login("user", "pass")
	if d.Name != "login" {
		t.Fatalf("unexpected name: %s", d.Name)
	}
	if len(d.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(d.Steps))
	}
}

func TestSSHDialogHasVariables(t *testing.T) {
	d := SSH("host", "user", "pass")
	if d.Variables["HOST"] != "host" {
		t.Fatalf("expected HOST variable bound")
	}
}

func TestSubstituteReplacesKnownVariables(t *testing.T) {
	d := New("x").Var("NAME", "bob")
	got := d.substitute("hello ${NAME}, bye ${MISSING}")
	want := "hello bob, bye ${MISSING}"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRunExecutesSequentially(t *testing.T) {
	s, tr := newMockSession(t)
	tr.Feed([]byte("login: "))

	d := Login("alice", "secret")
	done := make(chan Result, 1)
	go func() {
		done <- Run(context.Background(), d, s)
	}()

	// feed the password prompt only after the login step's send has gone
	// out, mirroring an interactive program's actual behavior
	time.Sleep(20 * time.Millisecond)
	tr.Feed([]byte("assword: "))

	res := <-done
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(res.Steps))
	}
	sent := string(tr.Sent())
	if sent != "alice\nsecret\n" {
		t.Fatalf("unexpected sent bytes: %q", sent)
	}
}

func TestRunBranchesOnMatchedText(t *testing.T) {
	s, tr := newMockSession(t)
	tr.Feed([]byte("menu: "))

	d := New("branching")
	step1 := expectSendStep("ask", "menu:", "")
	step1.Branches = map[string]string{"menu:": "done"}
	d.Step(step1)
	d.Step(Step{Name: "skipped", Send: "should-not-run\n"})
	d.Step(Step{Name: "done", Send: "ok\n"})

	res := Run(context.Background(), d, s)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if string(tr.Sent()) != "ok\n" {
		t.Fatalf("expected branch to skip 'skipped' step, got sent=%q", tr.Sent())
	}
}

func TestRunFailsOnUnresolvedTimeout(t *testing.T) {
	s, _ := newMockSession(t)
	d := New("stuck")
	p := expectSendStep("wait-forever", "never-appears", "")
	p.Timeout = 20 * time.Millisecond
	d.Step(p)

	res := Run(context.Background(), d, s)
	if res.Err == nil {
		t.Fatal("expected dialog to fail on unresolved timeout")
	}
}

func TestRunContinuesOnTimeoutWhenConfigured(t *testing.T) {
	s, _ := newMockSession(t)
	d := New("soft-timeout")
	step := expectSendStep("maybe", "never-appears", "")
	step.Timeout = 20 * time.Millisecond
	step.ContinueOnTimeout = true
	d.Step(step)
	d.Step(Step{Name: "after", Send: "done\n"})

	res := Run(context.Background(), d, s)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Steps[0].Skipped {
		t.Fatal("expected first step to be marked skipped")
	}
}
