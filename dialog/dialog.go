// Package dialog implements the declarative step-sequence scripter (C10):
// a finite-state traversal of expect/send steps with variable
// substitution and branching, executed against a session.Session.
package dialog

import (
	"strings"
	"time"

	"github.com/tassie-labs/expect/pattern"
)

// Step is one node in a Dialog's traversal (§3): it may expect a pattern,
// send text or a control character, branch on the matched text, or fall
// through to the next step in order.
type Step struct {
	Name    string
	Expect  *pattern.Pattern
	Send    string
	RawSend bool // true: write Send verbatim; false (default): append the session's line ending
	Control string // e.g. "ctrl-c"; resolved by the executor's control table
	Timeout time.Duration

	ContinueOnTimeout bool

	// Next names the step to run afterward; empty means "advance in
	// declaration order". Branches maps a substring of the matched text to
	// a step name and is checked before Next.
	Next     string
	Branches map[string]string
}

// Dialog is a named, ordered sequence of steps plus the variable bindings
// substituted into Send text before it is written.
type Dialog struct {
	Name        string
	Description string
	Entry       string
	Steps       []Step
	Variables   map[string]string
}

// New returns an empty, named Dialog.
func New(name string) *Dialog {
	return &Dialog{Name: name, Variables: map[string]string{}}
}

// Var sets a variable binding and returns the Dialog for chaining.
func (d *Dialog) Var(name, value string) *Dialog {
	d.Variables[name] = value
	return d
}

// Step appends a step and returns the Dialog for chaining.
func (d *Dialog) Step(s Step) *Dialog {
	d.Steps = append(d.Steps, s)
	return d
}

// stepIndex returns the index of the step named name, or -1.
func (d *Dialog) stepIndex(name string) int {
	for i, s := range d.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// entryIndex resolves the starting step: Entry if set, otherwise the
// first step (§4.9 step 1).
func (d *Dialog) entryIndex() int {
	if d.Entry != "" {
		if i := d.stepIndex(d.Entry); i >= 0 {
			return i
		}
	}
	return 0
}

// substitute replaces every ${NAME} occurrence in text with its bound
// variable value (§3); unbound names are left unchanged.
func (d *Dialog) substitute(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start
		b.WriteString(rest[:start])
		name := rest[start+2 : end]
		if v, ok := d.Variables[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}
	return b.String()
}
