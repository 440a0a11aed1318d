package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tassie-labs/expect/session"
)

// StepResult records the outcome of running a single step (§4.9's
// executor return value): the match (if any), elapsed time, and whether
// the step was skipped because its expect timed out under
// continue_on_timeout.
type StepResult struct {
	Step    string
	Match   *session.Match
	Elapsed time.Duration
	Skipped bool
}

// Result is the full outcome of running a Dialog: per-step results in
// execution order, and the error (if any) that ended the run early.
type Result struct {
	Dialog string
	Steps  []StepResult
	Err    error
}

var controlTable = map[string]session.Control{
	"ctrl-a": session.CtrlA, "ctrl-b": session.CtrlB, "ctrl-c": session.CtrlC,
	"ctrl-d": session.CtrlD, "ctrl-e": session.CtrlE, "ctrl-f": session.CtrlF,
	"ctrl-g": session.CtrlG, "ctrl-h": session.CtrlH, "ctrl-i": session.CtrlI,
	"ctrl-j": session.CtrlJ, "ctrl-k": session.CtrlK, "ctrl-l": session.CtrlL,
	"ctrl-m": session.CtrlM, "ctrl-n": session.CtrlN, "ctrl-o": session.CtrlO,
	"ctrl-p": session.CtrlP, "ctrl-q": session.CtrlQ, "ctrl-r": session.CtrlR,
	"ctrl-s": session.CtrlS, "ctrl-t": session.CtrlT, "ctrl-u": session.CtrlU,
	"ctrl-v": session.CtrlV, "ctrl-w": session.CtrlW, "ctrl-x": session.CtrlX,
	"ctrl-y": session.CtrlY, "ctrl-z": session.CtrlZ,
	"escape": session.Escape, "ctrl-backslash": session.CtrlBackslash,
}

// Run executes d against sess starting at its entry step, following §4.9's
// traversal: expect, then send, then choose the next step by branch match,
// explicit next, or declaration order.
func Run(ctx context.Context, d *Dialog, sess *session.Session) Result {
	result := Result{Dialog: d.Name}
	if len(d.Steps) == 0 {
		return result
	}

	idx := d.entryIndex()
	visited := 0
	maxSteps := len(d.Steps) * 4 // guards against a branch cycle in a malformed dialog

	for idx >= 0 && idx < len(d.Steps) {
		if visited >= maxSteps {
			result.Err = fmt.Errorf("dialog: exceeded step budget, possible branch cycle at %q", d.Steps[idx].Name)
			return result
		}
		visited++

		step := d.Steps[idx]
		sr := StepResult{Step: step.Name}
		start := time.Now()

		var matchedText string
		if step.Expect != nil {
			stepCtx := ctx
			var cancel context.CancelFunc
			if step.Timeout > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
			}
			m, err := sess.Expect(stepCtx, *step.Expect)
			if cancel != nil {
				cancel()
			}
			sr.Elapsed = time.Since(start)
			if err != nil {
				if sessErr, ok := err.(*session.Error); ok && sessErr.Kind == session.KindTimeout && step.ContinueOnTimeout {
					sr.Skipped = true
					result.Steps = append(result.Steps, sr)
					idx = nextIndex(d, idx, "")
					continue
				}
				result.Err = fmt.Errorf("dialog: step %q: %w", step.Name, err)
				result.Steps = append(result.Steps, sr)
				return result
			}
			sr.Match = &m
			matchedText = string(m.Matched)
		}

		if step.Send != "" {
			text := d.substitute(step.Send)
			var sendErr error
			if step.RawSend {
				_, sendErr = sess.Send([]byte(text))
			} else {
				sendErr = sess.SendLine(strings.TrimSuffix(text, "\n"))
			}
			if sendErr != nil {
				result.Err = fmt.Errorf("dialog: step %q: send: %w", step.Name, sendErr)
				result.Steps = append(result.Steps, sr)
				return result
			}
		}
		if step.Control != "" {
			ctrl, ok := controlTable[strings.ToLower(step.Control)]
			if !ok {
				result.Err = fmt.Errorf("dialog: step %q: unknown control %q", step.Name, step.Control)
				result.Steps = append(result.Steps, sr)
				return result
			}
			if err := sess.SendControl(ctrl); err != nil {
				result.Err = fmt.Errorf("dialog: step %q: send control: %w", step.Name, err)
				result.Steps = append(result.Steps, sr)
				return result
			}
		}

		result.Steps = append(result.Steps, sr)
		idx = nextIndex(d, idx, matchedText)
	}

	return result
}

// nextIndex resolves the step to run after the one at idx (§4.9 step 2c):
// a branch match wins, then an explicit Next, then declaration order.
func nextIndex(d *Dialog, idx int, matchedText string) int {
	step := d.Steps[idx]
	if matchedText != "" {
		for key, target := range step.Branches {
			if strings.Contains(matchedText, key) {
				if i := d.stepIndex(target); i >= 0 {
					return i
				}
			}
		}
	}
	if step.Next != "" {
		if i := d.stepIndex(step.Next); i >= 0 {
			return i
		}
		return len(d.Steps) // unknown explicit next ends the dialog
	}
	return idx + 1
}
