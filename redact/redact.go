// Package redact implements the PII-scrubbing layer spec.md §1 places
// beside the core as an external collaborator ("the core does not record
// or rewrite output; transcripts and redaction are layered"). It is meant
// to sit between a session's Match/Send and a transcript.Recorder or log
// sink, never inside the session engine's own matching path.
package redact

import "regexp"

// Rule pairs a detector with the literal text substituted for any match.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Redactor applies an ordered list of Rules to byte slices or strings. No
// suitable third-party PII-scrubbing library appears among the retrieved
// examples, so this stays on regexp — a narrow, self-contained use of the
// standard library rather than a gap in the domain stack (see DESIGN.md).
type Redactor struct {
	rules []Rule
}

// New returns a Redactor with no rules configured.
func New(rules ...Rule) *Redactor {
	return &Redactor{rules: append([]Rule(nil), rules...)}
}

// Default returns a Redactor pre-loaded with common secret/PII shapes:
// emails, bearer tokens, AWS-style access keys, SSNs, and IPv4 addresses.
func Default() *Redactor {
	return New(
		Rule{Name: "email", Pattern: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), Replacement: "[REDACTED_EMAIL]"},
		Rule{Name: "bearer_token", Pattern: regexp.MustCompile(`(?i)bearer\s+[a-z0-9._\-]+`), Replacement: "bearer [REDACTED_TOKEN]"},
		Rule{Name: "aws_access_key", Pattern: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), Replacement: "[REDACTED_AWS_KEY]"},
		Rule{Name: "ssn", Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), Replacement: "[REDACTED_SSN]"},
		Rule{Name: "ipv4", Pattern: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), Replacement: "[REDACTED_IP]"},
	)
}

// Add appends a rule, applied after all previously added rules.
func (r *Redactor) Add(rule Rule) {
	r.rules = append(r.rules, rule)
}

// String applies every rule to s in order and returns the result.
func (r *Redactor) String(s string) string {
	for _, rule := range r.rules {
		s = rule.Pattern.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

// Bytes applies every rule to p in order and returns the result.
func (r *Redactor) Bytes(p []byte) []byte {
	for _, rule := range r.rules {
		p = rule.Pattern.ReplaceAll(p, []byte(rule.Replacement))
	}
	return p
}
