package autoconfig

import (
	"github.com/tassie-labs/expect/session"
)

// QuickBuilder returns a session.Builder pre-populated from best-effort
// environment detection: the default shell for command (when command is
// empty), the platform's line ending, and UTF-8 env vars when the host
// locale isn't already UTF-8. Any explicit Builder setter called
// afterward overrides these defaults, since autoconfig never claims to
// know better than a caller who configured something directly.
func QuickBuilder(command string) *session.Builder {
	if command == "" {
		command = DefaultShellPath()
	}
	b := session.NewBuilder(command).LineEndingMode(DefaultLineEnding())
	if !IsUTF8Environment() {
		b = b.Env(UTF8Env()...)
	}
	return b
}
