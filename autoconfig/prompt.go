package autoconfig

import (
	"regexp"
	"strings"
)

// promptPattern pairs a prompt family name with its detector; order
// matters, most specific first, mirroring the original's PROMPT_PATTERNS
// table (root before generic bash/zsh, since both contain '#').
type promptPattern struct {
	name string
	re   *regexp.Regexp
}

var promptPatterns = []promptPattern{
	{"python", regexp.MustCompile(`>>>\s*$`)},
	{"irb", regexp.MustCompile(`irb\([^)]*\):\d+:\d+[>*]\s*$`)},
	{"powershell", regexp.MustCompile(`PS[^>]*>\s*$`)},
	{"mysql", regexp.MustCompile(`mysql>\s*$`)},
	{"postgres", regexp.MustCompile(`[a-z_]+[=#]\s*$`)},
	{"root", regexp.MustCompile(`^root@[^#]*#\s*$`)},
	{"bash", regexp.MustCompile(`[$#]\s*$`)},
	{"zsh", regexp.MustCompile(`%\s*$`)},
	{"fish", regexp.MustCompile(`[^>]>\s*$`)},
}

// PromptInfo describes a detected shell prompt.
type PromptInfo struct {
	PromptType string
	Matched    string
	Position   int
}

// DetectPrompt looks for a recognized prompt shape at the end of text,
// restricted to its last few lines so a prompt echoed earlier in a long
// buffer doesn't produce a false positive.
func DetectPrompt(text string) (PromptInfo, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	tail := strings.Join(lines, "\n")

	for _, pp := range promptPatterns {
		if loc := pp.re.FindStringIndex(tail); loc != nil {
			return PromptInfo{
				PromptType: pp.name,
				Matched:    tail[loc[0]:loc[1]],
				Position:   len(text) - (len(tail) - loc[0]),
			}, true
		}
	}
	return PromptInfo{}, false
}

// EndsWithPrompt reports whether text appears to end in a recognized shell prompt.
func EndsWithPrompt(text string) bool {
	_, ok := DetectPrompt(text)
	return ok
}
