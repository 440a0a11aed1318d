package autoconfig

import (
	"testing"

	"github.com/tassie-labs/expect/session"
)

func TestDetectShellFromPath(t *testing.T) {
	cases := map[string]ShellType{
		"/bin/bash":           ShellBash,
		"/usr/bin/zsh":        ShellZsh,
		"/bin/sh":             ShellSh,
		"C:\\Windows\\cmd.exe": ShellCmd,
		"pwsh":                ShellPowerShell,
		"/usr/bin/nonsense":   ShellUnknown,
	}
	for path, want := range cases {
		if got := DetectShellFromPath(path); got != want {
			t.Errorf("DetectShellFromPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestShellPromptPatterns(t *testing.T) {
	if ShellBash.PromptPattern() == "" {
		t.Fatal("expected a non-empty bash prompt pattern")
	}
	if ShellCmd.SupportsANSI() {
		t.Fatal("cmd.exe should not be reported as ANSI-capable")
	}
	if !ShellBash.SupportsANSI() {
		t.Fatal("bash should be reported as ANSI-capable")
	}
}

func TestParseLocaleFull(t *testing.T) {
	info := ParseLocale("en_US.UTF-8")
	if info.Language != "en" || info.Territory != "US" || info.Codeset != "UTF-8" {
		t.Fatalf("unexpected parse: %+v", info)
	}
	if !info.IsUTF8() {
		t.Fatal("expected UTF-8 locale")
	}
	if info.String() != "en_US.UTF-8" {
		t.Fatalf("unexpected round trip: %q", info.String())
	}
}

func TestParseLocaleWithModifier(t *testing.T) {
	info := ParseLocale("de_DE.UTF-8@euro")
	if info.Language != "de" || info.Territory != "DE" || info.Modifier != "euro" {
		t.Fatalf("unexpected parse: %+v", info)
	}
}

func TestParseLocaleC(t *testing.T) {
	info := ParseLocale("C")
	if info.Language != "C" || info.IsUTF8() {
		t.Fatalf("unexpected parse: %+v", info)
	}
}

func TestDetectPromptBash(t *testing.T) {
	info, ok := DetectPrompt("user@host:~$ ")
	if !ok {
		t.Fatal("expected a detected prompt")
	}
	if info.PromptType != "bash" {
		t.Fatalf("got %q want bash", info.PromptType)
	}
}

func TestDetectPromptRootBeforeBash(t *testing.T) {
	info, ok := DetectPrompt("root@host:/# ")
	if !ok || info.PromptType != "root" {
		t.Fatalf("expected root prompt, got %+v ok=%v", info, ok)
	}
}

func TestDetectPromptPython(t *testing.T) {
	info, ok := DetectPrompt(">>> ")
	if !ok || info.PromptType != "python" {
		t.Fatalf("expected python prompt, got %+v ok=%v", info, ok)
	}
}

func TestDetectLineEndingLF(t *testing.T) {
	got := DetectLineEnding([]byte("line1\nline2\nline3\n"))
	if got != session.LF {
		t.Fatalf("unexpected line ending: %v", got)
	}
}

func TestDetectLineEndingCRLF(t *testing.T) {
	got := DetectLineEnding([]byte("line1\r\nline2\r\n"))
	if got != session.CRLF {
		t.Fatalf("unexpected line ending: %v", got)
	}
}
