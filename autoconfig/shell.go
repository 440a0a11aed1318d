// Package autoconfig provides best-effort environment detection — shell,
// locale, line ending, and a generic shell-prompt pattern — whose defaults
// QuickBuilder applies to a session.Builder (§4.17). An explicit Builder
// setting always wins over anything detected here; nothing in this
// package is load-bearing for the core expect loop.
package autoconfig

import (
	"os"
	"runtime"
	"strings"
)

// ShellType names a recognized shell family.
type ShellType int

const (
	ShellUnknown ShellType = iota
	ShellSh
	ShellBash
	ShellZsh
	ShellFish
	ShellKsh
	ShellTcsh
	ShellDash
	ShellPowerShell
	ShellCmd
)

func (t ShellType) String() string {
	switch t {
	case ShellSh:
		return "sh"
	case ShellBash:
		return "bash"
	case ShellZsh:
		return "zsh"
	case ShellFish:
		return "fish"
	case ShellKsh:
		return "ksh"
	case ShellTcsh:
		return "tcsh"
	case ShellDash:
		return "dash"
	case ShellPowerShell:
		return "powershell"
	case ShellCmd:
		return "cmd"
	default:
		return "unknown"
	}
}

// SupportsANSI reports whether the shell's default prompt is expected to
// render ANSI sequences (cmd.exe is the one notable holdout).
func (t ShellType) SupportsANSI() bool { return t != ShellCmd }

// PromptPattern returns a regex matching this shell family's typical
// trailing prompt.
func (t ShellType) PromptPattern() string {
	switch t {
	case ShellBash, ShellSh, ShellDash, ShellKsh:
		return `[$#]\s*$`
	case ShellZsh:
		return `[%#$]\s*$`
	case ShellFish:
		return `>\s*$`
	case ShellTcsh:
		return `[%>]\s*$`
	case ShellPowerShell:
		return `PS[^>]*>\s*$`
	case ShellCmd:
		return `>\s*$`
	default:
		return `[$#%>]\s*$`
	}
}

// DetectShell inspects $SHELL (and, on Windows, $COMSPEC) to guess the
// user's interactive shell.
func DetectShell() ShellType {
	if sh := os.Getenv("SHELL"); sh != "" {
		return DetectShellFromPath(sh)
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			if strings.Contains(strings.ToLower(comspec), "powershell") {
				return ShellPowerShell
			}
			return ShellCmd
		}
	}
	return ShellUnknown
}

// DetectShellFromPath classifies a shell executable path by its base
// name (the part after the last '/' or '\'), case-insensitively.
func DetectShellFromPath(path string) ShellType {
	name := strings.ToLower(path)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "sh":
		return ShellSh
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	case "ksh", "ksh93", "mksh":
		return ShellKsh
	case "tcsh", "csh":
		return ShellTcsh
	case "dash":
		return ShellDash
	case "pwsh", "powershell", "powershell.exe":
		return ShellPowerShell
	case "cmd", "cmd.exe":
		return ShellCmd
	default:
		return ShellUnknown
	}
}

// DefaultShellPath returns the path to spawn when no explicit command was
// given: $SHELL on Unix-likes, $COMSPEC (or "cmd.exe") on Windows.
func DefaultShellPath() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}
	return "/bin/sh"
}
