package autoconfig

import (
	"os"
	"strings"
)

// LocaleInfo is a parsed POSIX locale string (language[_territory][.codeset][@modifier]).
type LocaleInfo struct {
	Language  string
	Territory string
	Codeset   string
	Modifier  string
}

// ParseLocale parses a locale string like "en_US.UTF-8" or "de_DE.UTF-8@euro".
func ParseLocale(locale string) LocaleInfo {
	if locale == "" || locale == "C" || locale == "POSIX" {
		return LocaleInfo{Language: "C"}
	}

	remaining := locale
	var info LocaleInfo

	if at := strings.LastIndexByte(remaining, '@'); at >= 0 {
		info.Modifier = remaining[at+1:]
		remaining = remaining[:at]
	}
	if dot := strings.LastIndexByte(remaining, '.'); dot >= 0 {
		info.Codeset = remaining[dot+1:]
		remaining = remaining[:dot]
	}
	if under := strings.LastIndexByte(remaining, '_'); under >= 0 {
		info.Territory = remaining[under+1:]
		remaining = remaining[:under]
	}
	if remaining != "" {
		info.Language = remaining
	}
	return info
}

// IsUTF8 reports whether the codeset is some spelling of "utf8".
func (l LocaleInfo) IsUTF8() bool {
	c := strings.ToLower(strings.ReplaceAll(l.Codeset, "-", ""))
	return c == "utf8"
}

// String reassembles the locale into its canonical textual form.
func (l LocaleInfo) String() string {
	var b strings.Builder
	b.WriteString(l.Language)
	if l.Territory != "" {
		b.WriteByte('_')
		b.WriteString(l.Territory)
	}
	if l.Codeset != "" {
		b.WriteByte('.')
		b.WriteString(l.Codeset)
	}
	if l.Modifier != "" {
		b.WriteByte('@')
		b.WriteString(l.Modifier)
	}
	return b.String()
}

// DetectLocale reads LC_ALL, falling back to LANG, and parses the result.
func DetectLocale() LocaleInfo {
	locale := os.Getenv("LC_ALL")
	if locale == "" {
		locale = os.Getenv("LANG")
	}
	return ParseLocale(locale)
}

// IsUTF8Environment reports whether the current environment's locale is UTF-8.
func IsUTF8Environment() bool {
	return DetectLocale().IsUTF8()
}

// UTF8Env returns the LANG/LC_ALL pair to set on a spawned child when the
// caller wants to force UTF-8 regardless of the host environment.
func UTF8Env() []string {
	return []string{"LANG=en_US.UTF-8", "LC_ALL=en_US.UTF-8"}
}
