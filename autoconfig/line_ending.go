package autoconfig

import (
	"runtime"

	"github.com/tassie-labs/expect/session"
)

// DefaultLineEnding returns the platform's conventional line terminator:
// CRLF on Windows, LF everywhere else.
func DefaultLineEnding() session.LineEnding {
	if runtime.GOOS == "windows" {
		return session.CRLF
	}
	return session.LF
}

// DetectLineEnding inspects data and returns whichever of LF/CRLF/CR
// occurs most often, falling back to DefaultLineEnding on a tie or on
// data with no line endings at all.
func DetectLineEnding(data []byte) session.LineEnding {
	var lf, crlf, cr int
	for i := 0; i < len(data); i++ {
		switch {
		case data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n':
			crlf++
			i++
		case data[i] == '\n':
			lf++
		case data[i] == '\r':
			cr++
		}
	}

	switch {
	case crlf > lf && crlf > cr:
		return session.CRLF
	case lf > crlf && lf > cr:
		return session.LF
	case cr > lf && cr > crlf:
		return session.CR
	default:
		return DefaultLineEnding()
	}
}
