package validate

import (
	"strings"
	"unicode/utf8"
)

// Sanitize repairs recoverable content problems in place and returns a
// warning per repair. An empty warning list means the document was already
// clean. Content that sanitizes down to nothing is the caller's unrecoverable
// case.
func Sanitize(content string) (string, []string) {
	var warnings []string

	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
		warnings = append(warnings, "dropped invalid UTF-8 sequences")
	}

	if strings.Contains(content, "\r") {
		content = strings.ReplaceAll(content, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")
		warnings = append(warnings, "normalized carriage returns")
	}

	if cleaned := stripControl(content); cleaned != content {
		content = cleaned
		warnings = append(warnings, "stripped control characters")
	}

	return content, warnings
}

// stripControl removes C0 control characters except newline and tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
