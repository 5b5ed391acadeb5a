package script

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	headingPattern    = regexp.MustCompile(`(?m)^#+\s+`)
	boldPattern       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicPattern     = regexp.MustCompile(`\*(.+?)\*`)
	boldUnderPattern  = regexp.MustCompile(`__(.+?)__`)
	italUnderPattern  = regexp.MustCompile(`_(.+?)_`)
	codeBlockPattern  = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	bulletPattern     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedPattern   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	blankLinesPattern = regexp.MustCompile(`\n\n+`)
)

// Clean strips markdown artifacts a language model tends to emit so the
// text reads naturally when spoken. The result is NFC-normalized so that
// lengths counted on it are stable across input encodings.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	s := headingPattern.ReplaceAllString(norm.NFC.String(raw), "")
	s = codeBlockPattern.ReplaceAllString(s, "")
	s = boldPattern.ReplaceAllString(s, "$1")
	s = italicPattern.ReplaceAllString(s, "$1")
	s = boldUnderPattern.ReplaceAllString(s, "$1")
	s = italUnderPattern.ReplaceAllString(s, "$1")
	s = inlineCodePattern.ReplaceAllString(s, "$1")
	s = bulletPattern.ReplaceAllString(s, "")
	s = numberedPattern.ReplaceAllString(s, "")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
