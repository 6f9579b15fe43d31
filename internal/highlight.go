package internal

import (
	"regexp"
	"strings"
)

// The highlighter turns the constrained markup subset produced by the
// RAGIS backend into inline HTML. Only assistant text is ever run
// through it; user input is rendered plain at the call site. Every rule
// wraps a pre-existing substring in a fixed tag, so no attacker-controlled
// attributes can pass through.
var (
	boldStarRe  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe = regexp.MustCompile(`__(.+?)__`)
	ordinalRe   = regexp.MustCompile(`(^|\s)(\d+\.)(\s)`)
	labelRe     = regexp.MustCompile(`(^|\s)([A-Z][a-z]+:)`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	winPathRe   = regexp.MustCompile(`\b([A-Za-z]:\\[^\s<>]+)`)
	markupTagRe = regexp.MustCompile(`</?[a-z]+\s*/?>`)
)

// Highlight converts a message body to inline HTML. Rule order matters:
// rules applied later never rewrite text inside tags emitted by earlier
// rules, though re-wrapping the text between tags (a date inside a bold
// span) is allowed. Empty input yields empty output.
func Highlight(raw string) string {
	if raw == "" {
		return ""
	}

	out := boldStarRe.ReplaceAllString(raw, "<strong>$1</strong>")
	out = boldUnderRe.ReplaceAllString(out, "<strong>$1</strong>")

	out = outsideTags(out, func(s string) string {
		return ordinalRe.ReplaceAllString(s, "$1<strong>$2</strong>$3")
	})
	out = outsideTags(out, func(s string) string {
		return labelRe.ReplaceAllString(s, "$1<strong>$2</strong>")
	})
	out = outsideTags(out, func(s string) string {
		return isoDateRe.ReplaceAllString(s, "<strong>$1</strong>")
	})
	out = outsideTags(out, func(s string) string {
		return winPathRe.ReplaceAllString(s, "<strong>$1</strong>")
	})

	return strings.ReplaceAll(out, "\n", "<br />")
}

// outsideTags applies fn to the stretches of s that are not themselves
// markup tags, leaving previously emitted tags untouched.
func outsideTags(s string, fn func(string) string) string {
	tags := markupTagRe.FindAllStringIndex(s, -1)
	if len(tags) == 0 {
		return fn(s)
	}

	var b strings.Builder
	last := 0
	for _, tag := range tags {
		b.WriteString(fn(s[last:tag[0]]))
		b.WriteString(s[tag[0]:tag[1]])
		last = tag[1]
	}
	b.WriteString(fn(s[last:]))
	return b.String()
}
