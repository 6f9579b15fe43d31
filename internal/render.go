package internal

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	strongStyle  = lipgloss.NewStyle().Bold(true)
	strongSpanRe = regexp.MustCompile(`(?s)<strong>(.*?)</strong>`)
)

// RenderAssistantText highlights assistant output and converts the
// resulting markup to terminal styling. Only assistant-sourced text
// goes through the highlighter; user text is rendered plain.
func RenderAssistantText(raw string) string {
	return RenderMarkup(Highlight(raw))
}

// RenderMarkup converts the highlighter's inline HTML to ANSI-styled
// text: emphasis spans become bold, line breaks become newlines, and
// anything else tag-shaped is stripped.
func RenderMarkup(markup string) string {
	out := strongSpanRe.ReplaceAllStringFunc(markup, func(span string) string {
		inner := strongSpanRe.FindStringSubmatch(span)[1]
		return strongStyle.Render(inner)
	})
	out = strings.ReplaceAll(out, "<br />", "\n")
	return markupTagRe.ReplaceAllString(out, "")
}
