package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour,
// wrapping at width columns. A width of zero keeps glamour's default.
func NewRenderer(width int) func(string) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return PlainRenderer
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// PlainRenderer returns markdown untouched, for pipes and tests.
func PlainRenderer(markdown string) (string, error) {
	return markdown + "\n", nil
}

// FormatReply turns a reply into markdown: the formatted answer followed by
// a numbered list of the sources behind it.
func FormatReply(reply *domain.Reply) string {
	if reply.Message.IsError {
		return "> **" + reply.Formatted + "**"
	}
	var b strings.Builder
	b.WriteString(reply.Formatted)
	if len(reply.Answer.Sources) > 0 && reply.Answer.ComplexityLevel != domain.LevelEasy {
		b.WriteString("\n\n---\n")
		for i, src := range reply.Answer.Sources {
			fmt.Fprintf(&b, "%d. %s\n", i+1, domain.SourceName(src, i+1))
		}
	}
	return b.String()
}
