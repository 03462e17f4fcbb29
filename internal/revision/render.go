package revision

import (
	"fmt"
	"html"
	"strings"
)

const (
	NoIssuesMarkup       = `<span class="correct">¡Muy bien! No encontré errores. 👍</span>`
	NeedsMoreInputMarkup = `<span class="pending">Escribe un poco más para revisar el texto.</span>`
)

// Render wraps every flagged span of text in a highlight marker carrying its
// hint. Spans are walked in offset order; a span that starts before the end of
// the previous one is skipped, and spans out of bounds are ignored. Every
// literal character is escaped at emission time. When no span is left the
// no-issues indicator is returned instead of the text. text is read as UTF-8:
// each invalid byte comes out as U+FFFD, so callers pass it through
// ValidText first.
func Render(text string, spans []Span) string {
	ordered := validSpans(text, spans)
	if len(ordered) == 0 {
		return NoIssuesMarkup
	}

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text) + len(ordered)*64)
	cursor := 0
	for _, s := range ordered {
		if s.Offset < cursor {
			continue
		}
		b.WriteString(html.EscapeString(string(runes[cursor:s.Offset])))
		b.WriteString(`<span class="incorrect" title="Sugerencia: `)
		b.WriteString(html.EscapeString(s.Hint()))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(string(runes[s.Offset:s.End()])))
		b.WriteString(`</span>`)
		cursor = s.End()
	}
	b.WriteString(html.EscapeString(string(runes[cursor:])))
	return b.String()
}

// RenderedCount is the number of spans Render would highlight.
func RenderedCount(text string, spans []Span) int {
	count, cursor := 0, 0
	for _, s := range validSpans(text, spans) {
		if s.Offset < cursor {
			continue
		}
		count++
		cursor = s.End()
	}
	return count
}

// FailureMarkup is shown in place of the corrected text when a check fails.
func FailureMarkup(reason string) string {
	if reason == "" {
		reason = ReasonConnection
	}
	return `<div class="error">No se pudo revisar el texto.<br>(` + html.EscapeString(reason) + `)</div>`
}

// ErrorCountLabel is the human readable error counter.
func ErrorCountLabel(n int) string {
	if n == 1 {
		return "1 error detectado"
	}
	return fmt.Sprintf("%d errores detectados", n)
}
