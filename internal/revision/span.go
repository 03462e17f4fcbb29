package revision

import (
	"sort"
	"unicode/utf8"
)

// Replacement is one candidate fix proposed by the checker.
type Replacement struct {
	Value string `json:"value" bson:"value"`
}

// Span is one flagged issue over the original text. Offset and Length count
// characters (code points), not bytes.
type Span struct {
	Offset       int           `json:"offset" bson:"offset"`
	Length       int           `json:"length" bson:"length"`
	Message      string        `json:"message" bson:"message"`
	ShortMessage string        `json:"shortMessage,omitempty" bson:"shortMessage,omitempty"`
	Replacements []Replacement `json:"replacements" bson:"replacements"`
	Category     string        `json:"category,omitempty" bson:"category,omitempty"`
}

// End returns the first character position after the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// InBounds reports whether the span covers a non-empty range inside a text of
// textLen characters. Offset+Length is never computed so huge values cannot
// wrap around.
func (s Span) InBounds(textLen int) bool {
	return s.Offset >= 0 && s.Length > 0 && s.Offset <= textLen && s.Length <= textLen-s.Offset
}

// Hint is the suggestion shown next to a highlight: the first replacement,
// else the short message, else the message.
func (s Span) Hint() string {
	if len(s.Replacements) > 0 && s.Replacements[0].Value != "" {
		return s.Replacements[0].Value
	}
	if s.ShortMessage != "" {
		return s.ShortMessage
	}
	return s.Message
}

// Covered returns the slice of text the span points at, or "" when the span
// does not fit.
func (s Span) Covered(text string) string {
	runes := []rune(text)
	if !s.InBounds(len(runes)) {
		return ""
	}
	return string(runes[s.Offset:s.End()])
}

// ValidText replaces every invalid UTF-8 byte of text with U+FFFD, one per
// byte as a rune conversion reads it, so offsets and rendering agree on one
// text.
func ValidText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return string([]rune(text))
}

// SortSpans returns a copy of spans ordered by ascending offset. Spans with
// equal offsets keep their relative order.
func SortSpans(spans []Span) []Span {
	sorted := CloneSpans(spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})
	return sorted
}

// CloneSpans deep-copies spans, replacement lists included.
func CloneSpans(spans []Span) []Span {
	if spans == nil {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = s
		if s.Replacements != nil {
			out[i].Replacements = append([]Replacement(nil), s.Replacements...)
		}
	}
	return out
}

// validSpans drops spans that fall outside text and returns the rest sorted.
func validSpans(text string, spans []Span) []Span {
	n := utf8.RuneCountInString(text)
	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.InBounds(n) {
			kept = append(kept, s)
		}
	}
	return SortSpans(kept)
}

// FailureKind classifies why a check did not succeed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTransport
	FailureRemote
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureRemote:
		return "remote"
	case FailureMalformed:
		return "malformed"
	default:
		return "none"
	}
}

// Result is the outcome of one check cycle.
type Result struct {
	Text          string
	Spans         []Span
	Succeeded     bool
	Skipped       bool
	Failure       FailureKind
	FailureReason string
}

func skippedResult(text string) Result {
	return Result{Text: text, Spans: []Span{}, Succeeded: true, Skipped: true}
}

func failedResult(text string, kind FailureKind, reason string) Result {
	return Result{Text: text, Spans: []Span{}, Failure: kind, FailureReason: reason}
}
