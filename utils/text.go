package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^a-zA-Z0-9áéíóúüñÁÉÍÓÚÜÑ .,¿?¡!]`)
)

// CleanText collapses whitespace and keeps only letters, digits and basic
// Spanish punctuation. Used on text coming out of OCR.
func CleanText(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount is never below one so it can be used as a divisor.
func WordCount(text string) int {
	if n := len(Words(text)); n > 0 {
		return n
	}
	return 1
}

// LetterWords returns the lowercase purely alphabetic words of text whose
// length is between min and max characters, in order of appearance.
func LetterWords(text string, min, max int) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		n := len([]rune(tok))
		if n >= min && n <= max {
			out = append(out, tok)
		}
	}
	return out
}

// StripAccents removes combining marks, so "canción" becomes "cancion".
// The ñ is kept as a letter of its own.
func StripAccents(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r == 'ñ' || r == 'Ñ' {
			b.WriteRune(r)
			continue
		}
		b.WriteString(stripMarks(string(r)))
	}
	return b.String()
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CountLetter counts occurrences of letter in text ignoring case and accents.
func CountLetter(text string, letter rune) int {
	target := unicode.ToLower(letter)
	count := 0
	for _, r := range StripAccents(strings.ToLower(text)) {
		if r == target {
			count++
		}
	}
	return count
}
