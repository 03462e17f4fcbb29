package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"profeamigo/internal/revision"
)

func spellingSpan(offset, length int, message, fix string) revision.Span {
	s := revision.Span{Offset: offset, Length: length, Message: message, Category: "TYPOS"}
	if fix != "" {
		s.Replacements = []revision.Replacement{{Value: fix}}
	}
	return s
}

func TestExplainSingleError(t *testing.T) {
	out := Explain("Yo tengo un caza", []revision.Span{
		spellingSpan(12, 4, "Posible error ortográfico.", "casa"),
	})

	assert.Contains(t, out, `<span class="word-incorrect">"caza"</span>`)
	assert.Contains(t, out, `<span class="word-correct">"casa"</span>`)
	assert.Contains(t, out, "Revisa la ortografía en")
	assert.Equal(t, 1, strings.Count(out, `class="error-explanation"`))
}

func TestExplainCapsAtFiveErrors(t *testing.T) {
	text := "aa bb cc dd ee ff gg"
	var errs []revision.Span
	for i := 0; i < 7; i++ {
		errs = append(errs, spellingSpan(i*3, 2, "m", ""))
	}

	out := Explain(text, errs)

	assert.Equal(t, MaxExplainedErrors, strings.Count(out, `class="error-explanation"`))
	assert.NotContains(t, out, "Sugerencia")
}

func TestExplainNoErrors(t *testing.T) {
	out := Explain("Hola amigo", nil)
	assert.Contains(t, out, "¡Muy bien!")
}

func TestExplainOnlyOutOfRangeErrors(t *testing.T) {
	out := Explain("Hola", []revision.Span{spellingSpan(10, 3, "m", "x")})
	assert.Contains(t, out, "sin consejo específico")
	assert.NotContains(t, out, "error-explanation")
}

func TestExplainEscapesCheckerText(t *testing.T) {
	out := Explain("<b>x", []revision.Span{spellingSpan(0, 3, "usa <i>", "&")})
	assert.Contains(t, out, "&lt;b&gt;")
	assert.Contains(t, out, "usa &lt;i&gt;")
	assert.Contains(t, out, `"&amp;"`)
	assert.NotContains(t, out, "<b>")
}

func TestAdviceKeywords(t *testing.T) {
	word := "w"
	assert.Contains(t, advice("Falta concordancia de género", word), "concordancia")
	assert.Contains(t, advice("Falta una tilde", word), "acento")
	assert.Contains(t, advice("Use mayúscula al inicio", word), "mayúsculas")
	assert.Contains(t, advice("Signo de puntuación", word), "puntuación")
	assert.Equal(t, "Revisa: w.", advice("otra cosa", word))
}

func TestExplainFailure(t *testing.T) {
	assert.Contains(t, ExplainFailure("Error HTTP 500"), "(Error HTTP 500)")
	assert.Contains(t, ExplainFailure(""), "Error desconocido")
}
