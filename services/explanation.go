package services

import (
	"html"
	"strings"

	"profeamigo/internal/revision"
)

const (
	MaxExplainedErrors = 5

	NeedsMoreTextAdvice = "<p>Escribe un poco más para obtener consejos detallados.</p>"
)

type explainedError struct {
	text       string
	suggestion string
	message    string
}

// Explain builds the tutor feedback for text and the checker errors. Errors
// whose range does not fit the text are ignored and at most five are explained.
func Explain(text string, errs []revision.Span) string {
	var picked []explainedError
	for _, e := range revision.SortSpans(errs) {
		covered := e.Covered(text)
		if covered == "" {
			continue
		}
		ex := explainedError{text: covered, message: e.Message}
		if len(e.Replacements) > 0 {
			ex.suggestion = e.Replacements[0].Value
		}
		picked = append(picked, ex)
		if len(picked) == MaxExplainedErrors {
			break
		}
	}

	var b strings.Builder
	b.WriteString(`<div class="tutor-feedback"><h4>Consejos de Profe Amigo:</h4>`)
	if len(picked) == 0 {
		if len(errs) > 0 {
			b.WriteString(`<p>Detalles detectados, pero sin consejo específico ahora.</p>`)
		} else {
			b.WriteString(`<div class="no-errors-found"><p>¡Muy bien! 👍</p></div>`)
		}
	}
	for _, ex := range picked {
		word := `<span class="word-incorrect">"` + html.EscapeString(ex.text) + `"</span>`
		b.WriteString(`<div class="error-explanation">`)
		b.WriteString(`<p><strong>Error en:</strong> ` + word + `</p>`)
		if ex.suggestion != "" {
			b.WriteString(`<p><strong>Sugerencia:</strong> <span class="word-correct">"` + html.EscapeString(ex.suggestion) + `"</span></p>`)
		}
		b.WriteString(`<p><strong>Problema:</strong> ` + html.EscapeString(ex.message) + `</p>`)
		b.WriteString(`<p><strong>Consejo:</strong> ` + advice(ex.message, word) + `</p>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// advice picks a simple tip from keywords in the checker message.
func advice(message, word string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "concordancia"):
		return "Asegúrate de la concordancia en " + word + "."
	case strings.Contains(m, "ortográfi"):
		return "Revisa la ortografía en " + word + "."
	case strings.Contains(m, "tilde"), strings.Contains(m, "acento"):
		return "Puede faltar un acento en " + word + "."
	case strings.Contains(m, "mayúscula"):
		return "Revisa las mayúsculas en " + word + "."
	case strings.Contains(m, "puntuaci"):
		return "Revisa la puntuación cerca de " + word + "."
	default:
		return "Revisa: " + word + "."
	}
}

// ExplainFailure is shown in the advice panel when the check itself failed.
func ExplainFailure(reason string) string {
	if reason == "" {
		reason = "Error desconocido"
	}
	return `<div class="error-display">Hubo un problema al revisar el texto (` + html.EscapeString(reason) + `). No se pueden generar consejos.</div>`
}
