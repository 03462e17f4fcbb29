package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	WelcomeMessage    = "¡Hola! Soy Profe Amigo. 😊 ¿Dudas sobre letras o palabras?"
	ThinkingMessage   = "Profe Amigo pensando..."
	EmptyReplyMessage = "Hmm, no estoy seguro cómo responder."

	NotConfiguredMessage    = "Servicio IA no configurado."
	BillingMessage          = "Servicio IA con problema de facturación."
	ModelUnavailableMessage = "Modelo IA no disponible ahora."
	TechnicalProblemMessage = "Lo siento, problema técnico."

	SenderBot      = "bot"
	SenderThinking = "bot_thinking"
	SenderError    = "bot_error"

	MaxChatMessage = 1000
	chatTimeout    = 30 * time.Second
)

const TutorSystemPrompt = `**ROL ESTRICTO:** Eres "Profe Amigo", asistente virtual AMABLE y PACIENTE para alfabetización básica y uso de esta app. Responde MUY BREVE, CLARA y SENCILLA. TEMAS PERMITIDOS: letras, sonidos, sílabas, palabras simples, frases cortas, puntuación básica, cómo usar la app, y dar ánimo. SI LA PREGUNTA NO ES SOBRE ESTOS TEMAS, RECHAZA AMABLEMENTE y reenfoca. EJEMPLO RECHAZO: "¡Hola! Te ayudo con letras/palabras. Sobre [tema] no sé. ¿Practicamos alguna letra?". USA emojis 😊👍. SÉ BREVE.`

// TutorReply is one chat bubble sent back to the learner.
type TutorReply struct {
	Message    string `json:"message"`
	SenderType string `json:"senderType"`
}

// Tutor answers learner questions with a fixed persona.
type Tutor struct {
	model       ChatModel
	maxTokens   int
	temperature float64
}

func NewTutor(model ChatModel, maxTokens int, temperature float64) *Tutor {
	return &Tutor{model: model, maxTokens: maxTokens, temperature: temperature}
}

// Reply never fails; errors become a friendly bot_error message.
func (t *Tutor) Reply(ctx context.Context, message string) TutorReply {
	message = strings.TrimSpace(message)
	if r := []rune(message); len(r) > MaxChatMessage {
		message = string(r[:MaxChatMessage])
	}
	if t == nil || t.model == nil {
		return TutorReply{Message: NotConfiguredMessage, SenderType: SenderError}
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	reply, err := t.model.Complete(ctx, ChatRequest{
		System:      TutorSystemPrompt,
		Prompt:      message,
		MaxTokens:   t.maxTokens,
		Temperature: t.temperature,
	})
	if err != nil {
		zap.S().Warnf("tutor: chat failed: %v", err)
		return TutorReply{Message: ChatErrorMessage(err), SenderType: SenderError}
	}
	if strings.TrimSpace(reply) == "" {
		return TutorReply{Message: EmptyReplyMessage, SenderType: SenderError}
	}
	return TutorReply{Message: strings.TrimSpace(reply), SenderType: SenderBot}
}

// ChatErrorMessage maps a provider failure to what the learner is told.
func ChatErrorMessage(err error) string {
	if errors.Is(err, ErrAINotConfigured) {
		return NotConfiguredMessage
	}
	switch StatusCode(err) {
	case 402:
		return BillingMessage
	case 404:
		return ModelUnavailableMessage
	}
	return TechnicalProblemMessage
}
