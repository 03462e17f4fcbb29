package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var ErrAINotConfigured = errors.New("ai service not configured")

// APIError is a non-2xx answer from an LLM provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// StatusCode returns the provider status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type ChatRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// ChatModel produces a single reply for a system and user prompt.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// VisionModel reads the text written in an image.
type VisionModel interface {
	Transcribe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}
