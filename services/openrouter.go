package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const openRouterTitle = "ProyectoLectoescritura"

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouter talks to an OpenAI compatible chat completions endpoint.
type OpenRouter struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	client  *http.Client
}

func NewOpenRouter(apiKey, baseURL, model, referer string) *OpenRouter {
	return &OpenRouter{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Referer: referer,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OpenRouter) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if o.APIKey == "" {
		return "", ErrAINotConfigured
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request data")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.APIKey))
	httpReq.Header.Set("HTTP-Referer", o.Referer)
	httpReq.Header.Set("X-Title", openRouterTitle)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: "openrouter", StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	var responseData struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &responseData); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	if len(responseData.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(responseData.Choices[0].Message.Content), nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return truncateText(strings.TrimSpace(string(body)), 200)
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
