package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini serves both chat and image transcription through the genai SDK.
type Gemini struct {
	client    *genai.Client
	chatModel string
	ocrModel  string
}

func initGemini(ctx context.Context, apiKey string) (*genai.Client, error) {
	config := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	return genai.NewClient(ctx, config)
}

// NewGemini returns nil without error when no API key is configured.
func NewGemini(ctx context.Context, apiKey, chatModel, ocrModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := initGemini(ctx, apiKey)
	if err != nil {
		return nil, errors.Wrap(err, "init gemini client")
	}
	if chatModel == "" {
		chatModel = defaultGeminiModel
	}
	if ocrModel == "" {
		ocrModel = defaultGeminiModel
	}
	return &Gemini{client: client, chatModel: chatModel, ocrModel: ocrModel}, nil
}

func (g *Gemini) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrAINotConfigured
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return g.generate(ctx, g.chatModel, genai.Text(req.Prompt), config)
}

func (g *Gemini) Transcribe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrAINotConfigured
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	return g.generate(ctx, g.ocrModel, contents, nil)
}

func (g *Gemini) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &APIError{Provider: "gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return "", errors.Wrap(err, "gemini generate")
	}
	return cleanModelOutput(resp.Text()), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```text")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
