package services

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"profeamigo/utils"
)

const (
	ocrPrompt  = "Transcribe exactamente el texto en español que aparece en la imagen. Devuelve solo el texto, sin comentarios."
	ocrTimeout = 45 * time.Second
)

var ErrNoTextFound = errors.New("no text found in image")

// OCR turns a captured image into cleaned text ready to be checked.
type OCR struct {
	model VisionModel
}

func NewOCR(model VisionModel) *OCR {
	return &OCR{model: model}
}

// Recognize decodes a base64 or data URL image and returns the cleaned
// transcription.
func (o *OCR) Recognize(ctx context.Context, encoded string) (string, error) {
	if o == nil || o.model == nil {
		return "", ErrAINotConfigured
	}
	data, hint, err := utils.DecodeImage(encoded)
	if err != nil {
		return "", err
	}
	mime, err := utils.ImageMIME(hint, data)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()
	raw, err := o.model.Transcribe(ctx, data, mime, ocrPrompt)
	if err != nil {
		return "", errors.Wrap(err, "transcribe image")
	}
	text := utils.CleanText(raw)
	if text == "" {
		return "", ErrNoTextFound
	}
	return text, nil
}
