package utils

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const MaxImageBytes = 8 << 20

var (
	ErrEmptyImage       = errors.New("empty image")
	ErrInvalidImage     = errors.New("invalid image encoding")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// DecodeImage accepts raw base64 or a data URL and returns the bytes with the
// MIME type named in the data URL prefix, if any.
func DecodeImage(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hint string
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hint = meta[:semi]
			} else {
				hint = meta
			}
			s = s[idx+1:]
		}
	}
	if s == "" {
		return nil, "", ErrEmptyImage
	}
	if base64.StdEncoding.DecodedLen(len(s)) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b2, err2 := base64.URLEncoding.DecodeString(s)
		if err2 != nil {
			return nil, "", errors.Wrapf(ErrInvalidImage, "decode base64: %v", err)
		}
		b = b2
	}
	if len(b) == 0 {
		return nil, "", ErrEmptyImage
	}
	return b, hint, nil
}

// ImageMIME prefers the data URL hint and falls back to sniffing the bytes.
// Only image types are accepted.
func ImageMIME(hint string, data []byte) (string, error) {
	mime := strings.TrimSpace(hint)
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.Wrapf(ErrUnsupportedImage, "%s", mime)
	}
	return mime, nil
}
