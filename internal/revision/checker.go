package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint  = "https://api.languagetool.org/v2/check"
	DefaultLanguage  = "es"
	DefaultMinLength = 3

	maxResponseBytes = 2 << 20
	maxReasonChars   = 200
)

const (
	ReasonConnection = "No hay conexión con el revisor"
	ReasonTimeout    = "El revisor tardó demasiado en responder"
	ReasonMalformed  = "Respuesta inesperada del revisor"
)

var ErrMissingMatches = errors.New("checker response has no matches field")

// Checker turns text into a correction result. Implementations never return
// an error; failures are reported inside the Result.
type Checker interface {
	Check(ctx context.Context, text string) Result
}

type LanguageToolConfig struct {
	Endpoint  string
	Language  string
	MinLength int
	Timeout   time.Duration
}

// LanguageToolClient checks text against a LanguageTool compatible endpoint.
type LanguageToolClient struct {
	endpoint   string
	language   string
	minLength  int
	timeout    time.Duration
	httpClient *http.Client
}

func NewLanguageToolClient(cfg LanguageToolConfig, httpClient *http.Client) *LanguageToolClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &LanguageToolClient{
		endpoint:   cfg.Endpoint,
		language:   cfg.Language,
		minLength:  cfg.MinLength,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}
}

// MinLength is the number of non-blank characters below which a check is skipped.
func (c *LanguageToolClient) MinLength() int {
	return c.minLength
}

func (c *LanguageToolClient) Check(ctx context.Context, text string) Result {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < c.minLength {
		return skippedResult(text)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)
	form.Set("enabledOnly", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		zap.S().Errorf("languagetool: build request: %v", err)
		return failedResult(text, FailureTransport, ReasonConnection)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			zap.S().Warnf("languagetool: timeout after %s", c.timeout)
			return failedResult(text, FailureTransport, ReasonTimeout)
		}
		zap.S().Warnf("languagetool: request failed: %v", err)
		return failedResult(text, FailureTransport, ReasonConnection)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		zap.S().Warnf("languagetool: read body: %v", err)
		return failedResult(text, FailureTransport, ReasonConnection)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := remoteReason(resp.StatusCode, body)
		zap.S().Warnf("languagetool: status %d: %s", resp.StatusCode, reason)
		return failedResult(text, FailureRemote, reason)
	}

	spans, err := decodeMatches(text, body)
	if err != nil {
		zap.S().Warnf("languagetool: %v", err)
		return failedResult(text, FailureMalformed, ReasonMalformed)
	}
	return Result{Text: text, Spans: spans, Succeeded: true}
}

// remoteReason derives a failure reason from an error response body.
func remoteReason(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return fmt.Sprintf("(%d) %s", status, truncate(strings.TrimSpace(payload.Message)))
	}
	plain := strings.TrimSpace(string(body))
	if plain != "" && utf8.ValidString(plain) && !strings.HasPrefix(plain, "<") {
		if i := strings.IndexByte(plain, '\n'); i > 0 {
			plain = strings.TrimSpace(plain[:i])
		}
		return fmt.Sprintf("(%d) %s", status, truncate(plain))
	}
	return fmt.Sprintf("Error HTTP %d", status)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxReasonChars {
		return s
	}
	return string(r[:maxReasonChars]) + "..."
}

type ltResponse struct {
	Matches *[]ltMatch `json:"matches"`
}

type ltMatch struct {
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage"`
	Offset       *int          `json:"offset"`
	Length       *int          `json:"length"`
	Replacements []Replacement `json:"replacements"`
	Rule         *struct {
		IssueType string `json:"issueType"`
		Category  *struct {
			ID string `json:"id"`
		} `json:"category"`
	} `json:"rule"`
}

func (m ltMatch) category() string {
	if m.Rule != nil {
		if m.Rule.Category != nil && m.Rule.Category.ID != "" {
			return m.Rule.Category.ID
		}
		if m.Rule.IssueType != "" {
			return strings.ToUpper(m.Rule.IssueType)
		}
	}
	return "UNKNOWN"
}

// decodeMatches validates the response shape and converts UTF-16 offsets into
// character offsets over text. Matches that do not fit are dropped.
func decodeMatches(text string, body []byte) ([]Span, error) {
	var payload ltResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode checker response")
	}
	if payload.Matches == nil {
		return nil, ErrMissingMatches
	}

	index := utf16Index(text)
	units := len(index) - 1
	spans := make([]Span, 0, len(*payload.Matches))
	for _, m := range *payload.Matches {
		if m.Offset == nil || m.Length == nil {
			continue
		}
		off, n := *m.Offset, *m.Length
		if off < 0 || n <= 0 || off > units || n > units-off {
			zap.S().Debugf("languagetool: dropping match at %d+%d outside %d units", off, n, units)
			continue
		}
		start, end := index[off], index[off+n]
		if end <= start {
			continue
		}
		replacements := m.Replacements
		if replacements == nil {
			replacements = []Replacement{}
		}
		spans = append(spans, Span{
			Offset:       start,
			Length:       end - start,
			Message:      m.Message,
			ShortMessage: m.ShortMessage,
			Replacements: replacements,
			Category:     m.category(),
		})
	}
	return SortSpans(spans), nil
}

// utf16Index maps every UTF-16 code unit position of text (including the end)
// to the character position it falls in.
func utf16Index(text string) []int {
	index := make([]int, 0, len(text)+1)
	i := 0
	for _, r := range text {
		index = append(index, i)
		if r >= 0x10000 {
			index = append(index, i)
		}
		i++
	}
	return append(index, i)
}
