package stream

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const TypeTextCorrected = "text_corrected"

// Event is one entry written to a user's correction stream.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// CorrectionPayload summarises one check cycle.
type CorrectionPayload struct {
	Cycle      uint64   `json:"cycle"`
	Text       string   `json:"text"`
	ErrorCount int      `json:"errorCount"`
	Categories []string `json:"categories,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// NewEvent creates an event with a fresh id and the current timestamp.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
	}, nil
}

func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", errors.Wrap(err, "marshal event")
	}
	return string(b), nil
}

func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, errors.Wrap(err, "unmarshal event")
	}
	return &event, nil
}

// Correction decodes the payload of a text_corrected event.
func (e *Event) Correction() (*CorrectionPayload, error) {
	if e.Type != TypeTextCorrected {
		return nil, errors.Errorf("unexpected event type %q", e.Type)
	}
	var p CorrectionPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, errors.Wrap(err, "unmarshal correction payload")
	}
	return &p, nil
}
