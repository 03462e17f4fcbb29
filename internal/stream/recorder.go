package stream

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"profeamigo/internal/revision"
)

const (
	DefaultMaxLen   = 200
	DefaultRecent   = 20
	writeTimeout    = 3 * time.Second
	maxStoredLength = 500
)

var ErrNoClient = errors.New("redis client not available")

// StreamClient is the subset of the redis client the recorder needs.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
}

// HistoryEntry is one stored cycle as returned to clients.
type HistoryEntry struct {
	StreamID  string            `json:"streamId"`
	EventID   string            `json:"eventId"`
	Timestamp int64             `json:"timestamp"`
	Cycle     CorrectionPayload `json:"cycle"`
}

// Recorder writes every completed cycle of a signed-in user to a bounded
// Redis stream and reads it back newest first.
type Recorder struct {
	rdb    StreamClient
	maxLen int64
}

func NewRecorder(rdb StreamClient, maxLen int64) *Recorder {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Recorder{rdb: rdb, maxLen: maxLen}
}

func StreamKey(userID string) string {
	return fmt.Sprintf("corrections:%s:events", userID)
}

// OnTextCorrected records the cycle. Cycles without a user or skipped for
// being too short are not stored.
func (r *Recorder) OnTextCorrected(ctx context.Context, ev revision.Event) {
	if ev.UserID == "" || ev.Skipped {
		return
	}
	event, err := NewEvent(TypeTextCorrected, payloadFor(ev))
	if err != nil {
		zap.S().Errorf("history: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.Append(ctx, ev.UserID, event); err != nil {
		zap.S().Warnf("history: append for user %s: %v", ev.UserID, err)
	}
}

func payloadFor(ev revision.Event) CorrectionPayload {
	seen := map[string]bool{}
	var categories []string
	for _, s := range ev.Errors {
		if s.Category != "" && !seen[s.Category] {
			seen[s.Category] = true
			categories = append(categories, s.Category)
		}
	}
	sort.Strings(categories)
	text := []rune(ev.Text)
	if len(text) > maxStoredLength {
		text = text[:maxStoredLength]
	}
	return CorrectionPayload{
		Cycle:      ev.Cycle,
		Text:       string(text),
		ErrorCount: len(ev.Errors),
		Categories: categories,
		Success:    ev.Success,
		Error:      ev.Error,
	}
}

// Append adds event to the user's stream, trimming it to roughly maxLen entries.
func (r *Recorder) Append(ctx context.Context, userID string, event *Event) error {
	if r == nil || r.rdb == nil {
		return ErrNoClient
	}
	data, err := MarshalEvent(event)
	if err != nil {
		return err
	}
	err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(userID),
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": data,
		},
	}).Err()
	return errors.Wrap(err, "xadd")
}

// Recent returns up to n entries of the user's stream, newest first.
func (r *Recorder) Recent(ctx context.Context, userID string, n int64) ([]HistoryEntry, error) {
	if r == nil || r.rdb == nil {
		return nil, ErrNoClient
	}
	if n <= 0 {
		n = DefaultRecent
	}
	msgs, err := r.rdb.XRevRangeN(ctx, StreamKey(userID), "+", "-", n).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "xrevrange")
	}
	entries := make([]HistoryEntry, 0, len(msgs))
	for _, msg := range msgs {
		entry, err := decodeMessage(msg)
		if err != nil {
			zap.S().Debugf("history: skipping %s: %v", msg.ID, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeMessage(msg redis.XMessage) (HistoryEntry, error) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return HistoryEntry{}, errors.New("missing data field")
	}
	event, err := UnmarshalEvent(raw)
	if err != nil {
		return HistoryEntry{}, err
	}
	payload, err := event.Correction()
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{
		StreamID:  msg.ID,
		EventID:   event.ID,
		Timestamp: event.Timestamp,
		Cycle:     *payload,
	}, nil
}
