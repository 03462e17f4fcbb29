package revision

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is the notification published once per completed check cycle.
type Event struct {
	Cycle     uint64    `json:"cycle"`
	Text      string    `json:"text"`
	Errors    []Span    `json:"errors"`
	Success   bool      `json:"success"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a deep copy so a listener cannot change what others see.
func (e Event) Clone() Event {
	c := e
	c.Errors = CloneSpans(e.Errors)
	if c.Errors == nil {
		c.Errors = []Span{}
	}
	return c
}

// Subscriber reacts to text corrected notifications.
type Subscriber interface {
	OnTextCorrected(ctx context.Context, ev Event)
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(ctx context.Context, ev Event)

func (f SubscriberFunc) OnTextCorrected(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Publisher is the side of the bus the pipeline depends on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type subscription struct {
	name string
	sub  Subscriber
}

// Bus delivers every event to all subscribers synchronously, in registration
// order. Deliveries of two publishes never interleave.
type Bus struct {
	mu        sync.RWMutex
	subs      []subscription
	publishMu sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(name string, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, sub: s})
}

// Unsubscribe removes every subscriber registered under name.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.subs[:0]
	for _, s := range b.subs {
		if s.name != name {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(ctx, s, ev.Clone())
	}
}

func deliver(ctx context.Context, s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("bus: subscriber %q panicked on cycle %d: %v\n%s", s.name, ev.Cycle, r, debug.Stack())
		}
	}()
	s.sub.OnTextCorrected(ctx, ev)
}
