package revision

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultDebounce = 750 * time.Millisecond

// View is what the output surface shows for one cycle.
type View struct {
	Cycle         uint64 `json:"cycle"`
	Text          string `json:"text"`
	Markup        string `json:"markup"`
	ErrorCount    int    `json:"errorCount"`
	ErrorLabel    string `json:"errorLabel"`
	Succeeded     bool   `json:"succeeded"`
	Skipped       bool   `json:"skipped,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Surface is the rendered output the pipeline owns.
type Surface interface {
	ShowChecking(cycle uint64, text string)
	ShowResult(v View)
	Clear()
}

type PipelineConfig struct {
	Debounce time.Duration
	UserID   string
}

// Pipeline coalesces input through a debounce window, checks the latest text,
// renders it and publishes one event per cycle. A response is dropped when a
// newer cycle has started or the input buffer no longer holds its text.
type Pipeline struct {
	checker   Checker
	publisher Publisher
	surface   Surface
	debounce  time.Duration
	userID    string

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup

	mu       sync.Mutex
	seq      uint64
	buffer   string
	timer    *time.Timer
	timerGen uint64
	closed   bool

	// deliverMu orders surface updates and event hand-off.
	deliverMu sync.Mutex
	events    chan Event
	published chan struct{}
}

func NewPipeline(checker Checker, publisher Publisher, surface Surface, cfg PipelineConfig) *Pipeline {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		checker:   checker,
		publisher: publisher,
		surface:   surface,
		debounce:  cfg.Debounce,
		userID:    cfg.UserID,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event, 16),
		published: make(chan struct{}),
	}
	go p.publishLoop()
	return p
}

// Input records an edit. Only the last edit inside the debounce window starts
// a check. Blank input clears the surface and invalidates in-flight checks.
func (p *Pipeline) Input(text string) {
	text = ValidText(text)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.buffer = text
	p.stopTimerLocked()
	if strings.TrimSpace(text) == "" {
		p.seq++
		p.mu.Unlock()
		p.clear()
		return
	}
	gen := p.timerGen
	p.timer = time.AfterFunc(p.debounce, func() { p.fire(gen) })
	p.mu.Unlock()
}

// CheckNow starts a cycle for text right away, dropping any pending debounce.
func (p *Pipeline) CheckNow(text string) {
	text = ValidText(text)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.buffer = text
	p.stopTimerLocked()
	if strings.TrimSpace(text) == "" {
		p.seq++
		p.mu.Unlock()
		p.clear()
		return
	}
	cycle := p.startLocked()
	p.mu.Unlock()
	go p.run(cycle, text)
}

// Cycle is the number of the latest started cycle.
func (p *Pipeline) Cycle() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// Buffer is the current input text.
func (p *Pipeline) Buffer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer
}

// Close stops pending work, waits for running checks and flushes queued events.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stopTimerLocked()
	p.mu.Unlock()

	p.cancel()
	p.runs.Wait()
	close(p.events)
	<-p.published
}

func (p *Pipeline) stopTimerLocked() {
	p.timerGen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) startLocked() uint64 {
	p.seq++
	p.runs.Add(1)
	return p.seq
}

func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.timerGen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	text := p.buffer
	cycle := p.startLocked()
	p.mu.Unlock()
	p.run(cycle, text)
}

func (p *Pipeline) current(cycle uint64, text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && cycle == p.seq && text == p.buffer
}

func (p *Pipeline) clear() {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	p.surface.Clear()
}

func (p *Pipeline) run(cycle uint64, text string) {
	defer p.runs.Done()

	p.deliverMu.Lock()
	if p.current(cycle, text) {
		p.surface.ShowChecking(cycle, text)
	}
	p.deliverMu.Unlock()

	res := p.checker.Check(p.ctx, text)

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()
	if !p.current(cycle, text) {
		zap.S().Debugf("pipeline: dropping stale cycle %d", cycle)
		return
	}
	p.surface.ShowResult(BuildView(cycle, res))
	ev := Event{
		Cycle:     cycle,
		Text:      res.Text,
		Errors:    res.Spans,
		Success:   res.Succeeded,
		Skipped:   res.Skipped,
		Error:     res.FailureReason,
		UserID:    p.userID,
		Timestamp: time.Now().UTC(),
	}
	// A full queue means a listener is stuck; Close must still get through.
	select {
	case p.events <- ev:
	case <-p.ctx.Done():
		zap.S().Debugf("pipeline: closed before cycle %d was published", cycle)
	}
}

// publishLoop hands events to the bus in cycle order so rendering never waits
// on listeners. Listeners get the pipeline context, which Close cancels.
func (p *Pipeline) publishLoop() {
	defer close(p.published)
	for ev := range p.events {
		p.publisher.Publish(p.ctx, ev)
	}
}

// BuildView maps a check result onto what the surface shows.
func BuildView(cycle uint64, res Result) View {
	v := View{
		Cycle:         cycle,
		Text:          res.Text,
		Succeeded:     res.Succeeded,
		Skipped:       res.Skipped,
		FailureReason: res.FailureReason,
	}
	switch {
	case !res.Succeeded:
		v.Markup = FailureMarkup(res.FailureReason)
		v.ErrorLabel = "Error al revisar"
	case res.Skipped:
		v.Markup = NeedsMoreInputMarkup
	default:
		v.Markup = Render(res.Text, res.Spans)
		v.ErrorCount = RenderedCount(res.Text, res.Spans)
		v.ErrorLabel = ErrorCountLabel(v.ErrorCount)
	}
	return v
}
