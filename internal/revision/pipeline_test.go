package revision

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	started chan string
	result  func(text string) Result
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (f *fakeChecker) hold(text string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[text] = gate
	return gate
}

func (f *fakeChecker) Check(ctx context.Context, text string) Result {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate := f.gates[text]
	result := f.result
	f.mu.Unlock()

	f.started <- text
	if gate != nil {
		<-gate
	}
	if result != nil {
		return result(text)
	}
	return Result{Text: text, Spans: []Span{span(0, 2, "m", "Yo")}, Succeeded: true}
}

func (f *fakeChecker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSurface struct {
	mu       sync.Mutex
	checking []uint64
	clears   int
	results  chan View
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{results: make(chan View, 16)}
}

func (s *fakeSurface) ShowChecking(cycle uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checking = append(s.checking, cycle)
}

func (s *fakeSurface) ShowResult(v View) { s.results <- v }

func (s *fakeSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingPublisher) Publish(ctx context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func waitView(t *testing.T, s *fakeSurface) View {
	t.Helper()
	select {
	case v := <-s.results:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no result rendered")
		return View{}
	}
}

func waitStarted(t *testing.T, c *fakeChecker, text string) {
	t.Helper()
	select {
	case got := <-c.started:
		require.Equal(t, text, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("check for %q never started", text)
	}
}

func TestPipelineDebounceCoalescesInput(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: 50 * time.Millisecond, UserID: "u1"})

	p.Input("Yo tie")
	p.Input("Yo tiene")
	p.Input("Yo tiene un gato.")

	v := waitView(t, surface)
	p.Close()

	assert.Equal(t, []string{"Yo tiene un gato."}, checker.Calls())
	assert.Equal(t, "Yo tiene un gato.", v.Text)
	assert.Equal(t, uint64(1), v.Cycle)
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].UserID)
	assert.True(t, events[0].Success)
	assert.Len(t, events[0].Errors, 1)
}

func TestPipelineDropsResponseOfSupersededCycle(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: time.Hour})
	gate := checker.hold("primer texto")

	p.CheckNow("primer texto")
	waitStarted(t, checker, "primer texto")

	p.CheckNow("segundo texto")
	waitStarted(t, checker, "segundo texto")
	v := waitView(t, surface)
	assert.Equal(t, uint64(2), v.Cycle)

	close(gate)
	p.Close()

	select {
	case stale := <-surface.results:
		t.Fatalf("stale cycle %d rendered", stale.Cycle)
	default:
	}
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].Cycle)
	assert.Equal(t, "segundo texto", events[0].Text)
}

func TestPipelineDropsResponseWhenBufferChanged(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: time.Hour})
	gate := checker.hold("texto uno")

	p.CheckNow("texto uno")
	waitStarted(t, checker, "texto uno")
	p.Input("texto uno con más")
	close(gate)
	p.Close()

	assert.Empty(t, surface.results)
	assert.Empty(t, pub.Events())
}

func TestPipelineBlankInputClears(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: time.Hour})
	gate := checker.hold("algo de texto")

	p.CheckNow("algo de texto")
	waitStarted(t, checker, "algo de texto")
	p.Input("   ")
	close(gate)
	p.Close()

	surface.mu.Lock()
	assert.Equal(t, 1, surface.clears)
	surface.mu.Unlock()
	assert.Empty(t, pub.Events())
	assert.Equal(t, uint64(2), p.Cycle())
}

func TestPipelinePublishesFailedCycles(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	checker.result = func(text string) Result {
		return failedResult(text, FailureRemote, "Error HTTP 500")
	}
	p := NewPipeline(checker, pub, surface, PipelineConfig{})

	p.CheckNow("Yo tiene un gato.")
	v := waitView(t, surface)
	p.Close()

	assert.False(t, v.Succeeded)
	assert.Equal(t, FailureMarkup("Error HTTP 500"), v.Markup)
	events := pub.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, "Error HTTP 500", events[0].Error)
	assert.Empty(t, events[0].Errors)
}

func TestPipelineSkippedCycleShowsNeutralState(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	checker.result = skippedResult
	p := NewPipeline(checker, pub, surface, PipelineConfig{})

	p.CheckNow("yo")
	v := waitView(t, surface)
	p.Close()

	assert.Equal(t, NeedsMoreInputMarkup, v.Markup)
	assert.True(t, v.Skipped)
	events := pub.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.True(t, events[0].Skipped)
}

func TestPipelineCheckNowCancelsPendingDebounce(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: 30 * time.Millisecond})

	p.Input("Yo tiene un gato.")
	p.CheckNow("Yo tiene un gato.")
	waitView(t, surface)
	time.Sleep(80 * time.Millisecond)
	p.Close()

	assert.Len(t, checker.Calls(), 1)
}

func TestPipelineIgnoresInputAfterClose(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: 10 * time.Millisecond})
	p.Close()
	p.Close()

	p.Input("Yo tiene un gato.")
	p.CheckNow("Yo tiene un gato.")
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, checker.Calls())
}

func TestBuildView(t *testing.T) {
	v := BuildView(4, Result{Text: "Yo tiene", Spans: []Span{span(3, 5, "a", "tengo")}, Succeeded: true})
	assert.Equal(t, 1, v.ErrorCount)
	assert.Equal(t, "1 error detectado", v.ErrorLabel)
	assert.Contains(t, v.Markup, `title="Sugerencia: tengo"`)

	clean := BuildView(5, Result{Text: "Hola.", Spans: []Span{}, Succeeded: true})
	assert.Equal(t, NoIssuesMarkup, clean.Markup)
	assert.Equal(t, "0 errores detectados", clean.ErrorLabel)
}

// stuckPublisher holds every event until its context is cancelled.
type stuckPublisher struct {
	calls     int32
	cancelled int32
}

func (s *stuckPublisher) Publish(ctx context.Context, ev Event) {
	atomic.AddInt32(&s.calls, 1)
	<-ctx.Done()
	atomic.AddInt32(&s.cancelled, 1)
}

func TestPipelineCloseWithStuckListener(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &stuckPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: time.Hour})

	// One event held by the listener, a full queue and one more cycle waiting
	// to be queued.
	for i := 0; i < 18; i++ {
		text := fmt.Sprintf("Texto número %d", i)
		p.CheckNow(text)
		waitStarted(t, checker, text)
		waitView(t, surface)
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a stuck listener")
	}
	assert.Equal(t, atomic.LoadInt32(&pub.calls), atomic.LoadInt32(&pub.cancelled))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&pub.calls), int32(1))
}

func TestPipelineSanitisesInvalidUTF8(t *testing.T) {
	checker, surface, pub := newFakeChecker(), newFakeSurface(), &recordingPublisher{}
	p := NewPipeline(checker, pub, surface, PipelineConfig{Debounce: time.Hour})

	p.CheckNow("Yo\xfftengo")
	waitStarted(t, checker, "Yo\uFFFDtengo")
	v := waitView(t, surface)
	p.Close()

	assert.Equal(t, "Yo\uFFFDtengo", v.Text)
	require.Len(t, pub.Events(), 1)
	assert.Equal(t, "Yo\uFFFDtengo", pub.Events()[0].Text)
}
