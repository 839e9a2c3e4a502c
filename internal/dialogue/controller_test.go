package dialogue

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/capture"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/synthesis"
	"github.com/intervox/intervox/internal/transcript"
)

// scriptedRecognizer delivers a pre-set buffer when stopped.
type scriptedRecognizer struct {
	mu        sync.Mutex
	cb        capture.Callbacks
	listening bool
	starts    int
	buffer    string
}

func (r *scriptedRecognizer) Supported() bool { return true }

func (r *scriptedRecognizer) StartListening() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listening {
		return nil
	}
	r.listening = true
	r.starts++
	return nil
}

func (r *scriptedRecognizer) StopListening() {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return
	}
	r.listening = false
	buffer := r.buffer
	r.mu.Unlock()

	r.cb.OnStopped(buffer)
}

func (r *scriptedRecognizer) State() capture.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listening {
		return capture.StateListening
	}
	return capture.StateIdle
}

func (r *scriptedRecognizer) Err() string { return "" }

func (r *scriptedRecognizer) setBuffer(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = text
}

func (r *scriptedRecognizer) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *scriptedRecognizer) isListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// instantEngine plays utterances instantly.
type instantEngine struct{}

func (instantEngine) Voices() []synthesis.Voice { return nil }

func (instantEngine) Speak(context.Context, synthesis.Voice, string) error { return nil }

// gateEngine blocks playback until released.
type gateEngine struct {
	release chan struct{}
	playing chan struct{}
	once    sync.Once
}

func (e *gateEngine) Voices() []synthesis.Voice { return nil }

func (e *gateEngine) Speak(ctx context.Context, _ synthesis.Voice, _ string) error {
	e.once.Do(func() { close(e.playing) })
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type harness struct {
	controller *Controller
	recognizer *scriptedRecognizer
	timeline   *transcript.Timeline
	bus        *EventBus
}

func newHarness(t *testing.T, questions []interview.Question, engine synthesis.Engine) *harness {
	t.Helper()

	if engine == nil {
		engine = instantEngine{}
	}

	rec := &scriptedRecognizer{}
	tl := transcript.NewWithClock(func() time.Time { return time.Unix(0, 0) })
	bus := NewEventBus(100)

	c := New(Config{
		SessionID: "test-session",
		Profile:   interview.Profile{Name: "Sarah", Gender: "female"},
		Questions: questions,
		Timeline:  tl,
		Speaker:   synthesis.NewSpeaker(engine, zap.NewNop()),
		Bus:       bus,
		Logger:    zap.NewNop(),
		Language:  "en-US",
		Seed:      1,
		NewRecognizer: func(cb capture.Callbacks) capture.Recognizer {
			rec.cb = cb
			return rec
		},
	})

	return &harness{controller: c, recognizer: rec, timeline: tl, bus: bus}
}

func twoQuestions() []interview.Question {
	return []interview.Question{
		{Text: "Tell me about yourself.", Expected: "background"},
		{Text: "Describe a hard bug you fixed.", Expected: "debugging story"},
	}
}

func TestControllerFullSession(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if h.controller.Phase() != PhaseAwaitingAnswer {
		t.Fatalf("phase = %s, want awaiting-answer", h.controller.Phase())
	}

	entries := h.timeline.All()
	if len(entries) != 1 || entries[0].Speaker != transcript.SpeakerInterviewer || !entries[0].IsQuestion {
		t.Fatalf("unexpected opening entries: %+v", entries)
	}
	if entries[0].TimestampMs != 0 {
		t.Fatalf("first question timestamp = %d, want 0", entries[0].TimestampMs)
	}

	h.recognizer.setBuffer("I have eight years of Go experience building backend services.")
	h.controller.Submit()

	if h.controller.QuestionIndex() != 1 {
		t.Fatalf("question index = %d, want 1", h.controller.QuestionIndex())
	}
	if h.controller.Phase() != PhaseAwaitingAnswer {
		t.Fatalf("phase = %s, want awaiting-answer after transition", h.controller.Phase())
	}

	entries = h.timeline.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (q, a, q), got %d", len(entries))
	}
	if entries[1].Speaker != transcript.SpeakerCandidate {
		t.Fatalf("expected candidate entry, got %+v", entries[1])
	}
	if !entries[2].IsQuestion {
		t.Fatalf("expected second question entry, got %+v", entries[2])
	}

	h.recognizer.setBuffer("I once tracked a race condition down to a shared map access.")
	h.controller.Submit()

	if h.controller.Phase() != PhaseFinished {
		t.Fatalf("phase = %s, want finished", h.controller.Phase())
	}

	select {
	case <-h.controller.Done():
	default:
		t.Fatal("done channel not closed after final answer")
	}

	entries = h.timeline.All()
	last := entries[len(entries)-1]
	if last.Speaker != transcript.SpeakerInterviewer || last.IsQuestion {
		t.Fatalf("expected a closing statement entry, got %+v", last)
	}

	closings := 0
	for _, e := range entries {
		if e.Speaker == transcript.SpeakerInterviewer && !e.IsQuestion {
			closings++
		}
	}
	if closings != 1 {
		t.Fatalf("expected exactly one closing statement, got %d", closings)
	}

	if h.recognizer.isListening() {
		t.Fatal("no further capture may start after the terminal transition")
	}

	questions := h.controller.Questions()
	if questions[0].Answer == "" || questions[1].Answer == "" {
		t.Fatalf("expected captured answers on both questions: %+v", questions)
	}
}

func TestControllerDiscardsShortBuffer(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := h.timeline.TurnCount()
	startsBefore := h.recognizer.startCount()

	h.recognizer.setBuffer("ok")
	h.controller.Submit()

	if got := h.timeline.TurnCount(); got != before {
		t.Fatalf("turn count changed from %d to %d on discarded buffer", before, got)
	}
	if h.controller.QuestionIndex() != 0 {
		t.Fatalf("question index advanced on discarded buffer")
	}
	if h.controller.Phase() != PhaseAwaitingAnswer {
		t.Fatalf("phase = %s, want awaiting-answer", h.controller.Phase())
	}
	if h.recognizer.startCount() != startsBefore+1 {
		t.Fatal("capture must restart after a discarded turn")
	}
	if !h.recognizer.isListening() {
		t.Fatal("recognizer should be listening again")
	}
}

func TestControllerSingleFlightSubmission(t *testing.T) {
	engine := &gateEngine{release: make(chan struct{}), playing: make(chan struct{})}
	h := newHarness(t, twoQuestions(), engine)

	startDone := make(chan struct{})
	go func() {
		_ = h.controller.Start(context.Background())
		close(startDone)
	}()

	// Let the opening playback through.
	<-engine.playing
	engine.release <- struct{}{}
	<-startDone

	h.recognizer.setBuffer("A perfectly valid answer about concurrency control.")

	submitDone := make(chan struct{})
	go func() {
		h.controller.Submit()
		close(submitDone)
	}()

	// The transition playback is now blocked; the controller is processing.
	waitForPhase(t, h.controller, PhaseProcessing)

	// A second submission while processing must be dropped entirely.
	h.recognizer.cb.OnStopped("a duplicate submission racing the first")

	engine.release <- struct{}{}
	<-submitDone

	candidates := 0
	for _, e := range h.timeline.All() {
		if e.Speaker == transcript.SpeakerCandidate {
			candidates++
		}
	}
	if candidates != 1 {
		t.Fatalf("expected exactly 1 candidate entry, got %d", candidates)
	}
	if h.controller.QuestionIndex() != 1 {
		t.Fatalf("question index = %d, want 1", h.controller.QuestionIndex())
	}
}

func TestControllerLeaveShortCircuits(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.controller.Leave()

	if h.controller.Phase() != PhaseFinished {
		t.Fatalf("phase = %s, want finished", h.controller.Phase())
	}
	select {
	case <-h.controller.Done():
	default:
		t.Fatal("done channel not closed after leave")
	}

	// The pending OnStopped from teardown must not create an entry.
	if got := h.timeline.TurnCount(); got != 1 {
		t.Fatalf("turn count = %d, want 1 (question only)", got)
	}

	// Leave is idempotent.
	h.controller.Leave()
}

func TestControllerFinishAfterLeaveAddsNothing(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.controller.Leave()
	entries := h.timeline.TurnCount()

	// A submission that raced Leave lands here; it must neither append
	// the closing statement nor close done a second time.
	h.controller.finish(context.Background())

	if got := h.timeline.TurnCount(); got != entries {
		t.Fatalf("turn count = %d, want %d (no post-leave entries)", got, entries)
	}
}

func TestControllerStartTwice(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.controller.Start(context.Background()); err != ErrAlreadyStarted {
		t.Fatalf("second start error = %v, want %v", err, ErrAlreadyStarted)
	}
}

func TestControllerEmptyQuestionBank(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if h.controller.Phase() != PhaseFinished {
		t.Fatalf("phase = %s, want finished", h.controller.Phase())
	}
	if got := h.timeline.TurnCount(); got != 1 {
		t.Fatalf("expected only the closing statement, got %d entries", got)
	}
}

func TestControllerPublishesCaptureErrors(t *testing.T) {
	h := newHarness(t, twoQuestions(), nil)

	if err := h.controller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h.recognizer.cb.OnError("not-allowed: permission denied")

	var sawError bool
	for _, e := range h.bus.Since(0) {
		if e.Type == EventTypeError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("expected an error event on the bus")
	}

	// The session is still open; retry re-arms capture.
	if h.controller.Phase() != PhaseAwaitingAnswer {
		t.Fatalf("phase = %s, want awaiting-answer", h.controller.Phase())
	}
	if err := h.controller.RetryCapture(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func waitForPhase(t *testing.T, c *Controller, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller never reached phase %s (now %s)", want, c.Phase())
}
