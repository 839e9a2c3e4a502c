// Package dialogue drives the turn-taking interview loop: it sequences
// questions, gates answer submissions, and connects capture output to
// timeline writes and synthesis playback.
package dialogue

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/capture"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/logger"
	"github.com/intervox/intervox/internal/synthesis"
	"github.com/intervox/intervox/internal/transcript"
)

// Phase is the controller's session state.
type Phase string

const (
	PhaseNotStarted     Phase = "not-started"
	PhaseAwaitingAnswer Phase = "awaiting-answer"
	PhaseProcessing     Phase = "processing"
	PhaseFinished       Phase = "finished"
)

// minAnswerRunes is the trimmed length a buffer must exceed to count as
// an answer; anything at or below it is silently discarded.
const minAnswerRunes = 2

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("session already started")

// transitionPhrases lead into the next question. One is picked uniformly
// at random per transition.
var transitionPhrases = []string{
	"Thank you for sharing that.",
	"I see, that's helpful context.",
	"Got it, let's move on.",
	"Interesting, thank you.",
	"Alright, noted.",
}

// closingStatement ends the interview.
const closingStatement = "That was my last question. Thank you for your time today; " +
	"we will now prepare your performance assessment."

// Config wires a controller's collaborators.
type Config struct {
	SessionID string
	Profile   interview.Profile
	Questions []interview.Question
	Timeline  *transcript.Timeline
	Speaker   *synthesis.Speaker
	Bus       *EventBus
	Logger    *zap.Logger
	Language  string
	// Seed fixes the transition phrase selection; zero seeds from time.
	Seed int64
	// NewRecognizer builds the capture backend with the controller's
	// callbacks attached.
	NewRecognizer func(cb capture.Callbacks) capture.Recognizer
}

// Controller is the turn-taking dialogue state machine. Capture and
// playback are mutually exclusive: capture is re-armed only after a
// question's playback has completed. Submissions are single-flight.
type Controller struct {
	sessionID  string
	profile    interview.Profile
	questions  []interview.Question
	timeline   *transcript.Timeline
	recognizer capture.Recognizer
	speaker    *synthesis.Speaker
	bus        *EventBus
	logger     *zap.Logger
	language   string
	rng        *rand.Rand

	mu      sync.Mutex
	phase   Phase
	idx     int
	leaving bool
	ctx     context.Context
	done    chan struct{}
}

// New creates a controller. The recognizer is built through the factory
// so its callbacks land on this controller.
func New(cfg Config) *Controller {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Controller{
		sessionID: cfg.SessionID,
		profile:   cfg.Profile,
		questions: append([]interview.Question(nil), cfg.Questions...),
		timeline:  cfg.Timeline,
		speaker:   cfg.Speaker,
		bus:       cfg.Bus,
		logger:    log,
		language:  cfg.Language,
		rng:       rand.New(rand.NewSource(seed)),
		phase:     PhaseNotStarted,
		done:      make(chan struct{}),
	}

	c.recognizer = cfg.NewRecognizer(capture.Callbacks{
		OnTranscript: c.handlePreview,
		OnStopped:    c.handleStopped,
		OnError:      c.handleCaptureError,
	})

	return c
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// QuestionIndex returns the index of the question currently awaiting an
// answer.
func (c *Controller) QuestionIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx
}

// Questions returns the question sequence with captured answers filled in.
func (c *Controller) Questions() []interview.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interview.Question(nil), c.questions...)
}

// Done is closed once the session reaches the terminal phase.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start asks question zero and opens the first capture turn.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseNotStarted {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.ctx = ctx
	c.mu.Unlock()

	if len(c.questions) == 0 {
		c.finish(ctx)
		return nil
	}

	c.ask(ctx, c.questions[0].Text, 0)

	return c.listen()
}

// Submit is the user-triggered stop action: it asks the recognizer to
// finalize the turn. The resulting buffer arrives through the capture
// callbacks, where gating and single-flight rules apply.
func (c *Controller) Submit() {
	c.mu.Lock()
	if c.phase != PhaseAwaitingAnswer {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.recognizer.StopListening()
}

// RetryCapture re-opens the microphone after a fatal capture error.
func (c *Controller) RetryCapture() error {
	c.mu.Lock()
	if c.phase != PhaseAwaitingAnswer {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.recognizer.StartListening()
}

// Leave short-circuits the session to finished: it cancels in-flight
// playback and capture and tears everything down. Whether to score the
// remaining transcript is the caller's decision.
func (c *Controller) Leave() {
	c.mu.Lock()
	if c.phase == PhaseFinished {
		c.mu.Unlock()
		return
	}
	c.leaving = true
	c.phase = PhaseFinished
	c.mu.Unlock()

	c.speaker.Cancel()
	c.recognizer.StopListening()

	c.publishPhase(PhaseFinished)
	close(c.done)

	c.logger.Info("session left early", zap.String(logger.FieldSession, c.sessionID))
}

// handlePreview republishes interim capture text as a live preview. It is
// never a submission trigger.
func (c *Controller) handlePreview(text string) {
	c.publish(Event{Type: EventTypePreview, Text: text})
}

// handleStopped is the submission path: it fires once the recognizer has
// finalized a turn, validates the buffer and advances the dialogue.
func (c *Controller) handleStopped(final string) {
	c.mu.Lock()
	if c.leaving || c.phase != PhaseAwaitingAnswer {
		// Single-flight: a concurrent second submission is dropped.
		c.mu.Unlock()
		return
	}

	trimmed := strings.TrimSpace(final)
	if len([]rune(trimmed)) <= minAnswerRunes {
		c.mu.Unlock()
		c.logger.Debug("discarding empty turn", zap.Int("chars", len([]rune(trimmed))))
		if err := c.recognizer.StartListening(); err != nil {
			c.publish(Event{Type: EventTypeError, Message: err.Error()})
		}
		return
	}

	c.phase = PhaseProcessing
	answered := c.idx
	c.idx++
	next := c.idx
	c.questions[answered].Answer = trimmed
	ctx := c.ctx
	c.mu.Unlock()

	c.publishPhase(PhaseProcessing)

	c.timeline.Append(transcript.SpeakerCandidate, trimmed, false)
	c.publish(Event{Type: EventTypeAnswer, QuestionIndex: answered, Text: trimmed})

	if next < len(c.questions) {
		phrase := transitionPhrases[c.rng.Intn(len(transitionPhrases))]
		c.ask(ctx, phrase+" "+c.questions[next].Text, next)
		if err := c.listen(); err != nil {
			c.publish(Event{Type: EventTypeError, Message: err.Error()})
		}
		return
	}

	c.finish(ctx)
}

// handleCaptureError surfaces fatal capture failures. The dialogue stays
// in awaiting-answer; retry requires an explicit new start.
func (c *Controller) handleCaptureError(reason string) {
	c.logger.Warn("capture failed", zap.String("reason", reason))
	c.publish(Event{Type: EventTypeError, Message: reason})
}

// ask appends an interviewer question entry and plays it. Capture stays
// closed for the duration of playback.
func (c *Controller) ask(ctx context.Context, text string, index int) {
	c.timeline.Append(transcript.SpeakerInterviewer, text, true)
	c.publish(Event{Type: EventTypeQuestion, QuestionIndex: index, Text: text})

	c.speaker.Speak(ctx, synthesis.Request{
		Text:     text,
		Gender:   c.profile.Gender,
		Language: c.language,
	})
}

// listen re-arms capture after playback has ended.
func (c *Controller) listen() error {
	c.mu.Lock()
	if c.leaving || c.phase == PhaseFinished {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseAwaitingAnswer
	c.mu.Unlock()

	c.publishPhase(PhaseAwaitingAnswer)

	return c.recognizer.StartListening()
}

// finish appends the closing statement, plays it and terminates. No
// further capture is started. The terminal transition happens first so
// a submission racing Leave cannot write or speak after teardown.
func (c *Controller) finish(ctx context.Context) {
	c.mu.Lock()
	if c.phase == PhaseFinished {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseFinished
	c.mu.Unlock()

	c.timeline.Append(transcript.SpeakerInterviewer, closingStatement, false)

	c.speaker.Speak(ctx, synthesis.Request{
		Text:     closingStatement,
		Gender:   c.profile.Gender,
		Language: c.language,
	})

	c.publishPhase(PhaseFinished)
	close(c.done)

	c.logger.Info("session finished", zap.String(logger.FieldSession, c.sessionID))
}

func (c *Controller) publishPhase(phase Phase) {
	c.publish(Event{Type: EventTypePhase, Phase: phase})
}

func (c *Controller) publish(event Event) {
	if c.bus == nil {
		return
	}
	event.SessionID = c.sessionID
	c.bus.Publish(event)
}
