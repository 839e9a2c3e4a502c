package capture

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/logger"
)

// defaultInactivity is the ceiling on silence before a listening turn is
// force-stopped as if the user had requested it.
const defaultInactivity = 30 * time.Second

// ResultSegment is one recognized segment from the local engine. The
// engine reports the full segment list on every result event, not deltas.
type ResultSegment struct {
	Text  string
	Final bool
}

// EngineConfig configures one continuous recognition run and carries the
// event handlers the engine reports through.
type EngineConfig struct {
	Language       string
	Continuous     bool
	InterimResults bool

	// OnResult receives all segments recognized so far.
	OnResult func(segments []ResultSegment)
	// OnError receives a failure reason string.
	OnError func(reason string)
	// OnEnd fires when the engine stops producing events for any reason.
	OnEnd func()
}

// Engine is the local continuous recognizer collaborator.
type Engine interface {
	// Supported reports whether the engine can run here.
	Supported() bool
	// Start begins a recognition run. Events flow through cfg handlers.
	Start(cfg EngineConfig) error
	// Stop requests a graceful end; buffered results are still delivered.
	Stop()
	// Abort discards the run immediately.
	Abort()
}

// LocalConfig tunes the local recognizer.
type LocalConfig struct {
	Language string
	// Inactivity overrides the 30 second silence ceiling. Zero keeps the
	// default.
	Inactivity time.Duration
}

// Local wraps a continuous recognition engine behind the Recognizer
// contract: cumulative transcript rebuilding, an inactivity timer renewed
// on every result, and transient-vs-fatal error classification.
type Local struct {
	engine     Engine
	cb         Callbacks
	logger     *zap.Logger
	language   string
	inactivity time.Duration
	supported  bool

	mu       sync.Mutex
	state    State
	lastErr  string
	buffer   string
	stopping bool
	timer    *time.Timer
}

// NewLocal creates a local recognizer around the given engine.
func NewLocal(engine Engine, cfg LocalConfig, cb Callbacks, log *zap.Logger) *Local {
	inactivity := cfg.Inactivity
	if inactivity <= 0 {
		inactivity = defaultInactivity
	}

	return &Local{
		engine:     engine,
		cb:         cb,
		logger:     logger.WithFields(log, zap.String("capture_backend", "local")),
		language:   cfg.Language,
		inactivity: inactivity,
		supported:  engine != nil && engine.Supported(),
		state:      StateIdle,
	}
}

// Supported reports the capability check computed at construction.
func (l *Local) Supported() bool { return l.supported }

// State returns the current capture state.
func (l *Local) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the last fatal error reason, or empty.
func (l *Local) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// StartListening begins a continuous, interim-enabled recognition run.
// No-op while already listening. Clears the previous partial buffer.
func (l *Local) StartListening() error {
	if !l.supported {
		return fmt.Errorf("local recognizer is not supported in this environment")
	}

	l.mu.Lock()
	if l.state == StateListening {
		l.mu.Unlock()
		return nil
	}
	l.state = StateListening
	l.lastErr = ""
	l.buffer = ""
	l.stopping = false
	l.mu.Unlock()

	err := l.engine.Start(EngineConfig{
		Language:       l.language,
		Continuous:     true,
		InterimResults: true,
		OnResult:       l.handleResult,
		OnError:        l.handleError,
		OnEnd:          l.handleEnd,
	})
	if err != nil {
		l.fail(fmt.Sprintf("audio-capture: %v", err))
		return err
	}

	l.armTimer()

	return nil
}

// StopListening requests a stop; OnStopped fires from the engine's end
// event with the canonical buffer.
func (l *Local) StopListening() {
	l.mu.Lock()
	if l.state != StateListening || l.stopping {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	l.disarmTimerLocked()
	l.mu.Unlock()

	l.engine.Stop()
}

// handleResult rebuilds the full transcript from all segments seen so far
// and re-arms the inactivity timer.
func (l *Local) handleResult(segments []ResultSegment) {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	full := strings.Join(parts, " ")

	l.mu.Lock()
	if l.state != StateListening {
		l.mu.Unlock()
		return
	}
	l.buffer = full
	l.mu.Unlock()

	l.armTimer()

	if l.cb.OnTranscript != nil {
		l.cb.OnTranscript(full)
	}
}

// handleError applies the capture error taxonomy.
func (l *Local) handleError(reason string) {
	switch Classify(reason) {
	case ClassTransient:
		// Continuous semantics: keep listening, no user-facing error.
		l.logger.Debug("transient recognition condition", zap.String("reason", reason))
	case ClassInformational:
		l.logger.Debug("recognition aborted by user", zap.String("reason", reason))
	case ClassFatal:
		l.fail(reason)
	}
}

// handleEnd restarts the engine under continuous semantics, or finalizes
// the turn when a stop was requested.
func (l *Local) handleEnd() {
	l.mu.Lock()
	stopping := l.stopping
	listening := l.state == StateListening
	buffer := l.buffer
	if stopping {
		l.state = StateIdle
		l.stopping = false
	}
	l.mu.Unlock()

	if stopping {
		if l.cb.OnStopped != nil {
			l.cb.OnStopped(buffer)
		}
		return
	}

	if !listening {
		return
	}

	// The engine ended on its own while a turn is still open. Restart it
	// to preserve continuous recognition.
	l.logger.Debug("engine ended mid-turn, restarting")
	err := l.engine.Start(EngineConfig{
		Language:       l.language,
		Continuous:     true,
		InterimResults: true,
		OnResult:       l.handleResult,
		OnError:        l.handleError,
		OnEnd:          l.handleEnd,
	})
	if err != nil {
		l.fail(fmt.Sprintf("audio-capture: %v", err))
	}
}

// fail latches a fatal error, forces idle-with-error state and notifies
// the owner once. Retry requires an explicit new start.
func (l *Local) fail(reason string) {
	l.mu.Lock()
	alreadyFailed := l.state == StateError
	l.state = StateError
	l.lastErr = reason
	l.stopping = false
	l.disarmTimerLocked()
	l.mu.Unlock()

	if alreadyFailed {
		return
	}

	l.logger.Warn("fatal capture error", zap.String("reason", reason))
	l.engine.Abort()

	if l.cb.OnError != nil {
		l.cb.OnError(reason)
	}
}

// armTimer (re)starts the inactivity countdown. Expiry forces a stop as
// if the user had requested it.
func (l *Local) armTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateListening || l.stopping {
		return
	}

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.inactivity, func() {
		l.logger.Debug("inactivity ceiling reached, forcing stop",
			zap.Duration("inactivity", l.inactivity))
		l.StopListening()
	})
}

func (l *Local) disarmTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
