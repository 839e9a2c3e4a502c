// Package synthesis turns interviewer turn text into audible speech. The
// Speaker adapter owns its engine instance and enforces the one active
// utterance invariant; playback failures are benign and never propagate
// to the dialogue flow.
package synthesis

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Voice describes one available synthesis voice.
type Voice struct {
	Name     string `yaml:"name" json:"name"`
	Gender   string `yaml:"gender" json:"gender"`
	Language string `yaml:"language" json:"language"`
	// Preferred marks vendor-recommended voices that win ties.
	Preferred bool `yaml:"preferred" json:"preferred"`
}

// Engine is the underlying speech synthesis collaborator.
type Engine interface {
	// Voices lists the voices available in this environment.
	Voices() []Voice
	// Speak plays the text with the given voice, blocking until playback
	// completes or ctx is cancelled.
	Speak(ctx context.Context, voice Voice, text string) error
}

// Request asks for one spoken utterance.
type Request struct {
	Text     string
	Gender   string
	Language string
}

// Speaker guards a synthesis engine so only one utterance plays at a time.
type Speaker struct {
	engine Engine
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeaker wraps the engine. The adapter is an explicitly owned
// instance; callers inject it rather than reaching for shared state.
func NewSpeaker(engine Engine, logger *zap.Logger) *Speaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Speaker{engine: engine, logger: logger}
}

// Speak plays the request and blocks until playback ends. A new request
// interrupts any utterance still playing. Engine failures are logged and
// swallowed so the dialogue can proceed.
func (s *Speaker) Speak(ctx context.Context, req Request) {
	text := strings.TrimSpace(req.Text)
	if text == "" || s.engine == nil {
		return
	}

	s.mu.Lock()
	if s.cancel != nil {
		// One active utterance: interrupt the previous one.
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	voice := SelectVoice(s.engine.Voices(), req.Gender, req.Language)

	if err := s.engine.Speak(ctx, voice, text); err != nil {
		// Interrupted or failed playback is benign.
		s.logger.Debug("synthesis playback ended early",
			zap.String("voice", voice.Name),
			zap.Error(err),
		)
	}
}

// Cancel interrupts the active utterance, if any.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SelectVoice picks the best available voice: a preferred gender+language
// match, then any gender+language match, then any voice in the target
// language, then the base language, then the first voice.
func SelectVoice(voices []Voice, gender, language string) Voice {
	if len(voices) == 0 {
		return Voice{}
	}

	gender = strings.ToLower(strings.TrimSpace(gender))
	language = strings.ToLower(strings.TrimSpace(language))
	base := language
	if idx := strings.IndexAny(base, "-_"); idx > 0 {
		base = base[:idx]
	}

	var genderMatch, languageMatch, baseMatch *Voice
	for i := range voices {
		v := &voices[i]
		vLang := strings.ToLower(v.Language)
		vGender := strings.ToLower(v.Gender)

		switch {
		case language != "" && vLang == language:
			if gender != "" && vGender == gender {
				if v.Preferred {
					return *v
				}
				if genderMatch == nil {
					genderMatch = v
				}
			}
			if languageMatch == nil {
				languageMatch = v
			}
		case base != "" && strings.HasPrefix(vLang, base):
			if baseMatch == nil {
				baseMatch = v
			}
		}
	}

	switch {
	case genderMatch != nil:
		return *genderMatch
	case languageMatch != nil:
		return *languageMatch
	case baseMatch != nil:
		return *baseMatch
	default:
		return voices[0]
	}
}
