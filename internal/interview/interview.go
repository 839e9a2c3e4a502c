package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/intervox/intervox/internal/transcript"
)

// Profile describes the interviewer conducting a session. It is selected
// once at session start and never changes afterwards: it drives both the
// synthesis voice choice and the scoring-weight persona.
type Profile struct {
	Name            string   `yaml:"name" json:"name"`
	Title           string   `yaml:"title" json:"title"`
	Gender          string   `yaml:"gender" json:"gender"`
	Age             int      `yaml:"age" json:"age"`
	VoiceTone       string   `yaml:"voice-tone" json:"voiceTone"`
	Expertise       string   `yaml:"expertise" json:"expertise"`
	YearsExperience int      `yaml:"years-experience" json:"yearsExperience"`
	Style           string   `yaml:"style" json:"style"`
	Personality     string   `yaml:"personality" json:"personality"`
	FocusAreas      []string `yaml:"focus-areas" json:"focusAreas"`
	QuestionTypes   []string `yaml:"question-types" json:"questionTypes"`
}

// Question is one item from the question bank: the asked text, the
// reference answer it is graded against, and the candidate's captured
// answer once one has been accepted.
type Question struct {
	Text     string `yaml:"text" json:"text"`
	Expected string `yaml:"answer" json:"expectedAnswer"`
	Answer   string `yaml:"-" json:"candidateAnswer,omitempty"`
}

// Session is one complete interview attempt. It is created at session
// start and mutated only by appending transcript entries and closing.
type Session struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"startedAt"`
	EndedAt    *time.Time         `json:"endedAt,omitempty"`
	DurationMs int64              `json:"durationMs"`
	Profile    Profile            `json:"interviewer"`
	Questions  []Question         `json:"questions"`
	Transcript []transcript.Entry `json:"transcript"`
}

// NewSession creates a session with a fresh id for the given profile and
// question sequence.
func NewSession(profile Profile, questions []Question) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Profile:   profile,
		Questions: questions,
	}
}

// Finish closes the session with the provided timeline. It is a no-op when
// the session is already closed.
func (s *Session) Finish(tl *transcript.Timeline) {
	if s.EndedAt != nil {
		return
	}

	now := time.Now()
	s.EndedAt = &now
	s.Transcript = tl.All()
	s.DurationMs = tl.DurationMs()
}
