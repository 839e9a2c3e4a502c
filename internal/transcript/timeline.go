package transcript

import (
	"sync"
	"time"
)

// Speaker identifies which side of the interview produced an entry.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Entry is one turn in the interview. Entries are values and are never
// mutated after creation.
type Entry struct {
	Speaker     Speaker `json:"speaker"`
	Text        string  `json:"text"`
	TimestampMs int64   `json:"timestamp"`
	IsQuestion  bool    `json:"isQuestion,omitempty"`
}

// Timeline is the append-only record of speaker turns with session-relative
// timestamps. It is the single source of truth consumed by scoring:
// corrections are modeled as new entries, never as edits.
type Timeline struct {
	mu      sync.RWMutex
	start   time.Time
	now     func() time.Time
	entries []Entry
}

// New creates a timeline whose clock starts now.
func New() *Timeline {
	return NewWithClock(time.Now)
}

// NewWithClock creates a timeline with an injectable clock.
func NewWithClock(now func() time.Time) *Timeline {
	return &Timeline{
		start: now(),
		now:   now,
	}
}

// Append records one turn at the current session-relative time and returns
// the created entry. Timestamps are clamped to be non-decreasing.
func (t *Timeline) Append(speaker Speaker, text string, isQuestion bool) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.now().Sub(t.start).Milliseconds()
	if ts < 0 {
		ts = 0
	}
	if n := len(t.entries); n > 0 && ts < t.entries[n-1].TimestampMs {
		ts = t.entries[n-1].TimestampMs
	}

	entry := Entry{
		Speaker:     speaker,
		Text:        text,
		TimestampMs: ts,
		IsQuestion:  isQuestion,
	}
	t.entries = append(t.entries, entry)

	return entry
}

// All returns a copy of the recorded entries in append order.
func (t *Timeline) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// DurationMs returns the elapsed session time in milliseconds.
func (t *Timeline) DurationMs() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d := t.now().Sub(t.start).Milliseconds()
	if d < 0 {
		d = 0
	}
	return d
}

// TurnCount returns the number of recorded turns.
func (t *Timeline) TurnCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// StartedAt returns the session start time used as the timestamp origin.
func (t *Timeline) StartedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.start
}
