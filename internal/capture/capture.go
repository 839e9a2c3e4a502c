// Package capture provides the speech-capture abstraction: two
// interchangeable recognizer backends (a local continuous engine and a
// network streaming one) behind a single contract producing incremental
// text. The dialogue controller depends only on this contract.
package capture

import "strings"

// State is the lifecycle of one recognition attempt. It is not persisted;
// it exists only for the lifetime of a turn.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateError     State = "error"
)

// Callbacks deliver recognizer output to the owner. All callbacks may be
// invoked from backend goroutines; nil callbacks are skipped.
type Callbacks struct {
	// OnTranscript is invoked on every partial and final result with the
	// cumulative text seen so far. It is a live-preview update only,
	// never a submission trigger.
	OnTranscript func(text string)
	// OnStopped is invoked once listening has fully stopped, with the
	// canonical transcript for the turn. It fires for user-initiated
	// stops and for timer-forced ones alike.
	OnStopped func(finalText string)
	// OnError is invoked for fatal conditions only. Transient and
	// informational conditions never reach it.
	OnError func(reason string)
}

// Recognizer is the capture contract shared by both backends.
type Recognizer interface {
	// Supported reports whether the backend can run in this environment.
	// Computed once.
	Supported() bool
	// StartListening begins capture. Calling it while already listening
	// is a no-op. Any previous partial buffer is cleared.
	StartListening() error
	// StopListening initiates a stop. OnStopped fires once the backend
	// has fully released its resources.
	StopListening()
	// State returns the current capture state.
	State() State
	// Err returns a description of the last fatal error, or empty.
	Err() string
}

// Class partitions recognition failures. The distinction drives the whole
// error-handling design: transient conditions keep the recognizer
// listening, informational ones clear state silently, and only fatal ones
// surface to the user.
type Class int

const (
	// ClassTransient conditions are logged and ignored; listening
	// continues (e.g. no speech detected under continuous recognition).
	ClassTransient Class = iota
	// ClassInformational conditions are user-initiated and not errors
	// (e.g. an explicit abort).
	ClassInformational
	// ClassFatal conditions force the recognizer to idle and require an
	// explicit new start (permission denied, device or network failure).
	ClassFatal
)

// Classify maps a backend failure reason onto its class.
func Classify(reason string) Class {
	switch normalizeReason(reason) {
	case "no-speech":
		return ClassTransient
	case "aborted":
		return ClassInformational
	default:
		return ClassFatal
	}
}

func normalizeReason(reason string) string {
	reason = strings.ToLower(strings.TrimSpace(reason))
	switch {
	case strings.Contains(reason, "no-speech"), strings.Contains(reason, "no speech"):
		return "no-speech"
	case strings.Contains(reason, "abort"):
		return "aborted"
	case strings.Contains(reason, "not-allowed"), strings.Contains(reason, "permission"):
		return "not-allowed"
	case strings.Contains(reason, "audio-capture"), strings.Contains(reason, "device"):
		return "audio-capture"
	case strings.Contains(reason, "network"), strings.Contains(reason, "connection"):
		return "network"
	default:
		return reason
	}
}
