package assessment

import (
	"context"

	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/transcript"
)

// QuestionPair is one asked question combined with its reference answer
// and what the candidate actually said.
type QuestionPair struct {
	Question string `json:"question"`
	Expected string `json:"expectedAnswer"`
	Actual   string `json:"candidateAnswer"`
}

// Request carries everything a judge needs to evaluate a session.
type Request struct {
	Profile    interview.Profile
	Transcript []transcript.Entry
	Pairs      []QuestionPair
}

// Judge evaluates a finished interview and produces raw category scores.
// Implementations must not apply persona weighting; that is Finalize's job.
type Judge interface {
	Assess(ctx context.Context, req Request) (*Result, error)
}

// PairsFrom builds question pairs from the session's question list.
func PairsFrom(questions []interview.Question) []QuestionPair {
	pairs := make([]QuestionPair, 0, len(questions))
	for _, q := range questions {
		pairs = append(pairs, QuestionPair{
			Question: q.Text,
			Expected: q.Expected,
			Actual:   q.Answer,
		})
	}
	return pairs
}

// AskedCount reports how many questions were actually voiced during the
// session: interviewer entries flagged as questions. The closing statement
// is not flagged, so it never inflates the count.
func AskedCount(entries []transcript.Entry) int {
	asked := 0
	for _, e := range entries {
		if e.Speaker == transcript.SpeakerInterviewer && e.IsQuestion {
			asked++
		}
	}
	return asked
}

// AskedPairs builds question pairs for the asked prefix of the question
// bank only. Questions the candidate never heard, because the session ended
// early, carry no signal and must not count against engagement.
func AskedPairs(questions []interview.Question, entries []transcript.Entry) []QuestionPair {
	asked := AskedCount(entries)
	if asked > len(questions) {
		asked = len(questions)
	}
	return PairsFrom(questions[:asked])
}

// Answers extracts the candidate answers from pairs, in order.
func Answers(pairs []QuestionPair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Actual)
	}
	return out
}
