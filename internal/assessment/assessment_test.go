package assessment

import (
	"strings"
	"testing"

	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/transcript"
)

func rawResult(tech, prob, comm, exp, prof int) *Result {
	return &Result{
		TechnicalSkills:  CategoryScore{Score: tech, Justification: "t"},
		ProblemSolving:   CategoryScore{Score: prob, Justification: "p"},
		Communication:    CategoryScore{Score: comm, Justification: "c"},
		Experience:       CategoryScore{Score: exp, Justification: "e"},
		Professionalism:  CategoryScore{Score: prof, Justification: "pr"},
		InterviewSummary: "summary",
	}
}

func longAnswers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat("detailed answer ", 4)
	}
	return out
}

func TestPersonaWeightsSumTo100(t *testing.T) {
	for persona, weights := range personaWeights {
		total := 0
		for _, c := range Categories {
			w, ok := weights[c]
			if !ok {
				t.Errorf("persona %s is missing weight for %s", persona, c)
			}
			total += w
		}
		if total != 100 {
			t.Errorf("persona %s weights sum to %d, want 100", persona, total)
		}
	}
}

func TestFinalizeWeightedOverall(t *testing.T) {
	raw := rawResult(80, 60, 90, 70, 100)

	got := Finalize(PersonaDefault, raw, longAnswers(4))

	// 80*25 + 60*25 + 90*20 + 70*15 + 100*15 = 7850 -> 78
	if got.OverallScore != 78 {
		t.Errorf("overall = %d, want 78", got.OverallScore)
	}
	if got.ReadinessLevel != ReadinessHire {
		t.Errorf("readiness = %q, want %q", got.ReadinessLevel, ReadinessHire)
	}
}

func TestFinalizeClampsCategoryScores(t *testing.T) {
	raw := rawResult(150, -20, 50, 50, 50)

	got := Finalize(PersonaDefault, raw, longAnswers(2))

	if got.TechnicalSkills.Score != 100 {
		t.Errorf("technical = %d, want clamp to 100", got.TechnicalSkills.Score)
	}
	if got.ProblemSolving.Score != 0 {
		t.Errorf("problem solving = %d, want clamp to 0", got.ProblemSolving.Score)
	}
	if got.OverallScore < 0 || got.OverallScore > 100 {
		t.Errorf("overall = %d, out of bounds", got.OverallScore)
	}
}

func TestFinalizeEngagementCeiling(t *testing.T) {
	raw := rawResult(90, 90, 90, 90, 90)
	answers := []string{"yes", "no", strings.Repeat("thorough answer ", 3), "skip"}

	got := Finalize(PersonaDefault, raw, answers)

	if got.OverallScore != engagementCeiling {
		t.Errorf("overall = %d, want capped at %d", got.OverallScore, engagementCeiling)
	}
	if got.ReadinessLevel != ReadinessNoHire {
		t.Errorf("readiness = %q, want %q", got.ReadinessLevel, ReadinessNoHire)
	}
}

func TestFinalizeCeilingDoesNotRaiseLowScores(t *testing.T) {
	raw := rawResult(10, 10, 10, 10, 10)

	got := Finalize(PersonaDefault, raw, []string{"no", "pass"})

	if got.OverallScore != 10 {
		t.Errorf("overall = %d, want 10 (ceiling never raises)", got.OverallScore)
	}
}

func TestFinalizeHalfValidAnswersNotCapped(t *testing.T) {
	raw := rawResult(90, 90, 90, 90, 90)
	answers := append(longAnswers(2), "no", "skip")

	got := Finalize(PersonaDefault, raw, answers)

	if got.OverallScore == engagementCeiling {
		t.Errorf("overall capped at %d with exactly half valid answers", engagementCeiling)
	}
}

func TestAskedPairsTruncatesToAskedPrefix(t *testing.T) {
	questions := []interview.Question{
		{Text: "q1", Expected: "e1", Answer: strings.Repeat("a solid answer ", 3)},
		{Text: "q2", Expected: "e2"},
		{Text: "q3", Expected: "e3"},
		{Text: "q4", Expected: "e4"},
		{Text: "q5", Expected: "e5"},
	}
	entries := []transcript.Entry{
		{Speaker: transcript.SpeakerInterviewer, Text: "q1", IsQuestion: true},
		{Speaker: transcript.SpeakerCandidate, Text: questions[0].Answer},
		{Speaker: transcript.SpeakerInterviewer, Text: "Thanks for your time."},
	}

	pairs := AskedPairs(questions, entries)
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	if pairs[0].Question != "q1" || pairs[0].Actual != questions[0].Answer {
		t.Errorf("pair = %+v, want the first asked question with its answer", pairs[0])
	}

	// Leaving early after fully answering every asked question is complete
	// engagement; the unasked rest of the bank must not cap the score.
	got := Finalize(PersonaDefault, rawResult(90, 90, 90, 90, 90), Answers(pairs))
	if got.OverallScore != 90 {
		t.Errorf("overall = %d, want 90 for a fully answered early leave", got.OverallScore)
	}
}

func TestAskedCountIgnoresNonQuestionEntries(t *testing.T) {
	entries := []transcript.Entry{
		{Speaker: transcript.SpeakerInterviewer, Text: "q1", IsQuestion: true},
		{Speaker: transcript.SpeakerCandidate, Text: "answer"},
		{Speaker: transcript.SpeakerInterviewer, Text: "q2", IsQuestion: true},
		{Speaker: transcript.SpeakerInterviewer, Text: "Thanks for your time."},
	}
	if got := AskedCount(entries); got != 2 {
		t.Errorf("asked count = %d, want 2", got)
	}
}

func TestFinalizePersonaShiftsOutcome(t *testing.T) {
	// Strong communicator, weak on technical depth.
	raw := rawResult(40, 45, 95, 70, 95)
	answers := longAnswers(4)

	hr := Finalize(PersonaHR, raw, answers)
	lead := Finalize(PersonaTechLead, raw, answers)

	if hr.OverallScore <= lead.OverallScore {
		t.Errorf("hr overall %d should exceed tech lead overall %d", hr.OverallScore, lead.OverallScore)
	}
	if hr.ReadinessLevel.Rank() <= lead.ReadinessLevel.Rank() {
		t.Errorf("hr readiness %q should outrank tech lead %q", hr.ReadinessLevel, lead.ReadinessLevel)
	}
}

func TestFinalizeRadar(t *testing.T) {
	got := Finalize(PersonaDefault, rawResult(80, 60, 90, 70, 100), longAnswers(1))

	if len(got.SkillsRadar) != len(Categories) {
		t.Fatalf("radar has %d entries, want %d", len(got.SkillsRadar), len(Categories))
	}
	for i, c := range Categories {
		spoke := got.SkillsRadar[i]
		if spoke.Score != got.Category(c).Score {
			t.Errorf("radar[%d] score = %d, want %d", i, spoke.Score, got.Category(c).Score)
		}
		if spoke.MaxScore != 100 {
			t.Errorf("radar[%d] max = %d, want 100", i, spoke.MaxScore)
		}
		if spoke.Name == "" || spoke.Description == "" {
			t.Errorf("radar[%d] missing name or description", i)
		}
	}
}

func TestFinalizeDoesNotMutateInput(t *testing.T) {
	raw := rawResult(150, 50, 50, 50, 50)
	Finalize(PersonaDefault, raw, nil)

	if raw.TechnicalSkills.Score != 150 {
		t.Errorf("input result was mutated: technical = %d", raw.TechnicalSkills.Score)
	}
}

func TestReadinessFor(t *testing.T) {
	tests := []struct {
		score int
		want  ReadinessLevel
	}{
		{100, ReadinessStrongHire},
		{85, ReadinessStrongHire},
		{84, ReadinessHire},
		{70, ReadinessHire},
		{69, ReadinessMaybe},
		{55, ReadinessMaybe},
		{54, ReadinessWeakMaybe},
		{40, ReadinessWeakMaybe},
		{39, ReadinessNoHire},
		{0, ReadinessNoHire},
	}

	for _, tc := range tests {
		if got := ReadinessFor(tc.score); got != tc.want {
			t.Errorf("ReadinessFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestReadinessRankOrdering(t *testing.T) {
	ordered := []ReadinessLevel{
		ReadinessNoHire, ReadinessWeakMaybe, ReadinessMaybe, ReadinessHire, ReadinessStrongHire,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("%q rank %d not above %q rank %d",
				ordered[i], ordered[i].Rank(), ordered[i-1], ordered[i-1].Rank())
		}
	}
}

func TestPersonaFor(t *testing.T) {
	tests := []struct {
		title     string
		expertise string
		want      Persona
	}{
		{"HR Manager", "behavioral interviews", PersonaHR},
		{"Senior Recruiter", "", PersonaHR},
		{"Technical Lead", "distributed systems", PersonaTechLead},
		{"Principal Engineer", "", PersonaTechLead},
		{"Engineering Manager", "team leadership", PersonaEngManager},
		{"Product Manager", "roadmaps", PersonaProduct},
		{"Data Scientist", "machine learning", PersonaDataScience},
		{"Software Engineer", "backend", PersonaDefault},
		{"", "", PersonaDefault},
	}

	for _, tc := range tests {
		if got := PersonaFor(tc.title, tc.expertise); got != tc.want {
			t.Errorf("PersonaFor(%q, %q) = %q, want %q", tc.title, tc.expertise, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(rawResult(50, 50, 50, 50, 50)); err != nil {
		t.Errorf("valid result rejected: %v", err)
	}

	missing := rawResult(50, 50, 50, 50, 50)
	missing.Communication.Justification = " "
	if err := Validate(missing); err == nil {
		t.Error("expected error for missing justification")
	}

	noSummary := rawResult(50, 50, 50, 50, 50)
	noSummary.InterviewSummary = ""
	if err := Validate(noSummary); err == nil {
		t.Error("expected error for empty summary")
	}
}
