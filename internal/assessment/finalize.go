package assessment

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// minValidAnswerChars is the trimmed length below which an answer does
// not count as engaged participation.
const minValidAnswerChars = 20

// engagementCeiling caps the overall score when the candidate answered
// fewer than half of the questions substantively.
const engagementCeiling = 30

var radarDescriptions = map[Category]string{
	CategoryTechnicalSkills: "Depth and accuracy of domain knowledge",
	CategoryProblemSolving:  "Structured reasoning and approach to unknowns",
	CategoryCommunication:   "Clarity and organization of spoken answers",
	CategoryExperience:      "Relevance of past work to the role",
	CategoryProfessionalism: "Composure, attitude and interview conduct",
}

var radarNames = map[Category]string{
	CategoryTechnicalSkills: "Technical Skills",
	CategoryProblemSolving:  "Problem Solving",
	CategoryCommunication:   "Communication",
	CategoryExperience:      "Experience",
	CategoryProfessionalism: "Professionalism",
}

// Finalize clamps the collaborator's raw category scores, computes the
// persona-weighted overall score, applies the low-engagement ceiling and
// fills the derived fields (readiness level, radar array). The answers
// slice holds the candidate's recorded answers, one per asked question.
func Finalize(persona Persona, raw *Result, answers []string) *Result {
	out := *raw
	weights := WeightsFor(persona)

	weighted := 0
	for _, c := range Categories {
		score := out.Category(c)
		score.Score = clampScore(score.Score)
		out.setCategory(c, score)
		weighted += score.Score * weights[c]
	}
	out.OverallScore = weighted / 100

	if len(answers) > 0 && validAnswerCount(answers)*2 < len(answers) {
		if out.OverallScore > engagementCeiling {
			out.OverallScore = engagementCeiling
		}
	}

	out.ReadinessLevel = ReadinessFor(out.OverallScore)
	out.SkillsRadar = buildRadar(&out)
	return &out
}

func validAnswerCount(answers []string) int {
	n := 0
	for _, a := range answers {
		if utf8.RuneCountInString(strings.TrimSpace(a)) >= minValidAnswerChars {
			n++
		}
	}
	return n
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func buildRadar(r *Result) []RadarSkill {
	radar := make([]RadarSkill, 0, len(Categories))
	for _, c := range Categories {
		radar = append(radar, RadarSkill{
			Name:        radarNames[c],
			Score:       r.Category(c).Score,
			MaxScore:    100,
			Description: radarDescriptions[c],
		})
	}
	return radar
}

// Validate reports whether a collaborator result covers every category
// with a justification. Used to reject malformed responses.
func Validate(r *Result) error {
	for _, c := range Categories {
		score := r.Category(c)
		if strings.TrimSpace(score.Justification) == "" {
			return fmt.Errorf("category %s is missing a justification", c)
		}
	}
	if strings.TrimSpace(r.InterviewSummary) == "" {
		return fmt.Errorf("interview summary is empty")
	}
	return nil
}
