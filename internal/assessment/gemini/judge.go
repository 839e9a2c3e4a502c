package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/intervox/intervox/internal/assessment"
	"github.com/intervox/intervox/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const systemInstruction = "You are a rigorous interview evaluator. " +
	"You always respond with a single JSON object and nothing else."

const defaultMaxLogLength = 200

// Judge asks Gemini to score a finished interview.
type Judge struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewJudge(generator contentGenerator, log *zap.Logger, maxLogLength int) *Judge {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Judge{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Assess sends the interview to Gemini and parses the raw category
// scores from its JSON reply.
func (j *Judge) Assess(ctx context.Context, req assessment.Request) (*assessment.Result, error) {
	if len(req.Pairs) == 0 {
		return nil, fmt.Errorf("no questions were asked")
	}

	personaJSON, err := json.MarshalIndent(req.Profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal interviewer payload: %w", err)
	}

	transcriptJSON, err := json.MarshalIndent(req.Transcript, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transcript payload: %w", err)
	}

	questionsJSON, err := json.MarshalIndent(req.Pairs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal questions payload: %w", err)
	}

	prompt := buildPrompt(string(personaJSON), string(transcriptJSON), string(questionsJSON))

	j.logger.Debug("gemini assessment request",
		zap.Int("questions", len(req.Pairs)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, j.maxLogLen)),
	)

	raw, err := j.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	j.logger.Debug("gemini assessment response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, j.maxLogLen)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if err := assessment.Validate(result); err != nil {
		return nil, fmt.Errorf("incomplete gemini assessment: %w", err)
	}

	return result, nil
}

func buildPrompt(personaJSON, transcriptJSON, questionsJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Interviewer:\n{{PERSONA_JSON}}\n\nTranscript:\n{{TRANSCRIPT_JSON}}\n\nQuestions:\n{{QUESTIONS_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PERSONA_JSON}}", personaJSON)
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT_JSON}}", transcriptJSON)
	prompt = strings.ReplaceAll(prompt, "{{QUESTIONS_JSON}}", questionsJSON)
	return prompt
}

// flexScore tolerates models that emit scores as floats or quoted strings.
type flexScore int

func (s *flexScore) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	if trimmed == "" || trimmed == "null" {
		*s = 0
		return nil
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("parse score %q: %w", trimmed, err)
	}

	*s = flexScore(math.Round(f))
	return nil
}

type wireScore struct {
	Score         flexScore `json:"score"`
	Justification string    `json:"justification"`
}

type wireResult struct {
	TechnicalSkills    wireScore                    `json:"technicalSkills"`
	ProblemSolving     wireScore                    `json:"problemSolving"`
	Communication      wireScore                    `json:"communication"`
	Experience         wireScore                    `json:"experience"`
	Professionalism    wireScore                    `json:"professionalism"`
	Strengths          []string                     `json:"strengths"`
	Weaknesses         []string                     `json:"weaknesses"`
	DetailedFeedback   []assessment.Feedback        `json:"detailedFeedback"`
	ImprovementAreas   []assessment.ImprovementArea `json:"improvementAreas"`
	InterviewSummary   string                       `json:"interviewSummary"`
	RecommendedActions []string                     `json:"recommendedActions"`
}

func parseResponse(raw string) (*assessment.Result, error) {
	cleaned := extractJSON(raw)

	var wire wireResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &assessment.Result{
		TechnicalSkills:    categoryScore(wire.TechnicalSkills),
		ProblemSolving:     categoryScore(wire.ProblemSolving),
		Communication:      categoryScore(wire.Communication),
		Experience:         categoryScore(wire.Experience),
		Professionalism:    categoryScore(wire.Professionalism),
		Strengths:          wire.Strengths,
		Weaknesses:         wire.Weaknesses,
		DetailedFeedback:   wire.DetailedFeedback,
		ImprovementAreas:   wire.ImprovementAreas,
		InterviewSummary:   strings.TrimSpace(wire.InterviewSummary),
		RecommendedActions: wire.RecommendedActions,
	}, nil
}

func categoryScore(w wireScore) assessment.CategoryScore {
	return assessment.CategoryScore{
		Score:         int(w.Score),
		Justification: strings.TrimSpace(w.Justification),
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
