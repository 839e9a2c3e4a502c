// Package report persists finished interviews and renders them for humans.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/intervox/intervox/internal/assessment"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/transcript"
)

// Report is the complete on-disk record of one interview. Assessment is
// nil when scoring was skipped or failed.
type Report struct {
	Session    interview.Session  `json:"session"`
	Assessment *assessment.Result `json:"assessment,omitempty"`
}

// Writer saves reports under a directory, one pair of files per session.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		var err error
		dir, err = os.MkdirTemp("", "intervox-reports-")
		if err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	return &Writer{dir: dir}, nil
}

// Dir returns the directory reports are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteJSON saves the report as interview_<session-id>.json and returns
// the file path.
func (w *Writer) WriteJSON(r *Report) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("interview_%s.json", r.Session.ID))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	return path, nil
}

// WriteMarkdown saves the human-readable summary next to the JSON record.
func (w *Writer) WriteMarkdown(r *Report) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("interview_%s.md", r.Session.ID))

	if err := os.WriteFile(path, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown report: %w", err)
	}

	return path, nil
}

// Load reads a previously saved JSON report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}

	if r.Session.ID == "" {
		return nil, fmt.Errorf("report %s has no session id", path)
	}

	return &r, nil
}

// RenderMarkdown renders the report as a markdown document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Interview Report\n\n")
	fmt.Fprintf(&b, "- Interviewer: %s (%s)\n", r.Session.Profile.Name, r.Session.Profile.Title)
	fmt.Fprintf(&b, "- Started: %s\n", r.Session.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", msToClock(r.Session.DurationMs))
	fmt.Fprintf(&b, "- Questions asked: %d\n", len(r.Session.Questions))

	if r.Assessment != nil {
		fmt.Fprintf(&b, "\n## Assessment\n\n")
		fmt.Fprintf(&b, "**Overall: %d/100 — %s**\n\n", r.Assessment.OverallScore, r.Assessment.ReadinessLevel)
		for _, spoke := range r.Assessment.SkillsRadar {
			fmt.Fprintf(&b, "- %s: %d/%d\n", spoke.Name, spoke.Score, spoke.MaxScore)
		}
		if r.Assessment.InterviewSummary != "" {
			fmt.Fprintf(&b, "\n%s\n", r.Assessment.InterviewSummary)
		}
		writeList(&b, "Strengths", r.Assessment.Strengths)
		writeList(&b, "Weaknesses", r.Assessment.Weaknesses)
		writeList(&b, "Recommended actions", r.Assessment.RecommendedActions)
		if len(r.Assessment.ImprovementAreas) > 0 {
			fmt.Fprintf(&b, "\n### Improvement areas\n\n")
			for _, area := range r.Assessment.ImprovementAreas {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", area.Area, area.Priority, area.Suggestion)
			}
		}
	}

	entries := r.Session.Transcript
	if len(entries) > 0 {
		fmt.Fprintf(&b, "\n## Transcript\n\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "[%s] %s: %s\n\n", msToClock(e.TimestampMs), speakerLabel(e.Speaker), strings.TrimSpace(e.Text))
		}
	}

	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func speakerLabel(s transcript.Speaker) string {
	if s == transcript.SpeakerCandidate {
		return "Candidate"
	}
	return "Interviewer"
}

func msToClock(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
