package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/intervox/intervox/internal/assessment"
	"github.com/intervox/intervox/internal/interview"
	"github.com/intervox/intervox/internal/transcript"
)

func sampleReport() *Report {
	ended := time.Date(2026, 3, 10, 14, 32, 0, 0, time.UTC)
	return &Report{
		Session: interview.Session{
			ID:         "abc-123",
			StartedAt:  ended.Add(-5 * time.Minute),
			EndedAt:    &ended,
			DurationMs: 5 * 60 * 1000,
			Profile:    interview.Profile{Name: "Daniel Kovacs", Title: "Technical Lead"},
			Questions: []interview.Question{
				{Text: "What is a goroutine?", Expected: "A lightweight thread.", Answer: "A cheap concurrent function."},
			},
			Transcript: []transcript.Entry{
				{Speaker: transcript.SpeakerInterviewer, Text: "What is a goroutine?", TimestampMs: 0, IsQuestion: true},
				{Speaker: transcript.SpeakerCandidate, Text: "A cheap concurrent function.", TimestampMs: 12000},
			},
		},
		Assessment: &assessment.Result{
			TechnicalSkills: assessment.CategoryScore{Score: 80, Justification: "good"},
			OverallScore:    78,
			ReadinessLevel:  assessment.ReadinessHire,
			Strengths:       []string{"clear definitions"},
			SkillsRadar: []assessment.RadarSkill{
				{Name: "Technical Skills", Score: 80, MaxScore: 100, Description: "d"},
			},
			InterviewSummary: "Knows the runtime basics.",
		},
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	writer, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := writer.WriteJSON(sampleReport())
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if filepath.Base(path) != "interview_abc-123.json" {
		t.Fatalf("unexpected filename: %s", path)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Session.ID != "abc-123" {
		t.Fatalf("session id = %q", loaded.Session.ID)
	}
	if len(loaded.Session.Transcript) != 2 {
		t.Fatalf("transcript entries = %d, want 2", len(loaded.Session.Transcript))
	}
	if loaded.Assessment == nil || loaded.Assessment.OverallScore != 78 {
		t.Fatalf("assessment not preserved: %+v", loaded.Assessment)
	}
}

func TestLoadRejectsBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); err == nil {
		t.Fatal("expected error for malformed file")
	}

	noID := filepath.Join(dir, "noid.json")
	if err := os.WriteFile(noID, []byte(`{"session": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(noID); err == nil {
		t.Fatal("expected error for report without session id")
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleReport())

	for _, want := range []string{
		"# Interview Report",
		"Daniel Kovacs (Technical Lead)",
		"- Duration: 05:00",
		"**Overall: 78/100 — Hire**",
		"- Technical Skills: 80/100",
		"Knows the runtime basics.",
		"### Strengths",
		"[00:00] Interviewer: What is a goroutine?",
		"[00:12] Candidate: A cheap concurrent function.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownWithoutAssessment(t *testing.T) {
	r := sampleReport()
	r.Assessment = nil

	md := RenderMarkdown(r)

	if strings.Contains(md, "## Assessment") {
		t.Error("assessment section rendered for nil assessment")
	}
	if !strings.Contains(md, "## Transcript") {
		t.Error("transcript section missing")
	}
}

func TestNewWriterDefaultsToTempDir(t *testing.T) {
	writer, err := NewWriter("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.RemoveAll(writer.Dir())

	if writer.Dir() == "" {
		t.Fatal("expected a directory to be created")
	}
	if _, err := os.Stat(writer.Dir()); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}
