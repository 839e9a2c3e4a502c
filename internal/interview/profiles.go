package interview

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// profilesFile is the on-disk shape of an interviewer profiles file.
type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads interviewer profiles from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing profiles file %q: %w", path, err)
	}

	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles file %q contains no profiles", path)
	}

	for i, p := range file.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		if strings.TrimSpace(p.Title) == "" {
			return nil, fmt.Errorf("profile %q has no title", p.Name)
		}
	}

	return file.Profiles, nil
}

// DefaultProfiles returns the built-in interviewer roster used when no
// profiles file is configured.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:            "Sarah Mitchell",
			Title:           "HR Manager",
			Gender:          "female",
			Age:             38,
			VoiceTone:       "warm",
			Expertise:       "behavioral interviewing",
			YearsExperience: 12,
			Style:           "conversational",
			Personality:     "empathetic and structured",
			FocusAreas:      []string{"culture fit", "communication", "motivation"},
			QuestionTypes:   []string{"behavioral", "situational"},
		},
		{
			Name:            "Daniel Kovacs",
			Title:           "Technical Lead",
			Gender:          "male",
			Age:             34,
			VoiceTone:       "direct",
			Expertise:       "backend systems",
			YearsExperience: 10,
			Style:           "deep-dive",
			Personality:     "precise and curious",
			FocusAreas:      []string{"system design", "debugging", "code quality"},
			QuestionTypes:   []string{"technical", "problem-solving"},
		},
		{
			Name:            "Priya Raman",
			Title:           "Engineering Manager",
			Gender:          "female",
			Age:             41,
			VoiceTone:       "measured",
			Expertise:       "team leadership",
			YearsExperience: 15,
			Style:           "balanced",
			Personality:     "calm and thorough",
			FocusAreas:      []string{"collaboration", "delivery", "growth"},
			QuestionTypes:   []string{"behavioral", "technical"},
		},
		{
			Name:            "Marcus Webb",
			Title:           "Data Scientist",
			Gender:          "male",
			Age:             31,
			VoiceTone:       "analytical",
			Expertise:       "machine learning",
			YearsExperience: 7,
			Style:           "socratic",
			Personality:     "rigorous",
			FocusAreas:      []string{"statistics", "modeling", "experimentation"},
			QuestionTypes:   []string{"technical", "case-study"},
		},
	}
}

// FindProfile returns the profile with the given name, or nil.
func FindProfile(profiles []Profile, name string) *Profile {
	for i := range profiles {
		if strings.EqualFold(profiles[i].Name, name) {
			return &profiles[i]
		}
	}
	return nil
}
