// Package assessment turns a completed interview transcript into a
// weighted, persona-aware performance result. The semantic judgment of
// answers is delegated to an external reasoning collaborator; this
// package defines that contract and aggregates its output.
package assessment

import "strings"

// Category is one of the five fixed scoring categories.
type Category string

const (
	CategoryTechnicalSkills Category = "technicalSkills"
	CategoryProblemSolving  Category = "problemSolving"
	CategoryCommunication   Category = "communication"
	CategoryExperience      Category = "experience"
	CategoryProfessionalism Category = "professionalism"
)

// Categories lists the fixed categories in canonical order.
var Categories = []Category{
	CategoryTechnicalSkills,
	CategoryProblemSolving,
	CategoryCommunication,
	CategoryExperience,
	CategoryProfessionalism,
}

// CategoryScore is a 0-100 score with its justification.
type CategoryScore struct {
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// ReadinessLevel is the ordered hiring-recommendation label.
type ReadinessLevel string

const (
	ReadinessStrongHire ReadinessLevel = "Strong Hire"
	ReadinessHire       ReadinessLevel = "Hire"
	ReadinessMaybe      ReadinessLevel = "Maybe"
	ReadinessWeakMaybe  ReadinessLevel = "Weak Maybe"
	ReadinessNoHire     ReadinessLevel = "No Hire"
)

// Rank orders readiness levels from worst (0) to best (4).
func (r ReadinessLevel) Rank() int {
	switch r {
	case ReadinessStrongHire:
		return 4
	case ReadinessHire:
		return 3
	case ReadinessMaybe:
		return 2
	case ReadinessWeakMaybe:
		return 1
	default:
		return 0
	}
}

// ReadinessFor maps an overall score onto its readiness level.
func ReadinessFor(score int) ReadinessLevel {
	switch {
	case score >= 85:
		return ReadinessStrongHire
	case score >= 70:
		return ReadinessHire
	case score >= 55:
		return ReadinessMaybe
	case score >= 40:
		return ReadinessWeakMaybe
	default:
		return ReadinessNoHire
	}
}

// Feedback is one per-category qualitative rating.
type Feedback struct {
	Category Category `json:"category"`
	Rating   string   `json:"rating"`
	Comment  string   `json:"comment"`
}

// ImprovementArea is one prioritized improvement suggestion.
type ImprovementArea struct {
	Area       string `json:"area"`
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

// RadarSkill is one spoke of the radar-chart-ready array.
type RadarSkill struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	MaxScore    int    `json:"maxScore"`
	Description string `json:"description"`
}

// Result is the complete assessment produced at most once per session.
// It is replace-only: never partially updated.
type Result struct {
	TechnicalSkills CategoryScore `json:"technicalSkills"`
	ProblemSolving  CategoryScore `json:"problemSolving"`
	Communication   CategoryScore `json:"communication"`
	Experience      CategoryScore `json:"experience"`
	Professionalism CategoryScore `json:"professionalism"`

	OverallScore   int            `json:"overallScore"`
	ReadinessLevel ReadinessLevel `json:"readinessLevel"`

	Strengths          []string          `json:"strengths"`
	Weaknesses         []string          `json:"weaknesses"`
	DetailedFeedback   []Feedback        `json:"detailedFeedback"`
	ImprovementAreas   []ImprovementArea `json:"improvementAreas"`
	InterviewSummary   string            `json:"interviewSummary"`
	RecommendedActions []string          `json:"recommendedActions"`
	SkillsRadar        []RadarSkill      `json:"skillsRadar"`
}

// Category returns the score for the given category.
func (r *Result) Category(c Category) CategoryScore {
	switch c {
	case CategoryTechnicalSkills:
		return r.TechnicalSkills
	case CategoryProblemSolving:
		return r.ProblemSolving
	case CategoryCommunication:
		return r.Communication
	case CategoryExperience:
		return r.Experience
	case CategoryProfessionalism:
		return r.Professionalism
	default:
		return CategoryScore{}
	}
}

func (r *Result) setCategory(c Category, score CategoryScore) {
	switch c {
	case CategoryTechnicalSkills:
		r.TechnicalSkills = score
	case CategoryProblemSolving:
		r.ProblemSolving = score
	case CategoryCommunication:
		r.Communication = score
	case CategoryExperience:
		r.Experience = score
	case CategoryProfessionalism:
		r.Professionalism = score
	}
}

// Persona selects a scoring-weight profile from the interviewer's role.
type Persona string

const (
	PersonaHR          Persona = "hr"
	PersonaTechLead    Persona = "tech-lead"
	PersonaEngManager  Persona = "eng-manager"
	PersonaProduct     Persona = "product"
	PersonaDataScience Persona = "data-science"
	PersonaDefault     Persona = "default-technical"
)

// Weights assigns a percentage per category. Each profile sums to 100.
type Weights map[Category]int

var personaWeights = map[Persona]Weights{
	PersonaHR: {
		CategoryTechnicalSkills: 10,
		CategoryProblemSolving:  15,
		CategoryCommunication:   30,
		CategoryExperience:      15,
		CategoryProfessionalism: 30,
	},
	PersonaTechLead: {
		CategoryTechnicalSkills: 35,
		CategoryProblemSolving:  30,
		CategoryCommunication:   15,
		CategoryExperience:      10,
		CategoryProfessionalism: 10,
	},
	PersonaEngManager: {
		CategoryTechnicalSkills: 20,
		CategoryProblemSolving:  25,
		CategoryCommunication:   25,
		CategoryExperience:      15,
		CategoryProfessionalism: 15,
	},
	PersonaProduct: {
		CategoryTechnicalSkills: 15,
		CategoryProblemSolving:  30,
		CategoryCommunication:   25,
		CategoryExperience:      15,
		CategoryProfessionalism: 15,
	},
	PersonaDataScience: {
		CategoryTechnicalSkills: 35,
		CategoryProblemSolving:  30,
		CategoryCommunication:   10,
		CategoryExperience:      15,
		CategoryProfessionalism: 10,
	},
	PersonaDefault: {
		CategoryTechnicalSkills: 25,
		CategoryProblemSolving:  25,
		CategoryCommunication:   20,
		CategoryExperience:      15,
		CategoryProfessionalism: 15,
	},
}

// WeightsFor returns the weight profile for a persona.
func WeightsFor(persona Persona) Weights {
	if w, ok := personaWeights[persona]; ok {
		return w
	}
	return personaWeights[PersonaDefault]
}

// PersonaFor maps an interviewer title and expertise onto a persona.
func PersonaFor(title, expertise string) Persona {
	probe := strings.ToLower(title + " " + expertise)

	switch {
	case hasToken(probe, "hr") || containsAny(probe, "recruit", "people", "talent", "behavioral"):
		return PersonaHR
	case containsAny(probe, "data scien", "machine learning", "ml "):
		return PersonaDataScience
	case containsAny(probe, "product"):
		return PersonaProduct
	case containsAny(probe, "engineering manager", "em "):
		return PersonaEngManager
	case containsAny(probe, "lead", "principal", "staff"):
		return PersonaTechLead
	default:
		return PersonaDefault
	}
}

func hasToken(s, token string) bool {
	for _, f := range strings.Fields(s) {
		if f == token {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
