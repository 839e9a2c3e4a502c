package questions

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/intervox/intervox/internal/interview"
)

//go:embed bank.yaml
var defaultBank []byte

// bankFile is the on-disk shape of a question bank.
type bankFile struct {
	Questions []interview.Question `yaml:"questions"`
}

// Load reads an ordered question sequence from a YAML file.
func Load(path string) ([]interview.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank %q: %w", path, err)
	}

	bank, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("question bank %q: %w", path, err)
	}

	return bank, nil
}

// Default returns the built-in question bank.
func Default() []interview.Question {
	bank, err := parse(defaultBank)
	if err != nil {
		// The embedded bank is part of the build; a parse failure here is
		// a programming error.
		panic(fmt.Sprintf("embedded question bank is invalid: %v", err))
	}
	return bank
}

func parse(data []byte) ([]interview.Question, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("no questions defined")
	}

	for i, q := range file.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("question %d has empty text", i)
		}
	}

	return file.Questions, nil
}
