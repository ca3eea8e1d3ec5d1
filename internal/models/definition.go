package models

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paulexconde/surveyflow/pkg/visibility"
	"gopkg.in/yaml.v3"
)

// Definition is a survey described in a YAML file, together with a set of
// answers to preview it against.
type Definition struct {
	Title      string                 `yaml:"title"`
	Questions  []DefinitionQuestion   `yaml:"questions"`
	Conditions []visibility.Condition `yaml:"conditions"`
	Answers    []visibility.Answer    `yaml:"answers"`
}

type DefinitionQuestion struct {
	ID         int                     `yaml:"id"`
	Text       string                  `yaml:"text"`
	Type       visibility.QuestionType `yaml:"type"`
	Required   bool                    `yaml:"required"`
	OrderIndex int                     `yaml:"order_index"`
	Options    []OptionInput           `yaml:"options"`
}

func (q DefinitionQuestion) QuestionID() int {
	return q.ID
}

// LoadDefinition reads and parses a survey definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	return ParseDefinition(data)
}

// ParseDefinition parses a YAML survey definition. Questions are put into
// order_index order, ties keeping file order.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition YAML: %w", err)
	}

	sort.SliceStable(def.Questions, func(i, j int) bool {
		return def.Questions[i].OrderIndex < def.Questions[j].OrderIndex
	})

	return &def, nil
}

// Problems lists everything wrong with the definition that an author would
// be stopped from saving through the API.
func (d *Definition) Problems() []string {
	var problems []string

	known := make(map[int]bool, len(d.Questions))
	for _, q := range d.Questions {
		if known[q.ID] {
			problems = append(problems, fmt.Sprintf("question %d is declared twice", q.ID))
		}
		known[q.ID] = true

		if !q.Type.Valid() {
			problems = append(problems, fmt.Sprintf("question %d has unknown type %q", q.ID, q.Type))
		}
		if q.Type.HasOptions() && len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %d must have at least one option", q.ID))
		}
	}

	for i, c := range d.Conditions {
		label := fmt.Sprintf("condition #%d", i+1)
		if c.ID != 0 {
			label = fmt.Sprintf("condition %d", c.ID)
		}
		problems = append(problems, prefix(label, ConditionProblems(c, known))...)
	}

	if cycle := visibility.FindCycle(d.Conditions); cycle != nil {
		problems = append(problems, fmt.Sprintf("conditions form a cycle: %v", cycle))
	}

	return problems
}

// ConditionProblems checks a condition against the questions of its survey.
func ConditionProblems(c visibility.Condition, questions map[int]bool) []string {
	var problems []string

	if c.SourceQuestionID == c.TargetQuestionID {
		problems = append(problems, "Source and target questions cannot be the same")
	}
	if !questions[c.SourceQuestionID] {
		problems = append(problems, "Source question must belong to the survey")
	}
	if !questions[c.TargetQuestionID] {
		problems = append(problems, "Target question must belong to the survey")
	}
	if !c.Type.Valid() {
		problems = append(problems, "Valid condition type is required")
	}
	if !c.Operator.Valid() {
		problems = append(problems, "Valid condition operator is required, one of: "+operatorList())
	}
	if c.Operator.NeedsValue() && strings.TrimSpace(c.Value) == "" {
		problems = append(problems, "Condition value is required")
	}

	return problems
}

func operatorList() string {
	ops := visibility.Operators()
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, string(op))
	}
	return strings.Join(names, ", ")
}

func prefix(label string, problems []string) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, label+": "+p)
	}
	return out
}
