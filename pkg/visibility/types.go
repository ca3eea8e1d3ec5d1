package visibility

import (
	"encoding/json"
	"strconv"
)

// The type of question being asked.
type QuestionType string

const (
	Text     QuestionType = "text"
	Textarea QuestionType = "textarea"
	Radio    QuestionType = "radio"
	Checkbox QuestionType = "checkbox"
	Dropdown QuestionType = "dropdown"
	Rating   QuestionType = "rating"
	Scale    QuestionType = "scale"
	Date     QuestionType = "date"
	Email    QuestionType = "email"
	Number   QuestionType = "number"
)

var questionTypes = []QuestionType{Text, Textarea, Radio, Checkbox, Dropdown, Rating, Scale, Date, Email, Number}

// QuestionTypes returns the fixed enumeration of supported question types.
func QuestionTypes() []QuestionType {
	out := make([]QuestionType, len(questionTypes))
	copy(out, questionTypes)
	return out
}

func (t QuestionType) Valid() bool {
	for _, qt := range questionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// HasOptions reports whether answers to the question are picked from a list.
func (t QuestionType) HasOptions() bool {
	return t == Radio || t == Checkbox || t == Dropdown
}

// Ranged reports whether the question needs a maximum value to be answerable.
func (t QuestionType) Ranged() bool {
	return t == Rating || t == Scale
}

// What a condition does to its target question.
type ConditionType string

const (
	ShowIf ConditionType = "show_if"
	HideIf ConditionType = "hide_if"
	SkipTo ConditionType = "skip_to"
)

func (t ConditionType) Valid() bool {
	switch t {
	case ShowIf, HideIf, SkipTo:
		return true
	}
	return false
}

// Condition links the answer of a source question to a target question.
type Condition struct {
	ID               int           `db:"id" json:"id" yaml:"id"`
	SurveyID         int           `db:"survey_id" json:"survey_id" yaml:"-"`
	SourceQuestionID int           `db:"source_question_id" json:"source_question_id" yaml:"source"`
	TargetQuestionID int           `db:"target_question_id" json:"target_question_id" yaml:"target"`
	Type             ConditionType `db:"condition_type" json:"condition_type" yaml:"type"`
	Operator         Operator      `db:"condition_operator" json:"condition_operator" yaml:"operator"`
	Value            string        `db:"condition_value" json:"condition_value" yaml:"value"`
}

// Answer is what a respondent supplied for one question.
//
// Value and Text are both scalar representations; Value wins when set.
type Answer struct {
	QuestionID      int      `json:"question_id" yaml:"question"`
	Text            string   `json:"answer_text" yaml:"text"`
	Value           Scalar   `json:"answer_value" yaml:"value"`
	SelectedOptions []string `json:"selected_options" yaml:"selected"`
}

// Answers keyed by question id. One answer per question; recording an answer
// again overwrites the previous one.
type AnswerSet map[int]Answer

// NewAnswerSet indexes answers by question id. Later entries overwrite earlier ones.
func NewAnswerSet(answers ...Answer) AnswerSet {
	set := make(AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionID] = a
	}
	return set
}

// Lookup returns the answer for a question, or nil when there is none.
func (s AnswerSet) Lookup(questionID int) *Answer {
	a, ok := s[questionID]
	if !ok {
		return nil
	}
	return &a
}

// Scalar is a textual answer value. It decodes from JSON strings, numbers and
// booleans so clients may send `"5"` or `5` interchangeably.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*s = ""
	case string:
		*s = Scalar(v)
	case float64:
		*s = Scalar(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*s = Scalar(strconv.FormatBool(v))
	default:
		*s = Scalar(string(data))
	}

	return nil
}

func (s Scalar) String() string {
	return string(s)
}

// ID is a bare question id, usable wherever the resolver wants a question.
type ID int

func (id ID) QuestionID() int {
	return int(id)
}
