package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulexconde/surveyflow/pkg/visibility"
)

type Question struct {
	ID              int                     `db:"id" json:"id"`
	SurveyID        int                     `db:"survey_id" json:"survey_id"`
	Text            string                  `db:"question_text" json:"question_text"`
	Type            visibility.QuestionType `db:"question_type" json:"question_type"`
	IsRequired      bool                    `db:"is_required" json:"is_required"`
	OrderIndex      int                     `db:"order_index" json:"order_index"`
	ValidationRules ValidationRules         `db:"validation_rules" json:"validation_rules"`
	Options         []QuestionOption        `db:"-" json:"options"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
}

func (q Question) QuestionID() int {
	return q.ID
}

// OptionValues returns the comparable value of every option, in order.
func (q Question) OptionValues() []string {
	values := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		values = append(values, o.Value)
	}
	return values
}

type QuestionOption struct {
	ID         int    `db:"id" json:"id"`
	QuestionID int    `db:"question_id" json:"question_id"`
	Text       string `db:"option_text" json:"text"`
	Value      string `db:"option_value" json:"value"`
	OrderIndex int    `db:"order_index" json:"order_index"`
}

// ValidationRules are optional per-question answer constraints, stored as jsonb.
type ValidationRules struct {
	MinValue  *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	MinLength *int     `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	// Expression is a boolean rule over the answer, e.g. `number >= 18`.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

func (r ValidationRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *ValidationRules) Scan(src any) error {
	return scanJSON(src, r)
}

// StringList is a jsonb encoded list of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

func scanJSON(src any, dest any) error {
	var data []byte

	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}

	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// OptionInput is an option as supplied by the survey author.
type OptionInput struct {
	Text  string `json:"text" yaml:"text"`
	Value string `json:"value" yaml:"value"`
}

type QuestionDTO struct {
	SurveyID        int                     `db:"survey_id" json:"survey_id"`
	Text            string                  `db:"question_text" json:"question_text"`
	Type            visibility.QuestionType `db:"question_type" json:"question_type"`
	IsRequired      bool                    `db:"is_required" json:"is_required"`
	OrderIndex      int                     `db:"order_index" json:"order_index"`
	ValidationRules ValidationRules         `db:"validation_rules" json:"validation_rules"`
	Options         []OptionInput           `db:"-" json:"options"`
}

func (d QuestionDTO) ToModel(id int) any {
	q := &Question{
		ID:              id,
		SurveyID:        d.SurveyID,
		Text:            d.Text,
		Type:            d.Type,
		IsRequired:      d.IsRequired,
		OrderIndex:      d.OrderIndex,
		ValidationRules: d.ValidationRules,
		CreatedAt:       time.Now().UTC(),
	}
	for i, o := range d.Options {
		q.Options = append(q.Options, QuestionOption{
			QuestionID: id,
			Text:       o.Text,
			Value:      o.ValueOrText(),
			OrderIndex: i,
		})
	}
	return q
}

// ValueOrText is the stored option value; it defaults to the display text.
func (o OptionInput) ValueOrText() string {
	if o.Value != "" {
		return o.Value
	}
	return o.Text
}

// Only non-nil fields are written. Options, when set, replace the existing ones.
type QuestionUpdateDTO struct {
	Text            *string                  `db:"question_text" json:"question_text"`
	Type            *visibility.QuestionType `db:"question_type" json:"question_type"`
	IsRequired      *bool                    `db:"is_required" json:"is_required"`
	OrderIndex      *int                     `db:"order_index" json:"order_index"`
	ValidationRules *ValidationRules         `db:"validation_rules" json:"validation_rules"`
	Options         []OptionInput            `db:"-" json:"options"`
}

func (d QuestionUpdateDTO) ToModel(id int) any {
	return &Question{ID: id}
}

// Structural reports whether the update touches what stored answers depend
// on: the type, the options or the validation rules.
func (d QuestionUpdateDTO) Structural() bool {
	return d.Type != nil || d.Options != nil || d.ValidationRules != nil
}

func (d QuestionUpdateDTO) Empty() bool {
	return !d.Structural() && d.Text == nil && d.IsRequired == nil && d.OrderIndex == nil
}

// QuestionOrder moves one question to a new position.
type QuestionOrder struct {
	QuestionID int `json:"questionId"`
	OrderIndex int `json:"orderIndex"`
}
