package models

import (
	"time"

	"github.com/paulexconde/surveyflow/pkg/visibility"
)

type QuestionCondition struct {
	visibility.Condition
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Rules strips storage metadata so the conditions can be handed to the resolver.
func Rules(conditions []QuestionCondition) []visibility.Condition {
	rules := make([]visibility.Condition, 0, len(conditions))
	for _, c := range conditions {
		rules = append(rules, c.Condition)
	}
	return rules
}

type ConditionDTO struct {
	SurveyID         int                      `db:"survey_id" json:"survey_id"`
	SourceQuestionID int                      `db:"source_question_id" json:"source_question_id"`
	TargetQuestionID int                      `db:"target_question_id" json:"target_question_id"`
	Type             visibility.ConditionType `db:"condition_type" json:"condition_type"`
	Operator         visibility.Operator      `db:"condition_operator" json:"condition_operator"`
	Value            string                   `db:"condition_value" json:"condition_value"`
}

func (d ConditionDTO) Rule() visibility.Condition {
	return visibility.Condition{
		SurveyID:         d.SurveyID,
		SourceQuestionID: d.SourceQuestionID,
		TargetQuestionID: d.TargetQuestionID,
		Type:             d.Type,
		Operator:         d.Operator,
		Value:            d.Value,
	}
}

func (d ConditionDTO) ToModel(id int) any {
	rule := d.Rule()
	rule.ID = id
	return &QuestionCondition{Condition: rule, CreatedAt: time.Now().UTC()}
}
