package models

import (
	"time"

	"github.com/paulexconde/surveyflow/pkg/visibility"
)

type SurveyResponse struct {
	ID              int        `db:"id" json:"id"`
	SurveyID        int        `db:"survey_id" json:"survey_id"`
	RespondentID    *int       `db:"respondent_id" json:"respondent_id"`
	RespondentEmail *string    `db:"respondent_email" json:"respondent_email"`
	IPAddress       string     `db:"ip_address" json:"ip_address"`
	UserAgent       string     `db:"user_agent" json:"user_agent"`
	IsComplete      bool       `db:"is_complete" json:"is_complete"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at"`
}

// ResponseSummary is a response row as listed for the survey owner.
type ResponseSummary struct {
	SurveyResponse
	AnswerCount int `db:"answer_count" json:"answer_count"`
}

// ResponseDetail is a response with its answers in question order.
type ResponseDetail struct {
	SurveyResponse
	Answers []QuestionAnswer `json:"answers"`
}

type QuestionAnswer struct {
	ID              int        `db:"id" json:"id"`
	ResponseID      int        `db:"response_id" json:"response_id"`
	QuestionID      int        `db:"question_id" json:"question_id"`
	AnswerText      string     `db:"answer_text" json:"answer_text"`
	AnswerValue     string     `db:"answer_value" json:"answer_value"`
	SelectedOptions StringList `db:"selected_options" json:"selected_options"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Answer converts the stored row into the resolver's answer form.
func (a QuestionAnswer) Answer() visibility.Answer {
	return visibility.Answer{
		QuestionID:      a.QuestionID,
		Text:            a.AnswerText,
		Value:           visibility.Scalar(a.AnswerValue),
		SelectedOptions: []string(a.SelectedOptions),
	}
}

// AnswerSet indexes stored answers by question.
func AnswerSet(answers []QuestionAnswer) visibility.AnswerSet {
	set := make(visibility.AnswerSet, len(answers))
	for _, a := range answers {
		set[a.QuestionID] = a.Answer()
	}
	return set
}

type ResponseDTO struct {
	SurveyID        int     `db:"survey_id" json:"survey_id"`
	RespondentID    *int    `db:"respondent_id" json:"respondent_id"`
	RespondentEmail *string `db:"respondent_email" json:"respondent_email"`
	IPAddress       string  `db:"ip_address" json:"-"`
	UserAgent       string  `db:"user_agent" json:"-"`
}

func (d ResponseDTO) ToModel(id int) any {
	return &SurveyResponse{
		ID:              id,
		SurveyID:        d.SurveyID,
		RespondentID:    d.RespondentID,
		RespondentEmail: d.RespondentEmail,
		IPAddress:       d.IPAddress,
		UserAgent:       d.UserAgent,
		StartedAt:       time.Now().UTC(),
	}
}

// Progress is what a respondent needs after every answer change: the
// questions they can see and where they are among them.
type Progress struct {
	ResponseID int                 `json:"response_id"`
	Visible    []Question          `json:"visible"`
	Position   visibility.Position `json:"position"`
	NextIndex  *int                `json:"next_index"`
}
