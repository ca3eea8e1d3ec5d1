package models

import "time"

type Survey struct {
	ID                     int       `db:"id" json:"id"`
	Title                  string    `db:"title" json:"title"`
	Description            string    `db:"description" json:"description"`
	CreatorID              int       `db:"creator_id" json:"creator_id"`
	IsActive               bool      `db:"is_active" json:"is_active"`
	AllowMultipleResponses bool      `db:"allow_multiple_responses" json:"allow_multiple_responses"`
	RequiresLogin          bool      `db:"requires_login" json:"requires_login"`
	ResponseCount          int       `db:"response_count" json:"response_count"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// SurveyDetail is a survey with everything needed to take it.
type SurveyDetail struct {
	Survey
	Questions  []Question          `json:"questions"`
	Conditions []QuestionCondition `json:"conditions"`
}

type SurveyDTO struct {
	Title                  string `db:"title" json:"title"`
	Description            string `db:"description" json:"description"`
	CreatorID              int    `db:"creator_id" json:"creator_id"`
	IsActive               *bool  `db:"is_active" json:"is_active"`
	AllowMultipleResponses bool   `db:"allow_multiple_responses" json:"allow_multiple_responses"`
	RequiresLogin          bool   `db:"requires_login" json:"requires_login"`
}

func (d SurveyDTO) ToModel(id int) any {
	now := time.Now().UTC()
	return &Survey{
		ID:                     id,
		Title:                  d.Title,
		Description:            d.Description,
		CreatorID:              d.CreatorID,
		IsActive:               d.IsActive == nil || *d.IsActive,
		AllowMultipleResponses: d.AllowMultipleResponses,
		RequiresLogin:          d.RequiresLogin,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Only non-nil fields are written.
type SurveyUpdateDTO struct {
	Title                  *string    `db:"title" json:"title"`
	Description            *string    `db:"description" json:"description"`
	IsActive               *bool      `db:"is_active" json:"is_active"`
	AllowMultipleResponses *bool      `db:"allow_multiple_responses" json:"allow_multiple_responses"`
	RequiresLogin          *bool      `db:"requires_login" json:"requires_login"`
	UpdatedAt              *time.Time `db:"updated_at" json:"-"`
}

func (d SurveyUpdateDTO) ToModel(id int) any {
	return &Survey{ID: id}
}
