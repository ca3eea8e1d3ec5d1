package services

import (
	"context"
	"errors"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/pkg/fault"
)

const (
	selectSurveyByID = `SELECT id, title, description, creator_id, is_active, allow_multiple_responses,
		requires_login, response_count, created_at, updated_at FROM surveys WHERE id = $1`

	selectQuestionsBySurvey = `SELECT id, survey_id, question_text, question_type, is_required, order_index,
		validation_rules, created_at FROM questions WHERE survey_id = $1 ORDER BY order_index, id`

	selectQuestionByID = `SELECT id, survey_id, question_text, question_type, is_required, order_index,
		validation_rules, created_at FROM questions WHERE id = $1`

	selectOptionsBySurvey = `SELECT o.id, o.question_id, o.option_text, o.option_value, o.order_index
		FROM question_options o JOIN questions q ON q.id = o.question_id
		WHERE q.survey_id = $1 ORDER BY o.question_id, o.order_index`

	selectOptionsByQuestion = `SELECT id, question_id, option_text, option_value, order_index
		FROM question_options WHERE question_id = $1 ORDER BY order_index`

	selectConditionsBySurvey = `SELECT id, survey_id, source_question_id, target_question_id, condition_type,
		condition_operator, condition_value, created_at FROM question_conditions
		WHERE survey_id = $1 ORDER BY source_question_id, id`

	selectConditionByID = `SELECT id, survey_id, source_question_id, target_question_id, condition_type,
		condition_operator, condition_value, created_at FROM question_conditions WHERE id = $1`
)

// surveyReader loads the parts of a survey the resolver needs.
type surveyReader struct {
	questions  store.Datastorer[models.Question]
	options    store.Datastorer[models.QuestionOption]
	conditions store.Datastorer[models.QuestionCondition]
}

// listQuestions returns the survey's questions in order_index order, options attached.
func (r surveyReader) listQuestions(ctx context.Context, surveyID int) ([]models.Question, error) {
	questions, err := r.questions.Select(ctx, selectQuestionsBySurvey, surveyID)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch questions", err)
	}

	options, err := r.options.Select(ctx, selectOptionsBySurvey, surveyID)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch question options", err)
	}

	byQuestion := make(map[int][]models.QuestionOption, len(questions))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}

	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
		if questions[i].Options == nil {
			questions[i].Options = []models.QuestionOption{}
		}
	}

	return questions, nil
}

func (r surveyReader) listConditions(ctx context.Context, surveyID int) ([]models.QuestionCondition, error) {
	conditions, err := r.conditions.Select(ctx, selectConditionsBySurvey, surveyID)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch conditions", err)
	}
	return conditions, nil
}

// getQuestion loads one question with its options.
func (r surveyReader) getQuestion(ctx context.Context, id int) (*models.Question, error) {
	q, err := r.questions.Get(ctx, selectQuestionByID, id)
	if err != nil {
		return nil, notFoundOr(err, "question not found", "failed to fetch question")
	}

	options, err := r.options.Select(ctx, selectOptionsByQuestion, id)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch question options", err)
	}
	q.Options = options

	return q, nil
}

// notFoundOr turns ErrNotFound into a client error and everything else into
// an internal one.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, fault.ErrNotFound) {
		return fault.NewClientError(notFound, err)
	}
	return fault.NewInternalError(internal, err)
}

// storeError maps constraint violations to client errors.
func storeError(err error, internal string) error {
	switch {
	case err == nil:
		return nil
	case fault.IsClientError(err):
		return err
	case errors.Is(err, fault.ErrNotFound):
		return fault.NewClientError("resource not found", err)
	case errors.Is(err, fault.ErrUniqueViolation):
		return fault.NewClientError("a record with the same position already exists", err)
	case errors.Is(err, fault.ErrForeignKeyViolation):
		return fault.NewClientError("referenced record does not exist or is still in use", err)
	}
	return fault.NewInternalError(internal, err)
}
