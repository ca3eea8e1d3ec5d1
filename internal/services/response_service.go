package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/paginator"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/internal/pkg/workerpool"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

var (
	ErrSurveyInactive    = errors.New("survey is not accepting responses")
	ErrDuplicateResponse = errors.New("respondent already answered this survey")
)

const (
	responseColumns = `id, survey_id, respondent_id, respondent_email, ip_address, user_agent,
		is_complete, started_at, completed_at`

	selectResponseByID = `SELECT ` + responseColumns + ` FROM survey_responses WHERE id = $1`

	lockResponse = `SELECT ` + responseColumns + ` FROM survey_responses WHERE id = $1 FOR UPDATE`

	countResponsesByEmail = `SELECT COUNT(*) FROM survey_responses
		WHERE survey_id = $1 AND LOWER(respondent_email) = LOWER($2)`

	countResponsesByRespondent = `SELECT COUNT(*) FROM survey_responses
		WHERE survey_id = $1 AND respondent_id = $2`

	selectResponsesBySurvey = `SELECT r.id, r.survey_id, r.respondent_id, r.respondent_email, r.ip_address,
		r.user_agent, r.is_complete, r.started_at, r.completed_at, COUNT(a.id) AS answer_count
		FROM survey_responses r LEFT JOIN question_answers a ON a.response_id = r.id
		WHERE r.survey_id = $1 GROUP BY r.id ORDER BY r.started_at DESC, r.id DESC`

	selectAnswersByResponse = `SELECT a.id, a.response_id, a.question_id, a.answer_text, a.answer_value,
		a.selected_options, a.updated_at FROM question_answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.response_id = $1 ORDER BY q.order_index, a.question_id`

	upsertAnswer = `INSERT INTO question_answers
		(response_id, question_id, answer_text, answer_value, selected_options, updated_at)
		VALUES (:response_id, :question_id, :answer_text, :answer_value, :selected_options, :updated_at)
		ON CONFLICT (response_id, question_id) DO UPDATE SET
		answer_text = EXCLUDED.answer_text, answer_value = EXCLUDED.answer_value,
		selected_options = EXCLUDED.selected_options, updated_at = EXCLUDED.updated_at`

	deleteAnswer = `DELETE FROM question_answers WHERE response_id = $1 AND question_id = $2`

	deleteHiddenAnswers = `DELETE FROM question_answers
		WHERE response_id = $1 AND NOT (question_id = ANY($2))`

	completeResponse = `UPDATE survey_responses SET is_complete = TRUE, completed_at = $2
		WHERE id = $1 AND is_complete = FALSE`
)

// Submitter accepts background jobs.
type Submitter interface {
	Submit(job workerpool.Job) bool
}

// Handles respondents answering a survey.
type ResponseService interface {
	Start(ctx context.Context, dto models.ResponseDTO) (*models.SurveyResponse, error)
	// Records or overwrites one answer and returns the recomputed visible
	// questions. index is the position the respondent was at before answering.
	RecordAnswer(ctx context.Context, responseID, questionID int, answer visibility.Answer, index int) (*models.Progress, error)
	ClearAnswer(ctx context.Context, responseID, questionID, index int) (*models.Progress, error)
	Visible(ctx context.Context, responseID, index int) (*models.Progress, error)
	// Resolves a survey against supplied answers without storing anything.
	Preview(ctx context.Context, surveyID int, answers []visibility.Answer, index int) (*models.Progress, error)
	// Finalises a response exactly once. Supplied answers are merged over the
	// stored ones before visibility and required questions are checked.
	Submit(ctx context.Context, responseID int, answers []visibility.Answer) (*models.ResponseDetail, error)
	Get(ctx context.Context, id int) (*models.ResponseDetail, error)
	ListBySurvey(ctx context.Context, surveyID, page, limit int) (*paginator.PaginatedResponse[models.ResponseSummary], error)
}

type ResponseServiceConfig struct {
	Surveys    SurveyService
	Questions  store.Datastorer[models.Question]
	Options    store.Datastorer[models.QuestionOption]
	Conditions store.Datastorer[models.QuestionCondition]
	Responses  store.Datastorer[models.SurveyResponse]
	Summaries  store.Datastorer[models.ResponseSummary]
	Answers    store.Datastorer[models.QuestionAnswer]
	Validator  AnswerValidator
	// Jobs runs the response counter refresh after a response is started.
	Jobs       Submitter
	Retries    int
	RetryDelay time.Duration
}

type responseServiceImpl struct {
	surveys   SurveyService
	responses store.Datastorer[models.SurveyResponse]
	answers   store.Datastorer[models.QuestionAnswer]
	paginator paginator.Paginator[models.ResponseSummary]
	reader    surveyReader
	validator AnswerValidator
	jobs      Submitter
	retries   int
	delay     time.Duration
	log       *zap.Logger
}

// Instantiate the ResponseService.
func NewResponseService(log *zap.Logger, conf ResponseServiceConfig) ResponseService {
	s := &responseServiceImpl{
		surveys:   conf.Surveys,
		responses: conf.Responses,
		answers:   conf.Answers,
		paginator: paginator.NewPaginator(conf.Summaries),
		reader:    surveyReader{questions: conf.Questions, options: conf.Options, conditions: conf.Conditions},
		validator: conf.Validator,
		jobs:      conf.Jobs,
		retries:   conf.Retries,
		delay:     conf.RetryDelay,
		log:       log,
	}

	if s.validator == nil {
		s.validator = NewAnswerValidator()
	}
	if s.retries < 1 {
		s.retries = 1
	}

	conf.Responses.SetHooks(store.Hooks{
		AfterSaveCommit: []func(ctx context.Context, data store.DTO, model any, isNew bool) store.AfterSaveCommitHook{
			s.refreshCountAfterStart,
		},
	})

	return s
}

func (s *responseServiceImpl) refreshCountAfterStart(ctx context.Context, data store.DTO, model any, isNew bool) store.AfterSaveCommitHook {
	response, ok := model.(*models.SurveyResponse)
	if !isNew || !ok || s.jobs == nil {
		return nil
	}

	surveyID := response.SurveyID
	return func() {
		job := workerpool.WithRetry(s.log, s.retries, s.delay, func(ctx context.Context) error {
			return s.surveys.RefreshResponseCount(ctx, surveyID)
		})
		if !s.jobs.Submit(job) {
			s.log.Warn("Response count refresh was not queued", zap.Int("survey_id", surveyID))
		}
	}
}

func normalizeEmail(email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil, nil
	}

	if addr, err := mail.ParseAddress(trimmed); err != nil || addr.Address != trimmed {
		return nil, fault.NewValidationError([]string{"Respondent email must be a valid email address"})
	}
	return &trimmed, nil
}

func (s *responseServiceImpl) count(ctx context.Context, query string, args ...any) (int, error) {
	raw, err := s.responses.QueryRow(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	switch v := raw.(type) {
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("expected int for count, got %T", raw)
}

func (s *responseServiceImpl) Start(ctx context.Context, dto models.ResponseDTO) (*models.SurveyResponse, error) {
	survey, err := s.surveys.GetSurvey(ctx, dto.SurveyID)
	if err != nil {
		return nil, err
	}

	if !survey.IsActive {
		return nil, fault.NewClientError("Survey is not accepting responses", ErrSurveyInactive)
	}
	if survey.RequiresLogin && dto.RespondentID == nil {
		return nil, fault.NewClientError("Survey requires login", ErrForbidden)
	}

	email, err := normalizeEmail(dto.RespondentEmail)
	if err != nil {
		return nil, err
	}
	dto.RespondentEmail = email

	if !survey.AllowMultipleResponses {
		if email != nil {
			n, err := s.count(ctx, countResponsesByEmail, survey.ID, *email)
			if err != nil {
				return nil, fault.NewInternalError("failed to check previous responses", err)
			}
			if n > 0 {
				return nil, fault.NewClientError("You have already responded to this survey", ErrDuplicateResponse)
			}
		}
		if dto.RespondentID != nil {
			n, err := s.count(ctx, countResponsesByRespondent, survey.ID, *dto.RespondentID)
			if err != nil {
				return nil, fault.NewInternalError("failed to check previous responses", err)
			}
			if n > 0 {
				return nil, fault.NewClientError("You have already responded to this survey", ErrDuplicateResponse)
			}
		}
	}

	created, err := s.responses.Create(ctx, dto)
	if err != nil {
		return nil, storeError(err, "failed to start response")
	}

	response := created.(*models.SurveyResponse)
	s.log.Info("Response started", zap.Int("response_id", response.ID), zap.Int("survey_id", response.SurveyID))
	return response, nil
}

func (s *responseServiceImpl) getResponse(ctx context.Context, id int) (*models.SurveyResponse, error) {
	response, err := s.responses.Get(ctx, selectResponseByID, id)
	if err != nil {
		return nil, notFoundOr(err, "response not found", "failed to fetch response")
	}
	return response, nil
}

func (s *responseServiceImpl) openResponse(ctx context.Context, id int) (*models.SurveyResponse, error) {
	response, err := s.getResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	if response.IsComplete {
		return nil, fault.NewClientError("Response has already been submitted", fault.ErrAlreadyCompleted)
	}
	return response, nil
}

// surveyState is everything the resolver needs for one response.
type surveyState struct {
	questions []models.Question
	rules     []visibility.Condition
	answers   visibility.AnswerSet
}

func (st surveyState) question(id int) (models.Question, bool) {
	for _, q := range st.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (s *responseServiceImpl) loadState(ctx context.Context, surveyID, responseID int) (*surveyState, error) {
	questions, err := s.reader.listQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	conditions, err := s.reader.listConditions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	answers := visibility.AnswerSet{}
	if responseID > 0 {
		stored, err := s.answers.Select(ctx, selectAnswersByResponse, responseID)
		if err != nil {
			return nil, fault.NewInternalError("failed to fetch answers", err)
		}
		answers = models.AnswerSet(stored)
	}

	return &surveyState{questions: questions, rules: models.Rules(conditions), answers: answers}, nil
}

// progress resolves the visible questions and places the respondent among
// them. anchorID, when non-zero, is the question the respondent was on.
func (st surveyState) progress(responseID, anchorID, index int) *models.Progress {
	visible, answers := visibility.Settle(st.questions, st.answers, st.rules)

	if anchorID > 0 {
		index = visibility.Reanchor(visible, anchorID, index)
	} else {
		index = visibility.ClampIndex(index, len(visible))
	}

	p := &models.Progress{
		ResponseID: responseID,
		Visible:    visible,
		Position:   visibility.Locate(index, len(visible)),
	}
	if next, ok := visibility.NextQuestion(visible, index, answers, st.rules); ok {
		p.NextIndex = &next
	}
	return p
}

// lockOpen locks the response row for the rest of tx and fails if it has
// been submitted in the meantime.
func lockOpen(ctx context.Context, tx *sqlx.Tx, id int) error {
	var response models.SurveyResponse
	if err := tx.GetContext(ctx, &response, lockResponse, id); err != nil {
		return store.MapError(err)
	}
	if response.IsComplete {
		return fault.NewClientError("Response has already been submitted", fault.ErrAlreadyCompleted)
	}
	return nil
}

func answerRow(responseID int, a visibility.Answer, now time.Time) models.QuestionAnswer {
	return models.QuestionAnswer{
		ResponseID:      responseID,
		QuestionID:      a.QuestionID,
		AnswerText:      a.Text,
		AnswerValue:     string(a.Value),
		SelectedOptions: models.StringList(a.SelectedOptions),
		UpdatedAt:       now,
	}
}

func (s *responseServiceImpl) RecordAnswer(ctx context.Context, responseID, questionID int, answer visibility.Answer, index int) (*models.Progress, error) {
	response, err := s.openResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, response.SurveyID, responseID)
	if err != nil {
		return nil, err
	}

	question, ok := state.question(questionID)
	if !ok {
		return nil, fault.NewClientError("question does not belong to this survey", fault.ErrNotFound)
	}

	answer.QuestionID = questionID
	if err := s.validator.Validate(question, answer); err != nil {
		return nil, err
	}

	row := answerRow(responseID, answer, time.Now().UTC())
	err = store.WithTx(ctx, s.responses.Base(), func(tx *sqlx.Tx) error {
		if err := lockOpen(ctx, tx, responseID); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, upsertAnswer, row)
		return store.MapError(err)
	})
	if err != nil {
		return nil, storeError(err, "failed to save answer")
	}

	state.answers[questionID] = answer
	return state.progress(responseID, questionID, index), nil
}

func (s *responseServiceImpl) ClearAnswer(ctx context.Context, responseID, questionID, index int) (*models.Progress, error) {
	response, err := s.openResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	err = store.WithTx(ctx, s.responses.Base(), func(tx *sqlx.Tx) error {
		if err := lockOpen(ctx, tx, responseID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteAnswer, responseID, questionID)
		return store.MapError(err)
	})
	if err != nil {
		return nil, storeError(err, "failed to clear answer")
	}

	state, err := s.loadState(ctx, response.SurveyID, responseID)
	if err != nil {
		return nil, err
	}

	return state.progress(responseID, questionID, index), nil
}

func (s *responseServiceImpl) Visible(ctx context.Context, responseID, index int) (*models.Progress, error) {
	response, err := s.getResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, response.SurveyID, responseID)
	if err != nil {
		return nil, err
	}

	return state.progress(responseID, 0, index), nil
}

func (s *responseServiceImpl) Preview(ctx context.Context, surveyID int, answers []visibility.Answer, index int) (*models.Progress, error) {
	if _, err := s.surveys.GetSurvey(ctx, surveyID); err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, surveyID, 0)
	if err != nil {
		return nil, err
	}
	state.answers = visibility.NewAnswerSet(answers...)

	return state.progress(0, 0, index), nil
}

func (s *responseServiceImpl) Submit(ctx context.Context, responseID int, answers []visibility.Answer) (*models.ResponseDetail, error) {
	response, err := s.openResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	state, err := s.loadState(ctx, response.SurveyID, responseID)
	if err != nil {
		return nil, err
	}

	var errs []string
	for _, a := range answers {
		question, ok := state.question(a.QuestionID)
		if !ok {
			errs = append(errs, fmt.Sprintf("Question %d does not belong to this survey", a.QuestionID))
			continue
		}
		if err := s.validator.Validate(question, a); err != nil {
			errs = append(errs, fault.Details(err)...)
		}
		state.answers[a.QuestionID] = a
	}

	// Answers to hidden questions are discarded before anything is checked,
	// so they cannot keep other questions visible.
	visible, kept := visibility.Settle(state.questions, state.answers, state.rules)

	visibleIDs := make([]int64, 0, len(visible))
	for _, q := range visible {
		visibleIDs = append(visibleIDs, int64(q.ID))

		if !q.IsRequired {
			continue
		}
		if n, ok := visibility.Normalize(kept.Lookup(q.ID)); !ok || isBlank(n) {
			errs = append(errs, fmt.Sprintf("%s is required", q.Text))
		}
	}

	if err := fault.NewValidationError(errs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = store.WithTx(ctx, s.responses.Base(), func(tx *sqlx.Tx) error {
		if err := lockOpen(ctx, tx, responseID); err != nil {
			return err
		}

		for _, a := range answers {
			if _, ok := kept[a.QuestionID]; !ok {
				continue
			}
			if _, err := tx.NamedExecContext(ctx, upsertAnswer, answerRow(responseID, a, now)); err != nil {
				return store.MapError(err)
			}
		}

		if _, err := tx.ExecContext(ctx, deleteHiddenAnswers, responseID, pq.Array(visibleIDs)); err != nil {
			return store.MapError(err)
		}

		res, err := tx.ExecContext(ctx, completeResponse, responseID, now)
		if err != nil {
			return store.MapError(err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fault.NewClientError("Response has already been submitted", fault.ErrAlreadyCompleted)
		}

		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to submit response")
	}

	s.log.Info("Response submitted",
		zap.Int("response_id", responseID),
		zap.Int("survey_id", response.SurveyID),
		zap.Int("visible_questions", len(visible)),
	)

	return s.Get(ctx, responseID)
}

func (s *responseServiceImpl) Get(ctx context.Context, id int) (*models.ResponseDetail, error) {
	response, err := s.getResponse(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := s.answers.Select(ctx, selectAnswersByResponse, id)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch answers", err)
	}

	return &models.ResponseDetail{SurveyResponse: *response, Answers: answers}, nil
}

func (s *responseServiceImpl) ListBySurvey(ctx context.Context, surveyID, page, limit int) (*paginator.PaginatedResponse[models.ResponseSummary], error) {
	result, err := s.paginator.PaginateQuery(ctx, selectResponsesBySurvey, []any{surveyID}, page, limit)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch responses", err)
	}
	return result, nil
}
