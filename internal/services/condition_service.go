package services

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

var ErrConditionCycle = errors.New("condition would create a circular dependency")

const lockSurvey = `SELECT id FROM surveys WHERE id = $1 FOR UPDATE`

// Handles the branching rules of a survey.
type ConditionService interface {
	Create(ctx context.Context, dto models.ConditionDTO) (*models.QuestionCondition, error)
	Get(ctx context.Context, id int) (*models.QuestionCondition, error)
	ListForSurvey(ctx context.Context, surveyID int) ([]models.QuestionCondition, error)
	Delete(ctx context.Context, id int) error
}

type conditionServiceImpl struct {
	conditions store.Datastorer[models.QuestionCondition]
	reader     surveyReader
	log        *zap.Logger
}

// Instantiate the ConditionService.
func NewConditionService(
	log *zap.Logger,
	questions store.Datastorer[models.Question],
	options store.Datastorer[models.QuestionOption],
	conditions store.Datastorer[models.QuestionCondition],
) ConditionService {
	s := &conditionServiceImpl{
		conditions: conditions,
		reader:     surveyReader{questions: questions, options: options, conditions: conditions},
		log:        log,
	}

	conditions.SetHooks(store.Hooks{
		PreSave: []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error{
			s.rejectCycle,
		},
	})

	return s
}

// rejectCycle repeats the cycle check with the survey row locked, so two
// conditions created at the same time cannot close a loop together.
func (s *conditionServiceImpl) rejectCycle(ctx context.Context, tx *sqlx.Tx, data store.DTO, isNew bool) error {
	dto, ok := data.(models.ConditionDTO)
	if !ok || !isNew {
		return nil
	}

	var locked int
	if err := tx.GetContext(ctx, &locked, lockSurvey, dto.SurveyID); err != nil {
		return store.MapError(err)
	}

	var existing []models.QuestionCondition
	if err := tx.SelectContext(ctx, &existing, selectConditionsBySurvey, dto.SurveyID); err != nil {
		return err
	}

	if visibility.WouldCreateCycle(models.Rules(existing), dto.Rule()) {
		return fault.NewClientError("Condition would create a circular dependency", ErrConditionCycle)
	}
	return nil
}

func (s *conditionServiceImpl) Create(ctx context.Context, dto models.ConditionDTO) (*models.QuestionCondition, error) {
	questions, err := s.reader.listQuestions(ctx, dto.SurveyID)
	if err != nil {
		return nil, err
	}

	known := make(map[int]bool, len(questions))
	order := make(map[int]int, len(questions))
	for _, q := range questions {
		known[q.ID] = true
		order[q.ID] = q.OrderIndex
	}

	if !dto.Operator.NeedsValue() {
		dto.Value = ""
	}

	if err := fault.NewValidationError(models.ConditionProblems(dto.Rule(), known)); err != nil {
		return nil, err
	}

	existing, err := s.reader.listConditions(ctx, dto.SurveyID)
	if err != nil {
		return nil, err
	}

	if visibility.WouldCreateCycle(models.Rules(existing), dto.Rule()) {
		return nil, fault.NewClientError("Condition would create a circular dependency", ErrConditionCycle)
	}

	if order[dto.SourceQuestionID] >= order[dto.TargetQuestionID] {
		s.log.Warn("Condition source does not precede its target",
			zap.Int("survey_id", dto.SurveyID),
			zap.Int("source_question_id", dto.SourceQuestionID),
			zap.Int("target_question_id", dto.TargetQuestionID),
		)
	}

	created, err := s.conditions.Create(ctx, dto)
	if err != nil {
		return nil, storeError(err, "failed to create condition")
	}

	condition := created.(*models.QuestionCondition)
	s.log.Info("Condition created",
		zap.Int("condition_id", condition.ID),
		zap.Int("survey_id", condition.SurveyID),
		zap.String("type", string(condition.Type)),
	)
	return condition, nil
}

func (s *conditionServiceImpl) Get(ctx context.Context, id int) (*models.QuestionCondition, error) {
	condition, err := s.conditions.Get(ctx, selectConditionByID, id)
	if err != nil {
		return nil, notFoundOr(err, "condition not found", "failed to fetch condition")
	}
	return condition, nil
}

func (s *conditionServiceImpl) ListForSurvey(ctx context.Context, surveyID int) ([]models.QuestionCondition, error) {
	return s.reader.listConditions(ctx, surveyID)
}

func (s *conditionServiceImpl) Delete(ctx context.Context, id int) error {
	if err := s.conditions.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete condition")
	}

	s.log.Info("Condition deleted", zap.Int("condition_id", id))
	return nil
}
