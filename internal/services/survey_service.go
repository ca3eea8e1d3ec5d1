package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/paginator"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"go.uber.org/zap"
)

var ErrForbidden = errors.New("survey belongs to another creator")

const (
	selectSurveysByCreator = `SELECT id, title, description, creator_id, is_active, allow_multiple_responses,
		requires_login, response_count, created_at, updated_at FROM surveys
		WHERE creator_id = $1 ORDER BY created_at DESC, id DESC`

	refreshResponseCount = `UPDATE surveys SET response_count =
		(SELECT COUNT(*) FROM survey_responses WHERE survey_id = $1) WHERE id = $1`
)

// Handles survey authoring.
type SurveyService interface {
	CreateSurvey(ctx context.Context, dto models.SurveyDTO) (*models.Survey, error)
	GetSurvey(ctx context.Context, id int) (*models.Survey, error)
	// Survey with its ordered questions and all of its conditions.
	GetSurveyDetail(ctx context.Context, id int) (*models.SurveyDetail, error)
	ListByCreator(ctx context.Context, creatorID, page, limit int) (*paginator.PaginatedResponse[models.Survey], error)
	UpdateSurvey(ctx context.Context, id int, dto models.SurveyUpdateDTO) (*models.Survey, error)
	DeleteSurvey(ctx context.Context, id int) error
	// Fails with ErrForbidden unless creatorID owns the survey.
	EnsureOwner(ctx context.Context, surveyID, creatorID int) error
	RefreshResponseCount(ctx context.Context, surveyID int) error
}

type surveyServiceImpl struct {
	surveys   store.Datastorer[models.Survey]
	paginator paginator.Paginator[models.Survey]
	reader    surveyReader
	log       *zap.Logger
}

// Instantiate the SurveyService.
func NewSurveyService(
	log *zap.Logger,
	surveys store.Datastorer[models.Survey],
	questions store.Datastorer[models.Question],
	options store.Datastorer[models.QuestionOption],
	conditions store.Datastorer[models.QuestionCondition],
) SurveyService {
	return &surveyServiceImpl{
		surveys:   surveys,
		paginator: paginator.NewPaginator(surveys),
		reader:    surveyReader{questions: questions, options: options, conditions: conditions},
		log:       log,
	}
}

func validateSurvey(dto models.SurveyDTO) error {
	var errs []string

	title := strings.TrimSpace(dto.Title)
	if title == "" {
		errs = append(errs, "Title is required")
	}
	if len(dto.Title) > 255 {
		errs = append(errs, "Title must be less than 255 characters")
	}
	if dto.CreatorID <= 0 {
		errs = append(errs, "Creator ID must be a valid integer")
	}

	return fault.NewValidationError(errs)
}

func (s *surveyServiceImpl) CreateSurvey(ctx context.Context, dto models.SurveyDTO) (*models.Survey, error) {
	if err := validateSurvey(dto); err != nil {
		return nil, err
	}

	if dto.IsActive == nil {
		active := true
		dto.IsActive = &active
	}

	created, err := s.surveys.Create(ctx, dto)
	if err != nil {
		return nil, storeError(err, "failed to create survey")
	}

	survey := created.(*models.Survey)
	s.log.Info("Survey created", zap.Int("survey_id", survey.ID), zap.Int("creator_id", survey.CreatorID))
	return survey, nil
}

func (s *surveyServiceImpl) GetSurvey(ctx context.Context, id int) (*models.Survey, error) {
	survey, err := s.surveys.Get(ctx, selectSurveyByID, id)
	if err != nil {
		return nil, notFoundOr(err, "survey not found", "failed to fetch survey")
	}
	return survey, nil
}

func (s *surveyServiceImpl) GetSurveyDetail(ctx context.Context, id int) (*models.SurveyDetail, error) {
	survey, err := s.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := s.reader.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	conditions, err := s.reader.listConditions(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.SurveyDetail{
		Survey:     *survey,
		Questions:  questions,
		Conditions: conditions,
	}, nil
}

func (s *surveyServiceImpl) ListByCreator(ctx context.Context, creatorID, page, limit int) (*paginator.PaginatedResponse[models.Survey], error) {
	result, err := s.paginator.PaginateQuery(ctx, selectSurveysByCreator, []any{creatorID}, page, limit)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch surveys", err)
	}
	return result, nil
}

func (s *surveyServiceImpl) UpdateSurvey(ctx context.Context, id int, dto models.SurveyUpdateDTO) (*models.Survey, error) {
	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return nil, fault.NewValidationError([]string{"Title is required"})
		}
		if len(*dto.Title) > 255 {
			return nil, fault.NewValidationError([]string{"Title must be less than 255 characters"})
		}
	}

	now := time.Now().UTC()
	dto.UpdatedAt = &now

	updated, err := s.surveys.Update(ctx, id, dto)
	if err != nil {
		return nil, storeError(err, "failed to update survey")
	}

	return updated.(*models.Survey), nil
}

func (s *surveyServiceImpl) DeleteSurvey(ctx context.Context, id int) error {
	if err := s.surveys.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete survey")
	}

	s.log.Info("Survey deleted", zap.Int("survey_id", id))
	return nil
}

func (s *surveyServiceImpl) EnsureOwner(ctx context.Context, surveyID, creatorID int) error {
	survey, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return err
	}

	if survey.CreatorID != creatorID {
		return fault.NewClientError("not allowed to modify this survey", ErrForbidden)
	}
	return nil
}

func (s *surveyServiceImpl) RefreshResponseCount(ctx context.Context, surveyID int) error {
	if err := s.surveys.BulkUpdate(ctx, refreshResponseCount, surveyID); err != nil {
		return fault.NewInternalError("failed to refresh response count", err)
	}
	return nil
}
