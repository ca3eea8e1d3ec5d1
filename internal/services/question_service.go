package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

const (
	insertOption = `INSERT INTO question_options (question_id, option_text, option_value, order_index)
		VALUES ($1, $2, $3, $4) RETURNING id`

	deleteOptionsByQuestion = `DELETE FROM question_options WHERE question_id = $1`

	deferQuestionOrder = `SET CONSTRAINTS uq_questions_order DEFERRED`

	updateQuestionOrder = `UPDATE questions SET order_index = $1 WHERE id = $2 AND survey_id = $3`

	lockQuestion = `SELECT id FROM questions WHERE id = $1 FOR UPDATE`

	countAnswersByQuestion = `SELECT COUNT(*) FROM question_answers WHERE question_id = $1`
)

var ErrQuestionAnswered = errors.New("question already has answers")

// Handles the questions of a survey and their options.
type QuestionService interface {
	Create(ctx context.Context, dto models.QuestionDTO) (*models.Question, error)
	Get(ctx context.Context, id int) (*models.Question, error)
	List(ctx context.Context, surveyID int) ([]models.Question, error)
	// Options, when supplied, replace the existing ones.
	Update(ctx context.Context, id int, dto models.QuestionUpdateDTO) (*models.Question, error)
	Delete(ctx context.Context, id int) error
	// Moves several questions at once; the order constraint is checked at commit.
	Reorder(ctx context.Context, surveyID int, orders []models.QuestionOrder) error
}

type questionServiceImpl struct {
	questions store.Datastorer[models.Question]
	reader    surveyReader
	log       *zap.Logger
}

// Instantiate the QuestionService.
func NewQuestionService(
	log *zap.Logger,
	questions store.Datastorer[models.Question],
	options store.Datastorer[models.QuestionOption],
) QuestionService {
	s := &questionServiceImpl{
		questions: questions,
		reader:    surveyReader{questions: questions, options: options},
		log:       log,
	}

	questions.SetHooks(store.Hooks{
		PostSave: []func(ctx context.Context, tx *sqlx.Tx, data store.DTO, model any, isNew bool) error{
			s.guardAnsweredUpdate,
			s.saveOptions,
		},
		PreDelete: []func(ctx context.Context, tx *sqlx.Tx, id int) error{
			s.guardAnsweredDelete,
		},
	})

	return s
}

// answered locks the question row and reports whether any response has
// answered it. The lock keeps new answers out until the transaction ends.
func answered(ctx context.Context, tx *sqlx.Tx, questionID int) (bool, error) {
	var locked int
	if err := tx.GetContext(ctx, &locked, lockQuestion, questionID); err != nil {
		return false, store.MapError(err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, countAnswersByQuestion, questionID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// guardAnsweredUpdate refuses type, option and rule changes on a question
// that already has answers. Text, required flag and order stay editable.
func (s *questionServiceImpl) guardAnsweredUpdate(ctx context.Context, tx *sqlx.Tx, data store.DTO, model any, isNew bool) error {
	dto, ok := data.(models.QuestionUpdateDTO)
	if !ok || isNew || !dto.Structural() {
		return nil
	}

	question, ok := model.(*models.Question)
	if !ok {
		return fmt.Errorf("unexpected question model %T", model)
	}

	has, err := answered(ctx, tx, question.ID)
	if err != nil {
		return err
	}
	if has {
		return fault.NewClientError("Question already has answers; only its text, required flag and order can change", ErrQuestionAnswered)
	}
	return nil
}

func (s *questionServiceImpl) guardAnsweredDelete(ctx context.Context, tx *sqlx.Tx, id int) error {
	has, err := answered(ctx, tx, id)
	if err != nil {
		return err
	}
	if has {
		return fault.NewClientError("Question already has answers and cannot be deleted", ErrQuestionAnswered)
	}
	return nil
}

// saveOptions writes the options of a created question, or replaces them on
// update when new ones were supplied. It runs inside the save transaction.
func (s *questionServiceImpl) saveOptions(ctx context.Context, tx *sqlx.Tx, data store.DTO, model any, isNew bool) error {
	var inputs []models.OptionInput

	switch dto := data.(type) {
	case models.QuestionDTO:
		inputs = dto.Options
	case models.QuestionUpdateDTO:
		if dto.Options == nil {
			return nil
		}
		inputs = dto.Options
	default:
		return nil
	}

	question, ok := model.(*models.Question)
	if !ok {
		return fmt.Errorf("unexpected question model %T", model)
	}

	if !isNew {
		if _, err := tx.ExecContext(ctx, deleteOptionsByQuestion, question.ID); err != nil {
			return store.MapError(err)
		}
	}

	question.Options = make([]models.QuestionOption, 0, len(inputs))
	for i, in := range inputs {
		opt := models.QuestionOption{
			QuestionID: question.ID,
			Text:       in.Text,
			Value:      in.ValueOrText(),
			OrderIndex: i,
		}
		if err := tx.QueryRowxContext(ctx, insertOption, opt.QuestionID, opt.Text, opt.Value, opt.OrderIndex).Scan(&opt.ID); err != nil {
			return store.MapError(err)
		}
		question.Options = append(question.Options, opt)
	}

	return nil
}

func validateOptions(options []models.OptionInput) []string {
	var errs []string
	for i, o := range options {
		if strings.TrimSpace(o.Text) == "" {
			errs = append(errs, fmt.Sprintf("Option %d text is required", i+1))
		}
	}
	return errs
}

func questionTypeList() string {
	types := visibility.QuestionTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func validateQuestion(dto models.QuestionDTO) error {
	var errs []string

	if dto.SurveyID <= 0 {
		errs = append(errs, "Survey ID must be a valid integer")
	}
	if strings.TrimSpace(dto.Text) == "" {
		errs = append(errs, "Question text is required")
	}
	if !dto.Type.Valid() {
		errs = append(errs, "Valid question type is required, one of: "+questionTypeList())
	}
	if dto.OrderIndex < 0 {
		errs = append(errs, "Order index must be a non-negative integer")
	}
	if dto.Type.HasOptions() && len(dto.Options) == 0 {
		errs = append(errs, "Choice questions must have at least one option")
	}
	if dto.Type.Ranged() && dto.ValidationRules.MaxValue == nil {
		errs = append(errs, "Rating and scale questions require a maximum value")
	}
	errs = append(errs, validateOptions(dto.Options)...)
	errs = append(errs, validateRules(dto.ValidationRules)...)

	return fault.NewValidationError(errs)
}

func validateRules(rules models.ValidationRules) []string {
	var errs []string

	if rules.MinValue != nil && rules.MaxValue != nil && *rules.MinValue > *rules.MaxValue {
		errs = append(errs, "Minimum value cannot exceed maximum value")
	}
	if rules.MinLength != nil && rules.MaxLength != nil && *rules.MinLength > *rules.MaxLength {
		errs = append(errs, "Minimum length cannot exceed maximum length")
	}
	if rules.Expression != "" {
		if _, err := compileRule(rules.Expression); err != nil {
			errs = append(errs, "Validation expression is invalid: "+err.Error())
		}
	}

	return errs
}

func (s *questionServiceImpl) Create(ctx context.Context, dto models.QuestionDTO) (*models.Question, error) {
	if err := validateQuestion(dto); err != nil {
		return nil, err
	}

	if !dto.Type.HasOptions() {
		dto.Options = nil
	}

	created, err := s.questions.Create(ctx, dto)
	if err != nil {
		return nil, storeError(err, "failed to create question")
	}

	question := created.(*models.Question)
	if question.Options == nil {
		question.Options = []models.QuestionOption{}
	}

	s.log.Info("Question created",
		zap.Int("question_id", question.ID),
		zap.Int("survey_id", question.SurveyID),
		zap.String("type", string(question.Type)),
	)
	return question, nil
}

func (s *questionServiceImpl) Get(ctx context.Context, id int) (*models.Question, error) {
	return s.reader.getQuestion(ctx, id)
}

func (s *questionServiceImpl) List(ctx context.Context, surveyID int) ([]models.Question, error) {
	return s.reader.listQuestions(ctx, surveyID)
}

func (s *questionServiceImpl) Update(ctx context.Context, id int, dto models.QuestionUpdateDTO) (*models.Question, error) {
	if dto.Empty() {
		return nil, fault.NewClientError("no fields to update", nil)
	}

	current, err := s.reader.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	// The merged question has to satisfy the same rules as a new one.
	merged := models.QuestionDTO{
		SurveyID:        current.SurveyID,
		Text:            current.Text,
		Type:            current.Type,
		IsRequired:      current.IsRequired,
		OrderIndex:      current.OrderIndex,
		ValidationRules: current.ValidationRules,
	}
	for _, o := range current.Options {
		merged.Options = append(merged.Options, models.OptionInput{Text: o.Text, Value: o.Value})
	}
	if dto.Text != nil {
		merged.Text = *dto.Text
	}
	if dto.Type != nil {
		merged.Type = *dto.Type
	}
	if dto.OrderIndex != nil {
		merged.OrderIndex = *dto.OrderIndex
	}
	if dto.ValidationRules != nil {
		merged.ValidationRules = *dto.ValidationRules
	}
	if dto.Options != nil {
		merged.Options = dto.Options
	}

	if err := validateQuestion(merged); err != nil {
		return nil, err
	}

	unchanged(&dto, current)
	if dto.Empty() {
		if current.Options == nil {
			current.Options = []models.QuestionOption{}
		}
		return current, nil
	}

	if dto.Type != nil && !dto.Type.HasOptions() && len(current.Options) > 0 {
		dto.Options = []models.OptionInput{}
	}

	// Replacing only the options still has to go through the update.
	if dto.Text == nil && dto.Type == nil && dto.IsRequired == nil && dto.OrderIndex == nil && dto.ValidationRules == nil {
		dto.Text = &current.Text
	}

	updated, err := s.questions.Update(ctx, id, dto)
	if err != nil {
		return nil, storeError(err, "failed to update question")
	}

	question := updated.(*models.Question)
	if dto.Options == nil {
		question.Options = current.Options
	}
	if question.Options == nil {
		question.Options = []models.QuestionOption{}
	}

	return question, nil
}

// unchanged clears the structural fields of dto that restate what is already
// stored, so resending a question as-is does not count as a structural edit.
func unchanged(dto *models.QuestionUpdateDTO, current *models.Question) {
	if dto.Type != nil && *dto.Type == current.Type {
		dto.Type = nil
	}
	if dto.ValidationRules != nil && reflect.DeepEqual(*dto.ValidationRules, current.ValidationRules) {
		dto.ValidationRules = nil
	}
	if dto.Options != nil && sameOptions(dto.Options, current.Options) {
		dto.Options = nil
	}
}

func sameOptions(inputs []models.OptionInput, stored []models.QuestionOption) bool {
	if len(inputs) != len(stored) {
		return false
	}
	for i, in := range inputs {
		if in.Text != stored[i].Text || in.ValueOrText() != stored[i].Value {
			return false
		}
	}
	return true
}

func (s *questionServiceImpl) Delete(ctx context.Context, id int) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return storeError(err, "failed to delete question")
	}

	s.log.Info("Question deleted", zap.Int("question_id", id))
	return nil
}

func (s *questionServiceImpl) Reorder(ctx context.Context, surveyID int, orders []models.QuestionOrder) error {
	if len(orders) == 0 {
		return fault.NewValidationError([]string{"Question orders are required"})
	}

	var errs []string
	seenQuestion := make(map[int]bool, len(orders))
	seenIndex := make(map[int]bool, len(orders))
	for _, o := range orders {
		if o.QuestionID <= 0 || o.OrderIndex < 0 {
			errs = append(errs, fmt.Sprintf("Invalid order entry for question %d", o.QuestionID))
			continue
		}
		if seenQuestion[o.QuestionID] {
			errs = append(errs, fmt.Sprintf("Question %d appears more than once", o.QuestionID))
		}
		if seenIndex[o.OrderIndex] {
			errs = append(errs, fmt.Sprintf("Order index %d is used more than once", o.OrderIndex))
		}
		seenQuestion[o.QuestionID] = true
		seenIndex[o.OrderIndex] = true
	}
	if err := fault.NewValidationError(errs); err != nil {
		return err
	}

	err := store.WithTx(ctx, s.questions.Base(), func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deferQuestionOrder); err != nil {
			return err
		}

		for _, o := range orders {
			res, err := tx.ExecContext(ctx, updateQuestionOrder, o.OrderIndex, o.QuestionID, surveyID)
			if err != nil {
				return store.MapError(err)
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return fault.NewClientError(fmt.Sprintf("question %d does not belong to survey %d", o.QuestionID, surveyID), fault.ErrNotFound)
			}
		}

		return nil
	})
	if err != nil {
		return storeError(store.MapError(err), "failed to reorder questions")
	}

	s.log.Info("Questions reordered", zap.Int("survey_id", surveyID), zap.Int("count", len(orders)))
	return nil
}
