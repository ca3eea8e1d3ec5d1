package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/internal/pkg/workerpool"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Datastorer. Reads are answered by query text.
type fakeStore[T any] struct {
	db      *sqlx.DB
	gets    map[string]map[any]*T
	selects map[string][]T
	rows    map[string]any
	hooks   store.Hooks

	nextID  int
	created []store.DTO
	updated map[int]store.DTO
	deleted []int
	bulk    []string
	err     error
}

func newFakeStore[T any]() *fakeStore[T] {
	return &fakeStore[T]{
		gets:    map[string]map[any]*T{},
		selects: map[string][]T{},
		rows:    map[string]any{},
		updated: map[int]store.DTO{},
		nextID:  1,
	}
}

func (f *fakeStore[T]) put(query string, key any, value T) {
	if f.gets[query] == nil {
		f.gets[query] = map[any]*T{}
	}
	f.gets[query][key] = &value
}

func (f *fakeStore[T]) Create(ctx context.Context, data store.DTO) (any, error) {
	if f.err != nil {
		return nil, f.err
	}

	id := f.nextID
	f.nextID++
	f.created = append(f.created, data)

	model := data.ToModel(id)
	for _, hook := range f.hooks.AfterSaveCommit {
		if fn := hook(ctx, data, model, true); fn != nil {
			fn()
		}
	}
	return model, nil
}

func (f *fakeStore[T]) Update(ctx context.Context, id int, data store.DTO) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updated[id] = data
	return data.ToModel(id), nil
}

func (f *fakeStore[T]) Delete(ctx context.Context, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore[T]) QueryRow(ctx context.Context, query string, args ...any) (any, error) {
	if v, ok := f.rows[query]; ok {
		return v, nil
	}
	return int64(0), nil
}

func (f *fakeStore[T]) Get(ctx context.Context, query string, args ...any) (*T, error) {
	if len(args) > 0 {
		if v, ok := f.gets[query][args[0]]; ok {
			out := *v
			return &out, nil
		}
	}
	return nil, fault.ErrNotFound
}

func (f *fakeStore[T]) Select(ctx context.Context, query string, args ...any) ([]T, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]T, len(f.selects[query]))
	copy(out, f.selects[query])
	return out, nil
}

func (f *fakeStore[T]) BulkUpdate(ctx context.Context, query string, args ...any) error {
	f.bulk = append(f.bulk, query)
	return nil
}

func (f *fakeStore[T]) SetHooks(hooks store.Hooks) {
	f.hooks.PreSave = append(f.hooks.PreSave, hooks.PreSave...)
	f.hooks.PostSave = append(f.hooks.PostSave, hooks.PostSave...)
	f.hooks.AfterSaveCommit = append(f.hooks.AfterSaveCommit, hooks.AfterSaveCommit...)
}

func (f *fakeStore[T]) Base() *sqlx.DB {
	return f.db
}

// syncJobs runs submitted jobs immediately.
type syncJobs struct {
	ran int
}

func (j *syncJobs) Submit(job workerpool.Job) bool {
	j.ran++
	job(context.Background())
	return true
}

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

// fixture holds the stores behind every service for one test.
type fixture struct {
	surveys    *fakeStore[models.Survey]
	questions  *fakeStore[models.Question]
	options    *fakeStore[models.QuestionOption]
	conditions *fakeStore[models.QuestionCondition]
	responses  *fakeStore[models.SurveyResponse]
	summaries  *fakeStore[models.ResponseSummary]
	answers    *fakeStore[models.QuestionAnswer]
	jobs       *syncJobs
}

func newFixture() *fixture {
	return &fixture{
		surveys:    newFakeStore[models.Survey](),
		questions:  newFakeStore[models.Question](),
		options:    newFakeStore[models.QuestionOption](),
		conditions: newFakeStore[models.QuestionCondition](),
		responses:  newFakeStore[models.SurveyResponse](),
		summaries:  newFakeStore[models.ResponseSummary](),
		answers:    newFakeStore[models.QuestionAnswer](),
		jobs:       &syncJobs{},
	}
}

func (f *fixture) surveyService() SurveyService {
	return NewSurveyService(zap.NewNop(), f.surveys, f.questions, f.options, f.conditions)
}

func (f *fixture) responseService() ResponseService {
	return NewResponseService(zap.NewNop(), ResponseServiceConfig{
		Surveys:    f.surveyService(),
		Questions:  f.questions,
		Options:    f.options,
		Conditions: f.conditions,
		Responses:  f.responses,
		Summaries:  f.summaries,
		Answers:    f.answers,
		Jobs:       f.jobs,
		Retries:    1,
	})
}

// seedPetSurvey stores survey 1: "Do you own a pet?" (1, radio, required),
// "What kind?" (2, text, required, shown if 1 equals yes) and
// "Any comments?" (3, textarea).
func (f *fixture) seedPetSurvey() {
	f.surveys.put(selectSurveyByID, 1, models.Survey{ID: 1, Title: "Pets", CreatorID: 7, IsActive: true})

	f.questions.selects[selectQuestionsBySurvey] = []models.Question{
		{ID: 1, SurveyID: 1, Text: "Do you own a pet?", Type: visibility.Radio, IsRequired: true, OrderIndex: 0},
		{ID: 2, SurveyID: 1, Text: "What kind?", Type: visibility.Text, IsRequired: true, OrderIndex: 1},
		{ID: 3, SurveyID: 1, Text: "Any comments?", Type: visibility.Textarea, OrderIndex: 2},
	}
	f.options.selects[selectOptionsBySurvey] = []models.QuestionOption{
		{ID: 1, QuestionID: 1, Text: "Yes", Value: "Yes", OrderIndex: 0},
		{ID: 2, QuestionID: 1, Text: "No", Value: "No", OrderIndex: 1},
	}
	f.conditions.selects[selectConditionsBySurvey] = []models.QuestionCondition{
		{Condition: visibility.Condition{
			ID: 10, SurveyID: 1, SourceQuestionID: 1, TargetQuestionID: 2,
			Type: visibility.ShowIf, Operator: visibility.Equals, Value: "Yes",
		}},
	}
}
