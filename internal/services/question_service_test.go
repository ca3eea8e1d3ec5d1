package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

func (f *fixture) questionService() QuestionService {
	return NewQuestionService(zap.NewNop(), f.questions, f.options)
}

func TestCreateQuestion_Validation(t *testing.T) {
	tests := []struct {
		name    string
		dto     models.QuestionDTO
		wantErr string
	}{
		{
			name:    "missing text",
			dto:     models.QuestionDTO{SurveyID: 1, Type: visibility.Text},
			wantErr: "Question text is required",
		},
		{
			name:    "unknown type",
			dto:     models.QuestionDTO{SurveyID: 1, Text: "Upload", Type: "file"},
			wantErr: "Valid question type is required, one of: text, textarea, radio",
		},
		{
			name:    "choice without options",
			dto:     models.QuestionDTO{SurveyID: 1, Text: "Colour?", Type: visibility.Dropdown},
			wantErr: "Choice questions must have at least one option",
		},
		{
			name:    "rating without maximum",
			dto:     models.QuestionDTO{SurveyID: 1, Text: "Rate us", Type: visibility.Rating},
			wantErr: "Rating and scale questions require a maximum value",
		},
		{
			name: "inverted range",
			dto: models.QuestionDTO{SurveyID: 1, Text: "Rate us", Type: visibility.Rating,
				ValidationRules: models.ValidationRules{MinValue: ptr(5.0), MaxValue: ptr(1.0)}},
			wantErr: "Minimum value cannot exceed maximum value",
		},
		{
			name: "broken expression",
			dto: models.QuestionDTO{SurveyID: 1, Text: "Age", Type: visibility.Number,
				ValidationRules: models.ValidationRules{Expression: "number >="}},
			wantErr: "Validation expression is invalid",
		},
		{
			name: "blank option",
			dto: models.QuestionDTO{SurveyID: 1, Text: "Colour?", Type: visibility.Radio,
				Options: []models.OptionInput{{Text: "Red"}, {Text: " "}}},
			wantErr: "Option 2 text is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.questionService().Create(context.Background(), tt.dto)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if len(f.questions.created) != 0 {
				t.Error("invalid question must not be stored")
			}
		})
	}
}

func TestCreateQuestion_DropsOptionsForTextTypes(t *testing.T) {
	f := newFixture()

	got, err := f.questionService().Create(context.Background(), models.QuestionDTO{
		SurveyID: 1, Text: "Name", Type: visibility.Text,
		Options: []models.OptionInput{{Text: "stray"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Options) != 0 {
		t.Errorf("expected no options, got %+v", got.Options)
	}
	if dto := f.questions.created[0].(models.QuestionDTO); dto.Options != nil {
		t.Errorf("expected options stripped before saving, got %+v", dto.Options)
	}
}

func TestReorderQuestions_Validation(t *testing.T) {
	svc := newFixture().questionService()

	err := svc.Reorder(context.Background(), 1, []models.QuestionOrder{
		{QuestionID: 1, OrderIndex: 0},
		{QuestionID: 2, OrderIndex: 0},
		{QuestionID: 1, OrderIndex: 3},
	})

	details := strings.Join(fault.Details(err), "\n")
	for _, want := range []string{"Order index 0 is used more than once", "Question 1 appears more than once"} {
		if !strings.Contains(details, want) {
			t.Errorf("expected %q in %q", want, details)
		}
	}
}

func TestReorderQuestions(t *testing.T) {
	f := newFixture()
	db, mock := newSQLMock(t)
	f.questions.db = db

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deferQuestionOrder)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(updateQuestionOrder)).WithArgs(0, 2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(updateQuestionOrder)).WithArgs(1, 1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := f.questionService().Reorder(context.Background(), 1, []models.QuestionOrder{
		{QuestionID: 2, OrderIndex: 0},
		{QuestionID: 1, OrderIndex: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReorderQuestions_ForeignQuestion(t *testing.T) {
	f := newFixture()
	db, mock := newSQLMock(t)
	f.questions.db = db

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deferQuestionOrder)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(updateQuestionOrder)).WithArgs(0, 9, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := f.questionService().Reorder(context.Background(), 1, []models.QuestionOrder{{QuestionID: 9, OrderIndex: 0}})
	if !errors.Is(err, fault.ErrNotFound) || !fault.IsClientError(err) {
		t.Errorf("expected client not found error, got %v", err)
	}
}

func TestGuardAnsweredUpdate(t *testing.T) {
	radio := visibility.Radio
	text := "What is your favourite colour?"
	required := true

	tests := []struct {
		name    string
		dto     models.QuestionUpdateDTO
		queried bool
		count   int
		wantErr bool
	}{
		{name: "type change on answered question", dto: models.QuestionUpdateDTO{Type: &radio}, queried: true, count: 2, wantErr: true},
		{name: "option change on answered question", dto: models.QuestionUpdateDTO{Options: []models.OptionInput{{Text: "Red"}}}, queried: true, count: 1, wantErr: true},
		{name: "rule change on unanswered question", dto: models.QuestionUpdateDTO{ValidationRules: &models.ValidationRules{}}, queried: true, count: 0},
		{name: "content edit on answered question", dto: models.QuestionUpdateDTO{Text: &text, IsRequired: &required}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFixture().questionService().(*questionServiceImpl)
			db, mock := newSQLMock(t)

			mock.ExpectBegin()
			if tt.queried {
				mock.ExpectQuery(regexp.QuoteMeta(lockQuestion)).WithArgs(4).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
				mock.ExpectQuery(regexp.QuoteMeta(countAnswersByQuestion)).WithArgs(4).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))
			}

			tx, err := db.Beginx()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = svc.guardAnsweredUpdate(context.Background(), tx, tt.dto, &models.Question{ID: 4}, false)
			if tt.wantErr {
				if !errors.Is(err, ErrQuestionAnswered) || !fault.IsClientError(err) {
					t.Errorf("expected answered question client error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGuardAnsweredDelete(t *testing.T) {
	svc := newFixture().questionService().(*questionServiceImpl)
	db, mock := newSQLMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuestion)).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(countAnswersByQuestion)).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = svc.guardAnsweredDelete(context.Background(), tx, 4)
	if !errors.Is(err, ErrQuestionAnswered) {
		t.Errorf("expected answered question error, got %v", err)
	}
}

func TestUpdateQuestion_RestatedFieldsAreNotStructural(t *testing.T) {
	f := newFixture()
	f.questions.put(selectQuestionByID, 4, models.Question{ID: 4, SurveyID: 1, Text: "Colour?", Type: visibility.Radio})
	f.options.selects[selectOptionsByQuestion] = []models.QuestionOption{
		{ID: 1, QuestionID: 4, Text: "Red", Value: "red", OrderIndex: 0},
	}

	radio := visibility.Radio
	text := "Favourite colour?"
	_, err := f.questionService().Update(context.Background(), 4, models.QuestionUpdateDTO{
		Text:    &text,
		Type:    &radio,
		Options: []models.OptionInput{{Text: "Red", Value: "red"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dto := f.questions.updated[4].(models.QuestionUpdateDTO)
	if dto.Structural() {
		t.Errorf("expected a content-only update, got %+v", dto)
	}
	if dto.Text == nil || *dto.Text != text {
		t.Errorf("expected text %q to be saved, got %+v", text, dto.Text)
	}
}

func TestUpdateQuestion_NoFields(t *testing.T) {
	_, err := newFixture().questionService().Update(context.Background(), 4, models.QuestionUpdateDTO{})
	if err == nil || !strings.Contains(err.Error(), "no fields to update") {
		t.Errorf("expected no fields error, got %v", err)
	}
}
