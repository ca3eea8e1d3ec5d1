package services

import (
	"context"
	"errors"
	"testing"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

func TestCalculateNPS(t *testing.T) {
	tests := []struct {
		name        string
		nps         NPS
		expected    int
		expectError bool
	}{
		{
			name: "Basic Case",
			nps: NPS{
				TotalSurvey: 10,
				Promoters:   6,
				Passives:    2,
				Detractors:  2,
			},
			expected:    40,
			expectError: false,
		},
		{
			name: "Zero survey",
			nps: NPS{
				TotalSurvey: 0,
				Promoters:   0,
				Passives:    0,
				Detractors:  0,
			},
			expected:    0,
			expectError: false,
		},
		{
			name: "All Detractors",
			nps: NPS{
				TotalSurvey: 5,
				Promoters:   0,
				Passives:    0,
				Detractors:  5,
			},
			expected:    -100,
			expectError: false,
		},
		{
			name: "All Promoters",
			nps: NPS{
				TotalSurvey: 4,
				Promoters:   4,
				Passives:    0,
				Detractors:  0,
			},
			expected:    100,
			expectError: false,
		},
		{
			name: "Invalid Total Survey",
			nps: NPS{
				TotalSurvey: 10,
				Promoters:   6,
				Passives:    3,
				Detractors:  3,
			},
			expected:    0,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.nps.CalculateNPS()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
			}

			if got != tt.expected {
				if err != nil {
					t.Errorf("Did not expect error, but got %v", err)
				}

				t.Errorf("CalculateNPS() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestNPSFromScores(t *testing.T) {
	got := NPSFromScores([]float64{10, 9, 8, 7, 6, 0, 11, -1})

	want := NPS{TotalSurvey: 6, Promoters: 2, Passives: 2, Detractors: 2}
	if got != want {
		t.Errorf("NPSFromScores() = %+v, want %+v", got, want)
	}
}

func TestQuestionNPS(t *testing.T) {
	f := newFixture()
	f.questions.put(selectQuestionByID, 4, models.Question{ID: 4, SurveyID: 1, Type: visibility.Scale})
	f.questions.put(selectQuestionByID, 5, models.Question{ID: 5, SurveyID: 1, Type: visibility.Text})
	f.answers.selects[selectCompletedAnswers] = []models.QuestionAnswer{
		{QuestionID: 4, AnswerValue: "10"},
		{QuestionID: 4, AnswerValue: "9"},
		{QuestionID: 4, AnswerText: "8"},
		{QuestionID: 4, AnswerValue: "3"},
		{QuestionID: 4, AnswerValue: "n/a"},
	}

	svc := NewNPSService(zap.NewNop(), f.questions, f.answers)

	report, err := svc.QuestionNPS(context.Background(), 1, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Score != 25 || report.Promoters != 2 || report.Detractors != 1 || report.Skipped != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := svc.QuestionNPS(context.Background(), 1, 5); !fault.IsClientError(err) {
		t.Errorf("expected client error for a text question, got %v", err)
	}
	if _, err := svc.QuestionNPS(context.Background(), 2, 4); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a question of another survey, got %v", err)
	}
}
