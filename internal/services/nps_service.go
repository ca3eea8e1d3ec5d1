package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

// NOTE: the formula for determining the NPS
// NPS = %Promoters - %Detractors

type NPS struct {
	// The total of surveyed people
	TotalSurvey int `json:"total"`
	// Ratings 9 or 10
	Promoters int `json:"promoters"`
	// Ratings 7 or 8
	Passives int `json:"passives"`
	// 6 or lower
	Detractors int `json:"detractors"`
}

func (n *NPS) CalculateNPS() (int, error) {
	if n.TotalSurvey == 0 {
		return 0, nil
	}

	// what if the total of the promter, passives and detractors are greater than the total survey.
	totalEntities := (n.Promoters + n.Passives + n.Detractors)
	if n.TotalSurvey < totalEntities {
		return 0, fmt.Errorf("cannot compute nps with total survey is less than from the total of entities: %d total < total entities: %d", n.TotalSurvey, totalEntities)
	}

	promoterCalc := (float64(n.Promoters) / float64(n.TotalSurvey)) * 100
	detractorCalc := (float64(n.Detractors) / float64(n.TotalSurvey)) * 100

	return int(promoterCalc - detractorCalc), nil
}

// NPSFromScores buckets 0-10 scores. Scores outside that range are ignored.
func NPSFromScores(scores []float64) NPS {
	var n NPS
	for _, s := range scores {
		switch {
		case s < 0 || s > 10:
			continue
		case s >= 9:
			n.Promoters++
		case s >= 7:
			n.Passives++
		default:
			n.Detractors++
		}
		n.TotalSurvey++
	}
	return n
}

const selectCompletedAnswers = `SELECT a.id, a.response_id, a.question_id, a.answer_text, a.answer_value,
	a.selected_options, a.updated_at FROM question_answers a
	JOIN survey_responses r ON r.id = a.response_id
	WHERE a.question_id = $1 AND r.survey_id = $2 AND r.is_complete = TRUE`

type NPSReport struct {
	SurveyID   int `json:"survey_id"`
	QuestionID int `json:"question_id"`
	NPS
	Score int `json:"score"`
	// Answers that were not a usable 0-10 score.
	Skipped int `json:"skipped"`
}

// Reports Net Promoter Scores over completed responses.
type NPSService interface {
	QuestionNPS(ctx context.Context, surveyID, questionID int) (*NPSReport, error)
}

type npsServiceImpl struct {
	questions store.Datastorer[models.Question]
	answers   store.Datastorer[models.QuestionAnswer]
	log       *zap.Logger
}

// Instantiate the NPSService.
func NewNPSService(log *zap.Logger, questions store.Datastorer[models.Question], answers store.Datastorer[models.QuestionAnswer]) NPSService {
	return &npsServiceImpl{questions: questions, answers: answers, log: log}
}

func (s *npsServiceImpl) QuestionNPS(ctx context.Context, surveyID, questionID int) (*NPSReport, error) {
	question, err := s.questions.Get(ctx, selectQuestionByID, questionID)
	if err != nil {
		return nil, notFoundOr(err, "question not found", "failed to fetch question")
	}
	if question.SurveyID != surveyID {
		return nil, fault.NewClientError("question not found", fault.ErrNotFound)
	}
	if !question.Type.Ranged() && question.Type != visibility.Number {
		return nil, fault.NewValidationError([]string{"NPS requires a rating, scale or number question"})
	}

	answers, err := s.answers.Select(ctx, selectCompletedAnswers, questionID, surveyID)
	if err != nil {
		return nil, fault.NewInternalError("failed to fetch answers", err)
	}

	report := &NPSReport{SurveyID: surveyID, QuestionID: questionID}

	scores := make([]float64, 0, len(answers))
	for _, a := range answers {
		n, _ := visibility.Normalize(&visibility.Answer{Text: a.AnswerText, Value: visibility.Scalar(a.AnswerValue)})

		score, err := strconv.ParseFloat(strings.TrimSpace(n.Scalar), 64)
		if err != nil || score < 0 || score > 10 {
			report.Skipped++
			continue
		}
		scores = append(scores, score)
	}

	report.NPS = NPSFromScores(scores)
	if report.Score, err = report.NPS.CalculateNPS(); err != nil {
		return nil, fault.NewInternalError("failed to calculate NPS", err)
	}

	if report.Skipped > 0 {
		s.log.Debug("Answers skipped for NPS", zap.Int("question_id", questionID), zap.Int("skipped", report.Skipped))
	}
	return report, nil
}
