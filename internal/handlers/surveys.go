package handlers

import (
	"net/http"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/paginator"
	"github.com/paulexconde/surveyflow/pkg/visibility"
	"go.uber.org/zap"
)

func (h *Handler) surveyCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, ok := CreatorFromContext(r.Context())
		if !ok {
			WriteError(h.log, w, badRequest("Authenticated author is required"))
			return
		}

		var dto models.SurveyDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			WriteError(h.log, w, err)
			return
		}
		dto.CreatorID = creatorID

		survey, err := h.surveys.CreateSurvey(r.Context(), dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusCreated, survey)
	}
}

func (h *Handler) surveyListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, ok := CreatorFromContext(r.Context())
		if !ok {
			WriteError(h.log, w, badRequest("Authenticated author is required"))
			return
		}

		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", paginator.DefaultLimit)

		result, err := h.surveys.ListByCreator(r.Context(), creatorID, page, limit)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, result)
	}
}

func (h *Handler) surveyDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		detail, err := h.surveys.GetSurveyDetail(r.Context(), id)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, detail)
	}
}

func (h *Handler) surveyUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, id); err != nil {
			WriteError(h.log, w, err)
			return
		}

		var dto models.SurveyUpdateDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			WriteError(h.log, w, err)
			return
		}

		survey, err := h.surveys.UpdateSurvey(r.Context(), id, dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, survey)
	}
}

func (h *Handler) surveyDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, id); err != nil {
			WriteError(h.log, w, err)
			return
		}

		if err := h.surveys.DeleteSurvey(r.Context(), id); err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeMessage(h.log, w, "Survey deleted successfully")
	}
}

type previewRequest struct {
	Answers []visibility.Answer `json:"answers"`
	Index   int                 `json:"index"`
}

func (h *Handler) previewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		var req previewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(h.log, w, err)
			return
		}

		progress, err := h.responses.Preview(r.Context(), id, req.Answers, req.Index)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, progress)
	}
}

func (h *Handler) npsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		questionID, err := pathID(r, "question_id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, surveyID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		report, err := h.nps.QuestionNPS(r.Context(), surveyID, questionID)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		h.log.Debug("NPS computed", zap.Int("survey_id", surveyID), zap.Int("question_id", questionID), zap.Int("score", report.Score))
		writeData(h.log, w, http.StatusOK, report)
	}
}
