package handlers

import (
	"net/http"

	"github.com/paulexconde/surveyflow/internal/models"
)

func (h *Handler) questionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto models.QuestionDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, dto.SurveyID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		question, err := h.questions.Create(r.Context(), dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusCreated, question)
	}
}

// ownedQuestion loads the question named in the URL and checks ownership.
func (h *Handler) ownedQuestion(r *http.Request) (*models.Question, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}

	question, err := h.questions.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if _, err := h.owner(r, question.SurveyID); err != nil {
		return nil, err
	}
	return question, nil
}

func (h *Handler) questionUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := h.ownedQuestion(r)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		var dto models.QuestionUpdateDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			WriteError(h.log, w, err)
			return
		}

		question, err := h.questions.Update(r.Context(), current.ID, dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, question)
	}
}

func (h *Handler) questionDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question, err := h.ownedQuestion(r)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		if err := h.questions.Delete(r.Context(), question.ID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeMessage(h.log, w, "Question deleted successfully")
	}
}

type reorderRequest struct {
	Questions []models.QuestionOrder `json:"questions"`
}

func (h *Handler) questionReorderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := pathID(r, "survey_id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, surveyID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		var req reorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(h.log, w, err)
			return
		}

		if err := h.questions.Reorder(r.Context(), surveyID, req.Questions); err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeMessage(h.log, w, "Questions reordered successfully")
	}
}
