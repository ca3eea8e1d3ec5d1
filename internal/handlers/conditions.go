package handlers

import (
	"net/http"

	"github.com/paulexconde/surveyflow/internal/models"
)

func (h *Handler) conditionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var dto models.ConditionDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, dto.SurveyID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		condition, err := h.conditions.Create(r.Context(), dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusCreated, condition)
	}
}

func (h *Handler) conditionListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := pathID(r, "survey_id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		conditions, err := h.conditions.ListForSurvey(r.Context(), surveyID)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, conditions)
	}
}

func (h *Handler) conditionDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		condition, err := h.conditions.Get(r.Context(), id)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		if _, err := h.owner(r, condition.SurveyID); err != nil {
			WriteError(h.log, w, err)
			return
		}

		if err := h.conditions.Delete(r.Context(), id); err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeMessage(h.log, w, "Condition deleted successfully")
	}
}
