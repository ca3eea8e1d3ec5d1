package handlers

import (
	"net"
	"net/http"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/paginator"
	"github.com/paulexconde/surveyflow/pkg/visibility"
)

type startRequest struct {
	SurveyID        int     `json:"survey_id"`
	RespondentEmail *string `json:"respondent_email"`
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *Handler) responseStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(h.log, w, err)
			return
		}

		dto := models.ResponseDTO{
			SurveyID:        req.SurveyID,
			RespondentEmail: req.RespondentEmail,
			IPAddress:       clientIP(r),
			UserAgent:       r.UserAgent(),
		}
		if id, ok := CreatorFromContext(r.Context()); ok {
			dto.RespondentID = &id
		}

		response, err := h.responses.Start(r.Context(), dto)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusCreated, response)
	}
}

type answerRequest struct {
	visibility.Answer
	// Index is where the respondent was before answering.
	Index int `json:"index"`
}

func (h *Handler) answerRecordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		questionID, err := pathID(r, "question_id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		var req answerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(h.log, w, err)
			return
		}

		progress, err := h.responses.RecordAnswer(r.Context(), responseID, questionID, req.Answer, req.Index)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, progress)
	}
}

func (h *Handler) answerClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}
		questionID, err := pathID(r, "question_id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		progress, err := h.responses.ClearAnswer(r.Context(), responseID, questionID, queryInt(r, "index", 0))
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, progress)
	}
}

func (h *Handler) responseVisibleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		progress, err := h.responses.Visible(r.Context(), responseID, queryInt(r, "index", 0))
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, progress)
	}
}

type submitRequest struct {
	Answers []visibility.Answer `json:"answers"`
}

func (h *Handler) responseSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		var req submitRequest
		if err := decodeJSON(w, r, &req); err != nil {
			WriteError(h.log, w, err)
			return
		}

		detail, err := h.responses.Submit(r.Context(), responseID, req.Answers)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, detail)
	}
}

func (h *Handler) responseDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := pathID(r, "id")
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		detail, err := h.responses.Get(r.Context(), responseID)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, detail)
	}
}

func (h *Handler) responseListHandler() http.HandlerFunc {
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

		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", paginator.DefaultLimit)

		result, err := h.responses.ListBySurvey(r.Context(), surveyID, page, limit)
		if err != nil {
			WriteError(h.log, w, err)
			return
		}

		writeData(h.log, w, http.StatusOK, result)
	}
}
