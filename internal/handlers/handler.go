package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulexconde/surveyflow/internal/services"
	"go.uber.org/zap"
)

// Handler wires HTTP endpoints to the services.
type Handler struct {
	log        *zap.Logger
	surveys    services.SurveyService
	questions  services.QuestionService
	conditions services.ConditionService
	responses  services.ResponseService
	nps        services.NPSService
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger     *zap.Logger
	Surveys    services.SurveyService
	Questions  services.QuestionService
	Conditions services.ConditionService
	Responses  services.ResponseService
	NPS        services.NPSService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		log:        cfg.Logger,
		surveys:    cfg.Surveys,
		questions:  cfg.Questions,
		conditions: cfg.Conditions,
		responses:  cfg.Responses,
		nps:        cfg.NPS,
	}
}

// Register mounts all routes. requireAuth guards authoring endpoints;
// optionalAuth identifies a logged-in respondent when a token is sent.
func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Get("/surveys/{id}", h.surveyDetailHandler())
	r.Post("/surveys/{id}/visible", h.previewHandler())
	r.Get("/conditions/survey/{survey_id}", h.conditionListHandler())

	r.With(optionalAuth).Post("/responses/start", h.responseStartHandler())
	r.Put("/responses/{id}/answers/{question_id}", h.answerRecordHandler())
	r.Delete("/responses/{id}/answers/{question_id}", h.answerClearHandler())
	r.Get("/responses/{id}/visible", h.responseVisibleHandler())
	r.Post("/responses/{id}/submit", h.responseSubmitHandler())
	r.Get("/responses/{id}", h.responseDetailHandler())

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/surveys", h.surveyCreateHandler())
		r.Get("/surveys/mine", h.surveyListHandler())
		r.Put("/surveys/{id}", h.surveyUpdateHandler())
		r.Delete("/surveys/{id}", h.surveyDeleteHandler())
		r.Get("/surveys/{id}/questions/{question_id}/nps", h.npsHandler())

		r.Post("/questions", h.questionCreateHandler())
		r.Put("/questions/reorder/{survey_id}", h.questionReorderHandler())
		r.Put("/questions/{id}", h.questionUpdateHandler())
		r.Delete("/questions/{id}", h.questionDeleteHandler())

		r.Post("/conditions", h.conditionCreateHandler())
		r.Delete("/conditions/{id}", h.conditionDeleteHandler())

		r.Get("/responses/survey/{survey_id}", h.responseListHandler())
	})
}

// owner returns the authenticated author and checks they own surveyID.
func (h *Handler) owner(r *http.Request, surveyID int) (int, error) {
	creatorID, ok := CreatorFromContext(r.Context())
	if !ok {
		return 0, badRequest("Authenticated author is required")
	}
	if err := h.surveys.EnsureOwner(r.Context(), surveyID, creatorID); err != nil {
		return 0, err
	}
	return creatorID, nil
}
