package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulexconde/surveyflow/internal/services"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"go.uber.org/zap"
)

// maxRequestBody limits JSON request bodies.
const maxRequestBody = 1 << 20

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(log *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && log != nil {
		log.Warn("Failed to encode response", zap.Error(err))
	}
}

func writeData(log *zap.Logger, w http.ResponseWriter, status int, data any) {
	WriteJSON(log, w, status, Envelope{Success: true, Data: data})
}

func writeMessage(log *zap.Logger, w http.ResponseWriter, message string) {
	WriteJSON(log, w, http.StatusOK, Envelope{Success: true, Message: message})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, fault.ErrUniqueViolation),
		errors.Is(err, fault.ErrAlreadyCompleted),
		errors.Is(err, services.ErrDuplicateResponse),
		errors.Is(err, services.ErrConditionCycle),
		errors.Is(err, services.ErrQuestionAnswered):
		return http.StatusConflict
	case fault.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteError renders err in the response envelope. Internal errors are
// logged and hidden from the client.
func WriteError(log *zap.Logger, w http.ResponseWriter, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
		WriteJSON(log, w, status, Envelope{Error: "Internal server error"})
		return
	}

	body := Envelope{Error: clientMessage(err), Errors: fault.Details(err)}
	WriteJSON(log, w, status, body)
}

func clientMessage(err error) string {
	var f *fault.Fault
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}

func badRequest(msg string) error {
	return fault.NewClientError(msg, nil)
}

// decodeJSON reads a single JSON document into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("Request body is required")
		}
		return badRequest(fmt.Sprintf("Invalid request body: %v", err))
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("Invalid %s: %q", strings.ReplaceAll(name, "_", " "), raw))
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
