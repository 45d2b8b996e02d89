package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/pkg/logger"
)

// Envelope is the body of every non-list API response.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// WriteError writes {success:false, message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Success: false, Message: message})
}

func ValidationFailed(w http.ResponseWriter, errs []domain.FieldError) {
	WriteJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: "Validation error", Errors: errs})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message)
}
