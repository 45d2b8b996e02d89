// Package handlers maps the marketing-site API onto the submission and
// auth services.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/http/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON writes the 400 itself and returns false when the body is not
// a JSON object of the expected shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.ValidationFailed(w, []domain.FieldError{{Field: "body", Message: "Invalid JSON"}})
		return false
	}
	return true
}

// validationFailed reports whether err carried field errors, writing them
// if so.
func validationFailed(w http.ResponseWriter, err error) bool {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		response.ValidationFailed(w, verr.Errors)
		return true
	}
	return false
}
