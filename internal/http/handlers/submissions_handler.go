package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/sai-platform/internal/domain"
	httpmw "github.com/diagnosis/sai-platform/internal/http/middleware"
	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/internal/service"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	contactFailed    = "Failed to submit contact form. Please try again or contact us directly."
	newsletterFailed = "Failed to subscribe to newsletter. Please try again."
	requestFailed    = "Failed to submit request. Please try again or contact us directly."
)

type SubmissionHandler struct {
	svc service.SubmissionService
}

func NewSubmissionHandler(svc service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{svc: svc}
}

// Register mounts the public form endpoints on r. Each route recovers into
// its own failure message.
func (h *SubmissionHandler) Register(r chi.Router) {
	r.With(httpmw.Recover(contactFailed)).Post("/contact", h.contact)
	r.With(httpmw.Recover(newsletterFailed)).Post("/newsletter", h.newsletter)
	r.With(httpmw.Recover(requestFailed)).Post("/request", h.request)
}

func (h *SubmissionHandler) contact(w http.ResponseWriter, r *http.Request) {
	var in domain.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.SubmitContact(r.Context(), &in); err != nil {
		h.fail(w, r, err, contactFailed)
		return
	}
	response.Success(w, "Thank you for your message. We'll get back to you within one business day.")
}

func (h *SubmissionHandler) newsletter(w http.ResponseWriter, r *http.Request) {
	var in domain.NewsletterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.Subscribe(r.Context(), &in); err != nil {
		h.fail(w, r, err, newsletterFailed)
		return
	}
	response.Success(w, "Successfully subscribed to the newsletter!")
}

func (h *SubmissionHandler) request(w http.ResponseWriter, r *http.Request) {
	var in domain.RequestInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.SubmitRequest(r.Context(), &in); err != nil {
		h.fail(w, r, err, requestFailed)
		return
	}
	response.Success(w, "Thank you for your request. Our team will contact you within 24 hours.")
}

func (h *SubmissionHandler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case validationFailed(w, err):
	case errors.Is(err, service.ErrAlreadySubscribed):
		response.Conflict(w, "Email is already subscribed to our newsletter.")
	default:
		logger.ErrorContext(r.Context(), "submission failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, message)
	}
}
