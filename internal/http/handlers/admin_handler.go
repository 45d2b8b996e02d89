package handlers

import (
	"net/http"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/internal/service"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves read-all listings of stored submissions.
type AdminHandler struct {
	svc service.SubmissionService
}

func NewAdminHandler(svc service.SubmissionService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/contacts", h.contacts)
	r.Get("/newsletter", h.newsletter)
	r.Get("/requests", h.requests)
	return r
}

func (h *AdminHandler) contacts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListContacts(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list contacts", "error", err)
		response.InternalError(w, "Failed to fetch contacts")
		return
	}
	if list == nil {
		list = []domain.ContactSubmission{}
	}
	response.WriteJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) newsletter(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSubscriptions(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list subscriptions", "error", err)
		response.InternalError(w, "Failed to fetch newsletter subscriptions")
		return
	}
	if list == nil {
		list = []domain.NewsletterSubscription{}
	}
	response.WriteJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) requests(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRequests(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list requests", "error", err)
		response.InternalError(w, "Failed to fetch requests")
		return
	}
	if list == nil {
		list = []domain.Request{}
	}
	response.WriteJSON(w, http.StatusOK, list)
}
