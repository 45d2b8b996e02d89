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

type AuthHandler struct {
	svc       service.AuthService
	jwtSecret string
}

func NewAuthHandler(svc service.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{svc: svc, jwtSecret: jwtSecret}
}

type authResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	User    *domain.UserInfo `json:"user"`
	Token   string           `json:"token"`
}

type userResponse struct {
	Success bool             `json:"success"`
	User    *domain.UserInfo `json:"user"`
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(httpmw.Recover("Failed to create user")).Post("/signup", h.signup)
	r.With(httpmw.Recover("Login failed")).Post("/login", h.login)
	r.Get("/verify-email", h.verifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireJWT(h.jwtSecret))
		r.Get("/me", h.me)
		r.Post("/logout", h.logout)
	})
	return r
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Signup(r.Context(), &req)
	switch {
	case err == nil:
	case validationFailed(w, err):
		return
	case errors.Is(err, service.ErrUsernameTaken):
		response.Conflict(w, "Username already exists")
		return
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(w, "Email already exists")
		return
	case errors.Is(err, service.ErrProvider):
		response.BadRequest(w, "Unable to create account. Please try again.")
		return
	default:
		logger.ErrorContext(r.Context(), "signup failed", "error", err)
		response.InternalError(w, "Failed to create user")
		return
	}

	response.WriteJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "User created successfully",
		User:    res.User.ToUserInfo(),
		Token:   res.Token,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), &req)
	switch {
	case err == nil:
	case validationFailed(w, err):
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid credentials")
		return
	default:
		logger.ErrorContext(r.Context(), "login failed", "error", err)
		response.InternalError(w, "Login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    res.User.ToUserInfo(),
		Token:   res.Token,
	})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	claims := httpmw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "Access token required")
		return
	}

	user, err := h.svc.Me(r.Context(), claims.Sub)
	if errors.Is(err, service.ErrUserNotFound) {
		response.NotFound(w, "User not found")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load user", "error", err)
		response.InternalError(w, "Failed to load user")
		return
	}
	response.WriteJSON(w, http.StatusOK, userResponse{Success: true, User: user.ToUserInfo()})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), httpmw.Claims(r)); err != nil {
		logger.ErrorContext(r.Context(), "logout failed", "error", err)
		response.InternalError(w, "Logout failed")
		return
	}
	response.Success(w, "Logged out successfully")
}

func (h *AuthHandler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	_, err := h.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if errors.Is(err, service.ErrInvalidToken) {
		response.BadRequest(w, "Invalid or expired verification token")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "email verification failed", "error", err)
		response.InternalError(w, "Failed to verify email")
		return
	}
	response.Success(w, "Email verified successfully")
}
