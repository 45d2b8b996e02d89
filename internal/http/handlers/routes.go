package handlers

import (
	"context"
	"net/http"
	"time"

	httpmw "github.com/diagnosis/sai-platform/internal/http/middleware"
	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/internal/repo"
	"github.com/diagnosis/sai-platform/internal/service"
	"github.com/diagnosis/sai-platform/pkg/config"
	"github.com/diagnosis/sai-platform/pkg/logger"
	"github.com/diagnosis/sai-platform/pkg/metrics"
	mw "github.com/diagnosis/sai-platform/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Deps is everything the router needs, built once in main.
type Deps struct {
	Config      *config.Config
	Store       repo.Store
	Backend     repo.BackendKind
	Submissions service.SubmissionService
	Auth        service.AuthService
	LimitStore  httpmw.LimitStore
	Metrics     *metrics.Metrics
}

func NewRouter(d Deps) http.Handler {
	proxies, err := httpmw.ParseTrustedProxies(d.Config.RateLimit.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring invalid TRUSTED_PROXIES entry", "error", err)
	}
	limiter := httpmw.NewRateLimiter(d.LimitStore, httpmw.RateLimitConfig{
		Requests:       d.Config.RateLimit.Requests,
		Window:         d.Config.RateLimit.Window,
		TrustedProxies: proxies,
	}, d.Metrics)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("sai-api"))
	r.Use(mw.Logging(d.Metrics))
	r.Use(mw.Recoverer)
	r.Use(mw.SecurityHeaders(d.Config.IsProduction()))
	r.Use(limiter.Middleware())
	r.Use(mw.SuspiciousActivity(d.Metrics))
	r.Use(mw.CORS(d.Config.CORS.AllowedOrigins))

	r.Get("/healthz", healthz(d.Store, d.Backend))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		NewSubmissionHandler(d.Submissions).Register(r)

		r.With(httpmw.RequireAdminKey(d.Config.Admin.APIKey)).
			Mount("/admin", NewAdminHandler(d.Submissions).Routes())

		r.Mount("/auth", NewAuthHandler(d.Auth, d.Config.Auth.JWTSecret).Routes())
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found")
	})
	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func healthz(store repo.Store, backend repo.BackendKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "health check failed", "storage", backend, "error", err)
			response.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Storage: string(backend)})
			return
		}
		response.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: string(backend)})
	}
}
