// internal/handler/router.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/service"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth          *service.AuthService
	Tasks         *service.TaskService
	Assist        *service.AssistService
	Authenticator *middleware.Authenticator
	Validator     *middleware.RequestValidator
	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
	Prefix      string
	CORSOrigins []string
	// TrustProxy takes the client address from proxy headers.
	TrustProxy bool
	// Ping reports whether the backing store answers. Optional.
	Ping func(ctx context.Context) error
}

// Handler serves the JSON API.
type Handler struct {
	auth      *service.AuthService
	tasks     *service.TaskService
	assist    *service.AssistService
	limits    *middleware.ValidationConfig
	logger    *zap.Logger
	ping      func(ctx context.Context) error
	startedAt time.Time
}

// NewRouter builds the HTTP handler with all middleware and routes mounted
// under d.Prefix.
func NewRouter(d Deps) http.Handler {
	if d.Validator == nil {
		d.Validator = middleware.NewRequestValidator(nil)
	}
	h := &Handler{
		auth:      d.Auth,
		tasks:     d.Tasks,
		assist:    d.Assist,
		limits:    d.Validator.Config(),
		logger:    d.Logger.Named("http"),
		ping:      d.Ping,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.ExtractClientInfo)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}
	r.Use(d.Validator.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})

	api := func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Get("/verify", h.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.RequireAuth)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Post("/", h.CreateTask)
				r.Get("/day", h.Day)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetTask)
					r.Put("/", h.UpdateTask)
					r.Patch("/", h.UpdateTask)
					r.Delete("/", h.DeleteTask)
					r.Post("/updates", h.AddUpdate)
					r.Post("/updates/{updateId}/replies", h.Reply)
					r.Post("/updates/{updateId}/like", h.ToggleLike)
				})
			})

			r.Route("/assist", func(r chi.Router) {
				r.Post("/suggestions", h.Suggest)
				r.Post("/day", h.OptimizeDay)
				r.Post("/chat", h.Chat)
				r.Get("/chat/{conversationId}", h.ChatHistory)
				r.Delete("/chat/{conversationId}", h.ClearChat)
			})
		})
	}
	if d.Prefix == "" || d.Prefix == "/" {
		api(r)
	} else {
		r.Route(d.Prefix, api)
	}

	return r
}

// Health reports liveness and, when configured, database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unavailable",
				"message": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "BarakaFlow API is running",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}
