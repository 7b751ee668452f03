package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"notejournal/logging"
	"notejournal/middleware"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	Logger             zerolog.Logger
	AllowedOrigin      string
	TrustProxy         bool
	LoginRatePerMinute int
	DB                 Pinger
}

// NewRouter mounts the API. Register, login and refresh stay outside the
// authenticated group; every write inside it also passes the CSRF guard.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(logging.Middleware(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.PingContext(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	r.With(limiter.Middleware).Post("/api/register", h.Register)
	r.With(limiter.Middleware).Post(middleware.LoginPath, h.Login)
	r.Post("/api/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens))
		r.Use(middleware.RequireCSRF)

		r.Post("/api/logout", h.Logout)
		r.Get("/api/me", h.Me)

		r.Get("/api/notes", h.GetNotes)
		r.Post("/api/notes", h.CreateNote)
		r.Get("/api/notes/{id}", h.GetNote)
		r.Put("/api/notes/{id}", h.UpdateNote)
		r.Patch("/api/notes/{id}", h.UpdateNote)
		r.Delete("/api/notes/{id}", h.DeleteNote)

		r.Get("/api/categories", h.GetCategories)
	})

	return r
}
