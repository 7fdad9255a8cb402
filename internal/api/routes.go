package api

import (
	"time"

	"burn.note/config"
	"burn.note/internal/message"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(svc *message.Service, cfg *config.Config) *chi.Mux {
	h := NewHandler(svc, cfg)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{cfg.Server.BaseURL},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(JSONOnly)

		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			createLimiter := NewRateLimiter(cfg.RateLimit.CreatePerMin, time.Minute)

			r.Use(apiLimiter.Middleware)

			r.Route("/messages", func(r chi.Router) {
				r.With(createLimiter.Middleware).Post("/", h.CreateMessage)
				r.Get("/{id}", h.ReadMessage)
				r.Put("/{id}", h.EditMessage)
				r.Post("/{id}/rotate", h.RotatePassword)
				r.Post("/{id}/destroy", h.DestroyMessage)
				r.Post("/{id}/responses", h.SubmitResponse)
				r.Get("/{id}/responses", h.ListResponses)
			})
		} else {
			r.Route("/messages", func(r chi.Router) {
				r.Post("/", h.CreateMessage)
				r.Get("/{id}", h.ReadMessage)
				r.Put("/{id}", h.EditMessage)
				r.Post("/{id}/rotate", h.RotatePassword)
				r.Post("/{id}/destroy", h.DestroyMessage)
				r.Post("/{id}/responses", h.SubmitResponse)
				r.Get("/{id}/responses", h.ListResponses)
			})
		}
	})

	// Frontend
	r.Get("/", h.Index)
	r.Get("/m/{id}", h.MessagePage)
	r.Get("/admin/{id}", h.AdminPage)

	return r
}
