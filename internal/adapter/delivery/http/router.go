// Package http provides the HTTP delivery layer for the QR link service.
// This package contains the HTTP handlers and related types used for
// processing incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes and returns a new Chi router configured with
// middleware and routes for the QR link API and the public redirect path.
func NewRouter(logger *httplog.Logger, resolver linkResolver, useCase linkUseCase) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	validate := validator.New()
	h := newLinkHandler(resolver, useCase, validate)

	r.Get("/r/{linkID}", h.redirect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", h.listLinks)
			r.Post("/", h.createLink)

			r.Route("/{linkID}", func(r chi.Router) {
				r.Put("/", h.modifyLink)
				r.Delete("/", h.deactivateLink)
				r.Get("/stats", h.getLinkStats)
				r.Get("/pdf", h.exportLinkPDF)
			})
		})
	})

	return r
}
