/**
 * @description
 * This file sets up the HTTP router for the uplink-service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, and authentication, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the uplink-service routes.
func NewRouter(h *Handler, auth *Authenticator, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Uplink service is healthy"))
	})

	// Public pricing catalog
	r.Get("/plans", h.handleGetPlans)

	// Plan selection works for anonymous visitors too: instead of a bare 401
	// they receive a sign-in redirect with a return URL.
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth)

		r.Post("/uplink/checkout", h.handleSelectPlan)
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/uplink/return", h.handleCheckoutReturn)
		r.Delete("/uplink/checkout", h.handleCloseCheckout)
		r.Get("/me/subscription", h.handleGetSubscription)
		r.Get("/me/summary", h.handleGetSummary)
		r.Post("/me/subscription/cancel", h.handleCancelSubscription)
	})

	return r
}
