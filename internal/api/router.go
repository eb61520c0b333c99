/**
 * @description
 * This file sets up the HTTP router for the goal-service using the go-chi/chi
 * router. It defines the API routes, applies middleware for logging, CORS, and
 * session authentication, and maps the routes to their corresponding handler
 * functions.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the goal-service routes.
func NewRouter(h *Handler, sessionSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Goal service is healthy"))
	})

	// Frame discovery boundary
	r.Get("/.well-known/farcaster.json", h.handleFrameManifest)
	r.Get("/frame/embed", h.handleFrameEmbed)
	r.Get("/frame/config", h.handleFrameConfig)

	// Session minting and public reads
	r.Post("/auth/session", h.handleCreateSession)
	r.Get("/goals", h.handleListGoals)
	r.Get("/goals/{goalID}", h.handleGetGoal)
	r.Get("/goals/{goalID}/supporters", h.handleListSupporters)
	r.Get("/farcaster/user", h.handleSearchFarcasterUser)

	// Protected routes that require a session token
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessionSecret))

		r.Post("/goals", h.handleCreateGoal)
		r.Post("/goals/{goalID}/supporters", h.handleAddSupporter)
		r.Post("/goals/{goalID}/complete", h.handleCompleteGoal)
		r.Post("/goals/{goalID}/fail", h.handleFailGoal)
	})

	return r
}
