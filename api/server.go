/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:        request logging
  2. Recoverer:     panic recovery (500 instead of crash)
  3. RequestID:     unique ID per request for tracing
  4. CORS:          cross-origin requests for the frontend
  5. Authenticator: JWT bearer verification (everything except /healthz)

SEE ALSO:
  - handlers.go: handler implementations
  - auth.go: authentication middleware
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amiltenov/DigiLeave/leave"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(jwtSecret))

		r.Post("/auth/post-login", h.PostLogin)
		r.Get("/account", h.GetAccount)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListOwnRequests)
			r.Post("/", h.CreateRequest)
			r.Patch("/{id}/cancel", h.CancelRequest)
			r.Patch("/{id}/seen", h.AcknowledgeDecision)
		})

		r.Route("/approver", func(r chi.Router) {
			r.Use(RequireRole(leave.RoleApprover, leave.RoleAdmin))
			r.Get("/assignees", h.ListAssignees)
			r.Get("/requests", h.ListAssigneeRequests)
			r.Get("/assignee/{userId}/requests", h.ListSpecificAssigneeRequests)
			r.Patch("/request/{id}", h.DecideRequest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(leave.RoleAdmin))
			r.Get("/users", h.ListUsers)
			r.Patch("/users/{id}", h.PatchUser)
			r.Delete("/users/{id}", h.DeleteUser)
			r.Post("/accrual/annual", h.TriggerAnnualAccrual)
		})
	})

	return r
}
