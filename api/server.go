/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/schedule/*        Daily schedule reads and mutations
  /api/base-schedule/*   Versioned weekly templates
  /api/staff/*           Staff directory
  /api/clients/*         Client directory
  /api/overrides/*       Date-scoped exceptions
  /api/reset             Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. Operations record the acting
  user from the X-Actor-ID header but do not verify it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Daily schedule routes
		r.Route("/schedule", func(r chi.Router) {
			r.Delete("/cache", h.ClearCache)

			r.Route("/{date}", func(r chi.Router) {
				r.Get("/", h.GetSchedule)
				r.Get("/audit", h.GetAuditLog)

				r.Post("/staff/assign", h.AssignStaff)
				r.Post("/staff/callout", h.MarkCallout)
				r.Post("/staff/location", h.ChangeStaffLocation)
				r.Post("/clients/assign", h.AssignClient)

				r.Route("/sessions", func(r chi.Router) {
					r.Post("/", h.CreateSession)
					r.Post("/{sessionID}/staff", h.AddStaffToSession)
					r.Delete("/{sessionID}/staff/{staffID}", h.RemoveStaffFromSession)
					r.Post("/{sessionID}/clients", h.AddClientToSession)
					r.Delete("/{sessionID}/clients/{clientID}", h.RemoveClientFromSession)
					r.Post("/{sessionID}/cancel", h.CancelSession)
					r.Post("/{sessionID}/staff-slot", h.AddStaffSlot)
					r.Post("/{sessionID}/group", h.AddToGroup)
					r.Post("/{sessionID}/review", h.ReviewSession)
					r.Delete("/{sessionID}/review", h.UnreviewSession)
				})
			})
		})

		// Base schedule routes
		r.Route("/base-schedule", func(r chi.Router) {
			r.Get("/versions", h.ListVersions)
			r.Post("/versions", h.CreateVersion)
			r.Post("/versions/{id}/activate", h.ActivateVersion)
			r.Get("/versions/{id}/assignments", h.ListAssignments)
			r.Post("/versions/{id}/assignments", h.AddAssignment)
		})

		// Directory routes
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.SaveStaff)
		})
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.SaveClient)
		})

		// Override routes
		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", h.ListOverrides)
			r.Post("/", h.CreateOverride)
			r.Post("/{id}/expire", h.ExpireOverride)
		})

		// Dev only
		r.Post("/reset", h.Reset)
	})

	return r
}
