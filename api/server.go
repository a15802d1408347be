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
  /api/attendance/*     Entry/exit marks, edits, overtime review
  /api/debts/*          Hour debt ledger
  /api/justifications/* Justification workflow
  /api/projects/*       Projects and per-project configuration
  /api/employees/*      Employee seeding
  /api/notifications    Stored notifications

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/entry", h.MarkEntry)
			r.Post("/exit", h.MarkExit)
			r.Get("/today", h.GetToday)
			r.Get("/marks", h.ListMarks)
			r.Put("/marks/{id}", h.EditMark)
			r.Post("/marks/{id}/confirm-overtime", h.ConfirmOvertime)
			r.Get("/overtime/pending", h.ListPendingOvertime)
			r.Post("/detect-absences", h.DetectAbsences)
		})

		// Debt routes
		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Get("/{id}", h.GetDebt)
		})

		// Justification routes
		r.Route("/justifications", func(r chi.Router) {
			r.Post("/", h.SubmitJustification)
			r.Get("/", h.ListJustifications)
			r.Post("/{id}/approve", h.ApproveJustification)
			r.Post("/{id}/reject", h.RejectJustification)
		})

		// Project and config routes
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Route("/{id}/attendance-config", func(r chi.Router) {
				r.Get("/", h.GetConfig)
				r.Put("/", h.UpdateConfig)
				r.Post("/activate", h.ActivateConfig)
				r.Post("/deactivate", h.DeactivateConfig)
			})
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
		})

		// Notification routes
		r.Get("/notifications", h.ListNotifications)
	})

	return r
}
