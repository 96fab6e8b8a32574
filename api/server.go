/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. RequestLogger: Structured request log (zerolog)
  4. CORS:          Cross-origin requests for the console frontend

SECURITY NOTE:
  No authentication middleware. Auth belongs to the surrounding service,
  not this engine.

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
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Facility routes
		r.Route("/facilities", func(r chi.Router) {
			r.Get("/", h.ListFacilities)
			r.Post("/", h.CreateFacility)
			r.Get("/{id}", h.GetFacility)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Put("/{id}/status", h.SetInvoiceStatus)
			r.Post("/{id}/items", h.AddInvoiceItem)
			r.Put("/{id}/items/{index}", h.UpdateInvoiceItem)
			r.Delete("/{id}/items/{index}", h.RemoveInvoiceItem)
		})

		// Claim routes
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", h.ListClaims)
			r.Post("/", h.CreateClaim)
			r.Get("/{id}", h.GetClaim)
			r.Put("/{id}", h.UpdateClaim)
			r.Delete("/{id}", h.DeleteClaim)
			r.Post("/{id}/transition", h.TransitionClaim)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
