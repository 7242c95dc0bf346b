/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     One zerolog line per request (tagged with the request id)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the payroll frontend

ROUTE GROUPS:
  /healthz                   Liveness
  /api/employees/*           Statements and per-employee inputs
  /api/statements/*          Batch runs
  /api/positions             Positions
  /api/holidays/*            Holiday calendar
  /api/exchange-rates        CRC per USD rates
  /api/policy                Payroll policy
  /api/scenarios/*           Demo scenarios (development only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - logging.go: Request logger
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}/preview", h.PreviewStatement)
			r.Post("/{id}/statements", h.CreateStatement)
			r.Get("/{id}/statements", h.GetStatement)
			r.Post("/{id}/attendance", h.AddAttendance)
			r.Post("/{id}/sick-leaves", h.CreateSickLeave)
			r.Post("/{id}/garnishments", h.CreateGarnishment)
		})

		// Batch routes
		r.Route("/statements", func(r chi.Router) {
			r.Post("/run", h.RunStatements)
			r.Get("/runs", h.ListRuns)
		})

		r.Post("/positions", h.CreatePosition)

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{date}", h.DeleteHoliday)
		})

		// Exchange rate routes
		r.Route("/exchange-rates", func(r chi.Router) {
			r.Get("/", h.ListExchangeRates)
			r.Post("/", h.CreateExchangeRate)
		})

		// Policy routes
		r.Get("/policy", h.GetPolicy)
		r.Put("/policy", h.UpdatePolicy)

		// Scenario routes
		if h.DevMode {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	return r
}
