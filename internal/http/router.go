package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires handlers into the router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Availability *AvailabilityHandler
	Appointments *AppointmentHandler
	Blockages    *BlockageHandler
	Calendar     *CalendarHandler
	Procedures   *ProcedureHandler
	Stats        *StatsHandler

	// Sessions guards the staff routes. When nil they are not registered.
	Sessions SessionValidator
	// Realtime serves GET /ws for dashboards.
	Realtime http.Handler
	// Metrics serves GET /metrics.
	Metrics http.Handler

	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(defaultLogger(cfg.Logger)))
	r.Use(middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	// Public booking surface.
	if cfg.Availability != nil {
		r.Get("/availability", cfg.Availability.Slots)
		r.Get("/availability/month", cfg.Availability.Month)
	}
	if cfg.Procedures != nil {
		r.Get("/procedures", cfg.Procedures.List)
		r.Get("/procedures/categories", cfg.Procedures.Categories)
	}
	if cfg.Appointments != nil {
		r.Post("/appointments", cfg.Appointments.Create)
	}
	if cfg.Auth != nil {
		r.Post("/sessions", cfg.Auth.CreateSession)
	}

	if cfg.Sessions == nil {
		return r
	}

	r.Group(func(staff chi.Router) {
		staff.Use(RequireSession(cfg.Sessions, cfg.Logger))

		if cfg.Auth != nil {
			staff.Delete("/sessions/current", cfg.Auth.DeleteCurrentSession)
		}
		if cfg.Appointments != nil {
			staff.Get("/appointments", cfg.Appointments.List)
			staff.Post("/appointments/manual", cfg.Appointments.CreateManual)
			staff.Patch("/appointments/{id}/status", cfg.Appointments.SetStatus)
			staff.Put("/appointments/{id}/schedule", cfg.Appointments.Reschedule)
			staff.Get("/clients/{phone}/appointments", cfg.Appointments.ClientHistory)
		}
		if cfg.Calendar != nil {
			staff.Get("/calendar/{date}", cfg.Calendar.Day)
		}
		if cfg.Blockages != nil {
			staff.Get("/blockages", cfg.Blockages.List)
			staff.Post("/blockages", cfg.Blockages.Create)
			staff.Delete("/blockages/{id}", cfg.Blockages.Delete)
		}
		if cfg.Stats != nil {
			staff.Get("/stats", cfg.Stats.Summary)
		}
		if cfg.Realtime != nil {
			staff.Handle("/ws", cfg.Realtime)
		}
	})

	return r
}
