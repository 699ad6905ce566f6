package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/salon-scheduler/internal/application"
)

type statsService interface {
	Summary(ctx context.Context, from, to time.Time) (application.StatsSummary, error)
}

// StatsHandler serves the dashboard summary.
type StatsHandler struct {
	service   statsService
	loc       *time.Location
	now       func() time.Time
	responder responder
}

func NewStatsHandler(service statsService, loc *time.Location, now func() time.Time, logger *slog.Logger) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{service: service, loc: locationOrLocal(loc), now: now, responder: newResponder(defaultLogger(logger))}
}

// Summary handles GET /stats?from=&to=. Bounds are inclusive dates and
// default to the current month.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, ok := parseDateRange(r, h.loc, h.now())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	counts := make(map[string]int, len(summary.CountsByStatus))
	for status, n := range summary.CountsByStatus {
		counts[string(status)] = n
	}
	categories := make([]categoryCountDTO, 0, len(summary.ByCategory))
	for _, c := range summary.ByCategory {
		categories = append(categories, categoryCountDTO{Category: c.Category, Count: c.Count})
	}
	services := make([]serviceRevenueDTO, 0, len(summary.RevenueByService))
	for _, s := range summary.RevenueByService {
		services = append(services, serviceRevenueDTO{ProcedureID: s.ProcedureID, Name: s.Name, Count: s.Count, RevenueCents: s.RevenueCents})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statsDTO{
		From:                   from.Format(dateLayout),
		To:                     to.AddDate(0, 0, -1).Format(dateLayout),
		ConfirmedEarningsCents: summary.ConfirmedEarningsCents,
		CountsByStatus:         counts,
		ByCategory:             categories,
		RevenueByService:       services,
	})
}

type categoryCountDTO struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type serviceRevenueDTO struct {
	ProcedureID  string `json:"procedure_id"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
	RevenueCents int64  `json:"revenue_cents"`
}

type statsDTO struct {
	From                   string              `json:"from"`
	To                     string              `json:"to"`
	ConfirmedEarningsCents int64               `json:"confirmed_earnings_cents"`
	CountsByStatus         map[string]int      `json:"counts_by_status"`
	ByCategory             []categoryCountDTO  `json:"by_category"`
	RevenueByService       []serviceRevenueDTO `json:"revenue_by_service"`
}
