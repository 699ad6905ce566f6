package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/application"
)

type availabilityService interface {
	ComputeAvailableSlots(ctx context.Context, date time.Time, durationMinutes int) (application.AvailabilityResult, error)
	ComputeAvailableSlotsForProcedure(ctx context.Context, date time.Time, procedureID string) (application.AvailabilityResult, error)
	MonthOverview(ctx context.Context, year int, month time.Month) (application.MonthOverview, error)
}

// AvailabilityHandler serves the public booking calendar.
type AvailabilityHandler struct {
	service   availabilityService
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, loc *time.Location, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, loc: locationOrLocal(loc), responder: newResponder(base), logger: base}
}

// Slots handles GET /availability?date=YYYY-MM-DD&duration=N or
// &procedure_id=ID.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	date, ok := parseDate(query.Get("date"), h.loc)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	var (
		result application.AvailabilityResult
		err    error
	)
	if procedureID := strings.TrimSpace(query.Get("procedure_id")); procedureID != "" {
		result, err = h.service.ComputeAvailableSlotsForProcedure(r.Context(), date, procedureID)
	} else {
		duration, convErr := strconv.Atoi(strings.TrimSpace(query.Get("duration")))
		if convErr != nil || duration <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDuration)
			return
		}
		result, err = h.service.ComputeAvailableSlots(r.Context(), date, duration)
	}
	if err != nil {
		handlerLogger(r.Context(), h.logger, "AvailabilityHandler", "Slots").
			WarnContext(r.Context(), "availability request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if result.RetryLater {
		w.Header().Set("Retry-After", "5")
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(result))
}

// Month handles GET /availability/month?month=YYYY-MM.
func (h *AvailabilityHandler) Month(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	month, err := time.ParseInLocation(monthLayout, strings.TrimSpace(r.URL.Query().Get("month")), h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMonth)
		return
	}

	overview, err := h.service.MonthOverview(r.Context(), month.Year(), month.Month())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	days := make([]monthDayDTO, 0, len(overview.Days))
	for _, day := range overview.Days {
		days = append(days, monthDayDTO{
			Date:   day.Date.Format(dateLayout),
			Status: string(day.Status),
			Reason: day.Reason,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, monthOverviewDTO{
		Month: month.Format(monthLayout),
		Days:  days,
	})
}

type availabilityDTO struct {
	Date            string   `json:"date"`
	DurationMinutes int      `json:"duration_minutes"`
	Slots           []string `json:"slots"`
	Reason          string   `json:"reason,omitempty"`
	RetryLater      bool     `json:"retry_later,omitempty"`
}

func toAvailabilityDTO(result application.AvailabilityResult) availabilityDTO {
	slots := result.Slots
	if slots == nil {
		slots = []string{}
	}
	return availabilityDTO{
		Date:            result.Date.Format(dateLayout),
		DurationMinutes: result.DurationMinutes,
		Slots:           slots,
		Reason:          string(result.Reason),
		RetryLater:      result.RetryLater,
	}
}

type monthOverviewDTO struct {
	Month string        `json:"month"`
	Days  []monthDayDTO `json:"days"`
}

type monthDayDTO struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}
