package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/salon-scheduler/internal/application"
)

type calendarService interface {
	DayAgenda(ctx context.Context, date time.Time) (application.DayAgenda, error)
}

// CalendarHandler renders the staff day view.
type CalendarHandler struct {
	service   calendarService
	loc       *time.Location
	responder responder
}

func NewCalendarHandler(service calendarService, loc *time.Location, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{service: service, loc: locationOrLocal(loc), responder: newResponder(defaultLogger(logger))}
}

// Day handles GET /calendar/{date}.
func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, ok := parseDate(chi.URLParam(r, "date"), h.loc)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	agenda, err := h.service.DayAgenda(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries := make([]agendaEntryDTO, 0, len(agenda.Entries))
	for _, entry := range agenda.Entries {
		entries = append(entries, agendaEntryDTO{
			Appointment:   toAppointmentDTO(entry.Appointment, h.loc),
			ProcedureName: entry.ProcedureName,
			Column:        entry.Placement.Column,
			TotalColumns:  entry.Placement.TotalColumns,
		})
	}
	blocked := make([]intervalDTO, 0, len(agenda.Blocked))
	for _, stretch := range agenda.Blocked {
		blocked = append(blocked, intervalDTO{
			Start: stretch.Start.In(h.loc).Format(time.RFC3339),
			End:   stretch.End.In(h.loc).Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayAgendaDTO{
		Date:      agenda.Date.In(h.loc).Format(dateLayout),
		Entries:   entries,
		Blockages: toBlockageDTOs(agenda.Blockages, h.loc),
		Blocked:   blocked,
	})
}

type agendaEntryDTO struct {
	Appointment   appointmentDTO `json:"appointment"`
	ProcedureName string         `json:"procedure_name"`
	Column        int            `json:"column"`
	TotalColumns  int            `json:"total_columns"`
}

type intervalDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayAgendaDTO struct {
	Date      string           `json:"date"`
	Entries   []agendaEntryDTO `json:"entries"`
	Blockages []blockageDTO    `json:"blockages"`
	Blocked   []intervalDTO    `json:"blocked"`
}
