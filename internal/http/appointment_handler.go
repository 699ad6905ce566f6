package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/salon-scheduler/internal/application"
)

type appointmentService interface {
	CreateAppointment(ctx context.Context, params application.CreateAppointmentParams) (application.Appointment, error)
	SetAppointmentStatus(ctx context.Context, params application.SetStatusParams) (application.Appointment, error)
	RescheduleAppointment(ctx context.Context, params application.RescheduleParams) (application.Appointment, error)
	ListAppointments(ctx context.Context, params application.ListAppointmentsParams) ([]application.Appointment, error)
	ClientHistory(ctx context.Context, phone string) ([]application.Appointment, error)
}

// AppointmentHandler exposes booking creation for clients and the booking
// lifecycle for staff.
type AppointmentHandler struct {
	service   appointmentService
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, loc *time.Location, logger *slog.Logger) *AppointmentHandler {
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, loc: locationOrLocal(loc), responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

// Create handles POST /appointments from the public booking page.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, application.SourceClient)
}

// CreateManual handles POST /appointments/manual for staff bookings.
func (h *AppointmentHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, application.SourceStaff)
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request, source application.BookingSource) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode appointment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.CreateAppointmentParams{
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		ProcedureID: strings.TrimSpace(req.ProcedureID),
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
		Source:      source,
	}
	if source == application.SourceStaff {
		params.ManualFit = req.ManualFit
	}

	appt, err := h.service.CreateAppointment(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, h.toDTO(appt))
}

// SetStatus handles PATCH /appointments/{id}/status.
func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	appt, err := h.service.SetAppointmentStatus(r.Context(), application.SetStatusParams{
		AppointmentID: chi.URLParam(r, "id"),
		Status:        application.AppointmentStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toDTO(appt))
}

// Reschedule handles PUT /appointments/{id}/schedule.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	appt, err := h.service.RescheduleAppointment(r.Context(), application.RescheduleParams{
		AppointmentID: chi.URLParam(r, "id"),
		Date:          strings.TrimSpace(req.Date),
		Time:          strings.TrimSpace(req.Time),
		ProcedureID:   strings.TrimSpace(req.ProcedureID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toDTO(appt))
}

// List handles GET /appointments?period=&date=&from=&to=&status=.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, ok := h.buildListParams(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	appointments, err := h.service.ListAppointments(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAppointmentsResponse{Appointments: h.toDTOs(appointments)})
}

// ClientHistory handles GET /clients/{phone}/appointments.
func (h *AppointmentHandler) ClientHistory(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointments, err := h.service.ClientHistory(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAppointmentsResponse{Appointments: h.toDTOs(appointments)})
}

func (h *AppointmentHandler) buildListParams(r *http.Request) (application.ListAppointmentsParams, bool) {
	query := r.URL.Query()
	params := application.ListAppointmentsParams{
		Period: application.ListPeriod(strings.TrimSpace(query.Get("period"))),
	}

	if raw := query.Get("date"); raw != "" {
		day, ok := parseDate(raw, h.loc)
		if !ok {
			return params, false
		}
		params.Reference = day
	}
	if raw := query.Get("from"); raw != "" {
		day, ok := parseDate(raw, h.loc)
		if !ok {
			return params, false
		}
		params.From = &day
	}
	if raw := query.Get("to"); raw != "" {
		day, ok := parseDate(raw, h.loc)
		if !ok {
			return params, false
		}
		// to is inclusive on the wire
		end := day.AddDate(0, 0, 1)
		params.To = &end
	}
	if params.Period == "" && (params.From != nil || params.To != nil) {
		params.Period = application.ListPeriodCustom
	}
	for _, status := range parseCSV(query.Get("status")) {
		params.Statuses = append(params.Statuses, application.AppointmentStatus(status))
	}
	return params, true
}

type createAppointmentRequest struct {
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	ProcedureID string `json:"procedure_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ManualFit   bool   `json:"manual_fit,omitempty"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

type rescheduleRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	ProcedureID string `json:"procedure_id,omitempty"`
}

type appointmentDTO struct {
	ID              string `json:"id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	ProcedureID     string `json:"procedure_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Status          string `json:"status"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

type listAppointmentsResponse struct {
	Appointments []appointmentDTO `json:"appointments"`
}

func (h *AppointmentHandler) toDTO(appt application.Appointment) appointmentDTO {
	return toAppointmentDTO(appt, h.loc)
}

func (h *AppointmentHandler) toDTOs(appointments []application.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appointments))
	for _, appt := range appointments {
		out = append(out, h.toDTO(appt))
	}
	return out
}

func toAppointmentDTO(appt application.Appointment, loc *time.Location) appointmentDTO {
	start := appt.Start.In(loc)
	return appointmentDTO{
		ID:              appt.ID,
		ClientName:      appt.ClientName,
		ClientPhone:     appt.ClientPhone,
		ProcedureID:     appt.ProcedureID,
		Date:            start.Format(dateLayout),
		Time:            start.Format(clockLayout),
		Start:           start.Format(time.RFC3339),
		End:             appt.End.In(loc).Format(time.RFC3339),
		Status:          string(appt.Status),
		DurationMinutes: appt.DurationMinutes,
		PriceCents:      appt.PriceCents,
	}
}
