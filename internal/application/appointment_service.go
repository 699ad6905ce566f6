package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/notify"
	"github.com/example/salon-scheduler/internal/scheduler"
)

// AppointmentService orchestrates validation, persistence and notifications
// for bookings.
type AppointmentService struct {
	appointments AppointmentRepository
	catalog      ProcedureCatalog
	notifier     Notifier
	idGenerator  func() string
	now          func() time.Time
	loc          *time.Location
	policy       BookingPolicy
	slots        SlotChecker
	metrics      Metrics
	logger       *slog.Logger
}

// NewAppointmentService wires dependencies for appointment operations.
func NewAppointmentService(appointments AppointmentRepository, catalog ProcedureCatalog, notifier Notifier, idGenerator func() string, now func() time.Time, opts ...ServiceOption) *AppointmentService {
	return NewAppointmentServiceWithLogger(appointments, catalog, notifier, idGenerator, now, nil, opts...)
}

// NewAppointmentServiceWithLogger wires dependencies with a specified logger.
func NewAppointmentServiceWithLogger(appointments AppointmentRepository, catalog ProcedureCatalog, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...ServiceOption) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = notify.NewNoopNotifier()
	}
	o := buildOptions(opts)
	return &AppointmentService{
		appointments: appointments,
		catalog:      catalog,
		notifier:     notifier,
		idGenerator:  idGenerator,
		now:          now,
		loc:          o.location,
		policy:       o.policy,
		slots:        o.slots,
		metrics:      o.metrics,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

func (s *AppointmentService) observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
	}
	s.metrics.ObserveBooking(operation, outcome)
}

// CreateAppointment validates and stores a booking. Client bookings start
// pending and alert the owner; staff bookings are confirmed immediately.
func (s *AppointmentService) CreateAppointment(ctx context.Context, params CreateAppointmentParams) (appt Appointment, err error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil || s.catalog == nil {
		return Appointment{}, fmt.Errorf("appointment repositories not configured")
	}

	logger := s.loggerWith(ctx, "CreateAppointment",
		"procedure_id", params.ProcedureID,
		"source", params.Source,
		"manual_fit", params.ManualFit,
	)
	defer func() {
		s.observe("create", err)
		if err != nil {
			logger.WarnContext(ctx, "appointment rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment created", "appointment_id", appt.ID, "status", appt.Status)
	}()

	source := params.Source
	if source == "" {
		source = SourceClient
	}

	vErr := &ValidationError{}
	name := strings.TrimSpace(params.ClientName)
	if name == "" {
		vErr.add("client_name", "nome é obrigatório")
	}
	phone := strings.TrimSpace(params.ClientPhone)
	if phone == "" && source == SourceClient {
		vErr.add("client_phone", "telefone é obrigatório")
	}
	if source != SourceClient && source != SourceStaff {
		vErr.add("source", "origem inválida")
	}
	if params.ManualFit && source != SourceStaff {
		vErr.add("source", "encaixe manual é restrito à equipe")
	}
	start := parseStart(params.Date, params.Time, s.loc, vErr)

	var procedure Procedure
	if strings.TrimSpace(params.ProcedureID) == "" {
		vErr.add("procedure_id", "procedimento é obrigatório")
	} else {
		procedure, err = s.catalog.GetProcedure(ctx, params.ProcedureID)
		switch {
		case err != nil && isNotFoundError(err):
			vErr.add("procedure_id", "procedimento não encontrado")
			err = nil
		case err != nil:
			return Appointment{}, mapStoreError("get procedure", err)
		case procedure.DurationMinutes <= 0:
			vErr.add("procedure_id", "procedimento sem duração definida")
		}
	}
	if vErr.HasErrors() {
		return Appointment{}, vErr
	}
	if source == SourceClient && s.slots != nil {
		if err = s.slots.CheckSlot(ctx, start, procedure.DurationMinutes); err != nil {
			return Appointment{}, err
		}
	}

	status := StatusPending
	switch {
	case params.ManualFit:
		status = StatusManualFit
	case source == SourceStaff:
		status = StatusConfirmed
	}

	createdAt := s.now()
	candidate := Appointment{
		ID:              s.idGenerator(),
		ClientName:      name,
		ClientPhone:     phone,
		ProcedureID:     procedure.ID,
		Start:           start,
		End:             start.Add(time.Duration(procedure.DurationMinutes) * time.Minute),
		Status:          status,
		DurationMinutes: procedure.DurationMinutes,
		PriceCents:      procedure.PriceCents,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	guard := s.policy.EnforceBookingExclusion && !params.ManualFit
	appt, err = s.appointments.CreateAppointment(ctx, candidate, guard)
	if err != nil {
		return Appointment{}, mapStoreError("create appointment", err)
	}

	if source == SourceClient {
		s.notify(ctx, logger, notify.KindNewRequest, appt, procedure.Name, s.policy.OwnerPhone)
	}
	return appt, nil
}

// SetAppointmentStatus applies a lifecycle transition. Confirming notifies the
// client before the write; a failed notification does not block the change.
func (s *AppointmentService) SetAppointmentStatus(ctx context.Context, params SetStatusParams) (appt Appointment, err error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil {
		return Appointment{}, fmt.Errorf("appointment repository not configured")
	}

	logger := s.loggerWith(ctx, "SetAppointmentStatus",
		"appointment_id", params.AppointmentID,
		"status", params.Status,
	)
	defer func() {
		s.observe("set_status", err)
		if err != nil {
			logger.WarnContext(ctx, "status change rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "status changed")
	}()

	if !params.Status.Valid() {
		return Appointment{}, newValidationError("status", "status inválido")
	}

	existing, err := s.appointments.GetAppointment(ctx, params.AppointmentID)
	if err != nil {
		return Appointment{}, mapStoreError("get appointment", err)
	}
	if !canTransition(existing.Status, params.Status) {
		return Appointment{}, ErrInvalidTransition
	}

	if params.Status == StatusConfirmed {
		s.notify(ctx, logger, notify.KindConfirmation, existing, s.procedureName(ctx, existing.ProcedureID), existing.ClientPhone)
	}

	updated := existing
	updated.Status = params.Status
	updated.UpdatedAt = s.now()
	appt, err = s.appointments.UpdateAppointment(ctx, updated)
	if err != nil {
		return Appointment{}, mapStoreError("update appointment", err)
	}
	return appt, nil
}

// RescheduleAppointment moves a booking, optionally to another procedure, and
// confirms it. The client is told about the new time before the write.
func (s *AppointmentService) RescheduleAppointment(ctx context.Context, params RescheduleParams) (appt Appointment, err error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil || s.catalog == nil {
		return Appointment{}, fmt.Errorf("appointment repositories not configured")
	}

	logger := s.loggerWith(ctx, "RescheduleAppointment", "appointment_id", params.AppointmentID)
	defer func() {
		s.observe("reschedule", err)
		if err != nil {
			logger.WarnContext(ctx, "reschedule rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment rescheduled", "start", appt.Start)
	}()

	vErr := &ValidationError{}
	start := parseStart(params.Date, params.Time, s.loc, vErr)
	if vErr.HasErrors() {
		return Appointment{}, vErr
	}

	existing, err := s.appointments.GetAppointment(ctx, params.AppointmentID)
	if err != nil {
		return Appointment{}, mapStoreError("get appointment", err)
	}
	if existing.Status == StatusCancelled {
		return Appointment{}, ErrInvalidTransition
	}

	procedureID := existing.ProcedureID
	if id := strings.TrimSpace(params.ProcedureID); id != "" {
		procedureID = id
	}

	duration, price := existing.DurationMinutes, existing.PriceCents
	procedureName := procedureID
	if procedureID != existing.ProcedureID || duration <= 0 {
		procedure, lookupErr := s.catalog.GetProcedure(ctx, procedureID)
		if lookupErr != nil {
			if isNotFoundError(lookupErr) {
				return Appointment{}, newValidationError("procedure_id", "procedimento não encontrado")
			}
			return Appointment{}, mapStoreError("get procedure", lookupErr)
		}
		if procedure.DurationMinutes <= 0 {
			return Appointment{}, newValidationError("procedure_id", "procedimento sem duração definida")
		}
		duration, price, procedureName = procedure.DurationMinutes, procedure.PriceCents, procedure.Name
	} else {
		procedureName = s.procedureName(ctx, procedureID)
	}

	updated := existing
	updated.ProcedureID = procedureID
	updated.Start = start
	updated.End = start.Add(time.Duration(duration) * time.Minute)
	updated.DurationMinutes = duration
	updated.PriceCents = price
	updated.Status = StatusConfirmed
	updated.UpdatedAt = s.now()

	if !s.policy.AllowOverlapOnReschedule {
		if err = s.checkConflicts(ctx, updated); err != nil {
			return Appointment{}, err
		}
	}

	s.notify(ctx, logger, notify.KindAdjustment, updated, procedureName, updated.ClientPhone)

	appt, err = s.appointments.UpdateAppointment(ctx, updated)
	if err != nil {
		return Appointment{}, mapStoreError("update appointment", err)
	}
	return appt, nil
}

// ListAppointments returns the appointments starting within the requested
// period, ordered by start.
func (s *AppointmentService) ListAppointments(ctx context.Context, params ListAppointmentsParams) ([]Appointment, error) {
	if s == nil {
		return nil, fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil {
		return nil, fmt.Errorf("appointment repository not configured")
	}

	vErr := &ValidationError{}
	var from, to time.Time
	switch params.Period {
	case ListPeriodCustom:
		if params.From == nil {
			vErr.add("from", "início é obrigatório")
		}
		if params.To == nil {
			vErr.add("to", "fim é obrigatório")
		}
		if params.From != nil && params.To != nil {
			from, to = params.From.In(s.loc), params.To.In(s.loc)
			if !to.After(from) {
				vErr.add("to", "fim deve ser posterior ao início")
			}
		}
	case ListPeriodDay, ListPeriodWeek, ListPeriodMonth, "":
		period := params.Period
		if period == "" {
			period = ListPeriodDay
		}
		reference := params.Reference
		if reference.IsZero() {
			reference = s.now()
		}
		from, to = periodRange(period, reference.In(s.loc))
	default:
		vErr.add("period", "período inválido")
	}
	for _, status := range params.Statuses {
		if !status.Valid() {
			vErr.add("status", "status inválido")
		}
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	appointments, err := s.appointments.ListAppointments(ctx, AppointmentQuery{
		Statuses:     params.Statuses,
		StartsFrom:   &from,
		StartsBefore: &to,
	})
	if err != nil {
		err = mapStoreError("list appointments", err)
		s.loggerWith(ctx, "ListAppointments", "period", params.Period).
			ErrorContext(ctx, "failed to list appointments", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return appointments, nil
}

// ClientHistory returns the client's appointments that already started,
// newest first.
func (s *AppointmentService) ClientHistory(ctx context.Context, phone string) ([]Appointment, error) {
	if s == nil {
		return nil, fmt.Errorf("AppointmentService is nil")
	}
	if s.appointments == nil {
		return nil, fmt.Errorf("appointment repository not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, newValidationError("client_phone", "telefone é obrigatório")
	}

	now := s.now()
	appointments, err := s.appointments.ListAppointments(ctx, AppointmentQuery{
		ClientPhone:  phone,
		StartsBefore: &now,
		Descending:   true,
	})
	if err != nil {
		return nil, mapStoreError("list appointments", err)
	}
	return appointments, nil
}

func (s *AppointmentService) checkConflicts(ctx context.Context, candidate Appointment) error {
	bounds := scheduler.DayInterval(candidate.Start)
	sameDay, err := s.appointments.ListAppointments(ctx, overlapping(bounds.Start, bounds.End))
	if err != nil {
		return mapStoreError("list appointments", err)
	}

	existing := make([]scheduler.Booking, 0, len(sameDay))
	for _, appt := range sameDay {
		existing = append(existing, scheduler.Booking{ID: appt.ID, Start: appt.Start, End: appt.End})
	}
	conflicts := scheduler.DetectConflicts(existing, scheduler.Booking{
		ID:    candidate.ID,
		Start: candidate.Start,
		End:   candidate.End,
	})
	if len(conflicts) == 0 {
		return nil
	}

	cErr := &ConflictError{Conflicts: make([]AppointmentConflict, 0, len(conflicts))}
	for _, c := range conflicts {
		cErr.Conflicts = append(cErr.Conflicts, AppointmentConflict{AppointmentID: c.WithBookingID, Start: c.Start, End: c.End})
	}
	return cErr
}

func (s *AppointmentService) procedureName(ctx context.Context, id string) string {
	if s.catalog == nil || id == "" {
		return id
	}
	procedure, err := s.catalog.GetProcedure(ctx, id)
	if err != nil {
		return id
	}
	return procedure.Name
}

// notify hands a notification to the transport. Failures are logged and
// counted only.
func (s *AppointmentService) notify(ctx context.Context, logger *slog.Logger, kind notify.Kind, appt Appointment, procedureName, recipient string) {
	n := notify.Notification{
		Kind:          kind,
		AppointmentID: appt.ID,
		ClientName:    appt.ClientName,
		ClientPhone:   appt.ClientPhone,
		ProcedureName: procedureName,
		Start:         appt.Start,
		Recipient:     recipient,
	}
	if recipient == "" {
		logger.DebugContext(ctx, "notification skipped without recipient", "kind", kind)
		return
	}

	err := s.notifier.Notify(ctx, n)
	s.metrics.ObserveNotification(string(kind), err)
	if err != nil {
		nErr := &NotificationError{Kind: string(kind), Err: err}
		logger.WarnContext(ctx, "notification failed", "error", nErr, "error_kind", ErrorKind(nErr))
	}
}

// canTransition reports whether the lifecycle allows from -> to.
func canTransition(from, to AppointmentStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed, StatusManualFit:
		return to == StatusCancelled
	}
	return false
}
