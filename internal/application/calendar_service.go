package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/salon-scheduler/internal/scheduler"
)

// CalendarService builds the dashboard's day timeline.
type CalendarService struct {
	appointments AppointmentReader
	blockages    BlockageReader
	catalog      ProcedureCatalog
	loc          *time.Location
	logger       *slog.Logger
}

// NewCalendarService wires dependencies for calendar views.
func NewCalendarService(appointments AppointmentReader, blockages BlockageReader, catalog ProcedureCatalog, opts ...ServiceOption) *CalendarService {
	return NewCalendarServiceWithLogger(appointments, blockages, catalog, nil, opts...)
}

// NewCalendarServiceWithLogger wires dependencies with a specified logger.
func NewCalendarServiceWithLogger(appointments AppointmentReader, blockages BlockageReader, catalog ProcedureCatalog, logger *slog.Logger, opts ...ServiceOption) *CalendarService {
	o := buildOptions(opts)
	return &CalendarService{
		appointments: appointments,
		blockages:    blockages,
		catalog:      catalog,
		loc:          o.location,
		logger:       defaultLogger(logger),
	}
}

// LayoutDay assigns side-by-side columns to overlapping appointments.
func (s *CalendarService) LayoutDay(appointments []Appointment) map[string]scheduler.Placement {
	entries := make([]scheduler.LayoutEntry, 0, len(appointments))
	for _, appt := range appointments {
		entries = append(entries, scheduler.LayoutEntry{ID: appt.ID, Start: appt.Start, End: appt.End})
	}
	return scheduler.LayoutDay(entries)
}

// DayAgenda returns the confirmed appointments of date with their placement,
// plus the blockages touching that day and the stretches they close.
func (s *CalendarService) DayAgenda(ctx context.Context, date time.Time) (agenda DayAgenda, err error) {
	if s == nil {
		return DayAgenda{}, fmt.Errorf("CalendarService is nil")
	}
	if s.appointments == nil || s.blockages == nil {
		return DayAgenda{}, fmt.Errorf("calendar repositories not configured")
	}

	day := scheduler.StartOfDay(date.In(s.loc))
	logger := s.loggerWith(ctx, "DayAgenda", "date", day.Format(dateLayout))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build agenda", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	bounds := scheduler.DayInterval(day)
	appointments, err := s.appointments.ListAppointments(ctx, AppointmentQuery{
		Statuses:     []AppointmentStatus{StatusConfirmed, StatusManualFit},
		StartsBefore: &bounds.End,
		EndsAfter:    &bounds.Start,
	})
	if err != nil {
		return DayAgenda{}, mapStoreError("list appointments", err)
	}

	weekday := day.Weekday()
	blockages, err := s.blockages.ListBlockages(ctx, BlockageQuery{
		RangeStart: &bounds.Start,
		RangeEnd:   &bounds.End,
		Weekday:    &weekday,
	})
	if err != nil {
		return DayAgenda{}, mapStoreError("list blockages", err)
	}

	placements := s.LayoutDay(appointments)
	names := make(map[string]string)
	agenda = DayAgenda{
		Date:      day,
		Blockages: blockages,
		Blocked:   scheduler.BlockedIntervals(day, toSchedulerBlockages(blockages)),
		Entries:   make([]AgendaEntry, 0, len(appointments)),
	}
	for _, appt := range appointments {
		name, ok := names[appt.ProcedureID]
		if !ok {
			name = s.procedureName(ctx, appt.ProcedureID)
			names[appt.ProcedureID] = name
		}
		agenda.Entries = append(agenda.Entries, AgendaEntry{
			Appointment:   appt,
			ProcedureName: name,
			Placement:     placements[appt.ID],
		})
	}
	return agenda, nil
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

func (s *CalendarService) procedureName(ctx context.Context, id string) string {
	if s.catalog == nil {
		return id
	}
	procedure, err := s.catalog.GetProcedure(ctx, id)
	if err != nil {
		return id
	}
	return procedure.Name
}
