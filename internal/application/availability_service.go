package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/recurrence"
	"github.com/example/salon-scheduler/internal/scheduler"
)

// AvailabilityService answers which slots can still be booked.
type AvailabilityService struct {
	appointments AppointmentReader
	blockages    BlockageReader
	catalog      ProcedureCatalog
	generator    *scheduler.SlotGenerator
	recurrence   *recurrence.Engine
	now          func() time.Time
	loc          *time.Location
	cache        *slotCache
	metrics      Metrics
	logger       *slog.Logger
}

// NewAvailabilityService wires dependencies for availability lookups.
func NewAvailabilityService(appointments AppointmentReader, blockages BlockageReader, catalog ProcedureCatalog, hours scheduler.BusinessHours, now func() time.Time, opts ...ServiceOption) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(appointments, blockages, catalog, hours, now, nil, opts...)
}

// NewAvailabilityServiceWithLogger wires dependencies with a specified logger.
func NewAvailabilityServiceWithLogger(appointments AppointmentReader, blockages BlockageReader, catalog ProcedureCatalog, hours scheduler.BusinessHours, now func() time.Time, logger *slog.Logger, opts ...ServiceOption) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	o := buildOptions(opts)
	return &AvailabilityService{
		appointments: appointments,
		blockages:    blockages,
		catalog:      catalog,
		generator:    scheduler.NewSlotGenerator(hours, scheduler.ClockFunc(now)),
		recurrence:   recurrence.NewEngine(o.location),
		now:          now,
		loc:          o.location,
		cache:        newSlotCache(o.cacheTTL, o.cacheEntries, now),
		metrics:      o.metrics,
		logger:       defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Hours returns the configured business hours.
func (s *AvailabilityService) Hours() scheduler.BusinessHours {
	return s.generator.Hours()
}

// WatchChanges clears the slot cache whenever appointments or blockages
// change. The returned function stops watching.
func (s *AvailabilityService) WatchChanges(feed ChangeSubscriber) (stop func()) {
	if s == nil || feed == nil || s.cache == nil {
		return func() {}
	}
	invalidate := func(persistence.ChangeEvent) { s.cache.Invalidate() }
	stopAppointments := feed.Subscribe(persistence.EntityAppointments, invalidate)
	stopBlockages := feed.Subscribe(persistence.EntityBlockages, invalidate)
	return func() {
		stopAppointments()
		stopBlockages()
	}
}

// ComputeAvailableSlots returns the bookable starts on date for a service of
// durationMinutes. Store failures degrade to an empty result with RetryLater
// set; an error is only returned for a misconfigured service.
func (s *AvailabilityService) ComputeAvailableSlots(ctx context.Context, date time.Time, durationMinutes int) (result AvailabilityResult, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.appointments == nil || s.blockages == nil {
		err = fmt.Errorf("availability repositories not configured")
		return
	}

	day := scheduler.StartOfDay(date.In(s.loc))
	started := time.Now()
	logger := s.loggerWith(ctx, "ComputeAvailableSlots",
		"date", day.Format(dateLayout),
		"duration_minutes", durationMinutes,
	)
	defer func() {
		s.metrics.ObserveAvailability(string(result.Reason), time.Since(started))
		logger.With(
			"slots", len(result.Slots),
			"reason", result.Reason,
			"retry_later", result.RetryLater,
		).DebugContext(ctx, "availability computed")
	}()

	result = AvailabilityResult{Date: day, DurationMinutes: durationMinutes}
	if durationMinutes <= 0 {
		return
	}
	if s.isClosed(day) {
		result.Reason = scheduler.ReasonClosed
		return
	}

	key := buildSlotCacheKey(day, durationMinutes)
	if cached, ok := s.cache.Get(key); ok {
		if slots, usable := s.dropPastSlots(day, cached.Slots); usable {
			s.metrics.ObserveSlotCache(true)
			result.Slots, result.Reason = slots, cached.Reason
			return
		}
	}
	if s.cache != nil {
		s.metrics.ObserveSlotCache(false)
	}

	appointments, blockages, readErr := s.loadDay(ctx, day)
	if readErr != nil {
		logger.WarnContext(ctx, "failed to read day", "error", readErr, "error_kind", ErrorKind(readErr))
		result.RetryLater = true
		return
	}

	generated := s.generator.Generate(scheduler.SlotRequest{
		Date:            day,
		DurationMinutes: durationMinutes,
		Appointments:    toIntervals(appointments),
		Blockages:       toSchedulerBlockages(blockages),
	})
	s.cache.Store(key, generated)

	result.Slots, result.Reason = generated.Slots, generated.Reason
	return
}

// CheckSlot verifies that a client may book start for durationMinutes. It
// always reads the store, so a cached answer never admits a booking.
func (s *AvailabilityService) CheckSlot(ctx context.Context, start time.Time, durationMinutes int) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if s.appointments == nil || s.blockages == nil {
		return fmt.Errorf("availability repositories not configured")
	}

	local := start.In(s.loc)
	day := scheduler.StartOfDay(local)
	if s.isClosed(day) {
		return newValidationError("date", "o salão não atende nesta data")
	}
	if local.Before(s.now()) {
		return newValidationError("time", "este horário já passou")
	}
	grid := s.generator.Generate(scheduler.SlotRequest{Date: day, DurationMinutes: durationMinutes})
	if !scheduler.At(day, local.Hour(), local.Minute()).Equal(local) ||
		!slices.Contains(grid.Slots, local.Format(scheduler.SlotFormat)) {
		return newValidationError("time", "horário fora do expediente")
	}

	appointments, blockages, err := s.loadDay(ctx, day)
	if err != nil {
		return err
	}
	end := local.Add(time.Duration(durationMinutes) * time.Minute)
	closed := toSchedulerBlockages(blockages)
	if scheduler.IsDayFullyBlocked(day, s.generator.Hours(), closed) || scheduler.IsIntervalBlocked(local, end, closed) {
		return newValidationError("time", "horário bloqueado pelo salão")
	}
	for _, busy := range toIntervals(appointments) {
		if busy.Overlaps(scheduler.Interval{Start: local, End: end}) {
			return ErrSlotTaken
		}
	}
	return nil
}

// loadDay reads the appointments and blockages that touch day.
func (s *AvailabilityService) loadDay(ctx context.Context, day time.Time) ([]Appointment, []Blockage, error) {
	bounds := scheduler.DayInterval(day)
	appointments, err := s.appointments.ListAppointments(ctx, overlapping(bounds.Start, bounds.End))
	if err != nil {
		return nil, nil, mapStoreError("list appointments", err)
	}
	weekday := day.Weekday()
	blockages, err := s.blockages.ListBlockages(ctx, BlockageQuery{
		RangeStart: &bounds.Start,
		RangeEnd:   &bounds.End,
		Weekday:    &weekday,
	})
	if err != nil {
		return nil, nil, mapStoreError("list blockages", err)
	}
	return appointments, blockages, nil
}

// dropPastSlots removes cached labels that are no longer in the future. It
// reports false when nothing survives so the caller recomputes the reason.
func (s *AvailabilityService) dropPastSlots(day time.Time, slots []string) ([]string, bool) {
	now := s.now().In(s.loc)
	if !scheduler.StartOfDay(now).Equal(day) || len(slots) == 0 {
		return slots, true
	}
	kept := slots[:0]
	for _, label := range slots {
		clock, err := time.Parse(scheduler.SlotFormat, label)
		if err != nil {
			continue
		}
		if !scheduler.At(day, clock.Hour(), clock.Minute()).Before(now) {
			kept = append(kept, label)
		}
	}
	return kept, len(kept) > 0
}

// ComputeAvailableSlotsForProcedure resolves the duration from the catalog.
func (s *AvailabilityService) ComputeAvailableSlotsForProcedure(ctx context.Context, date time.Time, procedureID string) (AvailabilityResult, error) {
	if s == nil {
		return AvailabilityResult{}, fmt.Errorf("AvailabilityService is nil")
	}
	if s.catalog == nil {
		return AvailabilityResult{}, fmt.Errorf("procedure catalog not configured")
	}
	if procedureID == "" {
		return AvailabilityResult{}, newValidationError("procedure_id", "procedimento é obrigatório")
	}

	procedure, err := s.catalog.GetProcedure(ctx, procedureID)
	if err != nil {
		if isNotFoundError(err) {
			return AvailabilityResult{}, newValidationError("procedure_id", "procedimento não encontrado")
		}
		s.loggerWith(ctx, "ComputeAvailableSlotsForProcedure", "procedure_id", procedureID).
			WarnContext(ctx, "failed to read procedure", "error", err)
		day := scheduler.StartOfDay(date.In(s.loc))
		return AvailabilityResult{Date: day, RetryLater: true}, nil
	}
	return s.ComputeAvailableSlots(ctx, date, procedure.DurationMinutes)
}

// MonthOverview reports, for every day of the month, whether the date picker
// should offer it. Weekday rules are expanded with the recurrence engine.
func (s *AvailabilityService) MonthOverview(ctx context.Context, year int, month time.Month) (overview MonthOverview, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if s.blockages == nil {
		err = fmt.Errorf("blockage repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "MonthOverview", "year", year, "month", int(month))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "month overview failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if month < time.January || month > time.December {
		err = newValidationError("month", "mês inválido")
		return
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	next := first.AddDate(0, 1, 0)

	var blockages []Blockage
	blockages, err = s.blockages.ListBlockages(ctx, BlockageQuery{
		RangeStart:  &first,
		RangeEnd:    &next,
		AllWeekdays: true,
	})
	if err != nil {
		err = mapStoreError("list blockages", err)
		return
	}

	var (
		rules  []recurrence.Rule
		ranged []scheduler.Blockage
	)
	for _, b := range blockages {
		if b.Weekday != nil {
			rules = append(rules, recurrence.Rule{ID: b.ID, Weekdays: []time.Weekday{*b.Weekday}, Reason: b.Reason})
			continue
		}
		ranged = append(ranged, toSchedulerBlockage(b))
	}

	var occurrences []recurrence.Occurrence
	occurrences, err = s.recurrence.ExpandAll(rules, recurrence.Window{Start: first, End: next})
	if err != nil {
		return
	}
	ruleDays := make(map[string]string, len(occurrences))
	for _, occ := range occurrences {
		ruleDays[occ.Start.Format(dateLayout)] = occ.Reason
	}

	hours := s.generator.Hours()
	overview = MonthOverview{Year: year, Month: month}
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		entry := MonthDay{Date: day, Status: DayOpen}
		switch reason, ruled := ruleDays[day.Format(dateLayout)]; {
		case s.isClosed(day):
			entry.Status = DayClosed
		case ruled:
			entry.Status = DayBlocked
			entry.Reason = reason
		case scheduler.IsDayFullyBlocked(day, hours, ranged):
			entry.Status = DayBlocked
			entry.Reason = coveringReason(day, hours, ranged)
		}
		overview.Days = append(overview.Days, entry)
	}
	return
}

// isClosed reports days outside the working week and days already past.
func (s *AvailabilityService) isClosed(day time.Time) bool {
	if !s.generator.Hours().IsWorkingDay(day) {
		return true
	}
	today := scheduler.StartOfDay(s.now().In(s.loc))
	return day.Before(today)
}

func coveringReason(day time.Time, hours scheduler.BusinessHours, blockages []scheduler.Blockage) string {
	window := hours.WorkWindow(day)
	for _, b := range blockages {
		if !b.IsRecurring() && b.Range.Contains(window) {
			return b.Reason
		}
	}
	return ""
}

func toIntervals(appointments []Appointment) []scheduler.Interval {
	out := make([]scheduler.Interval, 0, len(appointments))
	for _, appt := range appointments {
		if appt.Status == StatusCancelled {
			continue
		}
		out = append(out, scheduler.Interval{Start: appt.Start, End: appt.End})
	}
	return out
}

func toSchedulerBlockages(blockages []Blockage) []scheduler.Blockage {
	out := make([]scheduler.Blockage, 0, len(blockages))
	for _, b := range blockages {
		out = append(out, toSchedulerBlockage(b))
	}
	return out
}

func toSchedulerBlockage(b Blockage) scheduler.Blockage {
	converted := scheduler.Blockage{ID: b.ID, Reason: b.Reason}
	if b.Weekday != nil {
		weekday := *b.Weekday
		converted.Weekday = &weekday
		return converted
	}
	if b.Start != nil && b.End != nil {
		converted.Range = scheduler.Interval{Start: *b.Start, End: *b.End}
	}
	return converted
}
