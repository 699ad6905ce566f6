package application

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/scheduler"
)

func newAvailabilityForTest(appointments *appointmentRepoStub, blockages *blockageRepoStub, now time.Time, opts ...ServiceOption) *AvailabilityService {
	opts = append([]ServiceOption{WithLocation(brt)}, opts...)
	return NewAvailabilityService(appointments, blockages, newCatalogStub(sampleProcedures()...), scheduler.DefaultBusinessHours(), fixedNow(now), opts...)
}

func TestAvailabilityService_ComputeAvailableSlots(t *testing.T) {
	t.Parallel()

	tuesday := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)

	t.Run("offers every mark except lunch on an empty day", func(t *testing.T) {
		t.Parallel()

		svc := newAvailabilityForTest(newAppointmentRepoStub(), newBlockageRepoStub(), monday)
		result, err := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if err != nil {
			t.Fatalf("ComputeAvailableSlots failed: %v", err)
		}

		want := []string{"10:00", "10:30", "11:00", "11:30", "13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30", "18:00"}
		if !slices.Equal(result.Slots, want) {
			t.Fatalf("unexpected slots: %v", result.Slots)
		}
		if result.Reason != scheduler.ReasonNone || result.RetryLater {
			t.Fatalf("unexpected result metadata: %#v", result)
		}
	})

	t.Run("skips candidates overlapping appointments", func(t *testing.T) {
		t.Parallel()

		appointments := newAppointmentRepoStub(
			Appointment{ID: "a1", Start: at(tuesday, 10, 0), End: at(tuesday, 11, 0), Status: StatusConfirmed},
			Appointment{ID: "a2", Start: at(tuesday, 14, 0), End: at(tuesday, 15, 0), Status: StatusCancelled},
		)
		svc := newAvailabilityForTest(appointments, newBlockageRepoStub(), monday)

		result, err := svc.ComputeAvailableSlots(context.Background(), tuesday, 60)
		if err != nil {
			t.Fatalf("ComputeAvailableSlots failed: %v", err)
		}
		if result.Slots[0] != "11:00" {
			t.Fatalf("expected first slot 11:00, got %v", result.Slots)
		}
		if !slices.Contains(result.Slots, "14:00") {
			t.Fatalf("cancelled appointment must not occupy 14:00: %v", result.Slots)
		}
	})

	t.Run("reports blocked for a weekday rule", func(t *testing.T) {
		t.Parallel()

		blockages := newBlockageRepoStub(Blockage{ID: "b1", Weekday: ptrWeekday(time.Tuesday), Reason: "Folga"})
		svc := newAvailabilityForTest(newAppointmentRepoStub(), blockages, monday)

		result, err := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if err != nil {
			t.Fatalf("ComputeAvailableSlots failed: %v", err)
		}
		if len(result.Slots) != 0 || result.Reason != scheduler.ReasonBlocked {
			t.Fatalf("expected blocked day, got %#v", result)
		}
	})

	t.Run("reports blocked for a whole day range", func(t *testing.T) {
		t.Parallel()

		blockages := newBlockageRepoStub(Blockage{ID: "b1", Start: ptrTime(at(tuesday, 0, 0)), End: ptrTime(at(tuesday, 23, 59))})
		svc := newAvailabilityForTest(newAppointmentRepoStub(), blockages, monday)

		result, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if result.Reason != scheduler.ReasonBlocked {
			t.Fatalf("expected blocked, got %#v", result)
		}
	})

	t.Run("reports full when appointments fill the day", func(t *testing.T) {
		t.Parallel()

		appointments := newAppointmentRepoStub(Appointment{ID: "a1", Start: at(tuesday, 10, 0), End: at(tuesday, 19, 0), Status: StatusPending})
		svc := newAvailabilityForTest(appointments, newBlockageRepoStub(), monday)

		result, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if result.Reason != scheduler.ReasonFull {
			t.Fatalf("expected full, got %#v", result)
		}
	})

	t.Run("reports closed outside working days and for past dates", func(t *testing.T) {
		t.Parallel()

		svc := newAvailabilityForTest(newAppointmentRepoStub(), newBlockageRepoStub(), tuesday.AddDate(0, 0, 1))

		sunday := tuesday.AddDate(0, 0, 5)
		for _, day := range []time.Time{sunday, tuesday} {
			result, err := svc.ComputeAvailableSlots(context.Background(), day, 30)
			if err != nil {
				t.Fatalf("ComputeAvailableSlots failed: %v", err)
			}
			if result.Reason != scheduler.ReasonClosed || len(result.Slots) != 0 {
				t.Fatalf("expected closed for %s, got %#v", day.Format(dateLayout), result)
			}
		}
	})

	t.Run("returns an empty result for non positive durations", func(t *testing.T) {
		t.Parallel()

		svc := newAvailabilityForTest(newAppointmentRepoStub(), newBlockageRepoStub(), monday)
		result, err := svc.ComputeAvailableSlots(context.Background(), tuesday, 0)
		if err != nil {
			t.Fatalf("ComputeAvailableSlots failed: %v", err)
		}
		if len(result.Slots) != 0 || result.Reason != scheduler.ReasonNone {
			t.Fatalf("expected empty result, got %#v", result)
		}
	})

	t.Run("degrades to retry later when the store fails", func(t *testing.T) {
		t.Parallel()

		appointments := newAppointmentRepoStub()
		appointments.listErr = errors.New("connection reset")
		svc := newAvailabilityForTest(appointments, newBlockageRepoStub(), monday)

		result, err := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.RetryLater || len(result.Slots) != 0 {
			t.Fatalf("expected retry later, got %#v", result)
		}
	})

	t.Run("queries the day's blockages by range and weekday", func(t *testing.T) {
		t.Parallel()

		blockages := newBlockageRepoStub()
		svc := newAvailabilityForTest(newAppointmentRepoStub(), blockages, monday)
		if _, err := svc.ComputeAvailableSlots(context.Background(), tuesday.Add(15*time.Hour), 30); err != nil {
			t.Fatalf("ComputeAvailableSlots failed: %v", err)
		}

		if len(blockages.queries) != 1 {
			t.Fatalf("expected one blockage query, got %d", len(blockages.queries))
		}
		q := blockages.queries[0]
		if !q.RangeStart.Equal(tuesday) || !q.RangeEnd.Equal(tuesday.AddDate(0, 0, 1)) {
			t.Fatalf("unexpected range: %v - %v", q.RangeStart, q.RangeEnd)
		}
		if q.Weekday == nil || *q.Weekday != time.Tuesday || q.AllWeekdays {
			t.Fatalf("unexpected weekday filter: %#v", q)
		}
	})
}

func TestAvailabilityService_SlotCache(t *testing.T) {
	t.Parallel()

	tuesday := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)
	appointments := newAppointmentRepoStub()
	metrics := &metricsStub{}
	svc := newAvailabilityForTest(appointments, newBlockageRepoStub(), monday, WithSlotCache(time.Minute, 8), WithMetrics(metrics))
	feed := &feedStub{}
	stop := svc.WatchChanges(feed)
	defer stop()

	first, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)

	appointments.appointments["a1"] = Appointment{ID: "a1", Start: at(tuesday, 10, 0), End: at(tuesday, 10, 30), Status: StatusConfirmed}
	cached, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
	if !slices.Equal(first.Slots, cached.Slots) {
		t.Fatalf("expected cached slots, got %v", cached.Slots)
	}
	if metrics.cacheHits != 1 || metrics.cacheMisses != 1 {
		t.Fatalf("unexpected cache metrics: hits=%d misses=%d", metrics.cacheHits, metrics.cacheMisses)
	}

	feed.emit(persistence.EntityAppointments)
	fresh, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
	if slices.Contains(fresh.Slots, "10:00") {
		t.Fatalf("expected invalidated cache to drop 10:00, got %v", fresh.Slots)
	}
	if len(metrics.availability) != 3 {
		t.Fatalf("expected three availability observations, got %v", metrics.availability)
	}
}

func TestAvailabilityService_SlotCacheDropsPastSlots(t *testing.T) {
	t.Parallel()

	tuesday := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)

	t.Run("filters cached labels once the clock passes them", func(t *testing.T) {
		t.Parallel()

		now := at(tuesday, 13, 59).Add(50 * time.Second)
		metrics := &metricsStub{}
		svc := NewAvailabilityService(newAppointmentRepoStub(), newBlockageRepoStub(), newCatalogStub(), scheduler.DefaultBusinessHours(),
			func() time.Time { return now }, WithLocation(brt), WithSlotCache(30*time.Second, 8), WithMetrics(metrics))

		first, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if len(first.Slots) == 0 || first.Slots[0] != "14:00" {
			t.Fatalf("expected 14:00 to be offered first, got %v", first.Slots)
		}

		now = at(tuesday, 14, 0).Add(10 * time.Second)
		second, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if len(second.Slots) == 0 || second.Slots[0] != "14:30" {
			t.Fatalf("expected 14:00 to be dropped at %s, got %v", now.Format(time.TimeOnly), second.Slots)
		}
		if metrics.cacheHits != 1 {
			t.Fatalf("expected the filtered answer to come from the cache, hits=%d", metrics.cacheHits)
		}
	})

	t.Run("recomputes when every cached label is past", func(t *testing.T) {
		t.Parallel()

		now := at(tuesday, 17, 59).Add(50 * time.Second)
		metrics := &metricsStub{}
		svc := NewAvailabilityService(newAppointmentRepoStub(), newBlockageRepoStub(), newCatalogStub(), scheduler.DefaultBusinessHours(),
			func() time.Time { return now }, WithLocation(brt), WithSlotCache(30*time.Second, 8), WithMetrics(metrics))

		first, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if !slices.Equal(first.Slots, []string{"18:00"}) {
			t.Fatalf("expected only 18:00, got %v", first.Slots)
		}

		now = now.Add(20 * time.Second)
		second, _ := svc.ComputeAvailableSlots(context.Background(), tuesday, 30)
		if len(second.Slots) != 0 || second.Reason != scheduler.ReasonFull {
			t.Fatalf("expected an empty full day, got %#v", second)
		}
		if metrics.cacheMisses != 2 {
			t.Fatalf("expected a recompute, misses=%d", metrics.cacheMisses)
		}
	})
}

func TestAvailabilityService_CheckSlot(t *testing.T) {
	t.Parallel()

	tuesday := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)
	appointments := newAppointmentRepoStub(
		Appointment{ID: "a1", Start: at(tuesday, 10, 0), End: at(tuesday, 11, 0), Status: StatusConfirmed},
		Appointment{ID: "a2", Start: at(tuesday, 15, 0), End: at(tuesday, 16, 0), Status: StatusCancelled},
	)
	blockages := newBlockageRepoStub(
		Blockage{ID: "b1", Start: ptrTime(at(tuesday, 14, 0)), End: ptrTime(at(tuesday, 15, 0)), Reason: "Curso"},
		Blockage{ID: "b2", Weekday: ptrWeekday(time.Wednesday), Reason: "Folga"},
	)
	svc := newAvailabilityForTest(appointments, blockages, at(monday, 8, 0), WithSlotCache(time.Minute, 8))

	tests := []struct {
		name  string
		start time.Time
		field string
		err   error
	}{
		{name: "free slot", start: at(tuesday, 11, 0)},
		{name: "cancelled appointment frees the slot", start: at(tuesday, 15, 0)},
		{name: "sunday is closed", start: at(tuesday.AddDate(0, 0, 5), 10, 0), field: "date"},
		{name: "past date is closed", start: at(monday.AddDate(0, 0, -1), 10, 0), field: "date"},
		{name: "weekday rule blocks the day", start: at(tuesday.AddDate(0, 0, 1), 10, 0), field: "time"},
		{name: "range blockage", start: at(tuesday, 13, 30), field: "time"},
		{name: "before opening", start: at(tuesday, 3, 0), field: "time"},
		{name: "lunch hour", start: at(tuesday, 12, 0), field: "time"},
		{name: "off the grid", start: at(tuesday, 10, 15), field: "time"},
		{name: "overlaps an appointment", start: at(tuesday, 10, 30), err: ErrSlotTaken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := svc.CheckSlot(context.Background(), tc.start, 60)
			switch {
			case tc.field != "":
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.FieldErrors[tc.field] == "" {
					t.Fatalf("expected %s validation error, got %v", tc.field, err)
				}
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
			default:
				if err != nil {
					t.Fatalf("expected slot to be bookable, got %v", err)
				}
			}
		})
	}

	t.Run("rejects an instant earlier today", func(t *testing.T) {
		t.Parallel()

		later := newAvailabilityForTest(newAppointmentRepoStub(), newBlockageRepoStub(), at(tuesday, 13, 10))
		err := later.CheckSlot(context.Background(), at(tuesday, 13, 0), 30)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["time"] == "" {
			t.Fatalf("expected past time to be rejected, got %v", err)
		}
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		t.Parallel()

		failing := newBlockageRepoStub()
		failing.listErr = errors.New("connection reset")
		broken := newAvailabilityForTest(newAppointmentRepoStub(), failing, monday)
		var storeErr *DataStoreError
		if err := broken.CheckSlot(context.Background(), at(tuesday, 11, 0), 30); !errors.As(err, &storeErr) {
			t.Fatalf("expected DataStoreError, got %v", err)
		}
	})
}

func TestAvailabilityService_ComputeAvailableSlotsForProcedure(t *testing.T) {
	t.Parallel()

	tuesday := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)
	svc := newAvailabilityForTest(newAppointmentRepoStub(), newBlockageRepoStub(), monday)

	t.Run("uses the procedure duration", func(t *testing.T) {
		t.Parallel()

		result, err := svc.ComputeAvailableSlotsForProcedure(context.Background(), tuesday, "cut")
		if err != nil {
			t.Fatalf("ComputeAvailableSlotsForProcedure failed: %v", err)
		}
		if result.DurationMinutes != 60 || len(result.Slots) == 0 {
			t.Fatalf("unexpected result: %#v", result)
		}
	})

	t.Run("rejects unknown procedures", func(t *testing.T) {
		t.Parallel()

		_, err := svc.ComputeAvailableSlotsForProcedure(context.Background(), tuesday, "missing")
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["procedure_id"] == "" {
			t.Fatalf("expected procedure validation error, got %v", err)
		}
	})
}

func TestAvailabilityService_MonthOverview(t *testing.T) {
	t.Parallel()

	friday := time.Date(2024, time.June, 14, 0, 0, 0, 0, brt)
	blockages := newBlockageRepoStub(
		Blockage{ID: "weekly", Weekday: ptrWeekday(time.Tuesday), Reason: "Curso"},
		Blockage{ID: "holiday", Start: ptrTime(friday), End: ptrTime(at(friday, 23, 59)), Reason: "Feriado"},
		Blockage{ID: "partial", Start: ptrTime(at(friday.AddDate(0, 0, 1), 14, 0)), End: ptrTime(at(friday.AddDate(0, 0, 1), 16, 0))},
	)
	svc := newAvailabilityForTest(newAppointmentRepoStub(), blockages, monday)

	overview, err := svc.MonthOverview(context.Background(), 2024, time.June)
	if err != nil {
		t.Fatalf("MonthOverview failed: %v", err)
	}
	if len(overview.Days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(overview.Days))
	}

	status := func(day int) MonthDay { return overview.Days[day-1] }
	cases := map[int]DayStatus{
		5:  DayClosed,  // past
		10: DayClosed,  // Monday
		11: DayBlocked, // weekly rule
		13: DayOpen,
		14: DayBlocked, // holiday
		15: DayOpen,    // partial blockage only
		16: DayClosed,  // Sunday
		18: DayBlocked,
	}
	for day, want := range cases {
		if got := status(day).Status; got != want {
			t.Fatalf("June %d: expected %s, got %s", day, want, got)
		}
	}
	if status(11).Reason != "Curso" || status(14).Reason != "Feriado" {
		t.Fatalf("unexpected reasons: %q %q", status(11).Reason, status(14).Reason)
	}

	if _, err := svc.MonthOverview(context.Background(), 2024, 13); err == nil {
		t.Fatalf("expected invalid month to fail")
	}
}
