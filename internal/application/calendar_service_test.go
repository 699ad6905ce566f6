package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/salon-scheduler/internal/scheduler"
)

func TestCalendarService_LayoutDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)
	appointments := []Appointment{
		{ID: "a", Start: at(day, 10, 0), End: at(day, 11, 0)},
		{ID: "b", Start: at(day, 10, 30), End: at(day, 11, 30)},
		{ID: "c", Start: at(day, 11, 0), End: at(day, 12, 0)},
		{ID: "d", Start: at(day, 14, 0), End: at(day, 15, 0)},
	}

	svc := NewCalendarService(nil, nil, nil)
	got := svc.LayoutDay(appointments)

	want := map[string]scheduler.Placement{
		"a": {Column: 0, TotalColumns: 2},
		"b": {Column: 1, TotalColumns: 2},
		"c": {Column: 0, TotalColumns: 2},
		"d": {Column: 0, TotalColumns: 1},
	}
	for id, placement := range want {
		if got[id] != placement {
			t.Fatalf("%s: expected %#v, got %#v", id, placement, got[id])
		}
	}
}

func TestCalendarService_DayAgenda(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)
	appointments := newAppointmentRepoStub(
		Appointment{ID: "a", ProcedureID: "cut", Start: at(day, 10, 0), End: at(day, 11, 0), Status: StatusConfirmed},
		Appointment{ID: "b", ProcedureID: "nails", Start: at(day, 10, 30), End: at(day, 11, 15), Status: StatusManualFit},
		Appointment{ID: "p", ProcedureID: "cut", Start: at(day, 13, 0), End: at(day, 14, 0), Status: StatusPending},
		Appointment{ID: "x", ProcedureID: "cut", Start: at(day, 15, 0), End: at(day, 16, 0), Status: StatusCancelled},
		Appointment{ID: "tomorrow", ProcedureID: "cut", Start: at(day.AddDate(0, 0, 1), 10, 0), End: at(day.AddDate(0, 0, 1), 11, 0), Status: StatusConfirmed},
	)
	blockages := newBlockageRepoStub(
		Blockage{ID: "lunch-meeting", Start: ptrTime(at(day, 16, 0)), End: ptrTime(at(day, 17, 0)), Reason: "Reunião"},
		Blockage{ID: "mondays", Weekday: ptrWeekday(time.Monday)},
	)
	svc := NewCalendarService(appointments, blockages, newCatalogStub(sampleProcedures()...), WithLocation(brt))

	agenda, err := svc.DayAgenda(context.Background(), day.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("DayAgenda failed: %v", err)
	}
	if !agenda.Date.Equal(day) {
		t.Fatalf("expected agenda for %v, got %v", day, agenda.Date)
	}
	if len(agenda.Entries) != 2 {
		t.Fatalf("expected confirmed and manual fit entries, got %#v", agenda.Entries)
	}
	first, second := agenda.Entries[0], agenda.Entries[1]
	if first.Appointment.ID != "a" || first.ProcedureName != "Corte" || first.Placement.TotalColumns != 2 {
		t.Fatalf("unexpected first entry: %#v", first)
	}
	if second.ProcedureName != "Manicure" || second.Placement.Column != 1 {
		t.Fatalf("unexpected second entry: %#v", second)
	}
	if len(agenda.Blockages) != 1 || agenda.Blockages[0].ID != "lunch-meeting" {
		t.Fatalf("unexpected blockages: %#v", agenda.Blockages)
	}
	if len(agenda.Blocked) != 1 || !agenda.Blocked[0].Start.Equal(at(day, 16, 0)) || !agenda.Blocked[0].End.Equal(at(day, 17, 0)) {
		t.Fatalf("unexpected blocked stretches: %#v", agenda.Blocked)
	}
}

func TestCalendarService_DayAgendaBlockedStretches(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.June, 11, 0, 0, 0, 0, brt)

	t.Run("clips ranges that spill into the next day", func(t *testing.T) {
		t.Parallel()

		blockages := newBlockageRepoStub(
			Blockage{ID: "trip", Start: ptrTime(at(day, 17, 0)), End: ptrTime(at(day.AddDate(0, 0, 2), 12, 0)), Reason: "Viagem"},
		)
		svc := NewCalendarService(newAppointmentRepoStub(), blockages, nil, WithLocation(brt))

		agenda, err := svc.DayAgenda(context.Background(), day)
		if err != nil {
			t.Fatalf("DayAgenda failed: %v", err)
		}
		if len(agenda.Blocked) != 1 || !agenda.Blocked[0].Start.Equal(at(day, 17, 0)) || !agenda.Blocked[0].End.Equal(day.AddDate(0, 0, 1)) {
			t.Fatalf("expected 17:00 until midnight, got %#v", agenda.Blocked)
		}
	})

	t.Run("weekday rules close the whole day", func(t *testing.T) {
		t.Parallel()

		blockages := newBlockageRepoStub(Blockage{ID: "tuesdays", Weekday: ptrWeekday(time.Tuesday), Reason: "Folga"})
		svc := NewCalendarService(newAppointmentRepoStub(), blockages, nil, WithLocation(brt))

		agenda, err := svc.DayAgenda(context.Background(), day)
		if err != nil {
			t.Fatalf("DayAgenda failed: %v", err)
		}
		if len(agenda.Blocked) != 1 || !agenda.Blocked[0].Start.Equal(day) || !agenda.Blocked[0].End.Equal(day.AddDate(0, 0, 1)) {
			t.Fatalf("expected the whole day, got %#v", agenda.Blocked)
		}
	})
}

func TestCalendarService_DayAgendaStoreFailure(t *testing.T) {
	t.Parallel()

	appointments := newAppointmentRepoStub()
	appointments.listErr = errors.New("timeout")
	svc := NewCalendarService(appointments, newBlockageRepoStub(), nil)

	_, err := svc.DayAgenda(context.Background(), monday)
	if ErrorKind(err) != "data_store" {
		t.Fatalf("expected data_store error, got %v", err)
	}
}
