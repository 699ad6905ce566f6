package application

import (
	"context"
	"testing"
	"time"
)

func TestStatsService_Summary(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, time.June, 1, 0, 0, 0, 0, brt)
	to := from.AddDate(0, 1, 0)
	day := from.AddDate(0, 0, 10)

	appointments := newAppointmentRepoStub(
		Appointment{ID: "1", ProcedureID: "cut", Start: at(day, 10, 0), End: at(day, 11, 0), Status: StatusConfirmed, PriceCents: 7500},
		Appointment{ID: "2", ProcedureID: "cut", Start: at(day, 13, 0), End: at(day, 14, 0), Status: StatusConfirmed},
		Appointment{ID: "3", ProcedureID: "nails", Start: at(day, 15, 0), End: at(day, 16, 0), Status: StatusConfirmed, PriceCents: 3500},
		Appointment{ID: "4", ProcedureID: "nails", Start: at(day, 16, 0), End: at(day, 17, 0), Status: StatusPending, PriceCents: 3500},
		Appointment{ID: "5", ProcedureID: "brush", Start: at(day, 17, 0), End: at(day, 18, 0), Status: StatusCancelled, PriceCents: 5000},
		Appointment{ID: "outside", ProcedureID: "cut", Start: at(to, 10, 0), End: at(to, 11, 0), Status: StatusConfirmed, PriceCents: 8000},
	)
	svc := NewStatsService(appointments, newCatalogStub(sampleProcedures()...), nil)

	summary, err := svc.Summary(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	// 7500 snapshot + 8000 catalog fallback + 3500
	if summary.ConfirmedEarningsCents != 19000 {
		t.Fatalf("unexpected earnings: %d", summary.ConfirmedEarningsCents)
	}
	if summary.CountsByStatus[StatusConfirmed] != 3 || summary.CountsByStatus[StatusPending] != 1 || summary.CountsByStatus[StatusCancelled] != 1 {
		t.Fatalf("unexpected status counts: %v", summary.CountsByStatus)
	}
	if len(summary.ByCategory) != 2 || summary.ByCategory[0] != (CategoryCount{Category: "Cabelo", Count: 2}) {
		t.Fatalf("unexpected categories: %#v", summary.ByCategory)
	}
	if len(summary.RevenueByService) != 2 {
		t.Fatalf("unexpected revenue rows: %#v", summary.RevenueByService)
	}
	top := summary.RevenueByService[0]
	if top.ProcedureID != "cut" || top.Name != "Corte" || top.Count != 2 || top.RevenueCents != 15500 {
		t.Fatalf("unexpected top service: %#v", top)
	}

	if _, err := svc.Summary(context.Background(), to, from); err == nil {
		t.Fatalf("expected inverted range to be rejected")
	}
}
