package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// StatsService aggregates dashboard figures.
type StatsService struct {
	appointments AppointmentReader
	catalog      ProcedureCatalog
	logger       *slog.Logger
}

// NewStatsService wires dependencies for dashboard statistics.
func NewStatsService(appointments AppointmentReader, catalog ProcedureCatalog, logger *slog.Logger) *StatsService {
	return &StatsService{
		appointments: appointments,
		catalog:      catalog,
		logger:       defaultLogger(logger),
	}
}

// Summary aggregates appointments starting in [from, to). Earnings, category
// counts and per service revenue only include confirmed appointments;
// CountsByStatus covers every status.
func (s *StatsService) Summary(ctx context.Context, from, to time.Time) (StatsSummary, error) {
	if s == nil {
		return StatsSummary{}, fmt.Errorf("StatsService is nil")
	}
	if s.appointments == nil || s.catalog == nil {
		return StatsSummary{}, fmt.Errorf("stats repositories not configured")
	}
	if !to.After(from) {
		return StatsSummary{}, newValidationError("to", "fim deve ser posterior ao início")
	}

	logger := serviceLogger(ctx, s.logger, "StatsService", "Summary", "from", from, "to", to)

	appointments, err := s.appointments.ListAppointments(ctx, AppointmentQuery{StartsFrom: &from, StartsBefore: &to})
	if err != nil {
		err = mapStoreError("list appointments", err)
		logger.ErrorContext(ctx, "failed to list appointments", "error", err, "error_kind", ErrorKind(err))
		return StatsSummary{}, err
	}
	procedures, err := s.catalog.ListProcedures(ctx, "")
	if err != nil {
		err = mapStoreError("list procedures", err)
		logger.ErrorContext(ctx, "failed to list procedures", "error", err, "error_kind", ErrorKind(err))
		return StatsSummary{}, err
	}
	catalog := make(map[string]Procedure, len(procedures))
	for _, p := range procedures {
		catalog[p.ID] = p
	}

	summary := StatsSummary{From: from, To: to, CountsByStatus: make(map[AppointmentStatus]int)}
	byCategory := make(map[string]int)
	byService := make(map[string]*ServiceRevenue)
	for _, appt := range appointments {
		summary.CountsByStatus[appt.Status]++
		if appt.Status != StatusConfirmed {
			continue
		}

		procedure, known := catalog[appt.ProcedureID]
		price := appt.PriceCents
		if price <= 0 && known {
			price = procedure.PriceCents
		}
		summary.ConfirmedEarningsCents += price

		category, name := "", appt.ProcedureID
		if known {
			category, name = procedure.Category, procedure.Name
		}
		byCategory[category]++

		rev, ok := byService[appt.ProcedureID]
		if !ok {
			rev = &ServiceRevenue{ProcedureID: appt.ProcedureID, Name: name}
			byService[appt.ProcedureID] = rev
		}
		rev.Count++
		rev.RevenueCents += price
	}

	for category, count := range byCategory {
		summary.ByCategory = append(summary.ByCategory, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		if summary.ByCategory[i].Count == summary.ByCategory[j].Count {
			return summary.ByCategory[i].Category < summary.ByCategory[j].Category
		}
		return summary.ByCategory[i].Count > summary.ByCategory[j].Count
	})

	for _, rev := range byService {
		summary.RevenueByService = append(summary.RevenueByService, *rev)
	}
	sort.Slice(summary.RevenueByService, func(i, j int) bool {
		a, b := summary.RevenueByService[i], summary.RevenueByService[j]
		if a.RevenueCents == b.RevenueCents {
			return a.ProcedureID < b.ProcedureID
		}
		return a.RevenueCents > b.RevenueCents
	})

	logger.DebugContext(ctx, "summary computed", "appointments", len(appointments))
	return summary, nil
}
