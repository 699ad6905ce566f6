package scheduler

import (
	"sort"
	"time"
)

// Booking is an appointment as seen by collision detection.
type Booking struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Conflict names an existing booking that overlaps a candidate.
type Conflict struct {
	WithBookingID string
	Start         time.Time
	End           time.Time
}

// DetectConflicts returns every existing booking overlapping candidate,
// ordered by start time. The candidate's own ID is ignored so reschedules can
// be checked against the day they already belong to.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	if !candidate.End.After(candidate.Start) {
		return nil
	}

	var conflicts []Conflict
	for _, b := range existing {
		if candidate.ID != "" && b.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, b.Start, b.End) {
			conflicts = append(conflicts, Conflict{WithBookingID: b.ID, Start: b.Start, End: b.End})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].WithBookingID < conflicts[j].WithBookingID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}
