package scheduler

import (
	"sort"
	"time"
)

// LayoutEntry is one appointment placed on the day timeline.
type LayoutEntry struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Placement is the lane an entry occupies and how many lanes share its window.
type Placement struct {
	Column       int
	TotalColumns int
}

// LayoutDay assigns overlapping entries to side-by-side columns using greedy
// interval colouring. Entries are swept by start time, ties broken by end and
// then ID, so the same input always yields the same layout.
func LayoutDay(entries []LayoutEntry) map[string]Placement {
	if len(entries) == 0 {
		return map[string]Placement{}
	}

	sorted := make([]LayoutEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		return a.ID < b.ID
	})

	// columnEnds[i] is the end of the last entry placed in column i.
	columnEnds := make([]time.Time, 0, 4)
	columns := make([]int, len(sorted))

	for i, entry := range sorted {
		placed := -1
		for col, lastEnd := range columnEnds {
			if !lastEnd.After(entry.Start) {
				placed = col
				break
			}
		}
		if placed < 0 {
			placed = len(columnEnds)
			columnEnds = append(columnEnds, entry.End)
		} else {
			columnEnds[placed] = entry.End
		}
		columns[i] = placed
	}

	out := make(map[string]Placement, len(sorted))
	for i, entry := range sorted {
		maxCol := columns[i]
		for j, other := range sorted {
			if i == j {
				continue
			}
			if Overlaps(entry.Start, entry.End, other.Start, other.End) && columns[j] > maxCol {
				maxCol = columns[j]
			}
		}
		out[entry.ID] = Placement{Column: columns[i], TotalColumns: maxCol + 1}
	}
	return out
}
