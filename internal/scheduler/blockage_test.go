package scheduler

import (
	"testing"
	"time"
)

func weekdayPtr(d time.Weekday) *time.Weekday {
	return &d
}

func TestIsDayFullyBlocked(t *testing.T) {
	t.Parallel()

	hours := DefaultBusinessHours()
	monday := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	tests := []struct {
		name      string
		date      time.Time
		blockages []Blockage
		want      bool
	}{
		{
			name: "ranged blockage spanning the whole day",
			date: monday,
			blockages: []Blockage{{
				ID:    "vacation",
				Range: Interval{Start: At(monday, 0, 0), End: At(monday, 23, 59)},
			}},
			want: true,
		},
		{
			name: "ranged blockage covering exactly the work window",
			date: monday,
			blockages: []Blockage{{
				Range: Interval{Start: At(monday, hours.OpenHour, 0), End: At(monday, hours.LastStartHour, 0)},
			}},
			want: true,
		},
		{
			name: "ranged blockage ending before the last start",
			date: monday,
			blockages: []Blockage{{
				Range: Interval{Start: At(monday, 0, 0), End: At(monday, 17, 59)},
			}},
			want: false,
		},
		{
			name:      "weekday rule matching the date",
			date:      tuesday,
			blockages: []Blockage{{ID: "tuesdays", Weekday: weekdayPtr(time.Tuesday)}},
			want:      true,
		},
		{
			name:      "weekday rule for another day",
			date:      monday,
			blockages: []Blockage{{ID: "tuesdays", Weekday: weekdayPtr(time.Tuesday)}},
			want:      false,
		},
		{
			name: "multi-day ranged blockage",
			date: tuesday,
			blockages: []Blockage{{
				Range: Interval{Start: At(monday, 12, 0), End: At(tuesday.AddDate(0, 0, 2), 9, 0)},
			}},
			want: true,
		},
		{
			name: "no blockages",
			date: tuesday,
			want: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsDayFullyBlocked(tc.date, hours, tc.blockages); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsIntervalBlocked(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC)
	blockages := []Blockage{
		{ID: "dentist", Range: Interval{Start: At(day, 14, 0), End: At(day, 15, 0)}},
		{ID: "tuesdays", Weekday: weekdayPtr(time.Tuesday)},
	}

	if !IsIntervalBlocked(At(day, 13, 30), At(day, 14, 30), blockages) {
		t.Fatalf("expected overlap with ranged blockage")
	}
	if IsIntervalBlocked(At(day, 13, 0), At(day, 14, 0), blockages) {
		t.Fatalf("touching a blockage must not block")
	}
	if IsIntervalBlocked(At(day, 10, 0), At(day, 11, 0), blockages) {
		t.Fatalf("weekday rules must not be evaluated for partial intervals")
	}
}

func TestBlockedIntervals(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC)
	spill := Blockage{Range: Interval{Start: At(day, 20, 0), End: At(day.AddDate(0, 0, 1), 9, 0)}}

	got := BlockedIntervals(day, []Blockage{spill})
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(got))
	}
	if !got[0].End.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected interval clipped to midnight, got %v", got[0].End)
	}

	whole := BlockedIntervals(day, []Blockage{spill, {Weekday: weekdayPtr(time.Tuesday)}})
	if len(whole) != 1 || whole[0] != DayInterval(day) {
		t.Fatalf("expected weekday rule to yield the whole day, got %+v", whole)
	}
}
