package recurrence

import (
	"errors"
	"sort"
	"time"
)

// Rule closes the listed weekdays every week. StartsOn and EndsOn optionally
// bound the rule; a zero StartsOn means it has always applied.
type Rule struct {
	ID       string
	Weekdays []time.Weekday
	StartsOn time.Time
	EndsOn   *time.Time
	Reason   string
}

// Window bounds occurrence generation to [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Occurrence is one closed calendar day produced by a rule.
type Occurrence struct {
	RuleID string
	Reason string
	Start  time.Time
	End    time.Time
}

// Engine expands weekday rules into whole-day occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates days in loc. A nil loc uses
// time.Local.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{location: loc}
}

// ErrInvalidWindow indicates the generation window is empty or inverted.
var ErrInvalidWindow = errors.New("recurrence: window end must be after start")

// ErrNoWeekdays indicates a rule that selects no day.
var ErrNoWeekdays = errors.New("recurrence: rule selects no weekday")

// Expand returns the days in window on which rule applies, in order.
//
// Each occurrence spans local midnight to the next midnight, so DST shifts
// yield 23 or 25 hour days rather than drifting.
func (e *Engine) Expand(rule Rule, window Window) ([]Occurrence, error) {
	loc := e.loc()
	if !window.End.After(window.Start) {
		return nil, ErrInvalidWindow
	}
	if len(rule.Weekdays) == 0 {
		return nil, ErrNoWeekdays
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	lower := startOfDay(window.Start, loc)
	if !rule.StartsOn.IsZero() {
		if ruleStart := startOfDay(rule.StartsOn, loc); ruleStart.After(lower) {
			lower = ruleStart
		}
	}
	upper := window.End.In(loc)
	if rule.EndsOn != nil {
		// EndsOn is inclusive of its whole day.
		if ruleEnd := startOfDay(*rule.EndsOn, loc).AddDate(0, 0, 1); ruleEnd.Before(upper) {
			upper = ruleEnd
		}
	}

	var occurrences []Occurrence
	for day := lower; day.Before(upper); day = day.AddDate(0, 0, 1) {
		if _, ok := weekdaySet[day.Weekday()]; !ok {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			RuleID: rule.ID,
			Reason: rule.Reason,
			Start:  day,
			End:    day.AddDate(0, 0, 1),
		})
	}
	return occurrences, nil
}

// ExpandAll expands every rule over window and merges the results ordered by
// start, then rule ID. Rules selecting no weekday are skipped.
func (e *Engine) ExpandAll(rules []Rule, window Window) ([]Occurrence, error) {
	var all []Occurrence
	for _, rule := range rules {
		occ, err := e.Expand(rule, window)
		if errors.Is(err, ErrNoWeekdays) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, occ...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].RuleID < all[j].RuleID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

func (e *Engine) loc() *time.Location {
	if e == nil || e.location == nil {
		return time.Local
	}
	return e.location
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
