package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	monthLayout     = "2006-01"
	clockLayout     = "15:04"
	localTimeLayout = "2006-01-02T15:04"
)

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// parseDate reads a YYYY-MM-DD value as midnight in loc.
func parseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// parseInstant accepts RFC 3339 timestamps or a zone-less
// YYYY-MM-DDTHH:mm read in loc.
func parseInstant(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, true
	}
	if ts, err := time.ParseInLocation(localTimeLayout, value, loc); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

// parseDateRange reads inclusive from/to dates and returns [from, to+1d).
// Missing bounds default to the current month.
func parseDateRange(r *http.Request, loc *time.Location, now time.Time) (time.Time, time.Time, bool) {
	query := r.URL.Query()
	now = now.In(loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)

	if raw := query.Get("from"); raw != "" {
		day, ok := parseDate(raw, loc)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		from = day
	}
	if raw := query.Get("to"); raw != "" {
		day, ok := parseDate(raw, loc)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		to = day.AddDate(0, 0, 1)
	}
	return from, to, true
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
