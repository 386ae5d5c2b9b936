/*
interval.go - Interval resolver

PURPOSE:
  Translates (interval, startDate?, endDate?) into a validated [start, end]
  window. Pure functions over an injected "now"; no shared mutable instant
  is ever touched, so weekly/daily boundaries cannot drift mid-computation.

MODES:
  daily    today 00:00:00.000 - 23:59:59.999, supplied dates ignored
  weekly   Sunday 00:00:00.000 - Saturday 23:59:59.999 of the current week
  monthly  explicit dates verbatim, else the current calendar month
  yearly   explicit dates verbatim, else the current calendar year
  all      unbounded (no upper filter)
  interval explicit custom range, both dates required

EDGE POLICY:
  Partially-valid explicit input is never partially honored: on monthly and
  yearly, a date that is supplied but unparsable fails, and supplying only
  one of the two dates fails as well. Window comparison is inclusive on
  both ends.
*/
package ledger

import "time"

// Interval names a recognized query window mode.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
	IntervalAll     Interval = "all"
	IntervalCustom  Interval = "interval"
)

// Window is a resolved [Start, End] timestamp pair. OpenEnded marks an
// unbounded upper end (the "all" mode), in which case End is ignored.
type Window struct {
	Start     time.Time
	End       time.Time
	OpenEnded bool
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.OpenEnded || !t.After(w.End)
}

// Accepted layouts for explicit dates.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses an explicit window bound as RFC3339 or YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ResolveWindow turns a named interval plus optional explicit bounds into a
// concrete window, evaluated against now's calendar and location.
func ResolveWindow(interval Interval, startDate, endDate string, now time.Time) (Window, error) {
	switch interval {
	case IntervalDaily:
		return Window{Start: startOfDay(now), End: endOfDay(now)}, nil

	case IntervalWeekly:
		sunday := startOfDay(now.AddDate(0, 0, -int(now.Weekday())))
		saturday := sunday.AddDate(0, 0, 6)
		return Window{Start: sunday, End: endOfDay(saturday)}, nil

	case IntervalMonthly:
		return resolveDefaulted(startDate, endDate, monthWindow(now))

	case IntervalYearly:
		return resolveDefaulted(startDate, endDate, yearWindow(now))

	case IntervalAll:
		return Window{OpenEnded: true}, nil

	case IntervalCustom:
		if startDate == "" {
			return Window{}, &ValidationError{Field: "startDate", Reason: "required for interval queries"}
		}
		if endDate == "" {
			return Window{}, &ValidationError{Field: "endDate", Reason: "required for interval queries"}
		}
		return parseExplicit(startDate, endDate)

	default:
		return Window{}, &ValidationError{Field: "interval", Reason: "invalid interval"}
	}
}

// resolveDefaulted implements the monthly/yearly rule: no explicit dates at
// all means the default window; anything explicit must be complete and valid.
func resolveDefaulted(startDate, endDate string, fallback Window) (Window, error) {
	if startDate == "" && endDate == "" {
		return fallback, nil
	}
	if startDate == "" {
		return Window{}, &ValidationError{Field: "startDate", Reason: "missing while endDate is set"}
	}
	if endDate == "" {
		return Window{}, &ValidationError{Field: "endDate", Reason: "missing while startDate is set"}
	}
	return parseExplicit(startDate, endDate)
}

func parseExplicit(startDate, endDate string) (Window, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return Window{}, &ValidationError{Field: "startDate", Reason: "unparsable timestamp"}
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return Window{}, &ValidationError{Field: "endDate", Reason: "unparsable timestamp"}
	}
	return Window{Start: start, End: end}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func monthWindow(now time.Time) Window {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return Window{Start: first, End: endOfDay(last)}
}

func yearWindow(now time.Time) Window {
	jan1 := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	dec31 := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())
	return Window{Start: jan1, End: endOfDay(dec31)}
}
