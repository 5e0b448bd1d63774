// Package period computes half-open reporting windows for the standard
// reporting periods used across the P&L pipeline.
package period

import (
	"strings"
	"time"
)

// Period identifies a reporting period tag accepted on the wire.
type Period string

// Reporting period tags.
const (
	Daily      Period = "daily"
	Weekly     Period = "weekly"
	Monthly    Period = "monthly"
	Quarterly  Period = "quarterly"
	HalfYearly Period = "half_yearly"
	Yearly     Period = "yearly"
	Q1         Period = "q1"
	Q2         Period = "q2"
	Q3         Period = "q3"
	Q4         Period = "q4"
)

// Standard enumerates the six rolling periods used by the cost aggregator.
var Standard = []Period{Daily, Weekly, Monthly, Quarterly, HalfYearly, Yearly}

// Parse normalises a wire tag. Unknown tags fall back to Yearly, matching
// the financial-year default of Boundaries.
func Parse(raw string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case Daily, Weekly, Monthly, Quarterly, HalfYearly, Yearly, Q1, Q2, Q3, Q4:
		return p
	default:
		return Yearly
	}
}

// Window is a half-open interval: Start inclusive, End exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the window length as a possibly fractional day count.
func (w Window) Days() float64 {
	return w.End.Sub(w.Start).Hours() / 24
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Boundaries maps a period tag and a reference instant onto its window.
//
// Weeks start on Monday; a Sunday reference belongs to the week opened six
// days earlier. The quarterly and half_yearly tags partition the calendar
// year relative to now, whereas q1..q4 are fixed calendar quarters. Yearly
// (and any unknown tag) is the financial year running Apr 1 to Mar 31.
func Boundaries(p Period, now time.Time) Window {
	switch p {
	case Daily:
		start := midnight(now)
		return Window{Start: start, End: start.AddDate(0, 0, 1)}
	case Weekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := midnight(now).AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case Monthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	case Quarterly:
		quarter := (int(now.Month()) - 1) / 3
		start := time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(0, 3, 0)}
	case HalfYearly:
		half := (int(now.Month()) - 1) / 6
		start := time.Date(now.Year(), time.Month(half*6+1), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: start, End: start.AddDate(0, 6, 0)}
	case Q1, Q2, Q3, Q4:
		return calendarQuarter(p, now)
	default:
		return financialYear(now)
	}
}

// Resolve prefers explicit custom bounds over the computed window. Custom
// bounds are returned verbatim; ordering is the caller's responsibility.
func Resolve(p Period, now time.Time, custom *Window) Window {
	if custom != nil {
		return *custom
	}
	return Boundaries(p, now)
}

// calendarQuarter returns the fixed calendar quarter of now's year. These
// never follow the financial-year offset used by Yearly.
func calendarQuarter(p Period, now time.Time) Window {
	var startMonth time.Month
	switch p {
	case Q1:
		startMonth = time.January
	case Q2:
		startMonth = time.April
	case Q3:
		startMonth = time.July
	default:
		startMonth = time.October
	}
	start := time.Date(now.Year(), startMonth, 1, 0, 0, 0, 0, now.Location())
	return Window{Start: start, End: start.AddDate(0, 3, 0)}
}

// financialYear runs Apr 1 through Mar 31.
func financialYear(now time.Time) Window {
	year := now.Year()
	if now.Month() < time.April {
		year--
	}
	start := time.Date(year, time.April, 1, 0, 0, 0, 0, now.Location())
	return Window{Start: start, End: start.AddDate(1, 0, 0)}
}
