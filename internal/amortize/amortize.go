// Package amortize pro-rates one-off costs across reporting windows using
// straight-line allocation at day granularity.
package amortize

import (
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

// daysPerMonth is the fixed month length used to convert an amortization
// term into a day span. Kept as a flat 30 days for parity with the figures
// downstream consumers already reconcile against.
const daysPerMonth = 30.0

// Portion returns the share of totalCost whose amortization span overlaps
// the window. The span runs months*30 days from anchor; the result is
// totalCost scaled by the fractional day overlap. No overlap, or a
// non-positive term, contributes nothing.
func Portion(totalCost, months float64, anchor time.Time, w period.Window) float64 {
	if months <= 0 {
		return 0
	}
	spanDays := months * daysPerMonth
	spanEnd := anchor.Add(time.Duration(spanDays * 24 * float64(time.Hour)))

	start := anchor
	if w.Start.After(start) {
		start = w.Start
	}
	end := spanEnd
	if w.End.Before(end) {
		end = w.End
	}
	overlapDays := end.Sub(start).Hours() / 24
	if overlapDays <= 0 {
		return 0
	}
	if overlapDays > spanDays {
		overlapDays = spanDays
	}
	return totalCost * overlapDays / spanDays
}

// EventPortion attributes the full cost to the window containing the anchor
// date, and nothing otherwise. This is the non-amortized variant used for
// one-time fees keyed to an event date.
func EventPortion(totalCost float64, anchor time.Time, w period.Window) float64 {
	if w.Contains(anchor) {
		return totalCost
	}
	return 0
}
