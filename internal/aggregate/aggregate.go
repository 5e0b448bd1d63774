// Package aggregate buckets raw module records into the six standard
// rolling reporting periods.
package aggregate

import (
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

// Buckets holds one summed amount per rolling period, all computed against
// the same reference instant.
type Buckets struct {
	Daily      float64 `json:"daily"`
	Weekly     float64 `json:"weekly"`
	Monthly    float64 `json:"monthly"`
	Quarterly  float64 `json:"quarterly"`
	HalfYearly float64 `json:"halfYearly"`
	Yearly     float64 `json:"yearly"`
}

// PeriodCosts sums record amounts into every standard period relative to
// now. Records with a missing or unparseable date are skipped; malformed
// amounts contribute 0. Pure function, no I/O.
func PeriodCosts(records []Record, dateField, amountField string, now time.Time) Buckets {
	windows := make(map[period.Period]period.Window, len(period.Standard))
	for _, p := range period.Standard {
		windows[p] = period.Boundaries(p, now)
	}

	var b Buckets
	for _, rec := range records {
		when, ok := rec.Date(dateField)
		if !ok {
			continue
		}
		amount := rec.Number(amountField)
		if windows[period.Daily].Contains(when) {
			b.Daily += amount
		}
		if windows[period.Weekly].Contains(when) {
			b.Weekly += amount
		}
		if windows[period.Monthly].Contains(when) {
			b.Monthly += amount
		}
		if windows[period.Quarterly].Contains(when) {
			b.Quarterly += amount
		}
		if windows[period.HalfYearly].Contains(when) {
			b.HalfYearly += amount
		}
		if windows[period.Yearly].Contains(when) {
			b.Yearly += amount
		}
	}
	return b
}
