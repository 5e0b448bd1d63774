package amortize

import (
	"math"
	"testing"
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/period"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func window(start, end time.Time) period.Window {
	return period.Window{Start: start, End: end}
}

func TestPortionZeroWithoutOverlap(t *testing.T) {
	// Span: 2024-01-01 + 60 days.
	anchor := day(2024, time.January, 1)
	w := window(day(2024, time.June, 1), day(2024, time.July, 1))
	if got := Portion(600, 2, anchor, w); got != 0 {
		t.Fatalf("disjoint window must contribute 0, got %.2f", got)
	}
	if got := Portion(600, 0, anchor, window(day(2024, time.January, 1), day(2024, time.February, 1))); got != 0 {
		t.Fatalf("non-positive term must contribute 0, got %.2f", got)
	}
}

func TestPortionFullContainment(t *testing.T) {
	anchor := day(2024, time.January, 1)
	w := window(day(2023, time.December, 1), day(2025, time.January, 1))
	got := Portion(1200, 12, anchor, w)
	if math.Abs(got-1200) > 1e-9 {
		t.Fatalf("window containing the whole span must yield the full cost, got %.4f", got)
	}
}

func TestPortionProRatesByDayOverlap(t *testing.T) {
	// 1200 over 12 months (360 days) from Jan 1.
	anchor := day(2024, time.January, 1)

	// A 30-day slice of the span is exactly one amortized month.
	w := window(day(2024, time.January, 1), day(2024, time.January, 31))
	if got := Portion(1200, 12, anchor, w); math.Abs(got-100) > 1e-9 {
		t.Fatalf("30-day overlap: got %.4f, want 100", got)
	}

	// The full calendar January is 31 days of the 360-day span.
	w = window(day(2024, time.January, 1), day(2024, time.February, 1))
	want := 1200 * 31.0 / 360.0
	if got := Portion(1200, 12, anchor, w); math.Abs(got-want) > 1e-9 {
		t.Fatalf("january overlap: got %.4f, want %.4f", got, want)
	}
}

func TestPortionFractionalDays(t *testing.T) {
	anchor := day(2024, time.January, 1)
	w := window(day(2024, time.January, 1), day(2024, time.January, 1).Add(12*time.Hour))
	want := 300 * 0.5 / 30.0
	if got := Portion(300, 1, anchor, w); math.Abs(got-want) > 1e-9 {
		t.Fatalf("half-day overlap: got %.6f, want %.6f", got, want)
	}
}

func TestPortionAnchorAfterWindowStart(t *testing.T) {
	anchor := day(2024, time.January, 15)
	w := window(day(2024, time.January, 1), day(2024, time.February, 1))
	// Overlap is Jan 15 .. Feb 1 = 17 days of a 30-day span.
	want := 900 * 17.0 / 30.0
	if got := Portion(900, 1, anchor, w); math.Abs(got-want) > 1e-9 {
		t.Fatalf("partial overlap: got %.4f, want %.4f", got, want)
	}
}

func TestEventPortion(t *testing.T) {
	w := window(day(2024, time.June, 1), day(2024, time.July, 1))
	if got := EventPortion(500, day(2024, time.June, 15), w); got != 500 {
		t.Fatalf("anchor inside window must yield the full cost, got %.2f", got)
	}
	if got := EventPortion(500, day(2024, time.July, 1), w); got != 0 {
		t.Fatalf("anchor on the exclusive end must yield 0, got %.2f", got)
	}
	if got := EventPortion(500, day(2024, time.May, 31), w); got != 0 {
		t.Fatalf("anchor before window must yield 0, got %.2f", got)
	}
}
