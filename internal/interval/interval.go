// Package interval validates that time periods attached to a delegation do
// not intersect.
//
// Periods are half-open [Start, End). A nil End means the period never stops
// and is reported as MaxInstant. A period whose End is not after its Start is
// cancelled: it stays in the ledger as history but takes no part in overlap
// checks.
package interval

import (
	"sort"
	"time"

	dErrors "marketparticipant/pkg/domain-errors"
)

// MaxInstant stands in for "never stops" wherever an open end must be
// rendered as a concrete instant.
var MaxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// Period is one validity window.
type Period struct {
	Start time.Time
	End   *time.Time
}

// Open builds a period without an end.
func Open(start time.Time) Period {
	return Period{Start: start}
}

// Closed builds a period that stops at end.
func Closed(start, end time.Time) Period {
	return Period{Start: start, End: &end}
}

// EffectiveEnd returns End, or MaxInstant when the period is open ended.
func (p Period) EffectiveEnd() time.Time {
	if p.End == nil {
		return MaxInstant
	}
	return *p.End
}

// IsOpen reports whether the period has no end.
func (p Period) IsOpen() bool {
	return p.End == nil
}

// IsCancelled reports whether the period ends at or before its start.
func (p Period) IsCancelled() bool {
	return p.End != nil && !p.End.After(p.Start)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.EffectiveEnd())
}

// Overlaps reports whether two non-cancelled periods intersect.
// Back-to-back periods do not overlap.
func Overlaps(a, b Period) bool {
	if a.IsCancelled() || b.IsCancelled() {
		return false
	}
	return a.Start.Before(b.EffectiveEnd()) && b.Start.Before(a.EffectiveEnd())
}

// ValidateNoOverlap rejects the set when any two live periods intersect.
// The returned error is a validation error keyed "<prefix>.overlap".
func ValidateNoOverlap(prefix string, periods []Period) error {
	live := make([]Period, 0, len(periods))
	for _, p := range periods {
		if !p.IsCancelled() {
			live = append(live, p)
		}
	}
	if len(live) < 2 {
		return nil
	}

	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Start.Before(live[j].Start)
	})

	prevEnd := live[0].EffectiveEnd()
	for _, p := range live[1:] {
		if p.Start.Before(prevEnd) {
			return dErrors.Validation(prefix+".overlap", "delegation periods overlap")
		}
		prevEnd = p.EffectiveEnd()
	}
	return nil
}
