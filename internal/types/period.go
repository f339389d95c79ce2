package types

import "time"

// BillingPeriod is a half-open interval [Start, End) in UTC.
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthlyPeriodFor returns the calendar-month period containing t, in UTC.
func MonthlyPeriodFor(t time.Time) BillingPeriod {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return BillingPeriod{Start: start, End: start.AddDate(0, 1, 0)}
}

// PreviousMonthlyPeriod returns the just-ended calendar-month period relative
// to now. This is the period the monthly payout run settles.
func PreviousMonthlyPeriod(now time.Time) BillingPeriod {
	current := MonthlyPeriodFor(now)
	return BillingPeriod{Start: current.Start.AddDate(0, -1, 0), End: current.Start}
}

// Contains reports whether t falls inside the half-open period.
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlaps reports whether two half-open periods intersect.
func (p BillingPeriod) Overlaps(other BillingPeriod) bool {
	return p.Start.Before(other.End) && other.Start.Before(p.End)
}

// DaysUntil returns the whole number of days from now until t, clamped at
// zero when t is in the past.
func DaysUntil(now, t time.Time) int {
	if !t.After(now) {
		return 0
	}
	return int(t.Sub(now).Hours() / 24)
}
