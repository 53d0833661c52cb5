package finance

import "time"

// =============================================================================
// CALENDAR PERIODS - Due-date arithmetic and the lazy rollover check
// =============================================================================

// NextPeriod advances a due date by one calendar month. time.AddDate
// normalizes overflow (Jan 31 + 1 month = Mar 2/3), which matches how the
// due dates behave for month-end debts and subscriptions.
func NextPeriod(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}

// SameMonth reports whether two instants fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// NeedsPeriodReset reports whether a subscription's PaidThisPeriod flag is
// stale: the flag is set but the current calendar period differs from the
// period of the last payment. This is the passive check executed on data
// load; there is no timer.
func (s *Subscription) NeedsPeriodReset(now time.Time) bool {
	if !s.PaidThisPeriod {
		return false
	}
	return s.LastPaymentYear != now.Year() || s.LastPaymentMonth != now.Month()
}

// Period is an inclusive [From, To] date range used by the derived-view
// filters.
type Period struct {
	From time.Time
	To   time.Time
}

func MonthOf(t time.Time) Period {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{From: from, To: from.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && !t.After(p.To)
}
