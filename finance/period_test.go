package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextPeriod(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 10), NextPeriod(date(2024, time.January, 10)))
	assert.Equal(t, date(2025, time.January, 15), NextPeriod(date(2024, time.December, 15)))
	// Month-end overflow normalizes forward, matching time.AddDate.
	assert.Equal(t, date(2024, time.March, 2), NextPeriod(date(2024, time.January, 31)))
}

func TestSameMonth(t *testing.T) {
	assert.True(t, SameMonth(date(2024, time.March, 1), date(2024, time.March, 31)))
	assert.False(t, SameMonth(date(2024, time.March, 31), date(2024, time.April, 1)))
	assert.False(t, SameMonth(date(2023, time.March, 10), date(2024, time.March, 10)))
}

func TestNeedsPeriodReset(t *testing.T) {
	now := date(2024, time.March, 15)

	// GIVEN: Paid in February, now March
	// THEN: The flag is stale
	sub := Subscription{PaidThisPeriod: true, LastPaymentMonth: time.February, LastPaymentYear: 2024}
	assert.True(t, sub.NeedsPeriodReset(now))

	// Paid this month: not stale.
	sub = Subscription{PaidThisPeriod: true, LastPaymentMonth: time.March, LastPaymentYear: 2024}
	assert.False(t, sub.NeedsPeriodReset(now))

	// Same month, previous year: stale.
	sub = Subscription{PaidThisPeriod: true, LastPaymentMonth: time.March, LastPaymentYear: 2023}
	assert.True(t, sub.NeedsPeriodReset(now))

	// Unpaid flags are never reset.
	sub = Subscription{PaidThisPeriod: false, LastPaymentMonth: time.January, LastPaymentYear: 2023}
	assert.False(t, sub.NeedsPeriodReset(now))
}

func TestMonthOf(t *testing.T) {
	p := MonthOf(date(2024, time.February, 14))

	assert.Equal(t, date(2024, time.February, 1), p.From)
	assert.True(t, p.Contains(date(2024, time.February, 1)))
	assert.True(t, p.Contains(date(2024, time.February, 29)))
	assert.False(t, p.Contains(date(2024, time.March, 1)))
	assert.False(t, p.Contains(date(2024, time.January, 31)))
}
