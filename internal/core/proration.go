package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proration is the first partial billing period of a weekly-recurring
// booking. Factor is DaysRemaining / DaysInMonth clamped to [0, 1];
// FirstMonthPrice is the monthly price scaled by that factor, rounded
// half-up to the cent.
type Proration struct {
	DaysInMonth     int             `json:"days_in_month"`
	DaysRemaining   int             `json:"days_remaining"`
	Factor          decimal.Decimal `json:"factor"`
	FirstMonthPrice decimal.Decimal `json:"first_month_price"`
}

// ProrateFirstMonth computes the prorated first month for a subscription
// starting at startDate, inclusive of the start day. Day arithmetic uses the
// calendar fields of startDate in its own location, never a UTC conversion,
// so month boundaries behave correctly in the deployment time zone.
func ProrateFirstMonth(startDate time.Time, monthlyPrice decimal.Decimal) (*Proration, error) {
	if startDate.IsZero() {
		return nil, &ValidationError{Field: "start_date", Reason: "missing or invalid date"}
	}
	if monthlyPrice.IsNegative() {
		return nil, &ValidationError{Field: "monthly_price", Reason: "must be a non-negative amount"}
	}

	year, month, day := startDate.Date()
	// Day zero of the next month is the last day of this one.
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, startDate.Location()).Day()

	daysRemaining := daysInMonth - day + 1
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > daysInMonth {
		daysRemaining = daysInMonth
	}

	num := decimal.NewFromInt(int64(daysRemaining))
	den := decimal.NewFromInt(int64(daysInMonth))

	return &Proration{
		DaysInMonth:     daysInMonth,
		DaysRemaining:   daysRemaining,
		Factor:          num.Div(den),
		FirstMonthPrice: monthlyPrice.Mul(num).Div(den).Round(2),
	}, nil
}
