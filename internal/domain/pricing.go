package domain

import "math"

// Quote is the server-side price breakdown for a booking. Commission is the
// operator's margin on top of the customer-visible price.
type Quote struct {
	BaseAmount        int64
	Taxes             int64
	UserVisibleAmount int64
	CommissionPercent float64
	CommissionAmount  int64
	TotalAmount       int64
}

// PriceBooking computes the quote for paxCount passengers on pkg. The package
// commission override wins over the operator default.
func PriceBooking(pkg *Package, paxCount int, taxPercent, defaultCommissionPercent float64) Quote {
	base := int64(paxCount) * pkg.BasePricePerPax
	taxes := roundAmount(float64(base) * taxPercent / 100)
	visible := base + taxes

	pct := defaultCommissionPercent
	if pkg.CommissionOverride != nil {
		pct = *pkg.CommissionOverride
	}
	commission := commissionAmount(visible, pct)

	return Quote{
		BaseAmount:        base,
		Taxes:             taxes,
		UserVisibleAmount: visible,
		CommissionPercent: pct,
		CommissionAmount:  commission,
		TotalAmount:       visible + commission,
	}
}

func commissionAmount(userVisible int64, percent float64) int64 {
	return roundAmount(float64(userVisible) * percent / 100)
}

func roundAmount(v float64) int64 {
	return int64(math.Round(v))
}
