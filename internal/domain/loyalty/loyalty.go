// Package loyalty defines the per-account point balance accrued from paid
// order value.
package loyalty

import "context"

// unitsPerPoint is how many minor-currency units of order subtotal earn one
// point. Shipping fees never earn points.
const unitsPerPoint = 1000

// PointsFor returns the points earned for an order subtotal: one point per
// 1,000 minor-currency units, floored.
func PointsFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return subtotal / unitsPerPoint
}

// Ledger mutates account point balances. Reverse clamps at zero: a balance
// never goes negative.
type Ledger interface {
	Accrue(ctx context.Context, accountID string, points int64) error
	Reverse(ctx context.Context, accountID string, points int64) error
}
