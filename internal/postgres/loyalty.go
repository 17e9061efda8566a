package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/kartelle/storefront/internal/domain/account"
	"github.com/kartelle/storefront/internal/domain/loyalty"
)

const (
	accruePointsSQL = `UPDATE accounts SET points = points + $2 WHERE id = $1`

	// reversePointsSQL clamps at zero: a reversal never drives the balance
	// negative.
	reversePointsSQL = `UPDATE accounts SET points = GREATEST(points - $2, 0) WHERE id = $1`
)

var _ loyalty.Ledger = (*LoyaltyLedger)(nil)

// LoyaltyLedger implements loyalty.Ledger on the accounts table.
type LoyaltyLedger struct {
	q querier
}

// Accrue adds points to an account balance.
func (r *LoyaltyLedger) Accrue(ctx context.Context, accountID string, points int64) error {
	tag, err := r.q.Exec(ctx, accruePointsSQL, accountID, points)
	if err != nil {
		return errors.Wrapf(err, "accrue %d points for account %q", points, accountID)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

// Reverse subtracts points from an account balance, clamped at zero.
func (r *LoyaltyLedger) Reverse(ctx context.Context, accountID string, points int64) error {
	tag, err := r.q.Exec(ctx, reversePointsSQL, accountID, points)
	if err != nil {
		return errors.Wrapf(err, "reverse %d points for account %q", points, accountID)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}
