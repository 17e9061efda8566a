package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartelle/storefront/internal/domain/account"
)

const (
	selectAccountSQL = `SELECT id, email, name, is_admin, points, created_at
		FROM accounts WHERE id = $1`

	selectAccountByKeyHashSQL = `SELECT a.id, a.email, a.name, a.is_admin, a.points, a.created_at
		FROM accounts a JOIN api_keys k ON k.account_id = a.id
		WHERE k.key_hash = $1`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	q querier
}

// NewAccountRepository returns an AccountRepository running directly on the
// pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{q: pool}
}

// GetByID returns an account by its identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return r.get(ctx, selectAccountSQL, id)
}

// FindByKeyHash resolves the account owning the API key with the given
// HMAC-SHA256 hex hash.
func (r *AccountRepository) FindByKeyHash(ctx context.Context, hash string) (*account.Account, error) {
	return r.get(ctx, selectAccountByKeyHashSQL, hash)
}

func (r *AccountRepository) get(ctx context.Context, sql, arg string) (*account.Account, error) {
	var a account.Account
	err := r.q.QueryRow(ctx, sql, arg).Scan(&a.ID, &a.Email, &a.Name, &a.Admin, &a.Points, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, errors.Wrap(err, "get account")
	}
	return &a, nil
}
