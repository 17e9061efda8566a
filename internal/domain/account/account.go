// Package account holds user identity for ownership checks, API key
// authentication, and loyalty balances.
package account

import (
	"context"
	"fmt"
	"time"
)

// ErrNotFound indicates no account matches the lookup.
var ErrNotFound = fmt.Errorf("account not found")

// Account is a storefront user. Points is the loyalty balance in whole
// points, never negative.
type Account struct {
	ID        string
	Email     string
	Name      string
	Admin     bool
	Points    int64
	CreatedAt time.Time
}

// Repository defines account lookups.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	// FindByKeyHash resolves the account owning an active API key by the
	// HMAC-SHA256 hex hash of the presented key.
	FindByKeyHash(ctx context.Context, hash string) (*Account, error)
}
