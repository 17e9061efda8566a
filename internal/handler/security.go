package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/kartelle/storefront/internal/domain/account"
	"github.com/kartelle/storefront/internal/domain/order"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// Identity is the authenticated caller resolved from an API key.
type Identity struct {
	AccountID string
	Admin     bool
}

// Actor converts the identity into a lifecycle actor.
func (i Identity) Actor() order.Actor {
	return order.Actor{AccountID: i.AccountID, Admin: i.Admin}
}

// IdentityFrom extracts the authenticated identity from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// APIKeyAuth authenticates requests via HMAC-SHA256 hashed API keys. The
// presented key (X-API-Key header) is hashed with the server pepper and
// resolved to an account; the fixed-length hash lookup keeps the comparison
// free of key-dependent timing.
func APIKeyAuth(accounts account.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.Header.Get("api_key")
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "API key required")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			acc, err := accounts.FindByKeyHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{
				AccountID: acc.ID,
				Admin:     acc.Admin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
