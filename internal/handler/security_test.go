package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartelle/storefront/internal/domain/account"
)

type fakeAccountRepo struct {
	byHash map[string]*account.Account
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*account.Account, error) {
	for _, a := range f.byHash {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, account.ErrNotFound
}

func (f *fakeAccountRepo) FindByKeyHash(_ context.Context, hash string) (*account.Account, error) {
	a, ok := f.byHash[hash]
	if !ok {
		return nil, account.ErrNotFound
	}
	return a, nil
}

func hashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	repo := &fakeAccountRepo{byHash: map[string]*account.Account{
		hashKey("valid-key", pepper): {ID: "acc-1", Email: "c@example.com", Admin: true},
	}}

	var seen *Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFrom(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := APIKeyAuth(repo, pepper)(next)

	t.Run("valid key", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("X-API-Key", "valid-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "acc-1", seen.AccountID)
		assert.True(t, seen.Admin)
	})

	t.Run("legacy header name", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
	})

	t.Run("unknown key", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("missing key", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})
}
