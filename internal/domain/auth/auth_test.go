package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKeyRepo struct {
	byHash map[string]*APIKeyInfo
	err    error
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return info, nil
}

func (m *mockKeyRepo) Create(_ context.Context, info *APIKeyInfo) error {
	m.byHash[info.KeyHash] = info
	return nil
}

func TestAPIKeyAuthenticator(t *testing.T) {
	pepper := []byte("pepper")
	repo := &mockKeyRepo{byHash: map[string]*APIKeyInfo{}}

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &APIKeyInfo{
		ID:      "k1",
		KeyHash: NewHasher(pepper).Hex(key),
		Name:    "owner",
		Scopes:  []string{ScopeAdmin},
	}))

	a := NewAPIKeyAuthenticator(repo, pepper)

	t.Run("valid key", func(t *testing.T) {
		info, err := a.Authenticate(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, "k1", info.ID)
		assert.True(t, info.HasScope(ScopeAdmin))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "sk_nope")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("wrong pepper", func(t *testing.T) {
		other := NewAPIKeyAuthenticator(repo, []byte("other"))
		_, err := other.Authenticate(context.Background(), key)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("storage failure", func(t *testing.T) {
		broken := NewAPIKeyAuthenticator(&mockKeyRepo{err: errors.New("db down")}, pepper)
		_, err := broken.Authenticate(context.Background(), key)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTokenIssuer(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer([]byte("secret"), 7*24*time.Hour)
	issuer.now = func() time.Time { return now }

	raw, err := issuer.Issue("u1", "jane@example.com")
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer([]byte("secret"), time.Hour)
		later.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }
		_, err := later.Parse(raw)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer([]byte("other"), time.Hour)
		other.now = issuer.now
		_, err := other.Parse(raw)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}
