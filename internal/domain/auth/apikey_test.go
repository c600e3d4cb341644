package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	keys map[string]*APIKey
	err  error
}

func (m *mockRepo) FindByHash(_ context.Context, hash string) (*APIKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	k, ok := m.keys[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return k, nil
}

func (m *mockRepo) Create(_ context.Context, k *APIKey) error {
	m.keys[k.KeyHash] = k
	return nil
}

func TestAuthenticator(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "secret-key")
	repo := &mockRepo{keys: map[string]*APIKey{
		hash: {ID: "k1", KeyHash: hash, Name: "ops", Role: RoleAdmin, Active: true},
	}}
	a := NewAuthenticator(repo, pepper)

	t.Run("valid", func(t *testing.T) {
		p, err := a.Authenticate(context.Background(), "secret-key")
		require.NoError(t, err)
		assert.Equal(t, "k1", p.ID)
		assert.True(t, p.IsAdmin())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := a.Authenticate(context.Background(), "other")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("wrong pepper", func(t *testing.T) {
		_, err := NewAuthenticator(repo, []byte("x")).Authenticate(context.Background(), "secret-key")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("mismatching stored hash", func(t *testing.T) {
		bad := &mockRepo{keys: map[string]*APIKey{
			hash: {ID: "k2", KeyHash: HashKey(pepper, "different")},
		}}
		_, err := NewAuthenticator(bad, pepper).Authenticate(context.Background(), "secret-key")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("repository failure", func(t *testing.T) {
		_, err := NewAuthenticator(&mockRepo{err: errors.New("db down")}, pepper).
			Authenticate(context.Background(), "secret-key")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFrom(ctx))
	assert.False(t, PrincipalFrom(ctx).IsAdmin())

	p := &Principal{ID: "k1", Role: RoleCustomer}
	got := PrincipalFrom(WithPrincipal(ctx, p))
	assert.Same(t, p, got)
	assert.False(t, got.IsAdmin())
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, k1, 64)
	assert.NotEqual(t, k1, k2)
}
