package memory

import (
	"context"
	"slices"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
)

// APIKeys implements auth.Repository.
type APIKeys struct{ store *Store }

// NewAPIKeys returns the API key repository of store.
func NewAPIKeys(store *Store) *APIKeys { return &APIKeys{store: store} }

var _ auth.Repository = (*APIKeys)(nil)

func (r *APIKeys) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	defer r.store.rlock(ctx)()
	info, ok := r.store.data.apiKeys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	info.Scopes = slices.Clone(info.Scopes)
	return &info, nil
}

func (r *APIKeys) Create(ctx context.Context, info *auth.APIKeyInfo) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.data.apiKeys[info.KeyHash]; ok {
		return nil
	}
	cp := *info
	cp.Scopes = slices.Clone(info.Scopes)
	r.store.data.apiKeys[info.KeyHash] = cp
	return nil
}
