package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by MongoDB.
type APIKeyRepository struct {
	col *mongo.Collection
}

// NewAPIKeyRepository returns an APIKeyRepository over db.
func NewAPIKeyRepository(db *mongo.Database) *APIKeyRepository {
	return &APIKeyRepository{col: db.Collection(colAPIKeys)}
}

// FindByHash looks up an active API key by its HMAC hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var m apiKeyModel
	if err := r.col.FindOne(ctx, bson.M{"key_hash": hash, "active": true}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key: %w", err)
	}
	return fromAPIKeyModel(&m), nil
}

// Create stores a new active key. Existing hashes are left untouched.
func (r *APIKeyRepository) Create(ctx context.Context, info *auth.APIKeyInfo) error {
	_, err := r.col.InsertOne(ctx, apiKeyModel{
		ID:      info.ID,
		KeyHash: info.KeyHash,
		Name:    info.Name,
		Scopes:  nonNil(info.Scopes),
		Active:  true,
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("creating api key %q: %w", info.Name, err)
	}
	return nil
}
