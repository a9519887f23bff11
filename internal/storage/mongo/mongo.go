// Package mongo implements the domain repositories on MongoDB. Transactions
// require a replica set deployment.
package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Devanshprabhakar24/Scatch/internal/storage"
)

// Collection names.
const (
	colProducts = "products"
	colUsers    = "users"
	colCoupons  = "coupons"
	colOrders   = "orders"
	colAPIKeys  = "api_keys"
)

// Connect opens a client for uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

// Open connects to uri, creates the indexes of database and returns the
// repositories sharing the client.
func Open(ctx context.Context, uri, database string) (*storage.Repositories, error) {
	client, err := Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(database)
	if err := Migrate(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return Repositories(db), nil
}

// Repositories returns every repository backed by db.
func Repositories(db *mongo.Database) *storage.Repositories {
	client := db.Client()
	return &storage.Repositories{
		Products: NewProductRepository(db),
		Users:    NewUserRepository(db),
		Coupons:  NewCouponRepository(db),
		Orders:   NewOrderRepository(db),
		APIKeys:  NewAPIKeyRepository(db),
		Tx:       NewTxManager(client),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}
}

// Migrate creates the indexes of every collection.
func Migrate(ctx context.Context, db *mongo.Database) error {
	for col, models := range migrationIndexes() {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProducts: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "view_count", Value: -1}, {Key: "rating_average", Value: -1}}},
		},
		colUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(usersEmailKey),
			},
		},
		colCoupons: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(couponsCodeKey),
			},
		},
		colOrders: {
			{
				Keys:    bson.D{{Key: "ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(ordersRefKey),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colAPIKeys: {
			{
				Keys:    bson.D{{Key: "key_hash", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// TxManager runs functions inside a MongoDB session transaction.
type TxManager struct {
	client *mongo.Client
}

// NewTxManager returns a TxManager for client.
func NewTxManager(client *mongo.Client) *TxManager {
	return &TxManager{client: client}
}

// WithinTx runs fn in a transaction. Operations using the context passed to
// fn join the session. Nested calls join the outer one. The driver retries fn
// on transient transaction errors.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
