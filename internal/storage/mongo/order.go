package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
)

const ordersRefKey = "orders_ref_key"

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "ref", Value: -1}}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by MongoDB. Line items
// and shipping details are embedded documents.
type OrderRepository struct {
	col *mongo.Collection
}

// NewOrderRepository returns an OrderRepository over db.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(colOrders)}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if _, err := r.col.InsertOne(ctx, toOrderModel(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateOrderRef
		}
		return fmt.Errorf("creating order %q: %w", o.Ref, err)
	}
	return nil
}

// GetByRef returns an order by its public reference.
func (r *OrderRepository) GetByRef(ctx context.Context, ref string) (*order.Order, error) {
	var m orderModel
	if err := r.col.FindOne(ctx, bson.M{"ref": ref}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", ref, err)
	}
	o := fromOrderModel(&m)
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]order.Order, error) {
	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

// List returns orders filtered by status, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	opts := options.Find().SetSort(newestFirst)
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return r.find(ctx, filter, opts)
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]order.Order, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	var models []orderModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}
	out := make([]order.Order, len(models))
	for i := range models {
		out[i] = fromOrderModel(&models[i])
	}
	return out, nil
}

// UpdateStatus performs a compare-and-set on the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, ref string, from, to order.Status, at time.Time) error {
	return r.compareAndSet(ctx, ref, "status", string(from), string(to), at)
}

// UpdatePaymentStatus performs a compare-and-set on the payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, ref string, from, to order.PaymentStatus, at time.Time) error {
	return r.compareAndSet(ctx, ref, "payment_status", string(from), string(to), at)
}

func (r *OrderRepository) compareAndSet(ctx context.Context, ref, field, from, to string, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"ref": ref, field: from},
		bson.M{"$set": bson.M{field: to, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("updating order %q %s: %w", ref, field, err)
	}
	if res.MatchedCount == 0 {
		return order.ErrStatusConflict
	}
	return nil
}
