package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

const couponsCodeKey = "coupons_code_key"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by MongoDB.
type CouponRepository struct {
	col *mongo.Collection
}

// NewCouponRepository returns a CouponRepository over db.
func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{col: db.Collection(colCoupons)}
}

// FindByCode looks up a coupon by its code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var m couponModel
	if err := r.col.FindOne(ctx, bson.M{"code": code}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return fromCouponModel(&m)
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	var models []couponModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("decoding coupons: %w", err)
	}
	out := make([]coupon.Coupon, 0, len(models))
	for i := range models {
		c, err := fromCouponModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Create inserts a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	m, err := toCouponModel(c)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return coupon.ErrCodeTaken
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Redeem records a use with a single conditional update. When nothing
// matches, the coupon is read back to report why.
func (r *CouponRepository) Redeem(ctx context.Context, couponID, userID string) error {
	filter := bson.M{
		"_id":     couponID,
		"used_by": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"usage_limit": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$usage_limit"}}},
		},
	}
	update := bson.M{
		"$inc":  bson.M{"used_count": 1},
		"$push": bson.M{"used_by": userID},
		"$set":  bson.M{"updated_at": now()},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", couponID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	var m couponModel
	if err := r.col.FindOne(ctx, bson.M{"_id": couponID}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("checking coupon %q usage: %w", couponID, err)
	}
	for _, id := range m.UsedBy {
		if id == userID {
			return coupon.ErrAlreadyUsed
		}
	}
	return coupon.ErrUsageLimitReached
}
