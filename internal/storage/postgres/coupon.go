package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

const couponColumns = `id, code, description, discount_type, discount_value, min_order_amount,
	max_discount, usage_limit, used_count, used_by, valid_from, valid_until, is_active,
	created_at, updated_at`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	// Single conditional update: the limit and per-user checks are evaluated
	// against the row as it is locked for the update.
	redeemCouponSQL = `UPDATE coupons SET
		used_count = used_count + 1,
		used_by = array_append(used_by, $2),
		updated_at = now()
		WHERE id = $1
		AND (usage_limit IS NULL OR used_count < usage_limit)
		AND NOT ($2 = ANY(used_by))`

	couponUsageSQL = `SELECT $2 = ANY(used_by) FROM coupons WHERE id = $1`
)

const couponsCodeKey = "coupons_code_key"

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalised code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Create inserts a coupon. It returns coupon.ErrCodeTaken on a duplicate
// code.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue, c.MinOrderAmount,
		c.MaxDiscount, c.UsageLimit, c.UsedCount, nonNil(c.UsedBy), c.ValidFrom, c.ValidUntil, c.IsActive,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, couponsCodeKey) {
			return coupon.ErrCodeTaken
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Redeem increments the usage counter and records userID in one
// conditional update.
func (r *CouponRepository) Redeem(ctx context.Context, couponID, userID string) error {
	q := conn(ctx, r.pool)
	tag, err := q.Exec(ctx, redeemCouponSQL, couponID, userID)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", couponID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var used bool
	if err := q.QueryRow(ctx, couponUsageSQL, couponID, userID).Scan(&used); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("checking coupon %q usage: %w", couponID, err)
	}
	if used {
		return coupon.ErrAlreadyUsed
	}
	return coupon.ErrUsageLimitReached
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &c.DiscountValue, &c.MinOrderAmount,
		&c.MaxDiscount, &c.UsageLimit, &c.UsedCount, &c.UsedBy, &c.ValidFrom, &c.ValidUntil, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
