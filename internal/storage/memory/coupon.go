package memory

import (
	"context"
	"slices"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

// Coupons implements coupon.Repository.
type Coupons struct{ store *Store }

// NewCoupons returns the coupon repository of store.
func NewCoupons(store *Store) *Coupons { return &Coupons{store: store} }

var _ coupon.Repository = (*Coupons)(nil)

func (r *Coupons) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	defer r.store.rlock(ctx)()
	for _, c := range r.store.data.coupons {
		if c.Code == code {
			cp := cloneCoupon(c)
			return &cp, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *Coupons) List(ctx context.Context) ([]coupon.Coupon, error) {
	defer r.store.rlock(ctx)()
	out := make([]coupon.Coupon, 0, len(r.store.data.coupons))
	for _, c := range r.store.data.coupons {
		out = append(out, cloneCoupon(c))
	}
	slices.SortFunc(out, func(a, b coupon.Coupon) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *Coupons) Create(ctx context.Context, c *coupon.Coupon) error {
	defer r.store.wlock(ctx)()
	for _, existing := range r.store.data.coupons {
		if existing.Code == c.Code {
			return coupon.ErrCodeTaken
		}
	}
	r.store.data.coupons[c.ID] = cloneCoupon(*c)
	return nil
}

// Redeem checks and records the use under the write lock, so the check and
// the increment cannot interleave with another redemption.
func (r *Coupons) Redeem(ctx context.Context, couponID, userID string) error {
	defer r.store.wlock(ctx)()
	c, ok := r.store.data.coupons[couponID]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.UsedByUser(userID) {
		return coupon.ErrAlreadyUsed
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return coupon.ErrUsageLimitReached
	}
	c = cloneCoupon(c)
	c.UsedCount++
	c.UsedBy = append(c.UsedBy, userID)
	r.store.data.coupons[couponID] = c
	return nil
}
