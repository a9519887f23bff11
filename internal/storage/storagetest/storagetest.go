// Package storagetest is a conformance suite run against every storage
// backend.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
)

// Factory returns empty repositories for one test.
type Factory func(t *testing.T) *storage.Repositories

// Run executes the suite. Each subtest gets a fresh backend from newRepos.
func Run(t *testing.T, newRepos Factory) {
	t.Run("Products", func(t *testing.T) { testProducts(t, newRepos(t)) })
	t.Run("ProductList", func(t *testing.T) { testProductList(t, newRepos(t)) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newRepos(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("Coupons", func(t *testing.T) { testCoupons(t, newRepos(t)) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, newRepos(t)) })
	t.Run("APIKeys", func(t *testing.T) { testAPIKeys(t, newRepos(t)) })
	t.Run("Tx", func(t *testing.T) { testTx(t, newRepos(t)) })
}

// base is truncated to milliseconds so every backend round-trips it exactly.
var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// NewProduct returns a valid product created at base+offset.
func NewProduct(name string, price, discount int64, offset time.Duration) *product.Product {
	return &product.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   name + " description",
		Features:      []string{"durable"},
		Category:      "bags",
		Price:         price,
		Discount:      discount,
		StockQuantity: 10,
		InStock:       true,
		Image:         "/images/" + name + ".png",
		Colors:        product.Colors{Background: "#fff", Panel: "#eee", Text: "#111"},
		CreatedAt:     base.Add(offset),
		UpdatedAt:     base.Add(offset),
	}
}

func testProducts(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Products

	p := NewProduct("tote", 1200, 200, 0)
	require.NoError(t, r.Create(ctx, p))

	got, err := r.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, p.Discount, got.Discount)
	assert.Equal(t, p.Features, got.Features)
	assert.Equal(t, p.Colors, got.Colors)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

	_, err = r.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, product.ErrNotFound)

	other := NewProduct("satchel", 900, 0, time.Minute)
	require.NoError(t, r.Create(ctx, other))
	list, err := r.GetByIDs(ctx, []string{p.ID, p.ID, uuid.NewString(), other.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, r.IncrementViews(ctx, p.ID))
	require.NoError(t, r.IncrementViews(ctx, p.ID))

	p.Name = "tote v2"
	p.Price = 1500
	p.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, r.Update(ctx, p))
	got, err = r.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "tote v2", got.Name)
	assert.Equal(t, int64(1500), got.Price)
	assert.Equal(t, int64(2), got.ViewCount, "update keeps the view counter")

	missing := NewProduct("ghost", 1, 0, 0)
	require.ErrorIs(t, r.Update(ctx, missing), product.ErrNotFound)

	require.NoError(t, r.Delete(ctx, other.ID))
	require.ErrorIs(t, r.Delete(ctx, other.ID), product.ErrNotFound)
	_, err = r.GetByID(ctx, other.ID)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func testReviews(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Products

	p := NewProduct("tote", 1200, 0, 0)
	require.NoError(t, r.Create(ctx, p))

	review := func(userID string, rating int, offset time.Duration) product.Review {
		return product.Review{
			UserID:    userID,
			Rating:    rating,
			Title:     "title by " + userID,
			Comment:   "$set looks like an operator",
			CreatedAt: base.Add(offset),
		}
	}

	require.NoError(t, r.AddReview(ctx, p.ID, review("u1", 5, 0)))
	require.ErrorIs(t, r.AddReview(ctx, p.ID, review("u1", 1, time.Minute)), product.ErrAlreadyReviewed)
	require.ErrorIs(t, r.AddReview(ctx, uuid.NewString(), review("u1", 4, 0)), product.ErrNotFound)
	require.NoError(t, r.AddReview(ctx, p.ID, review("u2", 2, time.Minute)))

	got, err := r.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating.Count)
	assert.InDelta(t, 3.5, got.Rating.Average, 1e-9)

	reviews, err := r.Reviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "u2", reviews[0].UserID, "newest first")
	assert.Equal(t, review("u1", 5, 0).Comment, reviews[1].Comment)
	assert.True(t, base.Equal(reviews[1].CreatedAt))

	_, err = r.Reviews(ctx, uuid.NewString())
	require.ErrorIs(t, err, product.ErrNotFound)

	empty := NewProduct("empty", 100, 0, time.Minute)
	require.NoError(t, r.Create(ctx, empty))
	reviews, err = r.Reviews(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	// Concurrent reviews: every distinct user counts once, repeats are rejected.
	busy := NewProduct("busy", 100, 0, 2*time.Minute)
	require.NoError(t, r.Create(ctx, busy))
	const users = 8
	var g errgroup.Group
	for i := range users * 2 {
		g.Go(func() error {
			err := r.AddReview(ctx, busy.ID, review(fmt.Sprintf("user-%d", i%users), 4, time.Duration(i)*time.Second))
			if errors.Is(err, product.ErrAlreadyReviewed) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err = r.GetByID(ctx, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, users, got.Rating.Count)
	assert.InDelta(t, 4.0, got.Rating.Average, 1e-9)
	reviews, err = r.Reviews(ctx, busy.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, users)
}

func testProductList(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Products

	cheap := NewProduct("Canvas Tote", 500, 0, 0)
	mid := NewProduct("Leather Satchel", 1500, 300, time.Minute)
	dear := NewProduct("Travel Duffel", 4000, 1000, 2*time.Minute)
	for _, p := range []*product.Product{cheap, mid, dear} {
		require.NoError(t, r.Create(ctx, p))
	}
	require.NoError(t, r.IncrementViews(ctx, mid.ID))

	names := func(list []product.Product) []string {
		out := make([]string, len(list))
		for i, p := range list {
			out[i] = p.Name
		}
		return out
	}

	tests := []struct {
		name   string
		filter product.ListFilter
		want   []string
	}{
		{
			name:   "Popular",
			filter: product.ListFilter{Sort: product.SortPopular},
			want:   []string{"Leather Satchel", "Travel Duffel", "Canvas Tote"},
		},
		{
			name:   "Newest",
			filter: product.ListFilter{Sort: product.SortNewest},
			want:   []string{"Travel Duffel", "Leather Satchel", "Canvas Tote"},
		},
		{
			name:   "LowPrice",
			filter: product.ListFilter{Sort: product.SortLowPrice},
			want:   []string{"Canvas Tote", "Leather Satchel", "Travel Duffel"},
		},
		{
			name:   "HighPrice",
			filter: product.ListFilter{Sort: product.SortHighPrice},
			want:   []string{"Travel Duffel", "Leather Satchel", "Canvas Tote"},
		},
		{
			name:   "DiscountedOnly",
			filter: product.ListFilter{DiscountedOnly: true, Sort: product.SortNewest},
			want:   []string{"Travel Duffel", "Leather Satchel"},
		},
		{
			name:   "CaseInsensitiveQuery",
			filter: product.ListFilter{Query: "tOtE", Sort: product.SortNewest},
			want:   []string{"Canvas Tote"},
		},
		{
			name:   "NoMatch",
			filter: product.ListFilter{Query: "umbrella", Sort: product.SortNewest},
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := r.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(list))
		})
	}
}

func testUsers(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Users

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        "ann@example.com",
		PasswordHash: "hash",
		FullName:     "Ann",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	require.NoError(t, r.Create(ctx, u))

	dup := *u
	dup.ID = uuid.NewString()
	require.ErrorIs(t, r.Create(ctx, &dup), user.ErrEmailTaken)

	got, err := r.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	_, err = r.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = r.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, user.ErrNotFound)

	require.NoError(t, r.UpdateProfile(ctx, u.ID, user.Profile{FullName: "Ann Lee", Contact: "555"}))
	require.NoError(t, r.UpdatePassword(ctx, u.ID, "hash2"))
	require.ErrorIs(t, r.UpdatePassword(ctx, uuid.NewString(), "x"), user.ErrNotFound)

	// Cart keeps duplicates; removal drops only the first match.
	for _, pid := range []string{"a", "b", "a"} {
		require.NoError(t, r.AddToCart(ctx, u.ID, pid))
	}
	removed, err := r.RemoveFromCart(ctx, u.ID, "a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = r.RemoveFromCart(ctx, u.ID, "zzz")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, r.AddToWishlist(ctx, u.ID, "w1"))
	require.NoError(t, r.AddToWishlist(ctx, u.ID, "w1"))
	require.NoError(t, r.AddToWishlist(ctx, u.ID, "w2"))
	require.NoError(t, r.RemoveFromWishlist(ctx, u.ID, "w2"))

	addrs := []user.Address{{ID: "ad1", FullName: "Ann", Line1: "1 Main", City: "Pune", PostalCode: "411001", IsDefault: true}}
	require.NoError(t, r.SetAddresses(ctx, u.ID, addrs))
	views := []user.View{{ProductID: "b", ViewedAt: base.Add(time.Minute)}}
	require.NoError(t, r.SetRecentlyViewed(ctx, u.ID, views))

	got, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.FullName)
	assert.Equal(t, "555", got.Contact)
	assert.Equal(t, "hash2", got.PasswordHash)
	assert.Equal(t, []string{"b", "a"}, got.Cart)
	assert.Equal(t, []string{"w1"}, got.Wishlist)
	assert.Equal(t, addrs, got.Addresses)
	require.Len(t, got.RecentlyViewed, 1)
	assert.Equal(t, "b", got.RecentlyViewed[0].ProductID)
	assert.True(t, views[0].ViewedAt.Equal(got.RecentlyViewed[0].ViewedAt))

	assert.ErrorIs(t, r.AttachOrder(ctx, u.ID, "order-0", []string{"b"}), user.ErrCartChanged)
	assert.ErrorIs(t, r.AttachOrder(ctx, "missing", "order-0", nil), user.ErrNotFound)
	require.NoError(t, r.AttachOrder(ctx, u.ID, "order-1", got.Cart))
	got, err = r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Cart)
	assert.Equal(t, []string{"order-1"}, got.Orders)
}

// NewCoupon returns an active percentage coupon.
func NewCoupon(code string, limit *int) *coupon.Coupon {
	maxDiscount := int64(500)
	return &coupon.Coupon{
		ID:             uuid.NewString(),
		Code:           code,
		Description:    "10% off",
		DiscountType:   coupon.DiscountPercentage,
		DiscountValue:  decimal.RequireFromString("10.5"),
		MinOrderAmount: 100,
		MaxDiscount:    &maxDiscount,
		UsageLimit:     limit,
		ValidFrom:      base.Add(-time.Hour),
		ValidUntil:     base.Add(30 * 24 * time.Hour),
		IsActive:       true,
		CreatedAt:      base,
		UpdatedAt:      base,
	}
}

func testCoupons(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Coupons

	limit := 2
	c := NewCoupon("SAVE10", &limit)
	require.NoError(t, r.Create(ctx, c))

	dup := NewCoupon("SAVE10", nil)
	require.ErrorIs(t, r.Create(ctx, dup), coupon.ErrCodeTaken)

	got, err := r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, c.DiscountValue.Equal(got.DiscountValue), "got %s", got.DiscountValue)
	require.NotNil(t, got.MaxDiscount)
	assert.Equal(t, int64(500), *got.MaxDiscount)
	require.NotNil(t, got.UsageLimit)
	assert.Equal(t, 2, *got.UsageLimit)
	assert.True(t, c.ValidUntil.Equal(got.ValidUntil))

	_, err = r.FindByCode(ctx, "NOPE")
	require.ErrorIs(t, err, coupon.ErrNotFound)

	require.NoError(t, r.Redeem(ctx, c.ID, "u1"))
	require.ErrorIs(t, r.Redeem(ctx, c.ID, "u1"), coupon.ErrAlreadyUsed)
	require.NoError(t, r.Redeem(ctx, c.ID, "u2"))
	require.ErrorIs(t, r.Redeem(ctx, c.ID, "u3"), coupon.ErrUsageLimitReached)
	require.ErrorIs(t, r.Redeem(ctx, uuid.NewString(), "u1"), coupon.ErrNotFound)

	got, err = r.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
	assert.ElementsMatch(t, []string{"u1", "u2"}, got.UsedBy)

	unlimited := NewCoupon("FOREVER", nil)
	unlimited.CreatedAt = base.Add(time.Minute)
	unlimited.MaxDiscount = nil
	require.NoError(t, r.Create(ctx, unlimited))
	for i := range 5 {
		require.NoError(t, r.Redeem(ctx, unlimited.ID, fmt.Sprintf("user-%d", i)))
	}

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "FOREVER", all[0].Code, "newest first")
	assert.Nil(t, all[0].UsageLimit)
	assert.Nil(t, all[0].MaxDiscount)
}

// NewOrder returns a pending order for userID created at base+offset.
func NewOrder(ref, userID string, offset time.Duration) *order.Order {
	return &order.Order{
		ID:     uuid.NewString(),
		Ref:    ref,
		UserID: userID,
		Items: []order.LineItem{
			{ProductID: "p1", Name: "Tote", Price: 500, Discount: 50, Color: "#fff"},
			{ProductID: "p2", Name: "Satchel", Price: 300},
		},
		TotalAmount:   800,
		TotalDiscount: 50,
		PlatformFee:   20,
		FinalAmount:   770,
		Shipping:      order.ShippingDetails{FullName: "Ann", Phone: "555", Line1: "1 Main", City: "Pune", PostalCode: "411001"},
		PaymentMethod: order.PaymentCOD,
		PaymentStatus: order.PaymentPending,
		Status:        order.StatusPending,
		CreatedAt:     base.Add(offset),
		UpdatedAt:     base.Add(offset),
	}
}

func testOrders(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.Orders

	first := NewOrder("ord_a", "u1", 0)
	second := NewOrder("ord_b", "u1", time.Minute)
	third := NewOrder("ord_c", "u2", 2*time.Minute)
	for _, o := range []*order.Order{first, second, third} {
		require.NoError(t, r.Create(ctx, o))
	}

	dup := NewOrder("ord_a", "u9", 0)
	require.ErrorIs(t, r.Create(ctx, dup), order.ErrDuplicateOrderRef)

	got, err := r.GetByRef(ctx, "ord_a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Items, got.Items)
	assert.Equal(t, first.Shipping, got.Shipping)
	assert.Equal(t, first.Totals(), got.Totals())
	assert.Equal(t, order.StatusPending, got.Status)

	_, err = r.GetByRef(ctx, "ord_missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	mine, err := r.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "ord_b", mine[0].Ref)
	assert.Equal(t, "ord_a", mine[1].Ref)

	mine, err = r.ListByUser(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "ord_b", mine[0].Ref)

	none, err := r.ListByUser(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	at := base.Add(time.Hour)
	require.NoError(t, r.UpdateStatus(ctx, "ord_c", order.StatusPending, order.StatusConfirmed, at))
	require.ErrorIs(t, r.UpdateStatus(ctx, "ord_c", order.StatusPending, order.StatusCancelled, at), order.ErrStatusConflict)
	require.NoError(t, r.UpdatePaymentStatus(ctx, "ord_c", order.PaymentPending, order.PaymentPaid, at))
	require.ErrorIs(t, r.UpdatePaymentStatus(ctx, "ord_c", order.PaymentPending, order.PaymentFailed, at), order.ErrStatusConflict)

	got, err = r.GetByRef(ctx, "ord_c")
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)

	all, err := r.List(ctx, order.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ord_c", all[0].Ref)

	pending, err := r.List(ctx, order.ListFilter{Status: order.StatusPending, Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 2)

	page, err := r.List(ctx, order.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ord_b", page[0].Ref)
}

func testAPIKeys(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()
	r := repos.APIKeys

	info := &auth.APIKeyInfo{ID: uuid.NewString(), KeyHash: "abc123", Name: "owner", Scopes: []string{auth.ScopeAdmin}}
	require.NoError(t, r.Create(ctx, info))
	require.NoError(t, r.Create(ctx, info), "creating an existing key is a no-op")

	got, err := r.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "owner", got.Name)
	assert.True(t, got.HasScope(auth.ScopeAdmin))

	_, err = r.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}

func testTx(t *testing.T, repos *storage.Repositories) {
	ctx := context.Background()

	limit := 1
	c := NewCoupon("ONCE", &limit)
	require.NoError(t, repos.Coupons.Create(ctx, c))

	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Coupons.Redeem(ctx, c.ID, "u1"); err != nil {
			return err
		}
		if err := repos.Orders.Create(ctx, NewOrder("ord_tx", "u1", 0)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repos.Orders.GetByRef(ctx, "ord_tx")
	require.ErrorIs(t, err, order.ErrNotFound, "order insert rolled back")
	got, err := repos.Coupons.FindByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Zero(t, got.UsedCount, "redemption rolled back")

	err = repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Coupons.Redeem(ctx, c.ID, "u1"); err != nil {
			return err
		}
		return repos.Orders.Create(ctx, NewOrder("ord_tx", "u1", 0))
	})
	require.NoError(t, err)
	_, err = repos.Orders.GetByRef(ctx, "ord_tx")
	require.NoError(t, err)

	require.NoError(t, repos.Ping(ctx))
}
