package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) *storage.Repositories {
		return NewStore().Repositories()
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	p := storagetest.NewProduct("tote", 100, 0, 0)
	require.NoError(t, repos.Products.Create(ctx, p))
	p.Features[0] = "mutated"

	got, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Features[0])

	got.Features[0] = "mutated again"
	again, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", again.Features[0])
}

func TestTxManager_Nested(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()

	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Orders.Create(ctx, storagetest.NewOrder("ord_outer", "u1", 0)))
		return repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			require.NoError(t, repos.Orders.Create(ctx, storagetest.NewOrder("ord_inner", "u1", 0)))
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	for _, ref := range []string{"ord_outer", "ord_inner"} {
		_, err := repos.Orders.GetByRef(ctx, ref)
		require.ErrorIs(t, err, order.ErrNotFound, ref)
	}
}

type checkout struct {
	repos   *storage.Repositories
	orders  *order.Service
	coupons *coupon.Service
}

func newCheckout(t *testing.T, opts ...order.Option) *checkout {
	t.Helper()
	repos := NewStore().Repositories()
	coupons := coupon.NewService(repos.Coupons, coupon.Config{UppercaseCodes: true})
	orders, err := order.NewService(
		repos.Orders, repos.Products, repos.Users, coupons, repos.Tx,
		order.Config{PlatformFee: 20, MaxRefAttempts: 3},
		opts...,
	)
	require.NoError(t, err)
	return &checkout{repos: repos, orders: orders, coupons: coupons}
}

// seedShoppers creates n users, each with productID in the cart.
func (c *checkout) seedShoppers(t *testing.T, n int, productID string) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, n)
	for i := range ids {
		u := &user.User{
			ID:    uuid.NewString(),
			Email: fmt.Sprintf("shopper%d@example.com", i),
		}
		require.NoError(t, c.repos.Users.Create(ctx, u))
		require.NoError(t, c.repos.Users.AddToCart(ctx, u.ID, productID))
		ids[i] = u.ID
	}
	return ids
}

var shipping = order.ShippingDetails{FullName: "Ann", Line1: "1 Main", City: "Pune", PostalCode: "411001"}

func TestPlaceOrder_ConcurrentRefsUnique(t *testing.T) {
	ctx := context.Background()
	c := newCheckout(t)

	p := storagetest.NewProduct("tote", 500, 50, 0)
	require.NoError(t, c.repos.Products.Create(ctx, p))
	shoppers := c.seedShoppers(t, 50, p.ID)

	refs := make([]string, len(shoppers))
	var g errgroup.Group
	for i, id := range shoppers {
		g.Go(func() error {
			o, err := c.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:        id,
				Shipping:      shipping,
				PaymentMethod: order.PaymentCOD,
			})
			if err != nil {
				return err
			}
			refs[i] = o.Ref
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		require.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}

	all, err := c.repos.Orders.List(ctx, order.ListFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, len(shoppers))
	for _, id := range shoppers {
		u, err := c.repos.Users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, u.Cart)
		assert.Len(t, u.Orders, 1)
	}
}

func TestPlaceOrder_ConcurrentCouponLimit(t *testing.T) {
	ctx := context.Background()
	c := newCheckout(t)

	p := storagetest.NewProduct("tote", 1000, 0, 0)
	require.NoError(t, c.repos.Products.Create(ctx, p))

	const limit = 5
	usageLimit := limit
	now := time.Now()
	require.NoError(t, c.coupons.Create(ctx, &coupon.Coupon{
		Code:          "FIVE",
		DiscountType:  coupon.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100),
		UsageLimit:    &usageLimit,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}))

	shoppers := c.seedShoppers(t, 20, p.ID)

	var placed, rejected atomic.Int32
	var g errgroup.Group
	for _, id := range shoppers {
		g.Go(func() error {
			_, err := c.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:        id,
				Shipping:      shipping,
				PaymentMethod: order.PaymentOnline,
				CouponCode:    "five",
			})
			var invErr *coupon.InvalidError
			switch {
			case err == nil:
				placed.Add(1)
			case errors.As(err, &invErr):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, limit, placed.Load())
	assert.EqualValues(t, len(shoppers)-limit, rejected.Load())

	got, err := c.repos.Coupons.FindByCode(ctx, "FIVE")
	require.NoError(t, err)
	assert.Equal(t, limit, got.UsedCount)
	assert.Len(t, got.UsedBy, limit)

	// Rejected shoppers keep their carts.
	var withCart int
	for _, id := range shoppers {
		u, err := c.repos.Users.GetByID(ctx, id)
		require.NoError(t, err)
		if len(u.Cart) > 0 {
			withCart++
			assert.Empty(t, u.Orders)
		}
	}
	assert.Equal(t, len(shoppers)-limit, withCart)
}

func TestPlaceOrder_RefCollisionAgainstStore(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	refs := []string{"ord_same", "ord_same", "ord_other"}
	c := newCheckout(t, order.WithRefGenerator(func() (string, error) {
		return refs[calls.Add(1)-1], nil
	}))

	p := storagetest.NewProduct("tote", 500, 0, 0)
	require.NoError(t, c.repos.Products.Create(ctx, p))
	shoppers := c.seedShoppers(t, 2, p.ID)

	first, err := c.orders.PlaceOrder(ctx, order.PlaceOrderRequest{UserID: shoppers[0], Shipping: shipping, PaymentMethod: order.PaymentCOD})
	require.NoError(t, err)
	assert.Equal(t, "ord_same", first.Ref)

	second, err := c.orders.PlaceOrder(ctx, order.PlaceOrderRequest{UserID: shoppers[1], Shipping: shipping, PaymentMethod: order.PaymentCOD})
	require.NoError(t, err)
	assert.Equal(t, "ord_other", second.Ref)

	u, err := c.repos.Users.GetByID(ctx, shoppers[1])
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, u.Orders)
}

func TestPlaceOrder_ConcurrentCheckoutOfOneCart(t *testing.T) {
	ctx := context.Background()
	var (
		arrived sync.WaitGroup
		seq     atomic.Int32
	)
	arrived.Add(2)
	// Both requests have priced the cart before either transaction starts.
	c := newCheckout(t, order.WithRefGenerator(func() (string, error) {
		arrived.Done()
		arrived.Wait()
		return fmt.Sprintf("ord_%d", seq.Add(1)), nil
	}))

	p := storagetest.NewProduct("tote", 500, 0, 0)
	require.NoError(t, c.repos.Products.Create(ctx, p))
	shopper := c.seedShoppers(t, 1, p.ID)[0]

	var placed, conflicted atomic.Int32
	var g errgroup.Group
	for range 2 {
		g.Go(func() error {
			_, err := c.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:        shopper,
				Shipping:      shipping,
				PaymentMethod: order.PaymentCOD,
			})
			switch {
			case err == nil:
				placed.Add(1)
			case errors.Is(err, order.ErrCartChanged):
				conflicted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, placed.Load())
	assert.EqualValues(t, 1, conflicted.Load())

	all, err := c.repos.Orders.List(ctx, order.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 1)

	u, err := c.repos.Users.GetByID(ctx, shopper)
	require.NoError(t, err)
	assert.Empty(t, u.Cart)
	assert.Equal(t, []string{all[0].ID}, u.Orders)
}
