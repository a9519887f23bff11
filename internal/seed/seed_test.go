package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshprabhakar24/Scatch/db"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/memory"
)

func TestDecodeProducts(t *testing.T) {
	items, err := DecodeProducts(db.SeedProducts)
	require.NoError(t, err)
	require.Len(t, items, 6)

	duffel := items[0]
	assert.Equal(t, "Clinique Travel Duffel", duffel.Name)
	assert.Equal(t, int64(2499), duffel.Price)
	assert.Equal(t, int64(300), duffel.Discount)
	assert.True(t, duffel.InStock)
	assert.True(t, duffel.FreeShipping)
	assert.Equal(t, "#e6d5b8", duffel.Colors.Background)
	assert.Equal(t, 128, duffel.Rating.Count)
	assert.Len(t, duffel.Features, 3)

	tote := items[2]
	assert.True(t, tote.FlashSale.Active)
	assert.Equal(t, int64(2499), tote.FlashSale.Price)
	assert.Equal(t, 2030, tote.FlashSale.EndsAt.Year())

	assert.False(t, items[3].InStock)

	for _, p := range items {
		assert.NoError(t, p.Validate(), p.Name)
	}
}

func TestDecodeProducts_Invalid(t *testing.T) {
	_, err := DecodeProducts([]byte(`[{"name": "Bag", "price": "cheap"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")

	_, err = DecodeProducts([]byte(`{"name": "Bag"}`))
	require.Error(t, err)
}

func TestProducts_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	svc := product.NewService(repos.Products)

	items, err := DecodeProducts(db.SeedProducts)
	require.NoError(t, err)

	n, err := Products(ctx, svc, items)
	require.NoError(t, err)
	assert.Equal(t, len(items), n)

	n, err = Products(ctx, svc, items)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := svc.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(items))
}

func TestCoupons_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	svc := coupon.NewService(repos.Coupons, coupon.Config{UppercaseCodes: true})
	demo := DemoCoupons(time.Now())

	n, err := Coupons(ctx, svc, demo)
	require.NoError(t, err)
	assert.Equal(t, len(demo), n)

	n, err = Coupons(ctx, svc, DemoCoupons(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, n)

	q, err := svc.Quote(ctx, "flat200", "user-1", 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(200), q.Discount)
}

func TestAPIKey(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	pepper := []byte("pepper")

	t.Run("Provided", func(t *testing.T) {
		raw, err := APIKey(ctx, repos.APIKeys, pepper, "owner", "sk_owner")
		require.NoError(t, err)
		assert.Equal(t, "sk_owner", raw)

		info, err := auth.NewAPIKeyAuthenticator(repos.APIKeys, pepper).Authenticate(ctx, raw)
		require.NoError(t, err)
		assert.True(t, info.HasScope(auth.ScopeAdmin))
	})

	t.Run("Generated", func(t *testing.T) {
		raw, err := APIKey(ctx, repos.APIKeys, pepper, "owner", "")
		require.NoError(t, err)
		assert.NotEmpty(t, raw)

		_, err = auth.NewAPIKeyAuthenticator(repos.APIKeys, pepper).Authenticate(ctx, raw)
		require.NoError(t, err)
	})
}
