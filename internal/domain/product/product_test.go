package product

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Product
		wantErr bool
	}{
		{name: "valid", p: Product{Name: "Bag", Price: 500, Discount: 50, StockQuantity: 3}},
		{name: "discount equals price", p: Product{Name: "Bag", Price: 500, Discount: 500}},
		{name: "missing name", p: Product{Price: 500}, wantErr: true},
		{name: "negative price", p: Product{Name: "Bag", Price: -1}, wantErr: true},
		{name: "discount above price", p: Product{Name: "Bag", Price: 100, Discount: 101}, wantErr: true},
		{name: "negative discount", p: Product{Name: "Bag", Price: 100, Discount: -5}, wantErr: true},
		{
			name:    "flash price above price",
			p:       Product{Name: "Bag", Price: 100, FlashSale: FlashSale{Active: true, Price: 150}},
			wantErr: true,
		},
		{name: "negative stock", p: Product{Name: "Bag", Price: 100, StockQuantity: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProduct_EffectiveDiscount(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	p := Product{
		Price:    1000,
		Discount: 100,
		FlashSale: FlashSale{
			Active: true,
			Price:  700,
			EndsAt: now.Add(time.Hour),
		},
	}
	assert.Equal(t, int64(300), p.EffectiveDiscount(now))

	// Sale ended.
	assert.Equal(t, int64(100), p.EffectiveDiscount(now.Add(2*time.Hour)))

	// Sale price above the regular discounted price keeps the regular discount.
	p.FlashSale.Price = 950
	assert.Equal(t, int64(100), p.EffectiveDiscount(now))

	p.FlashSale.Active = false
	p.FlashSale.Price = 0
	assert.Equal(t, int64(100), p.EffectiveDiscount(now))
}

func TestProduct_Available(t *testing.T) {
	assert.True(t, (&Product{InStock: true, StockQuantity: 1}).Available())
	assert.False(t, (&Product{InStock: true}).Available())
	assert.False(t, (&Product{InStock: false, StockQuantity: 5}).Available())
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortNewest, ParseSort("newest"))
	assert.Equal(t, SortLowPrice, ParseSort("lowprice"))
	assert.Equal(t, SortHighPrice, ParseSort("highprice"))
	assert.Equal(t, SortPopular, ParseSort(""))
	assert.Equal(t, SortPopular, ParseSort("bogus"))
}

func TestRating_Add(t *testing.T) {
	var r Rating
	r = r.Add(5)
	assert.Equal(t, Rating{Average: 5, Count: 1}, r)
	r = r.Add(2)
	r = r.Add(2)
	assert.Equal(t, 3, r.Count)
	assert.InDelta(t, 3.0, r.Average, 1e-9)
}
