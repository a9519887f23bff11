package product_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/memory"
)

func newCatalog(t *testing.T) (*product.Service, *product.Product) {
	t.Helper()
	s := product.NewService(memory.NewProducts(memory.NewStore()))
	p := &product.Product{Name: "Tote", Price: 500, InStock: true, StockQuantity: 2}
	require.NoError(t, s.Create(context.Background(), p))
	return s, p
}

func TestService_AddReview(t *testing.T) {
	ctx := context.Background()
	s, p := newCatalog(t)

	got, err := s.AddReview(ctx, p.ID, product.Review{UserID: "u1", Rating: 4, Title: "  Solid  ", Comment: "Roomy"})
	require.NoError(t, err)
	assert.Equal(t, product.Rating{Average: 4, Count: 1}, got.Rating)

	got, err = s.AddReview(ctx, p.ID, product.Review{UserID: "u2", Rating: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating.Count)
	assert.InDelta(t, 2.5, got.Rating.Average, 1e-9)

	_, err = s.AddReview(ctx, p.ID, product.Review{UserID: "u1", Rating: 5})
	require.ErrorIs(t, err, product.ErrAlreadyReviewed)

	reviews, err := s.Reviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "u2", reviews[0].UserID)
	assert.Equal(t, "Solid", reviews[1].Title)
	assert.False(t, reviews[1].CreatedAt.IsZero())

	after, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Rating.Count, "rejected review leaves the rating alone")
}

func TestService_AddReviewRejects(t *testing.T) {
	ctx := context.Background()
	s, p := newCatalog(t)

	for _, tt := range []struct {
		name   string
		review product.Review
	}{
		{"ZeroRating", product.Review{UserID: "u1", Rating: 0}},
		{"RatingAboveFive", product.Review{UserID: "u1", Rating: 6}},
		{"LongTitle", product.Review{UserID: "u1", Rating: 3, Title: strings.Repeat("x", 201)}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddReview(ctx, p.ID, tt.review)
			require.ErrorIs(t, err, product.ErrInvalid)
		})
	}

	_, err := s.AddReview(ctx, "missing", product.Review{UserID: "u1", Rating: 3})
	require.ErrorIs(t, err, product.ErrNotFound)
	_, err = s.Reviews(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Rating.Count)
}
