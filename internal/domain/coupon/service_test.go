package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	coupon     *Coupon
	findErr    error
	created    *Coupon
	createErr  error
	lookedUp   string
	redeemErr  error
	redeemedBy string
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.lookedUp = code
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.coupon == nil {
		return nil, ErrNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) {
	if m.coupon == nil {
		return nil, nil
	}
	return []Coupon{*m.coupon}, nil
}

func (m *mockCouponRepo) Create(_ context.Context, c *Coupon) error {
	m.created = c
	return m.createErr
}

func (m *mockCouponRepo) Redeem(_ context.Context, _, userID string) error {
	m.redeemedBy = userID
	return m.redeemErr
}

func newTestService(repo Repository, now time.Time) *Service {
	s := NewService(repo, Config{UppercaseCodes: true})
	s.now = func() time.Time { return now }
	return s
}

func TestService_Quote(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	active := &Coupon{
		ID:            "c1",
		Code:          "SAVE10",
		DiscountType:  DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
	}

	t.Run("normalises code and computes discount", func(t *testing.T) {
		repo := &mockCouponRepo{coupon: active}
		s := newTestService(repo, now)

		q, err := s.Quote(context.Background(), " save10 ", "u1", 800)
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", repo.lookedUp)
		assert.Equal(t, int64(80), q.Discount)
		assert.Equal(t, "c1", q.Coupon.ID)
		assert.Empty(t, repo.redeemedBy, "quote must not redeem")
	})

	t.Run("unknown code", func(t *testing.T) {
		s := newTestService(&mockCouponRepo{}, now)

		_, err := s.Quote(context.Background(), "BOGUS", "u1", 800)
		var invErr *InvalidError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "invalid coupon code", invErr.Reason)
	})

	t.Run("empty code", func(t *testing.T) {
		s := newTestService(&mockCouponRepo{coupon: active}, now)

		_, err := s.Quote(context.Background(), "   ", "u1", 800)
		var invErr *InvalidError
		require.ErrorAs(t, err, &invErr)
	})

	t.Run("validation failure carries reason", func(t *testing.T) {
		used := *active
		used.UsedBy = []string{"u1"}
		s := newTestService(&mockCouponRepo{coupon: &used}, now)

		_, err := s.Quote(context.Background(), "SAVE10", "u1", 800)
		var invErr *InvalidError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "coupon already used by this user", invErr.Reason)
	})

	t.Run("storage failure is not a business error", func(t *testing.T) {
		s := newTestService(&mockCouponRepo{findErr: errors.New("db down")}, now)

		_, err := s.Quote(context.Background(), "SAVE10", "u1", 800)
		require.Error(t, err)
		var invErr *InvalidError
		assert.False(t, errors.As(err, &invErr))
		assert.Contains(t, err.Error(), "lookup coupon")
	})
}

func TestService_Create(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("normalises and resets counters", func(t *testing.T) {
		repo := &mockCouponRepo{}
		s := newTestService(repo, now)

		c := &Coupon{
			Code:          "welcome",
			DiscountType:  DiscountFixed,
			DiscountValue: decimal.NewFromInt(50),
			ValidUntil:    now.Add(24 * time.Hour),
			IsActive:      true,
			UsedCount:     7,
			UsedBy:        []string{"x"},
		}
		require.NoError(t, s.Create(context.Background(), c))
		require.NotNil(t, repo.created)
		assert.Equal(t, "WELCOME", repo.created.Code)
		assert.Equal(t, now, repo.created.ValidFrom)
		assert.Zero(t, repo.created.UsedCount)
		assert.Empty(t, repo.created.UsedBy)
	})

	tests := []struct {
		name   string
		coupon Coupon
	}{
		{
			name:   "missing code",
			coupon: Coupon{DiscountType: DiscountFixed, DiscountValue: decimal.NewFromInt(1), ValidUntil: now.Add(time.Hour)},
		},
		{
			name:   "percentage above 100",
			coupon: Coupon{Code: "X", DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(101), ValidUntil: now.Add(time.Hour)},
		},
		{
			name:   "unknown type",
			coupon: Coupon{Code: "X", DiscountType: "bogo", DiscountValue: decimal.NewFromInt(1), ValidUntil: now.Add(time.Hour)},
		},
		{
			name:   "zero value",
			coupon: Coupon{Code: "X", DiscountType: DiscountFixed, ValidUntil: now.Add(time.Hour)},
		},
		{
			name:   "missing valid until",
			coupon: Coupon{Code: "X", DiscountType: DiscountFixed, DiscountValue: decimal.NewFromInt(1)},
		},
		{
			name:   "window inverted",
			coupon: Coupon{Code: "X", DiscountType: DiscountFixed, DiscountValue: decimal.NewFromInt(1), ValidFrom: now, ValidUntil: now.Add(-time.Hour)},
		},
		{
			name: "cap on fixed coupon",
			coupon: Coupon{
				Code: "X", DiscountType: DiscountFixed, DiscountValue: decimal.NewFromInt(1),
				MaxDiscount: ptr(int64(5)), ValidUntil: now.Add(time.Hour),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{}
			s := newTestService(repo, now)

			err := s.Create(context.Background(), &tt.coupon)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, repo.created)
		})
	}
}

func TestService_Redeem(t *testing.T) {
	c := &Coupon{ID: "c1", Code: "SAVE10"}

	tests := []struct {
		name       string
		repoErr    error
		wantReason string
		wantErr    bool
	}{
		{name: "ok"},
		{name: "limit reached", repoErr: ErrUsageLimitReached, wantReason: "coupon usage limit reached"},
		{name: "already used", repoErr: ErrAlreadyUsed, wantReason: "coupon already used by this user"},
		{name: "storage failure", repoErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCouponRepo{redeemErr: tt.repoErr}
			s := newTestService(repo, time.Now())

			err := s.Redeem(context.Background(), c, "u1")
			assert.Equal(t, "u1", repo.redeemedBy)

			var invErr *InvalidError
			switch {
			case tt.wantReason != "":
				require.ErrorAs(t, err, &invErr)
				assert.Equal(t, tt.wantReason, invErr.Reason)
			case tt.wantErr:
				require.Error(t, err)
				assert.False(t, errors.As(err, &invErr))
			default:
				require.NoError(t, err)
			}
		})
	}
}
