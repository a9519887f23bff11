package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order amount, optionally capped.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the order amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon matches the requested code.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeTaken is returned when creating a coupon whose code already exists.
	ErrCodeTaken = errors.New("coupon code already exists")
	// ErrInvalid is returned when a coupon definition fails validation.
	ErrInvalid = errors.New("invalid coupon")
	// ErrUsageLimitReached is returned by Repository.Redeem when the coupon
	// has no uses left.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrAlreadyUsed is returned by Repository.Redeem when the user has
	// already redeemed the coupon.
	ErrAlreadyUsed = errors.New("coupon already used by this user")
)

// InvalidError reports why a coupon cannot be applied. Reason is safe to show
// to the customer.
type InvalidError struct {
	Code   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("coupon %s: %s", e.Code, e.Reason)
}

// Coupon is a discount code definition together with its usage counters.
type Coupon struct {
	ID             string
	Code           string
	Description    string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount int64
	// MaxDiscount caps percentage discounts. Nil means uncapped.
	MaxDiscount *int64
	// UsageLimit bounds total redemptions. Nil means unlimited.
	UsageLimit *int
	UsedCount  int
	UsedBy     []string
	ValidFrom  time.Time
	ValidUntil time.Time
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UsedByUser reports whether userID has already redeemed the coupon.
func (c *Coupon) UsedByUser(userID string) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Config controls coupon code handling.
type Config struct {
	// UppercaseCodes normalises codes to upper case on create and lookup.
	UppercaseCodes bool
}

// NormalizeCode trims the code and applies case normalisation.
func (c Config) NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if c.UppercaseCodes {
		code = strings.ToUpper(code)
	}
	return code
}

// Repository provides coupon persistence.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	// Redeem records a use of the coupon by userID. It must be a single
	// conditional update: it succeeds only while UsedCount < UsageLimit and
	// userID is not in UsedBy, returning ErrUsageLimitReached or
	// ErrAlreadyUsed otherwise.
	Redeem(ctx context.Context, couponID, userID string) error
}
