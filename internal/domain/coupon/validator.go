package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validation is the outcome of checking a coupon against an order.
type Validation struct {
	Valid  bool
	Reason string
}

func invalid(reason string) Validation {
	return Validation{Reason: reason}
}

// Validate checks the coupon against the user and order amount at now. The
// checks run in a fixed order and the first failure wins.
func Validate(c *Coupon, userID string, orderAmount int64, now time.Time) Validation {
	if !c.IsActive {
		return invalid("coupon is not active")
	}
	if now.Before(c.ValidFrom) {
		return invalid("coupon is not yet valid")
	}
	if now.After(c.ValidUntil) {
		return invalid("coupon has expired")
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return invalid("coupon usage limit reached")
	}
	if orderAmount < c.MinOrderAmount {
		return invalid(fmt.Sprintf("minimum order amount is %d", c.MinOrderAmount))
	}
	if userID != "" && c.UsedByUser(userID) {
		return invalid("coupon already used by this user")
	}
	return Validation{Valid: true}
}

// CalculateDiscount returns the discount the coupon grants on orderAmount.
// Percentage discounts are floored to whole units. The result never exceeds
// orderAmount and is never negative.
func CalculateDiscount(c *Coupon, orderAmount int64) int64 {
	if orderAmount <= 0 {
		return 0
	}

	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = decimal.NewFromInt(orderAmount).
			Mul(c.DiscountValue).
			Div(hundred).
			Floor().
			IntPart()
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue.Floor().IntPart()
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
