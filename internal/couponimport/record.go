package couponimport

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
)

// decodeRecord parses one NDJSON line. is_active defaults to true and
// discount_value may be a number or a decimal string.
func decodeRecord(line []byte) (coupon.Coupon, error) {
	c := coupon.Coupon{IsActive: true}
	d := jx.DecodeBytes(line)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "description":
			c.Description, err = d.Str()
		case "discount_type":
			var s string
			s, err = d.Str()
			c.DiscountType = coupon.DiscountType(s)
		case "discount_value":
			c.DiscountValue, err = decodeDecimal(d)
		case "min_order_amount":
			c.MinOrderAmount, err = d.Int64()
		case "max_discount":
			c.MaxDiscount, err = optional(d, d.Int64)
		case "usage_limit":
			c.UsageLimit, err = optional(d, d.Int)
		case "valid_from":
			c.ValidFrom, err = decodeTime(d)
		case "valid_until":
			c.ValidUntil, err = decodeTime(d)
		case "is_active":
			c.IsActive, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return c, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

// optional decodes null as nil.
func optional[T any](d *jx.Decoder, read func() (T, error)) (*T, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := read()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
