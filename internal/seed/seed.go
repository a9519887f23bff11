// Package seed loads the demo catalog, demo coupons and the owner API key
// into a freshly migrated store. Every step is idempotent.
package seed

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

// DecodeProducts parses a JSON array of catalog entries. Missing in_stock
// defaults to true.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		p := product.Product{InStock: true}
		if err := decodeProduct(d, &p); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder, p *product.Product) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "features":
			err = d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				p.Features = append(p.Features, s)
				return err
			})
		case "price":
			p.Price, err = d.Int64()
		case "discount":
			p.Discount, err = d.Int64()
		case "stock_quantity":
			p.StockQuantity, err = d.Int()
		case "in_stock":
			p.InStock, err = d.Bool()
		case "free_shipping":
			p.FreeShipping, err = d.Bool()
		case "colors":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "background":
					p.Colors.Background, err = d.Str()
				case "panel":
					p.Colors.Panel, err = d.Str()
				case "text":
					p.Colors.Text, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		case "rating":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "average":
					p.Rating.Average, err = d.Float64()
				case "count":
					p.Rating.Count, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			})
		case "flash_sale":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "active":
					p.FlashSale.Active, err = d.Bool()
				case "price":
					p.FlashSale.Price, err = d.Int64()
				case "ends_at":
					p.FlashSale.EndsAt, err = decodeTime(d)
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}

// Products creates every product whose name is not in the catalog yet and
// returns how many were created.
func Products(ctx context.Context, svc *product.Service, items []product.Product) (int, error) {
	existing, err := svc.List(ctx, product.ListFilter{})
	if err != nil {
		return 0, errors.Wrap(err, "list products")
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[strings.ToLower(p.Name)] = struct{}{}
	}

	lg := zctx.From(ctx)
	created := 0
	for i := range items {
		p := items[i]
		if _, ok := names[strings.ToLower(p.Name)]; ok {
			lg.Debug("Product exists, skipping", zap.String("name", p.Name))
			continue
		}
		if err := svc.Create(ctx, &p); err != nil {
			return created, errors.Wrapf(err, "create product %q", p.Name)
		}
		names[strings.ToLower(p.Name)] = struct{}{}
		created++
	}
	return created, nil
}

// DemoCoupons returns the coupons offered by a fresh deployment, valid for a
// year from now.
func DemoCoupons(now time.Time) []coupon.Coupon {
	until := now.AddDate(1, 0, 0)
	maxDiscount := int64(500)
	firstOrderLimit := 1000
	return []coupon.Coupon{
		{
			Code:          "WELCOME10",
			Description:   "10% off your order, up to 500",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			MaxDiscount:   &maxDiscount,
			UsageLimit:    &firstOrderLimit,
			ValidFrom:     now,
			ValidUntil:    until,
			IsActive:      true,
		},
		{
			Code:           "FLAT200",
			Description:    "200 off orders above 1500",
			DiscountType:   coupon.DiscountFixed,
			DiscountValue:  decimal.NewFromInt(200),
			MinOrderAmount: 1500,
			ValidFrom:      now,
			ValidUntil:     until,
			IsActive:       true,
		},
	}
}

// Coupons creates coupons whose code is not taken and returns how many were
// created.
func Coupons(ctx context.Context, svc *coupon.Service, items []coupon.Coupon) (int, error) {
	created := 0
	for i := range items {
		c := items[i]
		switch err := svc.Create(ctx, &c); {
		case err == nil:
			created++
		case errors.Is(err, coupon.ErrCodeTaken):
			zctx.From(ctx).Debug("Coupon exists, skipping", zap.String("code", c.Code))
		default:
			return created, errors.Wrapf(err, "create coupon %q", c.Code)
		}
	}
	return created, nil
}

// APIKey stores an admin scoped key. An empty raw key is replaced by a
// generated one, which is returned so it can be shown once.
func APIKey(ctx context.Context, keys auth.Repository, pepper []byte, name, raw string) (string, error) {
	if raw == "" {
		generated, err := auth.GenerateKey()
		if err != nil {
			return "", err
		}
		raw = generated
	}
	info := &auth.APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: auth.NewHasher(pepper).Hex(raw),
		Name:    name,
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := keys.Create(ctx, info); err != nil {
		return "", errors.Wrap(err, "create api key")
	}
	return raw, nil
}
