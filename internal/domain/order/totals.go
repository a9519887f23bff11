package order

// Fees are the flat charges added to every order.
type Fees struct {
	Platform int64
	Shipping int64
}

// Totals are the monetary fields of an order.
type Totals struct {
	TotalAmount    int64 `json:"total_amount"`
	TotalDiscount  int64 `json:"total_discount"`
	CouponDiscount int64 `json:"coupon_discount"`
	PlatformFee    int64 `json:"platform_fee"`
	ShippingFee    int64 `json:"shipping_fee"`
	FinalAmount    int64 `json:"final_amount"`
}

// Subtotal is the amount coupons are evaluated against.
func (t Totals) Subtotal() int64 {
	return t.TotalAmount - t.TotalDiscount
}

// ComputeTotals sums the line items and applies fees and the coupon
// discount:
//
//	final = Σprice - Σdiscount - coupon + platform + shipping
func ComputeTotals(items []LineItem, couponDiscount int64, fees Fees) Totals {
	var t Totals
	for _, it := range items {
		t.TotalAmount += it.Price
		t.TotalDiscount += it.Discount
	}
	t.CouponDiscount = couponDiscount
	t.PlatformFee = fees.Platform
	t.ShippingFee = fees.Shipping
	t.FinalAmount = t.TotalAmount - t.TotalDiscount - t.CouponDiscount + t.PlatformFee + t.ShippingFee
	return t
}

func (o *Order) applyTotals(t Totals) {
	o.TotalAmount = t.TotalAmount
	o.TotalDiscount = t.TotalDiscount
	o.CouponDiscount = t.CouponDiscount
	o.PlatformFee = t.PlatformFee
	o.ShippingFee = t.ShippingFee
	o.FinalAmount = t.FinalAmount
}

// Totals returns the monetary fields of the order.
func (o *Order) Totals() Totals {
	return Totals{
		TotalAmount:    o.TotalAmount,
		TotalDiscount:  o.TotalDiscount,
		CouponDiscount: o.CouponDiscount,
		PlatformFee:    o.PlatformFee,
		ShippingFee:    o.ShippingFee,
		FinalAmount:    o.FinalAmount,
	}
}
