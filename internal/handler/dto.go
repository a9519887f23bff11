package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

type colorsDTO struct {
	Background string `json:"background"`
	Panel      string `json:"panel"`
	Text       string `json:"text"`
}

type ratingDTO struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type flashSaleDTO struct {
	Active bool       `json:"active"`
	Price  int64      `json:"price"`
	EndsAt *time.Time `json:"ends_at,omitempty"`
}

type productResponse struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Features       []string     `json:"features"`
	Category       string       `json:"category"`
	Price          int64        `json:"price"`
	Discount       int64        `json:"discount"`
	EffectivePrice int64        `json:"effective_price"`
	StockQuantity  int          `json:"stock_quantity"`
	InStock        bool         `json:"in_stock"`
	FreeShipping   bool         `json:"free_shipping"`
	Image          string       `json:"image"`
	Colors         colorsDTO    `json:"colors"`
	Rating         ratingDTO    `json:"rating"`
	FlashSale      flashSaleDTO `json:"flash_sale"`
	ViewCount      int64        `json:"view_count"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (s *Server) productResponse(p product.Product, now time.Time) productResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	fs := flashSaleDTO{Active: p.FlashSaleActive(now), Price: p.FlashSale.Price}
	if !p.FlashSale.EndsAt.IsZero() {
		ends := p.FlashSale.EndsAt
		fs.EndsAt = &ends
	}
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Features:       features,
		Category:       p.Category,
		Price:          p.Price,
		Discount:       p.Discount,
		EffectivePrice: p.Price - p.EffectiveDiscount(now),
		StockQuantity:  p.StockQuantity,
		InStock:        p.Available(),
		FreeShipping:   p.FreeShipping,
		Image:          s.imageURL(p.Image),
		Colors:         colorsDTO(p.Colors),
		Rating:         ratingDTO(p.Rating),
		FlashSale:      fs,
		ViewCount:      p.ViewCount,
		CreatedAt:      p.CreatedAt,
	}
}

func (s *Server) productResponses(ps []product.Product) []productResponse {
	now := time.Now()
	out := make([]productResponse, len(ps))
	for i, p := range ps {
		out[i] = s.productResponse(p, now)
	}
	return out
}

// imageURL prefixes relative image paths with the configured base URL.
func (s *Server) imageURL(path string) string {
	if path == "" || s.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return s.imageBaseURL + "/" + strings.TrimPrefix(path, "/")
}

type reviewResponse struct {
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type productRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Features      []string  `json:"features"`
	Category      string    `json:"category"`
	Price         int64     `json:"price"`
	Discount      int64     `json:"discount"`
	StockQuantity int       `json:"stock_quantity"`
	InStock       *bool     `json:"in_stock"`
	FreeShipping  bool      `json:"free_shipping"`
	Image         string    `json:"image"`
	Colors        colorsDTO `json:"colors"`
	FlashSale     struct {
		Active bool      `json:"active"`
		Price  int64     `json:"price"`
		EndsAt time.Time `json:"ends_at"`
	} `json:"flash_sale"`
}

// product converts the request. InStock defaults to true.
func (r productRequest) product() *product.Product {
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return &product.Product{
		Name:          strings.TrimSpace(r.Name),
		Description:   r.Description,
		Features:      r.Features,
		Category:      strings.TrimSpace(r.Category),
		Price:         r.Price,
		Discount:      r.Discount,
		StockQuantity: r.StockQuantity,
		InStock:       inStock,
		FreeShipping:  r.FreeShipping,
		Image:         r.Image,
		Colors:        product.Colors(r.Colors),
		FlashSale: product.FlashSale{
			Active: r.FlashSale.Active,
			Price:  r.FlashSale.Price,
			EndsAt: r.FlashSale.EndsAt,
		},
	}
}

type userResponse struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	FullName      string         `json:"full_name"`
	Contact       string         `json:"contact"`
	CartCount     int            `json:"cart_count"`
	WishlistCount int            `json:"wishlist_count"`
	OrderCount    int            `json:"order_count"`
	Addresses     []user.Address `json:"addresses"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newUserResponse(u *user.User) userResponse {
	addrs := u.Addresses
	if addrs == nil {
		addrs = []user.Address{}
	}
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Contact:       u.Contact,
		CartCount:     len(u.Cart),
		WishlistCount: len(u.Wishlist),
		OrderCount:    len(u.Orders),
		Addresses:     addrs,
		CreatedAt:     u.CreatedAt,
	}
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type cartResponse struct {
	Items       []order.LineItem `json:"items"`
	Unavailable []string         `json:"unavailable"`
	order.Totals
}

func newCartResponse(v *order.CartView) cartResponse {
	items, unavailable := v.Items, v.Unavailable
	if items == nil {
		items = []order.LineItem{}
	}
	if unavailable == nil {
		unavailable = []string{}
	}
	return cartResponse{Items: items, Unavailable: unavailable, Totals: v.Totals}
}

type orderResponse struct {
	Ref           string                `json:"ref"`
	Status        order.Status          `json:"status"`
	PaymentMethod order.PaymentMethod   `json:"payment_method"`
	PaymentStatus order.PaymentStatus   `json:"payment_status"`
	Items         []order.LineItem      `json:"items"`
	CouponCode    string                `json:"coupon_code,omitempty"`
	Shipping      order.ShippingDetails `json:"shipping"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	order.Totals
}

func newOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		Ref:           o.Ref,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Items:         o.Items,
		CouponCode:    o.CouponCode,
		Shipping:      o.Shipping,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Totals: order.Totals{
			TotalAmount:    o.TotalAmount,
			TotalDiscount:  o.TotalDiscount,
			CouponDiscount: o.CouponDiscount,
			PlatformFee:    o.PlatformFee,
			ShippingFee:    o.ShippingFee,
			FinalAmount:    o.FinalAmount,
		},
	}
}

func newOrderResponses(os []order.Order) []orderResponse {
	out := make([]orderResponse, len(os))
	for i := range os {
		out[i] = newOrderResponse(&os[i])
	}
	return out
}

type couponResponse struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	Description    string              `json:"description"`
	DiscountType   coupon.DiscountType `json:"discount_type"`
	DiscountValue  decimal.Decimal     `json:"discount_value"`
	MinOrderAmount int64               `json:"min_order_amount"`
	MaxDiscount    *int64              `json:"max_discount,omitempty"`
	UsageLimit     *int                `json:"usage_limit,omitempty"`
	UsedCount      int                 `json:"used_count"`
	ValidFrom      time.Time           `json:"valid_from"`
	ValidUntil     time.Time           `json:"valid_until"`
	IsActive       bool                `json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
}

func newCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
	}
}

type couponRequest struct {
	Code           string              `json:"code"`
	Description    string              `json:"description"`
	DiscountType   coupon.DiscountType `json:"discount_type"`
	DiscountValue  decimal.Decimal     `json:"discount_value"`
	MinOrderAmount int64               `json:"min_order_amount"`
	MaxDiscount    *int64              `json:"max_discount"`
	UsageLimit     *int                `json:"usage_limit"`
	ValidFrom      time.Time           `json:"valid_from"`
	ValidUntil     time.Time           `json:"valid_until"`
	IsActive       *bool               `json:"is_active"`
}

// coupon converts the request. IsActive defaults to true.
func (r couponRequest) coupon() *coupon.Coupon {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &coupon.Coupon{
		Code:           r.Code,
		Description:    r.Description,
		DiscountType:   r.DiscountType,
		DiscountValue:  r.DiscountValue,
		MinOrderAmount: r.MinOrderAmount,
		MaxDiscount:    r.MaxDiscount,
		UsageLimit:     r.UsageLimit,
		ValidFrom:      r.ValidFrom,
		ValidUntil:     r.ValidUntil,
		IsActive:       active,
	}
}
