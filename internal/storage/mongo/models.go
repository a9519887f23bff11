package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// ==================== Product ====================

// productModel keeps price minus discount in effective_price for sorting.
type productModel struct {
	ID             string     `bson:"_id"`
	Name           string     `bson:"name"`
	Description    string     `bson:"description"`
	Features       []string   `bson:"features"`
	Category       string     `bson:"category"`
	Price          int64      `bson:"price"`
	Discount       int64      `bson:"discount"`
	EffectivePrice int64      `bson:"effective_price"`
	StockQuantity  int        `bson:"stock_quantity"`
	InStock        bool       `bson:"in_stock"`
	FreeShipping   bool       `bson:"free_shipping"`
	Image          string     `bson:"image"`
	BgColor        string     `bson:"bg_color"`
	PanelColor     string     `bson:"panel_color"`
	TextColor      string     `bson:"text_color"`
	RatingAverage  float64    `bson:"rating_average"`
	RatingCount    int        `bson:"rating_count"`
	FlashSale      bool       `bson:"flash_sale"`
	FlashSalePrice int64      `bson:"flash_sale_price"`
	FlashSaleEnd   *time.Time `bson:"flash_sale_end,omitempty"`
	ViewCount      int64      `bson:"view_count"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

type reviewModel struct {
	UserID    string    `bson:"user_id"`
	Rating    int       `bson:"rating"`
	Title     string    `bson:"title"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

func toReviewModel(r product.Review) reviewModel {
	return reviewModel{
		UserID:    r.UserID,
		Rating:    r.Rating,
		Title:     r.Title,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func fromReviewModel(m reviewModel) product.Review {
	return product.Review{
		UserID:    m.UserID,
		Rating:    m.Rating,
		Title:     m.Title,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}

func toProductModel(p *product.Product) *productModel {
	m := &productModel{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Features:       nonNil(p.Features),
		Category:       p.Category,
		Price:          p.Price,
		Discount:       p.Discount,
		EffectivePrice: p.Price - p.Discount,
		StockQuantity:  p.StockQuantity,
		InStock:        p.InStock,
		FreeShipping:   p.FreeShipping,
		Image:          p.Image,
		BgColor:        p.Colors.Background,
		PanelColor:     p.Colors.Panel,
		TextColor:      p.Colors.Text,
		RatingAverage:  p.Rating.Average,
		RatingCount:    p.Rating.Count,
		FlashSale:      p.FlashSale.Active,
		FlashSalePrice: p.FlashSale.Price,
		ViewCount:      p.ViewCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if !p.FlashSale.EndsAt.IsZero() {
		t := p.FlashSale.EndsAt
		m.FlashSaleEnd = &t
	}
	return m
}

func fromProductModel(m *productModel) product.Product {
	p := product.Product{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Features:      m.Features,
		Category:      m.Category,
		Price:         m.Price,
		Discount:      m.Discount,
		StockQuantity: m.StockQuantity,
		InStock:       m.InStock,
		FreeShipping:  m.FreeShipping,
		Image:         m.Image,
		Colors:        product.Colors{Background: m.BgColor, Panel: m.PanelColor, Text: m.TextColor},
		Rating:        product.Rating{Average: m.RatingAverage, Count: m.RatingCount},
		FlashSale:     product.FlashSale{Active: m.FlashSale, Price: m.FlashSalePrice},
		ViewCount:     m.ViewCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.FlashSaleEnd != nil {
		p.FlashSale.EndsAt = *m.FlashSaleEnd
	}
	return p
}

// ==================== User ====================

type userModel struct {
	ID             string         `bson:"_id"`
	Email          string         `bson:"email"`
	PasswordHash   string         `bson:"password_hash"`
	FullName       string         `bson:"full_name"`
	Contact        string         `bson:"contact"`
	Cart           []string       `bson:"cart"`
	Wishlist       []string       `bson:"wishlist"`
	Addresses      []addressModel `bson:"addresses"`
	OrderIDs       []string       `bson:"order_ids"`
	RecentlyViewed []viewModel    `bson:"recently_viewed"`
	CreatedAt      time.Time      `bson:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at"`
}

type addressModel struct {
	ID         string `bson:"id"`
	FullName   string `bson:"full_name"`
	Phone      string `bson:"phone"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
	IsDefault  bool   `bson:"is_default"`
}

type viewModel struct {
	ProductID string    `bson:"product_id"`
	ViewedAt  time.Time `bson:"viewed_at"`
}

func toAddressModels(addrs []user.Address) []addressModel {
	out := make([]addressModel, len(addrs))
	for i, a := range addrs {
		out[i] = addressModel(a)
	}
	return out
}

func toViewModels(views []user.View) []viewModel {
	out := make([]viewModel, len(views))
	for i, v := range views {
		out[i] = viewModel(v)
	}
	return out
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		FullName:       u.FullName,
		Contact:        u.Contact,
		Cart:           nonNil(u.Cart),
		Wishlist:       nonNil(u.Wishlist),
		Addresses:      toAddressModels(u.Addresses),
		OrderIDs:       nonNil(u.Orders),
		RecentlyViewed: toViewModels(u.RecentlyViewed),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) *user.User {
	u := &user.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FullName:     m.FullName,
		Contact:      m.Contact,
		Cart:         m.Cart,
		Wishlist:     m.Wishlist,
		Orders:       m.OrderIDs,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, a := range m.Addresses {
		u.Addresses = append(u.Addresses, user.Address(a))
	}
	for _, v := range m.RecentlyViewed {
		u.RecentlyViewed = append(u.RecentlyViewed, user.View(v))
	}
	return u
}

// ==================== Coupon ====================

type couponModel struct {
	ID             string          `bson:"_id"`
	Code           string          `bson:"code"`
	Description    string          `bson:"description"`
	DiscountType   string          `bson:"discount_type"`
	DiscountValue  bson.Decimal128 `bson:"discount_value"`
	MinOrderAmount int64           `bson:"min_order_amount"`
	MaxDiscount    *int64          `bson:"max_discount"`
	UsageLimit     *int            `bson:"usage_limit"`
	UsedCount      int             `bson:"used_count"`
	UsedBy         []string        `bson:"used_by"`
	ValidFrom      time.Time       `bson:"valid_from"`
	ValidUntil     time.Time       `bson:"valid_until"`
	IsActive       bool            `bson:"is_active"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
}

func toCouponModel(c *coupon.Coupon) (*couponModel, error) {
	value, err := bson.ParseDecimal128(c.DiscountValue.String())
	if err != nil {
		return nil, fmt.Errorf("encoding discount value %s: %w", c.DiscountValue, err)
	}
	return &couponModel{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		UsedBy:         nonNil(c.UsedBy),
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}, nil
}

func fromCouponModel(m *couponModel) (*coupon.Coupon, error) {
	value, err := decimal.NewFromString(m.DiscountValue.String())
	if err != nil {
		return nil, fmt.Errorf("decoding discount value of coupon %q: %w", m.Code, err)
	}
	return &coupon.Coupon{
		ID:             m.ID,
		Code:           m.Code,
		Description:    m.Description,
		DiscountType:   coupon.DiscountType(m.DiscountType),
		DiscountValue:  value,
		MinOrderAmount: m.MinOrderAmount,
		MaxDiscount:    m.MaxDiscount,
		UsageLimit:     m.UsageLimit,
		UsedCount:      m.UsedCount,
		UsedBy:         m.UsedBy,
		ValidFrom:      m.ValidFrom,
		ValidUntil:     m.ValidUntil,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

// ==================== Order ====================

type orderModel struct {
	ID             string          `bson:"_id"`
	Ref            string          `bson:"ref"`
	UserID         string          `bson:"user_id"`
	Items          []lineItemModel `bson:"items"`
	TotalAmount    int64           `bson:"total_amount"`
	TotalDiscount  int64           `bson:"total_discount"`
	CouponCode     string          `bson:"coupon_code"`
	CouponDiscount int64           `bson:"coupon_discount"`
	PlatformFee    int64           `bson:"platform_fee"`
	ShippingFee    int64           `bson:"shipping_fee"`
	FinalAmount    int64           `bson:"final_amount"`
	Shipping       shippingModel   `bson:"shipping"`
	PaymentMethod  string          `bson:"payment_method"`
	PaymentStatus  string          `bson:"payment_status"`
	Status         string          `bson:"status"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
}

type lineItemModel struct {
	ProductID string `bson:"product_id"`
	Name      string `bson:"name"`
	Price     int64  `bson:"price"`
	Discount  int64  `bson:"discount"`
	Image     string `bson:"image"`
	Color     string `bson:"color"`
}

type shippingModel struct {
	FullName   string `bson:"full_name"`
	Phone      string `bson:"phone"`
	Line1      string `bson:"line1"`
	Line2      string `bson:"line2"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
}

func toOrderModel(o *order.Order) *orderModel {
	items := make([]lineItemModel, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemModel(it)
	}
	return &orderModel{
		ID:             o.ID,
		Ref:            o.Ref,
		UserID:         o.UserID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		TotalDiscount:  o.TotalDiscount,
		CouponCode:     o.CouponCode,
		CouponDiscount: o.CouponDiscount,
		PlatformFee:    o.PlatformFee,
		ShippingFee:    o.ShippingFee,
		FinalAmount:    o.FinalAmount,
		Shipping:       shippingModel(o.Shipping),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentStatus:  string(o.PaymentStatus),
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func fromOrderModel(m *orderModel) order.Order {
	items := make([]order.LineItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = order.LineItem(it)
	}
	return order.Order{
		ID:             m.ID,
		Ref:            m.Ref,
		UserID:         m.UserID,
		Items:          items,
		TotalAmount:    m.TotalAmount,
		TotalDiscount:  m.TotalDiscount,
		CouponCode:     m.CouponCode,
		CouponDiscount: m.CouponDiscount,
		PlatformFee:    m.PlatformFee,
		ShippingFee:    m.ShippingFee,
		FinalAmount:    m.FinalAmount,
		Shipping:       order.ShippingDetails(m.Shipping),
		PaymentMethod:  order.PaymentMethod(m.PaymentMethod),
		PaymentStatus:  order.PaymentStatus(m.PaymentStatus),
		Status:         order.Status(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// ==================== API key ====================

type apiKeyModel struct {
	ID      string   `bson:"_id"`
	KeyHash string   `bson:"key_hash"`
	Name    string   `bson:"name"`
	Scopes  []string `bson:"scopes"`
	Active  bool     `bson:"active"`
}

func fromAPIKeyModel(m *apiKeyModel) *auth.APIKeyInfo {
	return &auth.APIKeyInfo{ID: m.ID, KeyHash: m.KeyHash, Name: m.Name, Scopes: m.Scopes}
}
