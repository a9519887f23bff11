package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalid is returned when a product fails validation.
	ErrInvalid = errors.New("invalid product")
	// ErrAlreadyReviewed is returned when a user reviews a product twice.
	ErrAlreadyReviewed = errors.New("product already reviewed by user")
)

// Product represents a catalog item available for purchase. Monetary values
// are whole currency units.
type Product struct {
	ID            string
	Name          string
	Description   string
	Features      []string
	Category      string
	Price         int64
	Discount      int64
	StockQuantity int
	InStock       bool
	FreeShipping  bool
	Image         string
	Colors        Colors
	Rating        Rating
	FlashSale     FlashSale
	ViewCount     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Colors holds the presentation colors of a product card.
type Colors struct {
	Background string
	Panel      string
	Text       string
}

// Rating is the aggregate of customer reviews.
type Rating struct {
	Average float64
	Count   int
}

// Review is one customer's rating of a product.
type Review struct {
	UserID    string
	Rating    int
	Title     string
	Comment   string
	CreatedAt time.Time
}

const (
	MinRating = 1
	MaxRating = 5
)

// Validate checks the rating range and text lengths.
func (r *Review) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return errors.Wrapf(ErrInvalid, "rating %d must be between %d and %d", r.Rating, MinRating, MaxRating)
	}
	if len(r.Title) > 200 {
		return errors.Wrap(ErrInvalid, "review title is too long")
	}
	if len(r.Comment) > 5000 {
		return errors.Wrap(ErrInvalid, "review comment is too long")
	}
	return nil
}

// Add returns the aggregate after one more review with the given rating.
func (r Rating) Add(rating int) Rating {
	n := r.Count + 1
	return Rating{
		Average: (r.Average*float64(r.Count) + float64(rating)) / float64(n),
		Count:   n,
	}
}

// FlashSale is a time-boxed discounted price window.
type FlashSale struct {
	Active bool
	Price  int64
	EndsAt time.Time
}

// Validate checks price and discount invariants.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalid, "name is required")
	}
	if p.Price < 0 {
		return errors.Wrap(ErrInvalid, "price must not be negative")
	}
	if p.Discount < 0 || p.Discount > p.Price {
		return errors.Wrapf(ErrInvalid, "discount %d must be between 0 and price %d", p.Discount, p.Price)
	}
	if p.FlashSale.Active && (p.FlashSale.Price < 0 || p.FlashSale.Price > p.Price) {
		return errors.Wrapf(ErrInvalid, "flash sale price %d must be between 0 and price %d", p.FlashSale.Price, p.Price)
	}
	if p.StockQuantity < 0 {
		return errors.Wrap(ErrInvalid, "stock quantity must not be negative")
	}
	return nil
}

// Available reports whether the product can be ordered.
func (p *Product) Available() bool {
	return p.InStock && p.StockQuantity > 0
}

// FlashSaleActive reports whether the flash sale window is open at now.
func (p *Product) FlashSaleActive(now time.Time) bool {
	return p.FlashSale.Active && now.Before(p.FlashSale.EndsAt)
}

// EffectiveDiscount returns the discount that applies at now: the regular
// discount, or the flash sale markdown when that is larger.
func (p *Product) EffectiveDiscount(now time.Time) int64 {
	d := p.Discount
	if p.FlashSaleActive(now) {
		if markdown := p.Price - p.FlashSale.Price; markdown > d {
			d = markdown
		}
	}
	return d
}

// Sort enumerates catalog orderings.
type Sort string

const (
	SortPopular   Sort = "popular"
	SortNewest    Sort = "newest"
	SortLowPrice  Sort = "lowprice"
	SortHighPrice Sort = "highprice"
)

// ParseSort maps a query value to a Sort, defaulting to SortPopular.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortNewest, SortLowPrice, SortHighPrice:
		return Sort(s)
	default:
		return SortPopular
	}
}

// ListFilter narrows and orders catalog listings.
type ListFilter struct {
	DiscountedOnly bool
	Query          string
	Sort           Sort
}

// Repository defines catalog persistence.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	// AddReview stores r and folds its rating into the product aggregate in
	// one atomic step. It returns ErrAlreadyReviewed when r.UserID already
	// reviewed the product.
	AddReview(ctx context.Context, productID string, r Review) error
	// Reviews returns the reviews of a product, newest first.
	Reviews(ctx context.Context, productID string) ([]Review, error)
}
