package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the catalog: customer reads and admin writes.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a catalog Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns catalog products.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Product, error) {
	f.Query = strings.TrimSpace(f.Query)
	if f.Sort == "" {
		f.Sort = SortPopular
	}
	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Search returns products whose name contains query, ignoring case. An
// empty query matches nothing.
func (s *Service) Search(ctx context.Context, query string, sort Sort) ([]Product, error) {
	if strings.TrimSpace(query) == "" {
		return []Product{}, nil
	}
	return s.List(ctx, ListFilter{Query: query, Sort: sort})
}

// Get returns a product by ID.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := s.now()
	p.ID = uuid.NewString()
	p.ViewCount = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Create(ctx, p); err != nil {
		return errors.Wrap(err, "create product")
	}
	zctx.From(ctx).Info("Product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return nil
}

// Update replaces the editable fields of an existing product. Orders placed
// earlier keep their snapshots.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "update product")
	}
	return nil
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "delete product")
	}
	zctx.From(ctx).Info("Product deleted", zap.String("product_id", id))
	return nil
}

// AddReview records userID's review of a product and returns the product
// with its updated rating. Each user may review a product once.
func (s *Service) AddReview(ctx context.Context, productID string, r Review) (*Product, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Comment = strings.TrimSpace(r.Comment)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.CreatedAt = s.now()
	if err := s.repo.AddReview(ctx, productID, r); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, errors.Wrap(err, "add review")
	}
	zctx.From(ctx).Info("Review added",
		zap.String("product_id", productID),
		zap.String("user_id", r.UserID),
		zap.Int("rating", r.Rating),
	)
	return s.repo.GetByID(ctx, productID)
}

// Reviews lists the reviews of an existing product.
func (s *Service) Reviews(ctx context.Context, productID string) ([]Review, error) {
	reviews, err := s.repo.Reviews(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "list reviews")
	}
	return reviews, nil
}
