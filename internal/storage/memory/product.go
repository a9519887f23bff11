package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

// Products implements product.Repository.
type Products struct{ store *Store }

// NewProducts returns the product repository of store.
func NewProducts(store *Store) *Products { return &Products{store: store} }

var _ product.Repository = (*Products)(nil)

func (r *Products) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	defer r.store.rlock(ctx)()

	query := strings.ToLower(f.Query)
	out := make([]product.Product, 0, len(r.store.data.products))
	for _, p := range r.store.data.products {
		if f.DiscountedOnly && p.Discount <= 0 {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, cloneProduct(p))
	}

	newest := func(a, b product.Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	slices.SortFunc(out, func(a, b product.Product) int {
		switch f.Sort {
		case product.SortNewest:
			return newest(a, b)
		case product.SortLowPrice:
			return cmp.Or(cmp.Compare(a.Price-a.Discount, b.Price-b.Discount), newest(a, b))
		case product.SortHighPrice:
			return cmp.Or(cmp.Compare(b.Price-b.Discount, a.Price-a.Discount), newest(a, b))
		default:
			return cmp.Or(
				cmp.Compare(b.ViewCount, a.ViewCount),
				cmp.Compare(b.Rating.Average, a.Rating.Average),
				newest(a, b),
			)
		}
	})
	return out, nil
}

func (r *Products) GetByID(ctx context.Context, id string) (*product.Product, error) {
	defer r.store.rlock(ctx)()
	p, ok := r.store.data.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *Products) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	defer r.store.rlock(ctx)()
	out := make([]product.Product, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.store.data.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *Products) Create(ctx context.Context, p *product.Product) error {
	defer r.store.wlock(ctx)()
	r.store.data.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *Products) Update(ctx context.Context, p *product.Product) error {
	defer r.store.wlock(ctx)()
	existing, ok := r.store.data.products[p.ID]
	if !ok {
		return product.ErrNotFound
	}
	updated := cloneProduct(*p)
	updated.ViewCount = existing.ViewCount
	updated.Rating = existing.Rating
	updated.CreatedAt = existing.CreatedAt
	r.store.data.products[p.ID] = updated
	return nil
}

func (r *Products) Delete(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.data.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.store.data.products, id)
	delete(r.store.data.reviews, id)
	return nil
}

func (r *Products) IncrementViews(ctx context.Context, id string) error {
	defer r.store.wlock(ctx)()
	if p, ok := r.store.data.products[id]; ok {
		p.ViewCount++
		r.store.data.products[id] = p
	}
	return nil
}

func (r *Products) AddReview(ctx context.Context, productID string, rv product.Review) error {
	defer r.store.wlock(ctx)()
	p, ok := r.store.data.products[productID]
	if !ok {
		return product.ErrNotFound
	}
	reviews := r.store.data.reviews[productID]
	if slices.ContainsFunc(reviews, func(x product.Review) bool { return x.UserID == rv.UserID }) {
		return product.ErrAlreadyReviewed
	}
	r.store.data.reviews[productID] = append(reviews, rv)
	p.Rating = p.Rating.Add(rv.Rating)
	r.store.data.products[productID] = p
	return nil
}

func (r *Products) Reviews(ctx context.Context, productID string) ([]product.Review, error) {
	defer r.store.rlock(ctx)()
	if _, ok := r.store.data.products[productID]; !ok {
		return nil, product.ErrNotFound
	}
	out := slices.Clone(r.store.data.reviews[productID])
	slices.Reverse(out)
	return out, nil
}
