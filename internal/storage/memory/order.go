package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
)

// Orders implements order.Repository. Orders are keyed by reference, which
// doubles as the uniqueness constraint.
type Orders struct{ store *Store }

// NewOrders returns the order repository of store.
func NewOrders(store *Store) *Orders { return &Orders{store: store} }

var _ order.Repository = (*Orders)(nil)

func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.data.orders[o.Ref]; ok {
		return order.ErrDuplicateOrderRef
	}
	r.store.data.orders[o.Ref] = cloneOrder(*o)
	return nil
}

func (r *Orders) GetByRef(ctx context.Context, ref string) (*order.Order, error) {
	defer r.store.rlock(ctx)()
	o, ok := r.store.data.orders[ref]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *Orders) ListByUser(ctx context.Context, userID string, limit int) ([]order.Order, error) {
	defer r.store.rlock(ctx)()
	out := r.collect(func(o order.Order) bool { return o.UserID == userID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Orders) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	defer r.store.rlock(ctx)()
	out := r.collect(func(o order.Order) bool { return f.Status == "" || o.Status == f.Status })
	if f.Offset >= len(out) {
		return []order.Order{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// collect returns matching orders, newest first. Callers hold the lock.
func (r *Orders) collect(match func(order.Order) bool) []order.Order {
	out := make([]order.Order, 0)
	for _, o := range r.store.data.orders {
		if match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.Ref, a.Ref))
	})
	return out
}

func (r *Orders) UpdateStatus(ctx context.Context, ref string, from, to order.Status, at time.Time) error {
	defer r.store.wlock(ctx)()
	o, ok := r.store.data.orders[ref]
	if !ok || o.Status != from {
		return order.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	r.store.data.orders[ref] = o
	return nil
}

func (r *Orders) UpdatePaymentStatus(ctx context.Context, ref string, from, to order.PaymentStatus, at time.Time) error {
	defer r.store.wlock(ctx)()
	o, ok := r.store.data.orders[ref]
	if !ok || o.PaymentStatus != from {
		return order.ErrStatusConflict
	}
	o.PaymentStatus = to
	o.UpdatedAt = at
	r.store.data.orders[ref] = o
	return nil
}
