// Package memory implements the domain repositories in process memory. It is
// used for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
	"github.com/Devanshprabhakar24/Scatch/internal/storage"
)

// Store holds every collection behind one lock.
type Store struct {
	mu   sync.RWMutex
	data data
}

type data struct {
	products map[string]product.Product
	reviews  map[string][]product.Review // by product ID
	users    map[string]user.User
	coupons  map[string]coupon.Coupon
	orders   map[string]order.Order // by ref
	apiKeys  map[string]auth.APIKeyInfo
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: data{
		products: make(map[string]product.Product),
		reviews:  make(map[string][]product.Review),
		users:    make(map[string]user.User),
		coupons:  make(map[string]coupon.Coupon),
		orders:   make(map[string]order.Order),
		apiKeys:  make(map[string]auth.APIKeyInfo),
	}}
}

// Repositories returns every repository of s.
func (s *Store) Repositories() *storage.Repositories {
	return &storage.Repositories{
		Products: NewProducts(s),
		Users:    NewUsers(s),
		Coupons:  NewCoupons(s),
		Orders:   NewOrders(s),
		APIKeys:  NewAPIKeys(s),
		Tx:       NewTxManager(s),
		Ping:     func(context.Context) error { return nil },
		Close:    func(context.Context) error { return nil },
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) func() {
	if isTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) wlock(ctx context.Context) func() {
	if isTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TxManager emulates transactions with the store's write lock and a
// snapshot that is restored when the function fails.
type TxManager struct {
	store *Store
}

// NewTxManager returns a TxManager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// WithinTx runs fn holding the write lock. Repositories skip their own
// locking for the context passed to fn. Nested calls join the outer one.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snapshot := m.store.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.data = snapshot
		return err
	}
	return nil
}

func (d data) clone() data {
	out := data{
		products: make(map[string]product.Product, len(d.products)),
		reviews:  make(map[string][]product.Review, len(d.reviews)),
		users:    make(map[string]user.User, len(d.users)),
		coupons:  make(map[string]coupon.Coupon, len(d.coupons)),
		orders:   make(map[string]order.Order, len(d.orders)),
		apiKeys:  make(map[string]auth.APIKeyInfo, len(d.apiKeys)),
	}
	for k, v := range d.products {
		out.products[k] = cloneProduct(v)
	}
	for k, v := range d.reviews {
		out.reviews[k] = slices.Clone(v)
	}
	for k, v := range d.users {
		out.users[k] = cloneUser(v)
	}
	for k, v := range d.coupons {
		out.coupons[k] = cloneCoupon(v)
	}
	for k, v := range d.orders {
		out.orders[k] = cloneOrder(v)
	}
	for k, v := range d.apiKeys {
		v.Scopes = slices.Clone(v.Scopes)
		out.apiKeys[k] = v
	}
	return out
}

func cloneProduct(p product.Product) product.Product {
	p.Features = slices.Clone(p.Features)
	return p
}

func cloneUser(u user.User) user.User {
	u.Cart = slices.Clone(u.Cart)
	u.Wishlist = slices.Clone(u.Wishlist)
	u.Addresses = slices.Clone(u.Addresses)
	u.Orders = slices.Clone(u.Orders)
	u.RecentlyViewed = slices.Clone(u.RecentlyViewed)
	return u
}

func cloneCoupon(c coupon.Coupon) coupon.Coupon {
	c.UsedBy = slices.Clone(c.UsedBy)
	if c.MaxDiscount != nil {
		v := *c.MaxDiscount
		c.MaxDiscount = &v
	}
	if c.UsageLimit != nil {
		v := *c.UsageLimit
		c.UsageLimit = &v
	}
	return c
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
