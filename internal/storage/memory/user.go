package memory

import (
	"context"
	"slices"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// Users implements user.Repository.
type Users struct{ store *Store }

// NewUsers returns the user repository of store.
func NewUsers(store *Store) *Users { return &Users{store: store} }

var _ user.Repository = (*Users)(nil)

func (r *Users) Create(ctx context.Context, u *user.User) error {
	defer r.store.wlock(ctx)()
	for _, existing := range r.store.data.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	r.store.data.users[u.ID] = cloneUser(*u)
	return nil
}

func (r *Users) GetByID(ctx context.Context, id string) (*user.User, error) {
	defer r.store.rlock(ctx)()
	u, ok := r.store.data.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := cloneUser(u)
	return &cp, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	defer r.store.rlock(ctx)()
	for _, u := range r.store.data.users {
		if u.Email == email {
			cp := cloneUser(u)
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

// update applies fn to the stored user under the write lock.
func (r *Users) update(ctx context.Context, id string, fn func(u *user.User)) error {
	defer r.store.wlock(ctx)()
	u, ok := r.store.data.users[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(&u)
	r.store.data.users[id] = u
	return nil
}

func (r *Users) UpdateProfile(ctx context.Context, id string, p user.Profile) error {
	return r.update(ctx, id, func(u *user.User) {
		u.FullName = p.FullName
		u.Contact = p.Contact
	})
}

func (r *Users) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, func(u *user.User) { u.PasswordHash = hash })
}

func (r *Users) AddToCart(ctx context.Context, id, productID string) error {
	return r.update(ctx, id, func(u *user.User) { u.Cart = append(u.Cart, productID) })
}

func (r *Users) RemoveFromCart(ctx context.Context, id, productID string) (bool, error) {
	var removed bool
	err := r.update(ctx, id, func(u *user.User) {
		u.Cart, removed = user.RemoveFromCart(u.Cart, productID)
	})
	return removed, err
}

func (r *Users) AddToWishlist(ctx context.Context, id, productID string) error {
	return r.update(ctx, id, func(u *user.User) {
		if !slices.Contains(u.Wishlist, productID) {
			u.Wishlist = append(u.Wishlist, productID)
		}
	})
}

func (r *Users) RemoveFromWishlist(ctx context.Context, id, productID string) error {
	return r.update(ctx, id, func(u *user.User) {
		u.Wishlist = slices.DeleteFunc(slices.Clone(u.Wishlist), func(p string) bool { return p == productID })
	})
}

func (r *Users) SetAddresses(ctx context.Context, id string, addrs []user.Address) error {
	return r.update(ctx, id, func(u *user.User) { u.Addresses = slices.Clone(addrs) })
}

func (r *Users) SetRecentlyViewed(ctx context.Context, id string, views []user.View) error {
	return r.update(ctx, id, func(u *user.User) { u.RecentlyViewed = slices.Clone(views) })
}

func (r *Users) AttachOrder(ctx context.Context, id, orderID string, cart []string) error {
	defer r.store.wlock(ctx)()
	u, ok := r.store.data.users[id]
	if !ok {
		return user.ErrNotFound
	}
	if !slices.Equal(u.Cart, cart) {
		return user.ErrCartChanged
	}
	u.Orders = append(slices.Clone(u.Orders), orderID)
	u.Cart = nil
	r.store.data.users[id] = u
	return nil
}
