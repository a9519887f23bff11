package user

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// MaxRecentlyViewed bounds the recently viewed list.
const MaxRecentlyViewed = 20

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalid is returned when user input fails validation.
	ErrInvalid = errors.New("invalid user input")
	// ErrAddressNotFound is returned when an address ID is unknown.
	ErrAddressNotFound = errors.New("address not found")
	// ErrCartChanged is returned by Repository.AttachOrder when the stored
	// cart differs from the expected one.
	ErrCartChanged = errors.New("cart changed")
)

// User is a customer account together with its shopping state.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FullName       string
	Contact        string
	Cart           []string
	Wishlist       []string
	Addresses      []Address
	Orders         []string
	RecentlyViewed []View
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Address is a shipping address record.
type Address struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
	IsDefault  bool   `json:"is_default"`
}

// View records a product page visit.
type View struct {
	ProductID string    `json:"product_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// DefaultAddress returns the default address, if any.
func (u *User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// InWishlist reports whether productID is wishlisted.
func (u *User) InWishlist(productID string) bool {
	return slices.Contains(u.Wishlist, productID)
}

// RemoveFromCart drops the first cart entry matching productID. It reports
// whether an entry was removed.
func RemoveFromCart(cart []string, productID string) ([]string, bool) {
	i := slices.Index(cart, productID)
	if i < 0 {
		return cart, false
	}
	return slices.Delete(slices.Clone(cart), i, i+1), true
}

// PushView prepends a view of productID, dropping any earlier view of the
// same product and truncating to MaxRecentlyViewed.
func PushView(views []View, productID string, at time.Time) []View {
	out := make([]View, 0, min(len(views)+1, MaxRecentlyViewed))
	out = append(out, View{ProductID: productID, ViewedAt: at})
	for _, v := range views {
		if len(out) == MaxRecentlyViewed {
			break
		}
		if v.ProductID == productID {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Profile holds the editable profile fields.
type Profile struct {
	FullName string
	Contact  string
}

// Repository defines user persistence. Methods that take a user ID return
// ErrNotFound when the user does not exist.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) error
	UpdatePassword(ctx context.Context, id, hash string) error

	// AddToCart appends productID to the cart.
	AddToCart(ctx context.Context, id, productID string) error
	// RemoveFromCart drops the first cart entry matching productID. It
	// returns true when an entry was removed.
	RemoveFromCart(ctx context.Context, id, productID string) (bool, error)

	// AddToWishlist adds productID unless already present.
	AddToWishlist(ctx context.Context, id, productID string) error
	RemoveFromWishlist(ctx context.Context, id, productID string) error

	SetAddresses(ctx context.Context, id string, addrs []Address) error
	SetRecentlyViewed(ctx context.Context, id string, views []View) error

	// AttachOrder appends orderID to the order history and clears the cart,
	// provided the cart still equals cart. Otherwise nothing changes and
	// ErrCartChanged is returned. It participates in the caller's
	// transaction when one is active.
	AttachOrder(ctx context.Context, id, orderID string, cart []string) error
}
