package user

import (
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Contact  string
}

// ViewedProduct pairs a product with the time it was last viewed.
type ViewedProduct struct {
	Product  product.Product
	ViewedAt time.Time
}

// Service implements account, cart, wishlist and address operations.
type Service struct {
	users    Repository
	products product.Repository
	cost     int
	now      func() time.Time
}

// NewService creates a user Service.
func NewService(users Repository, products product.Repository) *Service {
	return &Service{
		users:    users,
		products: products,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, errors.Wrapf(ErrInvalid, "password must be at least %d characters", MinPasswordLength)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, errors.Wrap(ErrInvalid, "full name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	now := s.now()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Contact:      strings.TrimSpace(req.Contact),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, errors.Wrap(err, "create user")
	}

	zctx.From(ctx).Info("User registered", zap.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks email and password and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile changes the display name and contact.
func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (*User, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Contact = strings.TrimSpace(p.Contact)
	if p.FullName == "" {
		return nil, errors.Wrap(ErrInvalid, "full name is required")
	}
	if err := s.users.UpdateProfile(ctx, id, p); err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return s.users.GetByID(ctx, id)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return errors.Wrapf(ErrInvalid, "password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		return errors.Wrap(err, "update password")
	}
	return nil
}

// AddToCart appends a product to the cart. Duplicates are kept.
func (s *Service) AddToCart(ctx context.Context, id, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	if err := s.users.AddToCart(ctx, id, productID); err != nil {
		return errors.Wrap(err, "add to cart")
	}
	return nil
}

// RemoveFromCart removes the first matching entry from the cart.
func (s *Service) RemoveFromCart(ctx context.Context, id, productID string) error {
	removed, err := s.users.RemoveFromCart(ctx, id, productID)
	if err != nil {
		return errors.Wrap(err, "remove from cart")
	}
	if !removed {
		return errors.Wrapf(product.ErrNotFound, "product %s is not in cart", productID)
	}
	return nil
}

// Wishlist returns the wishlisted products that still exist.
func (s *Service) Wishlist(ctx context.Context, id string) ([]product.Product, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(u.Wishlist) == 0 {
		return []product.Product{}, nil
	}
	products, err := s.products.GetByIDs(ctx, u.Wishlist)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	return products, nil
}

// AddToWishlist adds a product to the wishlist. Adding twice is a no-op.
func (s *Service) AddToWishlist(ctx context.Context, id, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	if err := s.users.AddToWishlist(ctx, id, productID); err != nil {
		return errors.Wrap(err, "add to wishlist")
	}
	return nil
}

// RemoveFromWishlist removes a product from the wishlist.
func (s *Service) RemoveFromWishlist(ctx context.Context, id, productID string) error {
	if err := s.users.RemoveFromWishlist(ctx, id, productID); err != nil {
		return errors.Wrap(err, "remove from wishlist")
	}
	return nil
}

// MoveToCart moves a wishlisted product to the cart. The cart entry is only
// added when the product is not already in the cart.
func (s *Service) MoveToCart(ctx context.Context, id, productID string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !u.InWishlist(productID) {
		return errors.Wrapf(product.ErrNotFound, "product %s is not in wishlist", productID)
	}
	if !slices.Contains(u.Cart, productID) {
		if err := s.AddToCart(ctx, id, productID); err != nil {
			return err
		}
	}
	return s.RemoveFromWishlist(ctx, id, productID)
}

// AddAddress stores a new address. The first address becomes the default,
// as does any address added with IsDefault set.
func (s *Service) AddAddress(ctx context.Context, id string, a Address) (*Address, error) {
	if err := validateAddress(a); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.ID = uuid.NewString()
	addrs := slices.Clone(u.Addresses)
	if len(addrs) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		for i := range addrs {
			addrs[i].IsDefault = false
		}
	}
	addrs = append(addrs, a)

	if err := s.users.SetAddresses(ctx, id, addrs); err != nil {
		return nil, errors.Wrap(err, "save addresses")
	}
	return &a, nil
}

// SetDefaultAddress marks addressID as the only default address.
func (s *Service) SetDefaultAddress(ctx context.Context, id, addressID string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	addrs := slices.Clone(u.Addresses)
	found := false
	for i := range addrs {
		addrs[i].IsDefault = addrs[i].ID == addressID
		found = found || addrs[i].IsDefault
	}
	if !found {
		return ErrAddressNotFound
	}
	if err := s.users.SetAddresses(ctx, id, addrs); err != nil {
		return errors.Wrap(err, "save addresses")
	}
	return nil
}

// DeleteAddress removes an address. When the default is removed the first
// remaining address is promoted.
func (s *Service) DeleteAddress(ctx context.Context, id, addressID string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(u.Addresses, func(a Address) bool { return a.ID == addressID })
	if i < 0 {
		return ErrAddressNotFound
	}
	wasDefault := u.Addresses[i].IsDefault
	addrs := slices.Delete(slices.Clone(u.Addresses), i, i+1)
	if wasDefault && len(addrs) > 0 {
		addrs[0].IsDefault = true
	}
	if err := s.users.SetAddresses(ctx, id, addrs); err != nil {
		return errors.Wrap(err, "save addresses")
	}
	return nil
}

// TrackView records a product view for the user and bumps the product's
// popularity counter.
func (s *Service) TrackView(ctx context.Context, id, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.SetRecentlyViewed(ctx, id, PushView(u.RecentlyViewed, productID, s.now())); err != nil {
		return errors.Wrap(err, "save recently viewed")
	}
	if err := s.products.IncrementViews(ctx, productID); err != nil {
		// Popularity is best effort.
		zctx.From(ctx).Warn("Increment product views", zap.String("product_id", productID), zap.Error(err))
	}
	return nil
}

// RecentlyViewed returns recently viewed products, newest first. Products
// that no longer exist are skipped.
func (s *Service) RecentlyViewed(ctx context.Context, id string) ([]ViewedProduct, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(u.RecentlyViewed) == 0 {
		return []ViewedProduct{}, nil
	}

	ids := make([]string, len(u.RecentlyViewed))
	for i, v := range u.RecentlyViewed {
		ids[i] = v.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]ViewedProduct, 0, len(u.RecentlyViewed))
	for _, v := range u.RecentlyViewed {
		if p, ok := byID[v.ProductID]; ok {
			out = append(out, ViewedProduct{Product: p, ViewedAt: v.ViewedAt})
		}
	}
	return out, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.Wrap(ErrInvalid, "email is invalid")
	}
	return email, nil
}

func validateAddress(a Address) error {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return errors.Wrap(ErrInvalid, "address full name is required")
	case strings.TrimSpace(a.Line1) == "":
		return errors.Wrap(ErrInvalid, "address line is required")
	case strings.TrimSpace(a.City) == "":
		return errors.Wrap(ErrInvalid, "city is required")
	case strings.TrimSpace(a.PostalCode) == "":
		return errors.Wrap(ErrInvalid, "postal code is required")
	}
	return nil
}
