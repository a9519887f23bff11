package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

const userColumns = `id, email, password_hash, full_name, contact, cart, wishlist,
	addresses, order_ids, recently_viewed, created_at, updated_at`

const (
	createUserSQL = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	updateProfileSQL  = `UPDATE users SET full_name = $2, contact = $3, updated_at = now() WHERE id = $1`
	updatePasswordSQL = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	addToCartSQL = `UPDATE users SET cart = array_append(cart, $2), updated_at = now() WHERE id = $1`

	// Slices around the first match; duplicates after it survive.
	removeFromCartSQL = `UPDATE users SET
		cart = cart[:array_position(cart, $2) - 1] || cart[array_position(cart, $2) + 1:],
		updated_at = now()
		WHERE id = $1 AND $2 = ANY(cart)`

	addToWishlistSQL = `UPDATE users SET
		wishlist = CASE WHEN $2 = ANY(wishlist) THEN wishlist ELSE array_append(wishlist, $2) END,
		updated_at = now()
		WHERE id = $1`

	removeFromWishlistSQL = `UPDATE users SET wishlist = array_remove(wishlist, $2), updated_at = now() WHERE id = $1`

	setAddressesSQL      = `UPDATE users SET addresses = $2, updated_at = now() WHERE id = $1`
	setRecentlyViewedSQL = `UPDATE users SET recently_viewed = $2, updated_at = now() WHERE id = $1`

	attachOrderSQL = `UPDATE users SET
		order_ids = array_append(order_ids, $2), cart = '{}', updated_at = now()
		WHERE id = $1 AND cart = $3`
	userExistsSQL = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
)

const usersEmailKey = "users_email_key"

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL. List
// valued fields live in array and JSONB columns of the users row.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. It returns user.ErrEmailTaken on a duplicate
// email.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Contact,
		nonNil(u.Cart), nonNil(u.Wishlist), nonNil(u.Addresses), nonNil(u.Orders), nonNil(u.RecentlyViewed),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns the user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// GetByEmail returns the user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) getOne(ctx context.Context, sql, arg string) (*user.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// UpdateProfile sets name and contact.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p user.Profile) error {
	return r.exec(ctx, "updating profile", updateProfileSQL, id, p.FullName, p.Contact)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, "updating password", updatePasswordSQL, id, hash)
}

// AddToCart appends productID to the cart.
func (r *UserRepository) AddToCart(ctx context.Context, id, productID string) error {
	return r.exec(ctx, "adding to cart", addToCartSQL, id, productID)
}

// RemoveFromCart drops the first cart entry equal to productID.
func (r *UserRepository) RemoveFromCart(ctx context.Context, id, productID string) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, removeFromCartSQL, id, productID)
	if err != nil {
		return false, fmt.Errorf("removing from cart: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddToWishlist adds productID when absent.
func (r *UserRepository) AddToWishlist(ctx context.Context, id, productID string) error {
	return r.exec(ctx, "adding to wishlist", addToWishlistSQL, id, productID)
}

// RemoveFromWishlist removes productID.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, id, productID string) error {
	return r.exec(ctx, "removing from wishlist", removeFromWishlistSQL, id, productID)
}

// SetAddresses replaces the address book.
func (r *UserRepository) SetAddresses(ctx context.Context, id string, addrs []user.Address) error {
	return r.exec(ctx, "saving addresses", setAddressesSQL, id, nonNil(addrs))
}

// SetRecentlyViewed replaces the recently viewed list.
func (r *UserRepository) SetRecentlyViewed(ctx context.Context, id string, views []user.View) error {
	return r.exec(ctx, "saving recently viewed", setRecentlyViewedSQL, id, nonNil(views))
}

// AttachOrder appends orderID to the order history and empties the cart when
// it still equals cart. A concurrent writer holding the row lock makes the
// update re-check the condition against the committed cart.
func (r *UserRepository) AttachOrder(ctx context.Context, id, orderID string, cart []string) error {
	q := conn(ctx, r.pool)
	tag, err := q.Exec(ctx, attachOrderSQL, id, orderID, nonNil(cart))
	if err != nil {
		return fmt.Errorf("attaching order: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, userExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("attaching order: %w", err)
	}
	if !exists {
		return user.ErrNotFound
	}
	return user.ErrCartChanged
}

func (r *UserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Contact,
		&u.Cart, &u.Wishlist, &u.Addresses, &u.Orders, &u.RecentlyViewed,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
