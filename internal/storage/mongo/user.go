package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

const usersEmailKey = "users_email_key"

// cartRetries bounds the compare-and-set loop of RemoveFromCart.
const cartRetries = 5

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by MongoDB. List valued
// fields are arrays of the user document.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository returns a UserRepository over db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(colUsers)}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if _, err := r.col.InsertOne(ctx, toUserModel(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, bson.M{"_id": id})
}

// GetByEmail returns a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) getOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var m userModel
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return fromUserModel(&m), nil
}

// UpdateProfile sets the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p user.Profile) error {
	return r.update(ctx, "updating profile", id, bson.M{
		"$set": bson.M{"full_name": p.FullName, "contact": p.Contact, "updated_at": now()},
	})
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, "updating password", id, bson.M{
		"$set": bson.M{"password_hash": hash, "updated_at": now()},
	})
}

// AddToCart appends productID to the cart.
func (r *UserRepository) AddToCart(ctx context.Context, id, productID string) error {
	return r.update(ctx, "adding to cart", id, bson.M{
		"$push": bson.M{"cart": productID},
		"$set":  bson.M{"updated_at": now()},
	})
}

// RemoveFromCart drops the first cart entry equal to productID. The new cart
// is written with a compare-and-set on the previous one; $pull would remove
// every duplicate.
func (r *UserRepository) RemoveFromCart(ctx context.Context, id, productID string) (bool, error) {
	for range cartRetries {
		var m userModel
		err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"cart": 1})).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				return false, user.ErrNotFound
			}
			return false, fmt.Errorf("removing from cart: %w", err)
		}
		cart, removed := user.RemoveFromCart(m.Cart, productID)
		if !removed {
			return false, nil
		}
		res, err := r.col.UpdateOne(ctx,
			bson.M{"_id": id, "cart": nonNil(m.Cart)},
			bson.M{"$set": bson.M{"cart": nonNil(cart), "updated_at": now()}},
		)
		if err != nil {
			return false, fmt.Errorf("removing from cart: %w", err)
		}
		if res.MatchedCount > 0 {
			return true, nil
		}
	}
	return false, fmt.Errorf("removing from cart: cart of user %q changed concurrently", id)
}

// AddToWishlist adds productID when absent.
func (r *UserRepository) AddToWishlist(ctx context.Context, id, productID string) error {
	return r.update(ctx, "adding to wishlist", id, bson.M{
		"$addToSet": bson.M{"wishlist": productID},
		"$set":      bson.M{"updated_at": now()},
	})
}

// RemoveFromWishlist removes productID.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, id, productID string) error {
	return r.update(ctx, "removing from wishlist", id, bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updated_at": now()},
	})
}

// SetAddresses replaces the address book.
func (r *UserRepository) SetAddresses(ctx context.Context, id string, addrs []user.Address) error {
	return r.update(ctx, "saving addresses", id, bson.M{
		"$set": bson.M{"addresses": toAddressModels(addrs), "updated_at": now()},
	})
}

// SetRecentlyViewed replaces the recently viewed list.
func (r *UserRepository) SetRecentlyViewed(ctx context.Context, id string, views []user.View) error {
	return r.update(ctx, "saving recently viewed", id, bson.M{
		"$set": bson.M{"recently_viewed": toViewModels(views), "updated_at": now()},
	})
}

// AttachOrder appends orderID to the order history and empties the cart when
// it still equals cart.
func (r *UserRepository) AttachOrder(ctx context.Context, id, orderID string, cart []string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "cart": nonNil(cart)},
		bson.M{
			"$push": bson.M{"order_ids": orderID},
			"$set":  bson.M{"cart": bson.A{}, "updated_at": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("attaching order: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("attaching order: %w", err)
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return user.ErrCartChanged
}

func (r *UserRepository) update(ctx context.Context, op, id string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
