package mongo

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

var productSorts = map[product.Sort]bson.D{
	product.SortPopular: {
		{Key: "view_count", Value: -1},
		{Key: "rating_average", Value: -1},
		{Key: "created_at", Value: -1},
	},
	product.SortNewest:    {{Key: "created_at", Value: -1}},
	product.SortLowPrice:  {{Key: "effective_price", Value: 1}, {Key: "created_at", Value: -1}},
	product.SortHighPrice: {{Key: "effective_price", Value: -1}, {Key: "created_at", Value: -1}},
}

// Reviews are embedded in the product document but never part of a Product.
var withoutReviews = bson.M{"reviews": 0}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	col *mongo.Collection
}

// NewProductRepository returns a ProductRepository over db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(colProducts)}
}

// List returns products matching the filter in the requested order.
func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	filter := bson.M{}
	if f.DiscountedOnly {
		filter["discount"] = bson.M{"$gt": 0}
	}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	sort, ok := productSorts[f.Sort]
	if !ok {
		sort = productSorts[product.SortPopular]
	}
	return r.find(ctx, filter, options.Find().SetSort(sort).SetProjection(withoutReviews))
}

// GetByID returns a single product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var m productModel
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutReviews)).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p := fromProductModel(&m)
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": nonNil(ids)}}, options.Find().SetProjection(withoutReviews))
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]product.Product, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	var models []productModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	out := make([]product.Product, len(models))
	for i := range models {
		out[i] = fromProductModel(&models[i])
	}
	return out, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if _, err := r.col.InsertOne(ctx, toProductModel(p)); err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the editable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	m := toProductModel(p)
	set := bson.M{
		"name":             m.Name,
		"description":      m.Description,
		"features":         m.Features,
		"category":         m.Category,
		"price":            m.Price,
		"discount":         m.Discount,
		"effective_price":  m.EffectivePrice,
		"stock_quantity":   m.StockQuantity,
		"in_stock":         m.InStock,
		"free_shipping":    m.FreeShipping,
		"image":            m.Image,
		"bg_color":         m.BgColor,
		"panel_color":      m.PanelColor,
		"text_color":       m.TextColor,
		"flash_sale":       m.FlashSale,
		"flash_sale_price": m.FlashSalePrice,
		"updated_at":       m.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if m.FlashSaleEnd != nil {
		set["flash_sale_end"] = *m.FlashSaleEnd
	} else {
		update["$unset"] = bson.M{"flash_sale_end": ""}
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the popularity counter.
func (r *ProductRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"view_count": 1}})
	if err != nil {
		return fmt.Errorf("incrementing views for product %q: %w", id, err)
	}
	return nil
}

// AddReview appends a review and recomputes the rating in one conditional
// update. The filter excludes products the user already reviewed.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, rv product.Review) error {
	filter := bson.M{"_id": productID, "reviews.user_id": bson.M{"$ne": rv.UserID}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reviews": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}},
				bson.A{bson.M{"$literal": toReviewModel(rv)}},
			}},
			"rating_average": bson.M{"$divide": bson.A{
				bson.M{"$add": bson.A{bson.M{"$multiply": bson.A{"$rating_average", "$rating_count"}}, rv.Rating}},
				bson.M{"$add": bson.A{"$rating_count", 1}},
			}},
			"rating_count": bson.M{"$add": bson.A{"$rating_count", 1}},
		}}},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("adding review to product %q: %w", productID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("checking product %q: %w", productID, err)
	}
	if n == 0 {
		return product.ErrNotFound
	}
	return product.ErrAlreadyReviewed
}

// Reviews returns the reviews of a product, newest first.
func (r *ProductRepository) Reviews(ctx context.Context, productID string) ([]product.Review, error) {
	var doc struct {
		Reviews []reviewModel `bson:"reviews"`
	}
	opts := options.FindOne().SetProjection(bson.M{"reviews": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": productID}, opts).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("listing reviews of product %q: %w", productID, err)
	}
	out := make([]product.Review, 0, len(doc.Reviews))
	for i := len(doc.Reviews) - 1; i >= 0; i-- {
		out = append(out, fromReviewModel(doc.Reviews[i]))
	}
	return out, nil
}
