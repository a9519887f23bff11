package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

const productColumns = `id, name, description, features, category, price, discount,
	stock_quantity, in_stock, free_shipping, image, bg_color, panel_color, text_color,
	rating_average, rating_count, flash_sale, flash_sale_price, flash_sale_end,
	view_count, created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = FALSE OR discount > 0)
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\')`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	updateProductSQL = `UPDATE products SET
		name = $2, description = $3, features = $4, category = $5, price = $6, discount = $7,
		stock_quantity = $8, in_stock = $9, free_shipping = $10, image = $11,
		bg_color = $12, panel_color = $13, text_color = $14,
		flash_sale = $15, flash_sale_price = $16, flash_sale_end = $17, updated_at = $18
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	incrementViewsSQL = `UPDATE products SET view_count = view_count + 1 WHERE id = $1`

	// The insert is skipped for a missing product or a second review by the
	// same user, which leaves nothing for the rating update to join.
	addReviewSQL = `WITH inserted AS (
		INSERT INTO product_reviews (product_id, user_id, rating, title, comment, created_at)
		SELECT id, $2, $3, $4, $5, $6 FROM products WHERE id = $1
		ON CONFLICT (product_id, user_id) DO NOTHING
		RETURNING product_id, rating
	)
	UPDATE products p SET
		rating_average = (p.rating_average * p.rating_count + i.rating) / (p.rating_count + 1),
		rating_count = p.rating_count + 1
	FROM inserted i WHERE p.id = i.product_id`

	listReviewsSQL = `SELECT user_id, rating, title, comment, created_at FROM product_reviews
		WHERE product_id = $1 ORDER BY created_at DESC, user_id`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

var productOrder = map[product.Sort]string{
	product.SortPopular:   ` ORDER BY view_count DESC, rating_average DESC, created_at DESC`,
	product.SortNewest:    ` ORDER BY created_at DESC`,
	product.SortLowPrice:  ` ORDER BY price - discount ASC, created_at DESC`,
	product.SortHighPrice: ` ORDER BY price - discount DESC, created_at DESC`,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products matching the filter in the requested order.
func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	order, ok := productOrder[f.Sort]
	if !ok {
		order = productOrder[product.SortPopular]
	}
	rows, err := conn(ctx, r.pool).Query(ctx, listProductsSQL+order, f.DiscountedOnly, likeEscaper.Replace(f.Query))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, nonNil(p.Features), p.Category, p.Price, p.Discount,
		p.StockQuantity, p.InStock, p.FreeShipping, p.Image,
		p.Colors.Background, p.Colors.Panel, p.Colors.Text,
		p.Rating.Average, p.Rating.Count,
		p.FlashSale.Active, p.FlashSale.Price, nullTime(p.FlashSale.EndsAt),
		p.ViewCount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the editable product fields.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, nonNil(p.Features), p.Category, p.Price, p.Discount,
		p.StockQuantity, p.InStock, p.FreeShipping, p.Image,
		p.Colors.Background, p.Colors.Panel, p.Colors.Text,
		p.FlashSale.Active, p.FlashSale.Price, nullTime(p.FlashSale.EndsAt), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the popularity counter.
func (r *ProductRepository) IncrementViews(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.pool).Exec(ctx, incrementViewsSQL, id); err != nil {
		return fmt.Errorf("incrementing views for product %q: %w", id, err)
	}
	return nil
}

// AddReview inserts a review and updates the product rating in one statement.
func (r *ProductRepository) AddReview(ctx context.Context, productID string, rv product.Review) error {
	db := conn(ctx, r.pool)
	tag, err := db.Exec(ctx, addReviewSQL,
		productID, rv.UserID, rv.Rating, rv.Title, rv.Comment, rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("adding review to product %q: %w", productID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := r.requireExists(ctx, db, productID); err != nil {
		return err
	}
	return product.ErrAlreadyReviewed
}

// Reviews returns the reviews of a product, newest first.
func (r *ProductRepository) Reviews(ctx context.Context, productID string) ([]product.Review, error) {
	db := conn(ctx, r.pool)
	rows, err := db.Query(ctx, listReviewsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of product %q: %w", productID, err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Review, error) {
		var rv product.Review
		err := row.Scan(&rv.UserID, &rv.Rating, &rv.Title, &rv.Comment, &rv.CreatedAt)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning reviews of product %q: %w", productID, err)
	}
	if len(reviews) == 0 {
		if err := r.requireExists(ctx, db, productID); err != nil {
			return nil, err
		}
	}
	return reviews, nil
}

func (r *ProductRepository) requireExists(ctx context.Context, db querier, id string) error {
	var exists bool
	if err := db.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %q: %w", id, err)
	}
	if !exists {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p       product.Product
		saleEnd *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Features, &p.Category, &p.Price, &p.Discount,
		&p.StockQuantity, &p.InStock, &p.FreeShipping, &p.Image,
		&p.Colors.Background, &p.Colors.Panel, &p.Colors.Text,
		&p.Rating.Average, &p.Rating.Count,
		&p.FlashSale.Active, &p.FlashSale.Price, &saleEnd,
		&p.ViewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if saleEnd != nil {
		p.FlashSale.EndsAt = *saleEnd
	}
	return p, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
