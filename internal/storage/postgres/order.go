package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
)

const orderColumns = `id, ref, user_id, items, total_amount, total_discount, coupon_code,
	coupon_discount, platform_fee, shipping_fee, final_amount, shipping, payment_method,
	payment_status, status, created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getOrderByRefSQL = `SELECT ` + orderColumns + ` FROM orders WHERE ref = $1`

	// A NULL limit returns every row.
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, ref DESC LIMIT $2`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, ref DESC LIMIT $2 OFFSET $3`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = $4
		WHERE ref = $1 AND status = $2`

	updatePaymentStatusSQL = `UPDATE orders SET payment_status = $3, updated_at = $4
		WHERE ref = $1 AND payment_status = $2`
)

const ordersRefKey = "orders_ref_key"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items and the shipping snapshot are
// stored as JSONB. A reference collision yields order.ErrDuplicateOrderRef.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, o.Ref, o.UserID, o.Items, o.TotalAmount, o.TotalDiscount, o.CouponCode,
		o.CouponDiscount, o.PlatformFee, o.ShippingFee, o.FinalAmount, o.Shipping,
		string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, ordersRefKey) {
			return order.ErrDuplicateOrderRef
		}
		return fmt.Errorf("creating order %q: %w", o.Ref, err)
	}
	return nil
}

// GetByRef returns the order with the given reference.
func (r *OrderRepository) GetByRef(ctx context.Context, ref string) (*order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getOrderByRefSQL, ref)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", ref, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", ref, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]order.Order, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := conn(ctx, r.pool).Query(ctx, listOrdersByUserSQL, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns orders filtered by status, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	var lim *int
	if f.Limit > 0 {
		lim = &f.Limit
	}
	rows, err := conn(ctx, r.pool).Query(ctx, listOrdersSQL, string(f.Status), lim, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus performs a compare-and-set on the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, ref string, from, to order.Status, at time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, updateOrderStatusSQL, ref, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// UpdatePaymentStatus performs a compare-and-set on the payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, ref string, from, to order.PaymentStatus, at time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, updatePaymentStatusSQL, ref, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("updating order %q payment status: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		paymentMethod string
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.Ref, &o.UserID, &o.Items, &o.TotalAmount, &o.TotalDiscount, &o.CouponCode,
		&o.CouponDiscount, &o.PlatformFee, &o.ShippingFee, &o.FinalAmount, &o.Shipping,
		&paymentMethod, &paymentStatus, &status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	return o, err
}
