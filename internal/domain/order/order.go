package order

import (
	"context"
	"time"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// Order is an immutable snapshot of a checkout plus its mutable status fields.
type Order struct {
	// ID is the storage identity.
	ID string
	// Ref is the customer-facing order reference.
	Ref            string
	UserID         string
	Items          []LineItem
	TotalAmount    int64
	TotalDiscount  int64
	CouponCode     string
	CouponDiscount int64
	PlatformFee    int64
	ShippingFee    int64
	FinalAmount    int64
	Shipping       ShippingDetails
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LineItem is a product snapshot taken at checkout. Catalog changes never
// affect it.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Discount  int64  `json:"discount"`
	Image     string `json:"image,omitempty"`
	Color     string `json:"color,omitempty"`
}

// ShippingDetails is the delivery address snapshot.
type ShippingDetails struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order. It returns ErrDuplicateOrderRef when o.Ref
	// is already taken.
	Create(ctx context.Context, o *Order) error
	GetByRef(ctx context.Context, ref string) (*Order, error)
	// ListByUser returns the user's orders, newest first. A non-positive
	// limit returns all of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
	// UpdateStatus moves the order from one status to another. It returns
	// ErrStatusConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, ref string, from, to Status, at time.Time) error
	// UpdatePaymentStatus is the payment counterpart of UpdateStatus.
	UpdatePaymentStatus(ctx context.Context, ref string, from, to PaymentStatus, at time.Time) error
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
