package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Coupons is the coupon engine as seen by checkout.
type Coupons interface {
	Quote(ctx context.Context, code, userID string, orderAmount int64) (*coupon.Quote, error)
	Redeem(ctx context.Context, c *coupon.Coupon, userID string) error
}

// Config holds the pricing and retry settings of the order workflow.
type Config struct {
	PlatformFee    int64 `default:"20" usage:"Flat platform fee added to every order"`
	ShippingFee    int64 `default:"0"  usage:"Flat shipping fee added to every order"`
	MaxRefAttempts int   `default:"3"  usage:"Order reference generation attempts before giving up"`
}

// Fees returns the configured flat fees.
func (c Config) Fees() Fees {
	return Fees{Platform: c.PlatformFee, Shipping: c.ShippingFee}
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID        string
	Shipping      ShippingDetails
	PaymentMethod PaymentMethod
	CouponCode    string
}

// CartView is a priced preview of the user's cart.
type CartView struct {
	Items []LineItem
	// Unavailable lists cart entries that would block checkout.
	Unavailable []string
	Totals      Totals
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("scatch/order") }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("scatch/order") }
}

// WithRefGenerator overrides order reference generation.
func WithRefGenerator(g RefGenerator) Option {
	return func(s *Service) { s.refs = g }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service encapsulates the order workflow.
type Service struct {
	orders   Repository
	products product.Repository
	users    user.Repository
	coupons  Coupons
	tx       Transactor
	cfg      Config

	refs   RefGenerator
	now    func() time.Time
	tracer trace.Tracer
	meter  metric.Meter

	placed        metric.Int64Counter
	refRetries    metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	products product.Repository,
	users user.Repository,
	coupons Coupons,
	tx Transactor,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if cfg.MaxRefAttempts <= 0 {
		cfg.MaxRefAttempts = 1
	}
	s := &Service{
		orders:   orders,
		products: products,
		users:    users,
		coupons:  coupons,
		tx:       tx,
		cfg:      cfg,
		refs:     NewRef,
		now:      time.Now,
		tracer:   otel.GetTracerProvider().Tracer("scatch/order"),
		meter:    otel.GetMeterProvider().Meter("scatch/order"),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.placed, err = s.meter.Int64Counter("scatch.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	if s.refRetries, err = s.meter.Int64Counter("scatch.orders.ref_retries",
		metric.WithDescription("Order reference collisions retried"),
	); err != nil {
		return nil, errors.Wrap(err, "ref retries counter")
	}
	if s.statusChanges, err = s.meter.Int64Counter("scatch.orders.status_changes",
		metric.WithDescription("Order status transitions"),
	); err != nil {
		return nil, errors.Wrap(err, "status changes counter")
	}
	return s, nil
}

// Config returns the workflow configuration.
func (s *Service) Config() Config { return s.cfg }

// PreviewCart prices the user's cart the same way checkout does. Entries
// that cannot be ordered are reported in Unavailable instead of failing.
func (s *Service) PreviewCart(ctx context.Context, userID string) (*CartView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID, err := s.resolve(ctx, u.Cart)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &CartView{Items: []LineItem{}}
	for _, id := range u.Cart {
		p, ok := byID[id]
		if !ok || !p.Available() {
			view.Unavailable = append(view.Unavailable, id)
			continue
		}
		view.Items = append(view.Items, snapshot(p, now))
	}
	if len(view.Items) > 0 {
		view.Totals = ComputeTotals(view.Items, 0, s.cfg.Fees())
	}
	return view, nil
}

// PlaceOrder converts the user's cart into an order. The coupon redemption,
// the order insert and the cart clear happen in one transaction; a reference
// collision rolls all of them back and is retried with a fresh reference.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if !req.PaymentMethod.Valid() {
		return nil, errors.Wrapf(ErrInvalidPaymentMethod, "%q", req.PaymentMethod)
	}
	if err := validateShipping(req.Shipping); err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	if len(u.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	items, err := s.lineItems(ctx, u.Cart, now)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(items, 0, s.cfg.Fees())
	var quote *coupon.Quote
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		quote, err = s.coupons.Quote(ctx, code, req.UserID, totals.Subtotal())
		if err != nil {
			var invErr *coupon.InvalidError
			if errors.As(err, &invErr) {
				return nil, err
			}
			return nil, &PersistenceError{Op: "quote coupon", Err: err}
		}
		totals = ComputeTotals(items, quote.Discount, s.cfg.Fees())
	}

	o := &Order{
		UserID:        req.UserID,
		Items:         items,
		Shipping:      req.Shipping,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: PaymentPending,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	o.applyTotals(totals)
	if quote != nil {
		o.CouponCode = quote.Coupon.Code
	}

	for attempt := 1; attempt <= s.cfg.MaxRefAttempts; attempt++ {
		ref, err := s.refs()
		if err != nil {
			return nil, &PersistenceError{Op: "generate order ref", Err: err}
		}
		o.ID = uuid.NewString()
		o.Ref = ref

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if quote != nil {
				if err := s.coupons.Redeem(ctx, quote.Coupon, req.UserID); err != nil {
					return err
				}
			}
			if err := s.orders.Create(ctx, o); err != nil {
				return err
			}
			// Fails when the cart no longer matches the one priced above,
			// e.g. a concurrent checkout already cleared it.
			return s.users.AttachOrder(ctx, req.UserID, o.ID, u.Cart)
		})
		if err == nil {
			break
		}

		var invErr *coupon.InvalidError
		switch {
		case errors.As(err, &invErr):
			return nil, err
		case errors.Is(err, user.ErrCartChanged):
			zctx.From(ctx).Info("Cart changed during checkout", zap.String("user_id", req.UserID))
			return nil, ErrCartChanged
		case errors.Is(err, ErrDuplicateOrderRef):
			s.refRetries.Add(ctx, 1)
			zctx.From(ctx).Warn("Order ref collision, retrying",
				zap.String("ref", ref),
				zap.Int("attempt", attempt),
			)
			if attempt == s.cfg.MaxRefAttempts {
				return nil, &PersistenceError{
					Op:  "place order",
					Err: errors.Wrapf(err, "after %d attempts", attempt),
				}
			}
		default:
			return nil, &PersistenceError{Op: "place order", Err: err}
		}
	}

	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(o.PaymentMethod)),
		attribute.Bool("coupon", o.CouponCode != ""),
	))
	span.SetAttributes(attribute.String("order.ref", o.Ref))
	zctx.From(ctx).Info("Order placed",
		zap.String("ref", o.Ref),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.Int64("final_amount", o.FinalAmount),
		zap.String("coupon", o.CouponCode),
	)
	return o, nil
}

// Get returns the order if it belongs to userID.
func (s *Service) Get(ctx context.Context, ref, userID string) (*Order, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// List returns orders for administration, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	if f.Status != "" {
		if _, ok := ParseStatus(string(f.Status)); !ok {
			return nil, errors.Wrapf(ErrInvalidStatus, "%q", f.Status)
		}
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)
	f.Offset = max(f.Offset, 0)

	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves the order to status to on behalf of actor.
func (s *Service) UpdateStatus(ctx context.Context, ref string, to Status, actor string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(
			attribute.String("order.ref", ref),
			attribute.String("order.status", string(to)),
		),
	)
	defer span.End()

	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: string(o.Status), To: string(to)}
	}
	if err := s.setStatus(ctx, o, to); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order status changed",
		zap.String("ref", ref),
		zap.String("status", string(to)),
		zap.String("actor", actor),
	)
	return o, nil
}

// Cancel cancels the user's order while it is still pending or confirmed.
func (s *Service) Cancel(ctx context.Context, ref, userID string) (*Order, error) {
	o, err := s.Get(ctx, ref, userID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, &CancellationNotAllowedError{Status: o.Status}
	}
	if err := s.setStatus(ctx, o, StatusCancelled); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order cancelled", zap.String("ref", ref), zap.String("user_id", userID))
	return o, nil
}

// UpdatePaymentStatus changes the payment status on behalf of actor.
func (s *Service) UpdatePaymentStatus(ctx context.Context, ref string, to PaymentStatus, actor string) (*Order, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPayment(o.PaymentStatus, to) {
		return nil, &InvalidTransitionError{From: string(o.PaymentStatus), To: string(to)}
	}

	now := s.now()
	if err := s.orders.UpdatePaymentStatus(ctx, ref, o.PaymentStatus, to, now); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "update payment status", Err: err}
	}
	o.PaymentStatus = to
	o.UpdatedAt = now

	zctx.From(ctx).Info("Order payment status changed",
		zap.String("ref", ref),
		zap.String("payment_status", string(to)),
		zap.String("actor", actor),
	)
	return o, nil
}

func (s *Service) setStatus(ctx context.Context, o *Order, to Status) error {
	now := s.now()
	if err := s.orders.UpdateStatus(ctx, o.Ref, o.Status, to, now); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return err
		}
		return &PersistenceError{Op: "update status", Err: err}
	}
	s.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(o.Status)),
		attribute.String("to", string(to)),
	))
	o.Status = to
	o.UpdatedAt = now
	return nil
}

func (s *Service) resolve(ctx context.Context, ids []string) (map[string]product.Product, error) {
	if len(ids) == 0 {
		return map[string]product.Product{}, nil
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, &PersistenceError{Op: "get products", Err: err}
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	return byID, nil
}

// lineItems snapshots every cart entry. Duplicate entries become separate
// lines. A missing or out-of-stock product rejects the whole cart.
func (s *Service) lineItems(ctx context.Context, cart []string, now time.Time) ([]LineItem, error) {
	byID, err := s.resolve(ctx, cart)
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, 0, len(cart))
	for _, id := range cart {
		p, ok := byID[id]
		if !ok {
			return nil, &ProductUnavailableError{ProductID: id, Reason: "no longer exists"}
		}
		if !p.Available() {
			return nil, &ProductUnavailableError{ProductID: id, Reason: "out of stock"}
		}
		items = append(items, snapshot(p, now))
	}
	return items, nil
}

func snapshot(p product.Product, now time.Time) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Discount:  p.EffectiveDiscount(now),
		Image:     p.Image,
		Color:     p.Colors.Background,
	}
}

func validateShipping(d ShippingDetails) error {
	switch {
	case strings.TrimSpace(d.FullName) == "":
		return errors.Wrap(ErrInvalidShipping, "full name is required")
	case strings.TrimSpace(d.Line1) == "":
		return errors.Wrap(ErrInvalidShipping, "address line is required")
	case strings.TrimSpace(d.City) == "":
		return errors.Wrap(ErrInvalidShipping, "city is required")
	case strings.TrimSpace(d.PostalCode) == "":
		return errors.Wrap(ErrInvalidShipping, "postal code is required")
	}
	return nil
}
