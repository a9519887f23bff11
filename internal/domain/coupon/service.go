package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Quote is a validated coupon together with the discount it grants.
type Quote struct {
	Coupon   *Coupon
	Discount int64
}

// Service looks up, validates and manages coupons.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewService creates a coupon Service backed by repo.
func NewService(repo Repository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Config returns the code handling configuration.
func (s *Service) Config() Config { return s.cfg }

// Quote resolves code, validates it for userID and orderAmount and computes
// the discount. It has no side effects: redemption happens when an order is
// placed. Business-rule failures are returned as *InvalidError.
func (s *Service) Quote(ctx context.Context, code, userID string, orderAmount int64) (*Quote, error) {
	code = s.cfg.NormalizeCode(code)
	if code == "" {
		return nil, &InvalidError{Code: code, Reason: "coupon code is required"}
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &InvalidError{Code: code, Reason: "invalid coupon code"}
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if v := Validate(c, userID, orderAmount, s.now()); !v.Valid {
		return nil, &InvalidError{Code: c.Code, Reason: v.Reason}
	}

	return &Quote{
		Coupon:   c,
		Discount: CalculateDiscount(c, orderAmount),
	}, nil
}

// Create validates and stores a new coupon definition.
func (s *Service) Create(ctx context.Context, c *Coupon) error {
	c.Code = s.cfg.NormalizeCode(c.Code)
	if c.ValidFrom.IsZero() {
		c.ValidFrom = s.now()
	}
	if err := validateDefinition(c); err != nil {
		return err
	}

	now := s.now()
	c.ID = uuid.NewString()
	c.UsedCount = 0
	c.UsedBy = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return err
		}
		return errors.Wrap(err, "create coupon")
	}

	zctx.From(ctx).Info("Coupon created",
		zap.String("code", c.Code),
		zap.String("type", string(c.DiscountType)),
		zap.String("value", c.DiscountValue.String()),
	)
	return nil
}

// Redeem records that userID used the coupon. It must run in the same
// transaction as the order that consumes the coupon.
func (s *Service) Redeem(ctx context.Context, c *Coupon, userID string) error {
	if err := s.repo.Redeem(ctx, c.ID, userID); err != nil {
		switch {
		case errors.Is(err, ErrUsageLimitReached):
			return &InvalidError{Code: c.Code, Reason: "coupon usage limit reached"}
		case errors.Is(err, ErrAlreadyUsed):
			return &InvalidError{Code: c.Code, Reason: "coupon already used by this user"}
		}
		return errors.Wrap(err, "redeem coupon")
	}
	zctx.From(ctx).Info("Coupon redeemed", zap.String("code", c.Code), zap.String("user_id", userID))
	return nil
}

// List returns all coupons.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

func validateDefinition(c *Coupon) error {
	if c.Code == "" {
		return errors.Wrap(ErrInvalid, "code is required")
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return errors.Wrap(ErrInvalid, "percentage must not exceed 100")
		}
	case DiscountFixed:
		if c.MaxDiscount != nil {
			return errors.Wrap(ErrInvalid, "max discount applies to percentage coupons only")
		}
	default:
		return errors.Wrapf(ErrInvalid, "unsupported discount type %q", c.DiscountType)
	}
	if !c.DiscountValue.IsPositive() {
		return errors.Wrap(ErrInvalid, "discount value must be positive")
	}
	if c.MinOrderAmount < 0 {
		return errors.Wrap(ErrInvalid, "minimum order amount must not be negative")
	}
	if c.MaxDiscount != nil && *c.MaxDiscount < 0 {
		return errors.Wrap(ErrInvalid, "max discount must not be negative")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return errors.Wrap(ErrInvalid, "usage limit must not be negative")
	}
	if c.ValidUntil.IsZero() {
		return errors.Wrap(ErrInvalid, "valid until is required")
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return errors.Wrap(ErrInvalid, "valid until must be after valid from")
	}
	return nil
}
