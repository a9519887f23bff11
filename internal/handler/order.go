package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// recentOrdersLimit is the size of the profile page order summary.
const recentOrdersLimit = 5

type applyCouponRequest struct {
	Code string `json:"code"`
}

type applyCouponResponse struct {
	Code     string `json:"code"`
	Discount int64  `json:"discount"`
	order.Totals
}

// applyCoupon previews a coupon against the current cart without redeeming
// it.
func (s *Server) applyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)

	view, err := s.orders.PreviewCart(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	if len(view.Items) == 0 {
		fail(c, order.ErrEmptyCart)
		return
	}
	quote, err := s.coupons.Quote(ctx, req.Code, userID, view.Totals.Subtotal())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, applyCouponResponse{
		Code:     quote.Coupon.Code,
		Discount: quote.Discount,
		Totals:   order.ComputeTotals(view.Items, quote.Discount, s.orders.Config().Fees()),
	})
}

type placeOrderRequest struct {
	// Shipping is used as given. When empty, AddressID or else the default
	// address fills it.
	Shipping      *order.ShippingDetails `json:"shipping"`
	AddressID     string                 `json:"address_id"`
	PaymentMethod order.PaymentMethod    `json:"payment_method"`
	CouponCode    string                 `json:"coupon_code"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)

	var shipping order.ShippingDetails
	if req.Shipping != nil {
		shipping = *req.Shipping
	} else {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			fail(c, err)
			return
		}
		addr, err := pickAddress(u, req.AddressID)
		if err != nil {
			fail(c, err)
			return
		}
		shipping = shippingFrom(addr)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = order.PaymentCOD
	}

	o, err := s.orders.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:        userID,
		Shipping:      shipping,
		PaymentMethod: order.PaymentMethod(strings.ToLower(string(req.PaymentMethod))),
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(o))
}

func pickAddress(u *user.User, id string) (user.Address, error) {
	if id == "" {
		if a, ok := u.DefaultAddress(); ok {
			return a, nil
		}
		return user.Address{}, errors.Wrap(order.ErrInvalidShipping, "no shipping details and no default address")
	}
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, nil
		}
	}
	return user.Address{}, user.ErrAddressNotFound
}

func shippingFrom(a user.Address) order.ShippingDetails {
	return order.ShippingDetails{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func (s *Server) listOrders(c *gin.Context) {
	s.userOrders(c, 0)
}

func (s *Server) recentOrders(c *gin.Context) {
	s.userOrders(c, recentOrdersLimit)
}

func (s *Server) userOrders(c *gin.Context, limit int) {
	orders, err := s.orders.ListForUser(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponses(orders))
}

func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.Get(c.Request.Context(), c.Param("ref"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

type trackResponse struct {
	Ref           string               `json:"ref"`
	Status        order.Status         `json:"status"`
	PaymentStatus order.PaymentStatus  `json:"payment_status"`
	Cancelled     bool                 `json:"cancelled"`
	Steps         []order.TimelineStep `json:"steps"`
}

func (s *Server) trackOrder(c *gin.Context) {
	o, err := s.orders.Get(c.Request.Context(), c.Param("ref"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trackResponse{
		Ref:           o.Ref,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Cancelled:     o.Status == order.StatusCancelled,
		Steps:         order.Timeline(o.Status),
	})
}

func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.orders.Cancel(c.Request.Context(), c.Param("ref"), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}
