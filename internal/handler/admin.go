package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
)

func (s *Server) createProduct(c *gin.Context) {
	var req productRequest
	if !bind(c, &req) {
		return
	}
	p := req.product()
	if err := s.products.Create(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.productResponse(*p, time.Now()))
}

func (s *Server) updateProduct(c *gin.Context) {
	var req productRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	p := req.product()
	p.ID = c.Param("id")
	if err := s.products.Update(ctx, p); err != nil {
		fail(c, err)
		return
	}
	updated, err := s.products.Get(ctx, p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productResponse(*updated, time.Now()))
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createCoupon(c *gin.Context) {
	var req couponRequest
	if !bind(c, &req) {
		return
	}
	cp := req.coupon()
	if err := s.coupons.Create(c.Request.Context(), cp); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCouponResponse(cp))
}

func (s *Server) listCoupons(c *gin.Context) {
	coupons, err := s.coupons.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = newCouponResponse(&coupons[i])
	}
	c.JSON(http.StatusOK, out)
}

// adminListOrders supports ?status=, ?limit= and ?offset=.
func (s *Server) adminListOrders(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	orders, err := s.orders.List(c.Request.Context(), order.ListFilter{
		Status: order.Status(strings.ToLower(c.Query("status"))),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponses(orders))
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	to, ok := order.ParseStatus(strings.ToLower(req.Status))
	if !ok {
		fail(c, errors.Wrapf(order.ErrInvalidStatus, "%q", req.Status))
		return
	}
	o, err := s.orders.UpdateStatus(c.Request.Context(), c.Param("ref"), to, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (s *Server) updatePaymentStatus(c *gin.Context) {
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	to, ok := order.ParsePaymentStatus(strings.ToLower(req.PaymentStatus))
	if !ok {
		fail(c, errors.Wrapf(order.ErrInvalidStatus, "payment status %q", req.PaymentStatus))
		return
	}
	o, err := s.orders.UpdatePaymentStatus(c.Request.Context(), c.Param("ref"), to, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}
