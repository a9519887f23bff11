package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: message})
}

// fail maps a domain error to its HTTP status. Unexpected errors are logged
// and reported as 500 without details.
func fail(c *gin.Context, err error) {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	abort(c, status, message)
}

func mapError(err error) (int, string) {
	var (
		invalidCoupon *coupon.InvalidError
		unavailable   *order.ProductUnavailableError
		transition    *order.InvalidTransitionError
		noCancel      *order.CancellationNotAllowedError
	)
	switch {
	case errors.As(err, &invalidCoupon):
		return http.StatusUnprocessableEntity, invalidCoupon.Reason
	case errors.As(err, &unavailable):
		return http.StatusUnprocessableEntity, unavailable.Error()
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error()
	case errors.As(err, &noCancel):
		return http.StatusConflict, noCancel.Error()

	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, user.ErrAddressNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, coupon.ErrCodeTaken),
		errors.Is(err, order.ErrStatusConflict),
		errors.Is(err, order.ErrCartChanged),
		errors.Is(err, product.ErrAlreadyReviewed):
		return http.StatusConflict, err.Error()

	case errors.Is(err, product.ErrInvalid),
		errors.Is(err, user.ErrInvalid),
		errors.Is(err, coupon.ErrInvalid),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidShipping):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
