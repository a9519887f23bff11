// Package handler implements the Scatch JSON API on top of gin.
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/auth"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/coupon"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/order"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

// Config holds non-dependency settings of the API.
type Config struct {
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Services are the domain dependencies of the API.
type Services struct {
	Products *product.Service
	Users    *user.Service
	Coupons  *coupon.Service
	Orders   *order.Service
	Tokens   *auth.TokenIssuer
	APIKeys  *auth.APIKeyAuthenticator
}

// Server routes API requests to the domain services.
type Server struct {
	engine *gin.Engine
	routes []route

	products *product.Service
	users    *user.Service
	coupons  *coupon.Service
	orders   *order.Service
	tokens   *auth.TokenIssuer
	apikeys  *auth.APIKeyAuthenticator

	imageBaseURL  string
	secureCookies bool
}

type route struct {
	method   string
	template string
	segments []string
}

// NewServer builds the gin engine and registers every route under /api.
// Panics are recovered and requests are logged by the net/http middleware
// chain wrapping the server.
func NewServer(cfg Config, svc Services) *Server {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) { abort(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { abort(c, http.StatusMethodNotAllowed, "method not allowed") })

	s := &Server{
		engine:        r,
		products:      svc.Products,
		users:         svc.Users,
		coupons:       svc.Coupons,
		orders:        svc.Orders,
		tokens:        svc.Tokens,
		apikeys:       svc.APIKeys,
		imageBaseURL:  strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		secureCookies: cfg.SecureCookies,
	}
	s.registerRoutes()
	for _, ri := range r.Routes() {
		s.routes = append(s.routes, route{
			method:   ri.Method,
			template: ri.Path,
			segments: strings.Split(strings.Trim(ri.Path, "/"), "/"),
		})
	}
	return s
}

// Engine exposes the gin engine.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	users := api.Group("/users")
	users.POST("/register", s.register)
	users.POST("/login", s.login)
	users.POST("/logout", s.logout)

	products := api.Group("/products")
	products.GET("", s.listProducts)
	products.GET("/search", s.searchProducts)
	products.GET("/:id", s.getProduct)
	products.GET("/:id/reviews", s.listReviews)

	me := api.Group("", s.requireUser)
	me.GET("/users/me", s.me)
	me.PUT("/users/me", s.updateProfile)
	me.POST("/users/me/password", s.changePassword)

	me.GET("/cart", s.getCart)
	me.POST("/cart/:productId", s.addToCart)
	me.DELETE("/cart/:productId", s.removeFromCart)

	me.GET("/wishlist", s.getWishlist)
	me.POST("/wishlist/:productId", s.addToWishlist)
	me.DELETE("/wishlist/:productId", s.removeFromWishlist)
	me.POST("/wishlist/:productId/move-to-cart", s.moveToCart)

	me.GET("/addresses", s.listAddresses)
	me.POST("/addresses", s.addAddress)
	me.PUT("/addresses/:id/default", s.setDefaultAddress)
	me.DELETE("/addresses/:id", s.deleteAddress)

	me.GET("/recently-viewed", s.recentlyViewed)
	me.POST("/recently-viewed/:productId", s.trackView)

	me.POST("/products/:id/reviews", s.addReview)

	me.POST("/coupons/apply", s.applyCoupon)

	me.POST("/orders", s.placeOrder)
	me.GET("/orders", s.listOrders)
	me.GET("/orders/recent", s.recentOrders)
	me.GET("/orders/:ref", s.getOrder)
	me.GET("/orders/:ref/track", s.trackOrder)
	me.POST("/orders/:ref/cancel", s.cancelOrder)

	admin := api.Group("/admin", s.requireScope(auth.ScopeAdmin))
	admin.POST("/products", s.createProduct)
	admin.PUT("/products/:id", s.updateProduct)
	admin.DELETE("/products/:id", s.deleteProduct)
	admin.POST("/coupons", s.createCoupon)
	admin.GET("/coupons", s.listCoupons)
	admin.GET("/orders", s.adminListOrders)
	admin.PATCH("/orders/:ref/status", s.updateOrderStatus)
	admin.PATCH("/orders/:ref/payment", s.updatePaymentStatus)
}

// FindRoute returns the route template matching r, preferring static
// segments over parameters as gin does. It is used to label logs, spans and
// metrics outside of gin.
func (s *Server) FindRoute(r *http.Request) (string, bool) {
	path := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	best, bestScore := "", -1
	for _, rt := range s.routes {
		if rt.method != r.Method {
			continue
		}
		if score, ok := rt.match(path); ok && score > bestScore {
			best, bestScore = rt.template, score
		}
	}
	return best, bestScore >= 0
}

// match reports whether path fits the route and how many of its segments
// matched literally.
func (rt route) match(path []string) (int, bool) {
	if len(path) != len(rt.segments) {
		return 0, false
	}
	static := 0
	for i, seg := range rt.segments {
		switch {
		case strings.HasPrefix(seg, ":"):
			if path[i] == "" {
				return 0, false
			}
		case seg == path[i]:
			static++
		default:
			return 0, false
		}
	}
	return static, true
}
