package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

func (s *Server) getCart(c *gin.Context) {
	view, err := s.orders.PreviewCart(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

func (s *Server) addToCart(c *gin.Context) {
	if err := s.users.AddToCart(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	s.getCart(c)
}

func (s *Server) removeFromCart(c *gin.Context) {
	if err := s.users.RemoveFromCart(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	s.getCart(c)
}

func (s *Server) getWishlist(c *gin.Context) {
	products, err := s.users.Wishlist(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productResponses(products))
}

func (s *Server) addToWishlist(c *gin.Context) {
	if err := s.users.AddToWishlist(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	s.getWishlist(c)
}

func (s *Server) removeFromWishlist(c *gin.Context) {
	if err := s.users.RemoveFromWishlist(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	s.getWishlist(c)
}

func (s *Server) moveToCart(c *gin.Context) {
	if err := s.users.MoveToCart(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	s.getCart(c)
}

func (s *Server) listAddresses(c *gin.Context) {
	u, err := s.users.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u).Addresses)
}

func (s *Server) addAddress(c *gin.Context) {
	var req user.Address
	if !bind(c, &req) {
		return
	}
	a, err := s.users.AddAddress(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) setDefaultAddress(c *gin.Context) {
	if err := s.users.SetDefaultAddress(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	s.listAddresses(c)
}

func (s *Server) deleteAddress(c *gin.Context) {
	if err := s.users.DeleteAddress(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type viewedResponse struct {
	Product  productResponse `json:"product"`
	ViewedAt time.Time       `json:"viewed_at"`
}

func (s *Server) recentlyViewed(c *gin.Context) {
	views, err := s.users.RecentlyViewed(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	now := time.Now()
	out := make([]viewedResponse, len(views))
	for i, v := range views {
		out[i] = viewedResponse{Product: s.productResponse(v.Product, now), ViewedAt: v.ViewedAt}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) trackView(c *gin.Context) {
	if err := s.users.TrackView(c.Request.Context(), currentUser(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
