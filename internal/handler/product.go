package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/product"
)

// listProducts serves the shop page: ?sort=popular|newest|lowprice|highprice
// and ?discounted=true.
func (s *Server) listProducts(c *gin.Context) {
	discounted, _ := strconv.ParseBool(c.Query("discounted"))
	products, err := s.products.List(c.Request.Context(), product.ListFilter{
		DiscountedOnly: discounted,
		Query:          c.Query("q"),
		Sort:           product.ParseSort(c.Query("sort")),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productResponses(products))
}

func (s *Server) searchProducts(c *gin.Context) {
	products, err := s.products.Search(c.Request.Context(), c.Query("q"), product.ParseSort(c.Query("sort")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productResponses(products))
}

func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productResponse(*p, time.Now()))
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// addReview records the caller's review and returns the re-rated product.
func (s *Server) addReview(c *gin.Context) {
	var req reviewRequest
	if !bind(c, &req) {
		return
	}
	p, err := s.products.AddReview(c.Request.Context(), c.Param("id"), product.Review{
		UserID:  currentUser(c),
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.productResponse(*p, time.Now()))
}

func (s *Server) listReviews(c *gin.Context) {
	reviews, err := s.products.Reviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]reviewResponse, len(reviews))
	for i, r := range reviews {
		out[i] = reviewResponse(r)
	}
	c.JSON(http.StatusOK, out)
}
