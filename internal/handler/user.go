package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Devanshprabhakar24/Scatch/internal/domain/user"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Contact  string `json:"contact"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	u, err := s.users.Register(c.Request.Context(), user.RegisterRequest(req))
	if err != nil {
		fail(c, err)
		return
	}
	s.startSession(c, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	u, err := s.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	s.startSession(c, http.StatusOK, u)
}

// startSession issues a token, sets it as a cookie and returns it in the body.
func (s *Server) startSession(c *gin.Context, status int, u *user.User) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		fail(c, err)
		return
	}
	s.setSessionCookie(c, token)
	c.JSON(status, sessionResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()).UTC(),
		User:      newUserResponse(u),
	})
}

func (s *Server) logout(c *gin.Context) {
	s.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	u, err := s.users.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

type profileRequest struct {
	FullName string `json:"full_name"`
	Contact  string `json:"contact"`
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	u, err := s.users.UpdateProfile(c.Request.Context(), currentUser(c), user.Profile(req))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) changePassword(c *gin.Context) {
	var req passwordRequest
	if !bind(c, &req) {
		return
	}
	if err := s.users.ChangePassword(c.Request.Context(), currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
