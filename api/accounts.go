package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"meetingflow/auth"
	"meetingflow/connections"
)

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		TimeZone:  u.TimeZone,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := s.accounts.Register(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, toUserResponse(*user))
	case errors.Is(err, auth.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidTimeZone), errors.Is(err, auth.ErrMissingField):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.writeError(c, err)
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.accounts.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: res.Token, User: toUserResponse(res.User)})
}

func (s *Server) handleListConnections(c *gin.Context) {
	if s.directory == nil {
		c.JSON(http.StatusOK, []string{})
		return
	}
	ids, err := s.directory.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

type connectRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleConnect(c *gin.Context) {
	if s.directory == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "connections are not configured"})
		return
	}
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}
	if err := s.directory.Connect(c.Request.Context(), currentUser(c), req.UserID); err != nil {
		if errors.Is(err, connections.ErrSelfConnection) {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
