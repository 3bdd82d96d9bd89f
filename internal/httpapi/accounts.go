package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

type registerUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

func (s *Server) registerUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	u, err := s.accounts.Register(c.Request.Context(), account.RegisterInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  account.Role(req.Role),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, u)
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, u)
}
