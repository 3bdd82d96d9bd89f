package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

// statusOf 把业务哨兵错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnknownMedication):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrDuplicateAssignment):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrDuplicateResource):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrReviewNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 统一错误响应格式。5xx 不回显内部错误细节。
func abortWithError(c *gin.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
