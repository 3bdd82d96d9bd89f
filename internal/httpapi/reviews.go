package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/review"
)

type submitReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func (s *Server) submitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	rv, err := s.reviews.Submit(c.Request.Context(), actorFrom(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, rv)
}

type moderateReviewRequest struct {
	Status string `json:"status" binding:"required"` // approved / rejected
}

func (s *Server) moderateReview(c *gin.Context) {
	var req moderateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	rv, err := s.reviews.Moderate(c.Request.Context(), actorFrom(c), c.Param("id"),
		review.ModerationStatus(req.Status))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, rv)
}

func (s *Server) listPharmacyReviews(c *gin.Context) {
	offset, limit := pageParams(c)
	// 公开接口：只能看到已通过审核的评价
	list, err := s.reviews.ListByPharmacy(c.Request.Context(), actorFrom(c), c.Param("id"),
		review.ModerationStatus(c.Query("status")), offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list})
}
