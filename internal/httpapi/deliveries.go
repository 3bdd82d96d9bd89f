package httpapi

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

type assignDeliveryRequest struct {
	CourierID string `json:"courier_id" binding:"required"`
}

func (s *Server) assignDelivery(c *gin.Context) {
	var req assignDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	a, err := s.deliveries.Assign(c.Request.Context(), actorFrom(c), c.Param("id"), req.CourierID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, a)
}

func (s *Server) getOrderAssignment(c *gin.Context) {
	a, err := s.deliveries.GetByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, a)
}

func (s *Server) pickUpAssignment(c *gin.Context) {
	a, err := s.deliveries.MarkPickedUp(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, a)
}

type deliverRequest struct {
	PhotoProof string `json:"photo_proof"` // base64 编码的送达凭证，可为空
}

func (s *Server) deliverAssignment(c *gin.Context) {
	var req deliverRequest
	// 允许空 body
	_ = c.ShouldBindJSON(&req)

	var photo []byte
	if req.PhotoProof != "" {
		var err error
		photo, err = base64.StdEncoding.DecodeString(req.PhotoProof)
		if err != nil {
			abortWithError(c, apperr.ErrInvalidInput)
			return
		}
	}
	a, err := s.deliveries.MarkDelivered(c.Request.Context(), actorFrom(c), c.Param("id"), photo)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, a)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) updateAssignmentLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	if err := s.deliveries.UpdateLocation(c.Request.Context(), actorFrom(c), c.Param("id"),
		req.Latitude, req.Longitude); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"updated": true})
}

func (s *Server) listCourierAssignments(c *gin.Context) {
	actor := actorFrom(c)
	courierID := c.Param("id")
	if actor.UserID != courierID && !actor.IsAdmin() {
		abortWithError(c, apperr.ErrUnauthorized)
		return
	}
	offset, limit := pageParams(c)
	list, err := s.deliveries.ListByCourier(c.Request.Context(), courierID, offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list})
}
