package httpapi

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

type registerPharmacyRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	LicenseNumber string  `json:"license_number" binding:"required"`
	LicenseDoc    string  `json:"license_doc"` // base64 编码的执照扫描件
	Address       string  `json:"address"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

func (s *Server) registerPharmacy(c *gin.Context) {
	var req registerPharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	var doc []byte
	if req.LicenseDoc != "" {
		var err error
		doc, err = base64.StdEncoding.DecodeString(req.LicenseDoc)
		if err != nil {
			abortWithError(c, apperr.ErrInvalidInput)
			return
		}
	}
	p, err := s.pharmacies.Register(c.Request.Context(), pharmacy.RegisterInput{
		OwnerID:       actorFrom(c).UserID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		LicenseDoc:    doc,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, p)
}

type moderatePharmacyRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) moderatePharmacy(c *gin.Context) {
	var req moderatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	p, err := s.pharmacies.Moderate(c.Request.Context(), actorFrom(c), c.Param("id"), req.Approve)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, p)
}

type addEmployeeRequest struct {
	UserID              string `json:"user_id" binding:"required"`
	CanConfirmOrders    bool   `json:"can_confirm_orders"`
	CanPrepareOrders    bool   `json:"can_prepare_orders"`
	CanAssignDeliveries bool   `json:"can_assign_deliveries"`
	CanManageStock      bool   `json:"can_manage_stock"`
}

func (s *Server) addEmployee(c *gin.Context) {
	var req addEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	e, err := s.pharmacies.AddEmployee(c.Request.Context(), actorFrom(c), pharmacy.AddEmployeeInput{
		PharmacyID:          c.Param("id"),
		UserID:              req.UserID,
		CanConfirmOrders:    req.CanConfirmOrders,
		CanPrepareOrders:    req.CanPrepareOrders,
		CanAssignDeliveries: req.CanAssignDeliveries,
		CanManageStock:      req.CanManageStock,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, e)
}

func (s *Server) getPharmacy(c *gin.Context) {
	p, err := s.pharmacies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, p)
}

func (s *Server) listPharmacies(c *gin.Context) {
	offset, limit := pageParams(c)
	list, total, err := s.pharmacies.List(c.Request.Context(),
		pharmacy.ValidationStatus(c.Query("status")), offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list, "total": total})
}

func (s *Server) pharmacyRating(c *gin.Context) {
	avg, count, err := s.reviews.PharmacyRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"average": avg, "count": count})
}
