package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/order"
	"github.com/PharmaLink/PharmaLink/internal/payment"
)

type orderLineRequest struct {
	MedicationID string `json:"medication_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
}

type placeOrderRequest struct {
	PharmacyID        string             `json:"pharmacy_id" binding:"required"`
	Items             []orderLineRequest `json:"items" binding:"required"`
	DeliveryAddress   string             `json:"delivery_address" binding:"required"`
	DeliveryLatitude  float64            `json:"delivery_latitude"`
	DeliveryLongitude float64            `json:"delivery_longitude"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineInput{MedicationID: it.MedicationID, Quantity: it.Quantity})
	}
	o, err := s.orders.PlaceOrder(c.Request.Context(), order.PlaceOrderInput{
		PatientID:         actorFrom(c).UserID,
		PharmacyID:        req.PharmacyID,
		Items:             lines,
		DeliveryAddress:   req.DeliveryAddress,
		DeliveryLatitude:  req.DeliveryLatitude,
		DeliveryLongitude: req.DeliveryLongitude,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, o)
}

func (s *Server) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := s.orders.Get(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	items, err := s.orders.Items(ctx, o.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"order": o, "items": items})
}

func (s *Server) listOrders(c *gin.Context) {
	offset, limit := pageParams(c)
	actor := actorFrom(c)
	f := order.ListFilter{
		PatientID:  c.Query("patient_id"),
		PharmacyID: c.Query("pharmacy_id"),
		Status:     order.Status(c.Query("status")),
		Offset:     offset,
		Limit:      limit,
	}
	// 患者只能查自己的订单
	if actor.IsPatient() {
		f.PatientID = actor.UserID
	}
	list, total, err := s.orders.List(c.Request.Context(), f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list, "total": total})
}

func (s *Server) confirmOrder(c *gin.Context) {
	o, err := s.orders.Confirm(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, o)
}

func (s *Server) prepareOrder(c *gin.Context) {
	o, err := s.orders.MarkPreparing(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, o)
}

func (s *Server) readyOrder(c *gin.Context) {
	o, err := s.orders.MarkReady(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, o)
}

func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.orders.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, o)
}

type chargeRequest struct {
	Method string `json:"method" binding:"required"`
}

func (s *Server) chargeOrder(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	p, err := s.payments.Charge(c.Request.Context(), actorFrom(c), c.Param("id"), payment.Method(req.Method))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if p.Status == payment.StatusFailed {
		c.JSON(402, p)
		return
	}
	created(c, p)
}

func (s *Server) listOrderPayments(c *gin.Context) {
	list, err := s.payments.ListByOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list})
}
