// Package httpapi 是平台的 HTTP 入口：gin 路由 + 请求/响应 DTO。
// 业务规则全部在各 service 内，这一层只做参数绑定、身份还原和错误映射。
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/catalog"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/delivery"
	"github.com/PharmaLink/PharmaLink/internal/order"
	"github.com/PharmaLink/PharmaLink/internal/payment"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
	"github.com/PharmaLink/PharmaLink/internal/review"
)

// Server 聚合各领域服务并暴露 REST 路由。
type Server struct {
	accounts   *account.Service
	pharmacies *pharmacy.Service
	catalogs   *catalog.Service
	orders     *order.Service
	deliveries *delivery.Service
	payments   *payment.Service
	reviews    *review.Service
	log        logger.Logger
}

func NewServer(
	accounts *account.Service,
	pharmacies *pharmacy.Service,
	catalogs *catalog.Service,
	orders *order.Service,
	deliveries *delivery.Service,
	payments *payment.Service,
	reviews *review.Service,
	log logger.Logger,
) *Server {
	return &Server{
		accounts:   accounts,
		pharmacies: pharmacies,
		catalogs:   catalogs,
		orders:     orders,
		deliveries: deliveries,
		payments:   payments,
		reviews:    reviews,
		log:        log,
	}
}

// RegisterRoutes 挂载全部 API 路由。
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// 无需身份的公开查询
	api.GET("/medications", s.listMedications)
	api.GET("/medications/search", s.searchMedications)
	api.GET("/pharmacies", s.listPharmacies)
	api.GET("/pharmacies/:id", s.getPharmacy)
	api.GET("/pharmacies/:id/rating", s.pharmacyRating)
	api.GET("/pharmacies/:id/reviews", s.listPharmacyReviews)
	api.POST("/users", s.registerUser)

	auth := api.Group("", ActorRequired())
	{
		auth.GET("/users/:id", s.getUser)

		auth.POST("/medications", s.createMedication)
		auth.PUT("/pharmacies/:id/stocks", s.upsertStock)

		auth.POST("/pharmacies", s.registerPharmacy)
		auth.POST("/pharmacies/:id/moderate", s.moderatePharmacy)
		auth.POST("/pharmacies/:id/employees", s.addEmployee)

		auth.POST("/orders", s.placeOrder)
		auth.GET("/orders", s.listOrders)
		auth.GET("/orders/:id", s.getOrder)
		auth.POST("/orders/:id/confirm", s.confirmOrder)
		auth.POST("/orders/:id/prepare", s.prepareOrder)
		auth.POST("/orders/:id/ready", s.readyOrder)
		auth.POST("/orders/:id/cancel", s.cancelOrder)

		auth.POST("/orders/:id/payments", s.chargeOrder)
		auth.GET("/orders/:id/payments", s.listOrderPayments)

		auth.POST("/orders/:id/assignment", s.assignDelivery)
		auth.GET("/orders/:id/assignment", s.getOrderAssignment)
		auth.POST("/assignments/:id/pickup", s.pickUpAssignment)
		auth.POST("/assignments/:id/deliver", s.deliverAssignment)
		auth.PUT("/assignments/:id/location", s.updateAssignmentLocation)
		auth.GET("/couriers/:id/assignments", s.listCourierAssignments)

		auth.POST("/orders/:id/review", s.submitReview)
		auth.POST("/reviews/:id/moderate", s.moderateReview)
	}
}

// pageParams 解析分页参数，带默认值。
func pageParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}

func ok(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

func created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}
