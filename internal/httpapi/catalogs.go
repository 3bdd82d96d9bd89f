package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/catalog"
)

type createMedicationRequest struct {
	Name             string `json:"name" binding:"required"`
	GenericName      string `json:"generic_name"`
	TherapeuticClass string `json:"therapeutic_class"`
	Prescription     bool   `json:"prescription"`
}

func (s *Server) createMedication(c *gin.Context) {
	var req createMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	m, err := s.catalogs.CreateMedication(c.Request.Context(), actorFrom(c), catalog.CreateMedicationInput{
		Name:             req.Name,
		GenericName:      req.GenericName,
		TherapeuticClass: req.TherapeuticClass,
		Prescription:     req.Prescription,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	created(c, m)
}

func (s *Server) listMedications(c *gin.Context) {
	offset, limit := pageParams(c)
	list, total, err := s.catalogs.ListMedications(c.Request.Context(), c.Query("name"), offset, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": list, "total": total})
}

func (s *Server) searchMedications(c *gin.Context) {
	lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
	lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
	maxKm, _ := strconv.ParseFloat(c.Query("max_km"), 64)
	_, limit := pageParams(c)

	results, err := s.catalogs.Search(c.Request.Context(), catalog.SearchQuery{
		Name:          c.Query("name"),
		Latitude:      lat,
		Longitude:     lng,
		MaxDistanceKm: maxKm,
		Limit:         limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, gin.H{"items": results})
}

type upsertStockRequest struct {
	MedicationID string `json:"medication_id" binding:"required"`
	PriceCents   int64  `json:"price_cents"`
	Quantity     int    `json:"quantity"`
}

func (s *Server) upsertStock(c *gin.Context) {
	var req upsertStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.ErrInvalidInput)
		return
	}
	stock, err := s.catalogs.UpsertStock(c.Request.Context(), actorFrom(c), catalog.UpsertStockInput{
		PharmacyID:   c.Param("id"),
		MedicationID: req.MedicationID,
		PriceCents:   req.PriceCents,
		Quantity:     req.Quantity,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, stock)
}
