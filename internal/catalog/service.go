package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

// Repository 服务侧依赖的最小仓储接口。
type Repository interface {
	CreateMedication(ctx context.Context, m *Medication) error
	FindMedication(ctx context.Context, id string) (*Medication, error)
	ListMedications(ctx context.Context, nameQuery string, offset, limit int) ([]Medication, int64, error)
	UpsertStock(ctx context.Context, s *PharmacyStock) error
	FindStock(ctx context.Context, pharmacyID, medicationID string) (*PharmacyStock, error)
	Search(ctx context.Context, nameQuery string, limit int) ([]SearchRow, error)
}

// PermissionSource 药房员工权限查询。
type PermissionSource interface {
	EmployeePermissions(ctx context.Context, pharmacyID, userID string) (pharmacy.Permissions, error)
}

// FeeQuoter 按距离估算配送费（纯函数，见 delivery.FeePolicy）。
type FeeQuoter interface {
	Quote(distanceKm float64) int64
}

// Service 药品目录与库存管理。
type Service struct {
	repo  Repository
	perms PermissionSource
	fees  FeeQuoter
}

func NewService(repo Repository, perms PermissionSource, fees FeeQuoter) *Service {
	return &Service{repo: repo, perms: perms, fees: fees}
}

// CreateMedicationInput 新建药品（仅目录管理员）。
type CreateMedicationInput struct {
	Name             string
	GenericName      string
	TherapeuticClass string
	Prescription     bool
}

func (s *Service) CreateMedication(ctx context.Context, actor account.Actor, in CreateMedicationInput) (*Medication, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if !actor.IsAdmin() {
		return nil, apperr.ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.ErrInvalidInput
	}

	m := &Medication{
		ID:               uuid.NewString(),
		Name:             name,
		GenericName:      strings.TrimSpace(in.GenericName),
		TherapeuticClass: strings.TrimSpace(in.TherapeuticClass),
		Prescription:     in.Prescription,
	}
	if err := s.repo.CreateMedication(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMedication(ctx context.Context, id string) (*Medication, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindMedication(ctx, strings.TrimSpace(id))
}

func (s *Service) ListMedications(ctx context.Context, nameQuery string, offset, limit int) ([]Medication, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.ListMedications(ctx, strings.TrimSpace(nameQuery), offset, limit)
}

// UpsertStockInput 药房上架/调整库存入参。
type UpsertStockInput struct {
	PharmacyID   string
	MedicationID string
	PriceCents   int64
	Quantity     int
}

// UpsertStock 新建或覆盖库存记录；需要 canManageStock 权限。
func (s *Service) UpsertStock(ctx context.Context, actor account.Actor, in UpsertStockInput) (*PharmacyStock, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	pharmacyID := strings.TrimSpace(in.PharmacyID)
	medicationID := strings.TrimSpace(in.MedicationID)
	if pharmacyID == "" || medicationID == "" || in.PriceCents < 0 || in.Quantity < 0 {
		return nil, apperr.ErrInvalidInput
	}

	if !actor.IsAdmin() {
		perms, err := s.perms.EmployeePermissions(ctx, pharmacyID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !perms.CanManageStock {
			return nil, apperr.ErrUnauthorized
		}
	}

	// 药品必须已在目录中
	if _, err := s.repo.FindMedication(ctx, medicationID); err != nil {
		return nil, err
	}

	stock, err := s.repo.FindStock(ctx, pharmacyID, medicationID)
	if err != nil {
		if err != apperr.ErrNotFound {
			return nil, err
		}
		stock = &PharmacyStock{
			ID:           uuid.NewString(),
			PharmacyID:   pharmacyID,
			MedicationID: medicationID,
		}
	}
	stock.PriceCents = in.PriceCents
	stock.Quantity = in.Quantity
	stock.Available = in.Quantity > 0
	stock.Version++

	if err := s.repo.UpsertStock(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// SearchQuery 患者搜索入参。
type SearchQuery struct {
	Name          string
	Latitude      float64
	Longitude     float64
	MaxDistanceKm float64 // <=0 表示不过滤
	Limit         int
}

// Search 搜索在售药品，按与患者的距离升序返回，附配送费估算。
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	rows, err := s.repo.Search(ctx, strings.TrimSpace(q.Name), q.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		dist := pharmacy.DistanceKm(q.Latitude, q.Longitude, row.Latitude, row.Longitude)
		if q.MaxDistanceKm > 0 && dist > q.MaxDistanceKm {
			continue
		}
		res := SearchResult{SearchRow: row, DistanceKm: dist}
		if s.fees != nil {
			res.DeliveryFeeCents = s.fees.Quote(dist)
		}
		out = append(out, res)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}
