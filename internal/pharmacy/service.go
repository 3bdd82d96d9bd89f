package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

// Repository 服务侧依赖的最小仓储接口。
type Repository interface {
	Create(ctx context.Context, p *Pharmacy) error
	Update(ctx context.Context, p *Pharmacy) error
	FindByID(ctx context.Context, id string) (*Pharmacy, error)
	ExistsByIdentity(ctx context.Context, email, phone, license string) (bool, error)
	List(ctx context.Context, status ValidationStatus, offset, limit int) ([]Pharmacy, int64, error)
	UpsertEmployee(ctx context.Context, e *Employee) error
	FindEmployee(ctx context.Context, pharmacyID, userID string) (*Employee, error)
}

// FileStore 执照文档落盘。
type FileStore interface {
	Store(data []byte, subdir string) (string, error)
}

// Service 封装药房目录用例：注册、审核、员工授权。
type Service struct {
	repo  Repository
	files FileStore
}

func NewService(repo Repository, files FileStore) *Service {
	return &Service{repo: repo, files: files}
}

// RegisterInput 药房入驻入参。
type RegisterInput struct {
	OwnerID       string
	Name          string
	Email         string
	Phone         string
	LicenseNumber string
	LicenseDoc    []byte // 执照扫描件，可为空
	Address       string
	Latitude      float64
	Longitude     float64
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Pharmacy, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	license := strings.TrimSpace(in.LicenseNumber)
	if strings.TrimSpace(in.OwnerID) == "" || name == "" || email == "" || phone == "" || license == "" {
		return nil, apperr.ErrInvalidInput
	}

	exists, err := s.repo.ExistsByIdentity(ctx, email, phone, license)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrDuplicateResource
	}

	p := &Pharmacy{
		ID:            uuid.NewString(),
		OwnerID:       strings.TrimSpace(in.OwnerID),
		Name:          name,
		Email:         email,
		Phone:         phone,
		LicenseNumber: license,
		Status:        StatusPending,
		Address:       strings.TrimSpace(in.Address),
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
	}

	if len(in.LicenseDoc) > 0 && s.files != nil {
		path, err := s.files.Store(in.LicenseDoc, "licenses")
		if err != nil {
			return nil, err
		}
		p.LicensePath = path
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// 负责人默认拥有全部员工权限
	owner := &Employee{
		ID:                  uuid.NewString(),
		PharmacyID:          p.ID,
		UserID:              p.OwnerID,
		CanConfirmOrders:    true,
		CanPrepareOrders:    true,
		CanAssignDeliveries: true,
		CanManageStock:      true,
	}
	if err := s.repo.UpsertEmployee(ctx, owner); err != nil {
		return nil, err
	}
	return p, nil
}

// Moderate 管理员审核药房资质。
func (s *Service) Moderate(ctx context.Context, actor account.Actor, pharmacyID string, approve bool) (*Pharmacy, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if !actor.IsAdmin() {
		return nil, apperr.ErrUnauthorized
	}
	p, err := s.repo.FindByID(ctx, strings.TrimSpace(pharmacyID))
	if err != nil {
		return nil, err
	}
	if approve {
		p.Status = StatusApproved
	} else {
		p.Status = StatusRejected
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddEmployeeInput 员工授权入参。
type AddEmployeeInput struct {
	PharmacyID          string
	UserID              string
	CanConfirmOrders    bool
	CanPrepareOrders    bool
	CanAssignDeliveries bool
	CanManageStock      bool
}

// AddEmployee 只有药房负责人或管理员可以授权员工。
func (s *Service) AddEmployee(ctx context.Context, actor account.Actor, in AddEmployeeInput) (*Employee, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	pharmacyID := strings.TrimSpace(in.PharmacyID)
	userID := strings.TrimSpace(in.UserID)
	if pharmacyID == "" || userID == "" {
		return nil, apperr.ErrInvalidInput
	}

	p, err := s.repo.FindByID(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != p.OwnerID {
		return nil, apperr.ErrUnauthorized
	}

	e, err := s.repo.FindEmployee(ctx, pharmacyID, userID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		e = &Employee{
			ID:         uuid.NewString(),
			PharmacyID: pharmacyID,
			UserID:     userID,
		}
	}
	e.CanConfirmOrders = in.CanConfirmOrders
	e.CanPrepareOrders = in.CanPrepareOrders
	e.CanAssignDeliveries = in.CanAssignDeliveries
	e.CanManageStock = in.CanManageStock

	if err := s.repo.UpsertEmployee(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// EmployeePermissions 查询某用户在某药房的权限快照。
// 非员工返回零值 Permissions（Member=false），不报错。
func (s *Service) EmployeePermissions(ctx context.Context, pharmacyID, userID string) (Permissions, error) {
	if s == nil || s.repo == nil {
		return Permissions{}, fmt.Errorf("service not initialized")
	}
	e, err := s.repo.FindEmployee(ctx, strings.TrimSpace(pharmacyID), strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Permissions{}, nil
		}
		return Permissions{}, err
	}
	return Permissions{
		Member:              true,
		CanConfirmOrders:    e.CanConfirmOrders,
		CanPrepareOrders:    e.CanPrepareOrders,
		CanAssignDeliveries: e.CanAssignDeliveries,
		CanManageStock:      e.CanManageStock,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Pharmacy, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

func (s *Service) List(ctx context.Context, status ValidationStatus, offset, limit int) ([]Pharmacy, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, status, offset, limit)
}
