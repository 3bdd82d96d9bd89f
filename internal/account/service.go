package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

// Repository 服务侧依赖的最小仓储接口，便于测试替换。
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	ExistsByContact(ctx context.Context, email, phone string) (bool, error)
	List(ctx context.Context, role Role, offset, limit int) ([]User, int64, error)
}

// Service 封装用户目录用例。
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput 注册入参。
type RegisterInput struct {
	Name  string
	Email string
	Phone string
	Role  Role
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	if name == "" || email == "" || phone == "" {
		return nil, apperr.ErrInvalidInput
	}
	switch in.Role {
	case RolePatient, RolePharmacist, RoleCourier, RoleAdmin:
	default:
		return nil, apperr.ErrInvalidInput
	}

	exists, err := s.repo.ExistsByContact(ctx, email, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrDuplicateResource
	}

	u := &User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Phone: phone,
		Role:  in.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.ErrInvalidInput
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, role Role, offset, limit int) ([]User, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, role, offset, limit)
}
