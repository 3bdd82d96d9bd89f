package pharmacy

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, p *Pharmacy) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrDuplicateResource
		}
		return pkgerrors.Wrap(err, "create pharmacy")
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p *Pharmacy) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return pkgerrors.Wrap(db.Save(p).Error, "update pharmacy")
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Pharmacy, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var p Pharmacy
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find pharmacy")
	}
	return &p, nil
}

// ExistsByIdentity 按邮箱/手机号/执照号查重。
func (r *Repo) ExistsByIdentity(ctx context.Context, email, phone, license string) (bool, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	err := db.Model(&Pharmacy{}).
		Where("email = ? OR phone = ? OR license_number = ?", email, phone, license).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "count pharmacies by identity")
	}
	return count > 0, nil
}

// List 支持按审核状态过滤 + 分页。
func (r *Repo) List(ctx context.Context, status ValidationStatus, offset, limit int) ([]Pharmacy, int64, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Pharmacy{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count pharmacies")
	}
	var out []Pharmacy
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list pharmacies")
	}
	return out, total, nil
}

func (r *Repo) UpsertEmployee(ctx context.Context, e *Employee) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return pkgerrors.Wrap(db.Save(e).Error, "upsert employee")
}

func (r *Repo) FindEmployee(ctx context.Context, pharmacyID, userID string) (*Employee, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var e Employee
	err := db.Where("pharmacy_id = ? AND user_id = ?", pharmacyID, userID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find employee")
	}
	return &e, nil
}
