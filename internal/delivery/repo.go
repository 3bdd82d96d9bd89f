package delivery

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

// Create 写入配送指派。order_id 唯一索引兜底并发重复指派。
func (r *Repo) Create(ctx context.Context, a *Assignment) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrDuplicateAssignment
		}
		return pkgerrors.Wrap(err, "create assignment")
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Assignment, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Assignment
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find assignment")
	}
	return &a, nil
}

func (r *Repo) FindByOrderID(ctx context.Context, orderID string) (*Assignment, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Assignment
	if err := db.Where("order_id = ?", orderID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find assignment by order")
	}
	return &a, nil
}

// UpdateStatus 按 (id, version) CAS 持久化状态流转，含凭证照片路径。
func (r *Repo) UpdateStatus(ctx context.Context, a *Assignment) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	prev := a.Version
	a.Version = prev + 1

	res := db.Model(&Assignment{}).
		Where("id = ? AND version = ?", a.ID, prev).
		Select("status", "version", "photo_proof_path", "picked_up_at", "delivered_at").
		Updates(a)
	if res.Error != nil {
		a.Version = prev
		return pkgerrors.Wrap(res.Error, "update assignment status")
	}
	if res.RowsAffected == 0 {
		a.Version = prev
		return apperr.ErrConflict
	}
	return nil
}

// UpdateLocation 更新骑手位置，不参与版本竞争（最后写入者胜出即可）。
func (r *Repo) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Assignment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"latitude": lat, "longitude": lng})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update assignment location")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListByCourier 按骑手查指派，最近的在前。
func (r *Repo) ListByCourier(ctx context.Context, courierID string, offset, limit int) ([]Assignment, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	var list []Assignment
	if err := db.Where("courier_id = ?", courierID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list assignments by courier")
	}
	return list, nil
}
