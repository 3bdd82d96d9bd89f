package review

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

// Create 写入评价。order_id 唯一索引兜底并发重复提交。
func (r *Repo) Create(ctx context.Context, rv *Review) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(rv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrReviewNotAllowed
		}
		return pkgerrors.Wrap(err, "create review")
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Review, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rv Review
	if err := db.Where("id = ?", id).First(&rv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find review")
	}
	return &rv, nil
}

// ExistsByOrder 该订单是否已有评价（任意审核状态都算）。
func (r *Repo) ExistsByOrder(ctx context.Context, orderID string) (bool, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	if err := db.Model(&Review{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(err, "count reviews by order")
	}
	return count > 0, nil
}

// UpdateStatus 更新审核状态。
func (r *Repo) UpdateStatus(ctx context.Context, id string, status ModerationStatus) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Review{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update review status")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListByPharmacy 某药房的评价列表，可按审核状态过滤。
func (r *Repo) ListByPharmacy(ctx context.Context, pharmacyID string, status ModerationStatus, offset, limit int) ([]Review, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	q := db.Where("pharmacy_id = ?", pharmacyID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []Review
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list reviews by pharmacy")
	}
	return list, nil
}

// AverageRating 药房均分：只统计 approved 评价。无评价时返回 (0, 0)。
func (r *Repo) AverageRating(ctx context.Context, pharmacyID string) (float64, int64, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return 0, 0, fmt.Errorf("repo db is nil")
	}
	var row struct {
		Avg   float64
		Count int64
	}
	err := db.Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("pharmacy_id = ? AND status = ?", pharmacyID, StatusApproved).
		Scan(&row).Error
	if err != nil {
		return 0, 0, pkgerrors.Wrap(err, "average rating")
	}
	return row.Avg, row.Count, nil
}
