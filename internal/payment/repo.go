package payment

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

func (r *Repo) Create(ctx context.Context, p *Payment) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(p).Error; err != nil {
		return pkgerrors.Wrap(err, "create payment")
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Payment, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var p Payment
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find payment")
	}
	return &p, nil
}

// HasSuccess 判断订单是否已存在成功支付。
func (r *Repo) HasSuccess(ctx context.Context, orderID string) (bool, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	if err := db.Model(&Payment{}).
		Where("order_id = ? AND status = ?", orderID, StatusSuccess).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(err, "count success payments")
	}
	return count > 0, nil
}

// ListByOrder 订单的全部支付尝试，按时间升序。
func (r *Repo) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var list []Payment
	if err := db.Where("order_id = ?", orderID).
		Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list payments by order")
	}
	return list, nil
}
