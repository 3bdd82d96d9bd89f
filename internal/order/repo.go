package order

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

// Create 写入订单及其订单行（调用方负责事务边界）。
func (r *Repo) Create(ctx context.Context, o *Order, items []OrderItem) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(o).Error; err != nil {
		return pkgerrors.Wrap(err, "create order")
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return pkgerrors.Wrap(err, "create order items")
		}
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var o Order
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find order")
	}
	return &o, nil
}

// Items 显式加载订单行（不做隐式关联加载）。
func (r *Repo) Items(ctx context.Context, orderID string) ([]OrderItem, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var items []OrderItem
	if err := db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load order items")
	}
	return items, nil
}

// UpdateStatus 按 (id, version) CAS 持久化状态流转。
// 入参 o 是已应用流转的订单，version 仍是读出时的旧值；命中后 +1。
func (r *Repo) UpdateStatus(ctx context.Context, o *Order) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	prev := o.Version
	o.Version = prev + 1

	res := db.Model(&Order{}).
		Where("id = ? AND version = ?", o.ID, prev).
		Select("status", "version", "paid_at", "confirmed_at", "preparing_at",
			"ready_at", "in_delivery_at", "delivered_at", "cancelled_at").
		Updates(o)
	if res.Error != nil {
		o.Version = prev
		return pkgerrors.Wrap(res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		o.Version = prev
		return apperr.ErrConflict
	}
	return nil
}

// ListFilter 查询条件。
type ListFilter struct {
	PatientID  string
	PharmacyID string
	Status     Status
	Offset     int
	Limit      int
}

// List 支持按患者/药房/状态过滤 + 分页。
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, int64, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := db.Model(&Order{})
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.PharmacyID != "" {
		q = q.Where("pharmacy_id = ?", f.PharmacyID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}
	var orders []Order
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&orders).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}
	return orders, total, nil
}
