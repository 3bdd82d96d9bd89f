package catalog

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateMedication(ctx context.Context, m *Medication) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return pkgerrors.Wrap(db.Create(m).Error, "create medication")
}

func (r *Repo) FindMedication(ctx context.Context, id string) (*Medication, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var m Medication
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find medication")
	}
	return &m, nil
}

// ListMedications 支持按名称模糊过滤 + 分页。
func (r *Repo) ListMedications(ctx context.Context, nameQuery string, offset, limit int) ([]Medication, int64, error) {
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

	q := db.Model(&Medication{})
	if nameQuery != "" {
		like := "%" + nameQuery + "%"
		q = q.Where("name LIKE ? OR generic_name LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count medications")
	}
	var out []Medication
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list medications")
	}
	return out, total, nil
}

func (r *Repo) UpsertStock(ctx context.Context, s *PharmacyStock) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Save(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrDuplicateResource
		}
		return pkgerrors.Wrap(err, "upsert stock")
	}
	return nil
}

// FindStock 按 (pharmacy, medication) 查库存记录。
func (r *Repo) FindStock(ctx context.Context, pharmacyID, medicationID string) (*PharmacyStock, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s PharmacyStock
	err := db.Where("pharmacy_id = ? AND medication_id = ?", pharmacyID, medicationID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find stock")
	}
	return &s, nil
}

// DecrementStock 乐观 CAS 扣减：version 未命中或余量不足时影响 0 行，
// 返回 ErrConflict 交由上层决定重试还是报缺货。quantity 扣到 0 时同步下架。
func (r *Repo) DecrementStock(ctx context.Context, stockID string, version int64, qty int) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&PharmacyStock{}).
		Where("id = ? AND version = ? AND quantity >= ?", stockID, version, qty).
		Updates(map[string]interface{}{
			"quantity":  gorm.Expr("quantity - ?", qty),
			"available": gorm.Expr("quantity - ? > 0", qty),
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConflict
	}
	return nil
}

// RestoreStock 取消订单回补库存；回补后必然有货，直接置 available。
func (r *Repo) RestoreStock(ctx context.Context, stockID string, qty int) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&PharmacyStock{}).
		Where("id = ?", stockID).
		Updates(map[string]interface{}{
			"quantity":  gorm.Expr("quantity + ?", qty),
			"available": true,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Search 联查在售库存 × 药品 × 已过审药房。
// 距离过滤/排序在服务层做（可移植，不依赖 MySQL 空间函数）。
func (r *Repo) Search(ctx context.Context, nameQuery string, limit int) ([]SearchRow, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := db.Table("pharmacy_stocks").
		Select(`pharmacy_stocks.id AS stock_id,
			medications.id AS medication_id,
			medications.name AS medication_name,
			medications.generic_name AS generic_name,
			medications.prescription AS prescription,
			pharmacies.id AS pharmacy_id,
			pharmacies.name AS pharmacy_name,
			pharmacies.latitude AS latitude,
			pharmacies.longitude AS longitude,
			pharmacy_stocks.price_cents AS price_cents,
			pharmacy_stocks.quantity AS quantity`).
		Joins("JOIN medications ON medications.id = pharmacy_stocks.medication_id").
		Joins("JOIN pharmacies ON pharmacies.id = pharmacy_stocks.pharmacy_id").
		Where("pharmacy_stocks.available = ?", true).
		Where("pharmacies.status = ?", pharmacy.StatusApproved)
	if nameQuery != "" {
		like := "%" + nameQuery + "%"
		q = q.Where("medications.name LIKE ? OR medications.generic_name LIKE ?", like, like)
	}

	var rows []SearchRow
	if err := q.Limit(limit).Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "search stocks")
	}
	return rows, nil
}
