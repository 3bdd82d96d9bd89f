package catalog

import "time"

// Medication 是 medications 表的 GORM 模型。
// 标识字段（名称/通用名/药理分类/处方标记）创建后不可变；
// 存在库存引用时不做物理删除。
type Medication struct {
	ID               string    `gorm:"primaryKey;size:36"`
	Name             string    `gorm:"index;size:128;not null"`
	GenericName      string    `gorm:"index;size:128"`
	TherapeuticClass string    `gorm:"size:64"`
	Prescription     bool      `gorm:"not null;default:0"` // 是否处方药
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// PharmacyStock 某药房对某药品的库存/价格记录。
// (pharmacy_id, medication_id) 唯一；quantity >= 0；quantity = 0 时 available 必须为 false。
// Version 用于乐观并发控制：每次数量变更 CAS 命中才生效。
type PharmacyStock struct {
	ID           string `gorm:"primaryKey;size:36"`
	PharmacyID   string `gorm:"uniqueIndex:idx_pharmacy_medication;size:36;not null"`
	MedicationID string `gorm:"uniqueIndex:idx_pharmacy_medication;index;size:36;not null"`

	PriceCents int64 `gorm:"not null;default:0"` // 单价（分）
	Quantity   int   `gorm:"not null;default:0"`
	Available  bool  `gorm:"not null;default:0"`
	Version    int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SearchRow 搜索联查结果的扁平行（stock × medication × pharmacy）。
type SearchRow struct {
	StockID        string
	MedicationID   string
	MedicationName string
	GenericName    string
	Prescription   bool
	PharmacyID     string
	PharmacyName   string
	Latitude       float64
	Longitude      float64
	PriceCents     int64
	Quantity       int
}

// SearchResult 搜索结果，附带距离和配送费估算。
type SearchResult struct {
	SearchRow
	DistanceKm       float64
	DeliveryFeeCents int64
}
