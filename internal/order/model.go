package order

import "time"

// Status 订单状态枚举（持久化为字符串）。
type Status string

const (
	StatusPending    Status = "pending"     // 已创建，待支付
	StatusPaid       Status = "paid"        // 支付成功，待药房确认
	StatusConfirmed  Status = "confirmed"   // 药房已确认，待备药
	StatusPreparing  Status = "preparing"   // 备药中
	StatusReady      Status = "ready"       // 备药完成，待配送
	StatusInDelivery Status = "in_delivery" // 配送中
	StatusDelivered  Status = "delivered"   // 已送达（终态）
	StatusCancelled  Status = "cancelled"   // 已取消（终态，仅备药前可达）
)

// Order 订单 GORM 模型。金额单位：分。
type Order struct {
	ID string `gorm:"primaryKey;size:36"`

	PatientID  string `gorm:"index;size:36;not null"`
	PharmacyID string `gorm:"index;size:36;not null"`
	Status     Status `gorm:"type:varchar(16);index;not null"`

	DeliveryAddress   string  `gorm:"size:255;not null"`
	DeliveryLatitude  float64 `gorm:"not null;default:0"`
	DeliveryLongitude float64 `gorm:"not null;default:0"`

	ItemsTotalCents  int64 `gorm:"not null;default:0"` // Σ 单价快照 × 数量
	DeliveryFeeCents int64 `gorm:"not null;default:0"`

	// Version 乐观并发控制：状态流转按 (id, version) CAS，订单内串行、订单间无锁。
	Version int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PaidAt       *time.Time
	ConfirmedAt  *time.Time
	PreparingAt  *time.Time
	ReadyAt      *time.Time
	InDeliveryAt *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
}

// TotalCents 应付总额 = 商品 + 配送费。
func (o *Order) TotalCents() int64 {
	return o.ItemsTotalCents + o.DeliveryFeeCents
}

// OrderItem 订单行。单价在下单时快照，之后不随库存调价变化，也不再修改。
type OrderItem struct {
	ID           string `gorm:"primaryKey;size:36"`
	OrderID      string `gorm:"index;size:36;not null"`
	MedicationID string `gorm:"index;size:36;not null"`

	UnitPriceCents int64 `gorm:"not null"` // 下单时的单价快照
	Quantity       int   `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
