package delivery

import "time"

// Status 配送指派状态。
type Status string

const (
	StatusAssigned  Status = "assigned"   // 已指派骑手
	StatusPickedUp  Status = "picked_up"  // 骑手已取货
	StatusDelivered Status = "delivered"  // 已送达（终态）
)

// Assignment 配送指派 GORM 模型。
// order_id 唯一：一个订单至多一条指派记录。
type Assignment struct {
	ID        string `gorm:"primaryKey;size:36"`
	OrderID   string `gorm:"uniqueIndex;size:36;not null"`
	CourierID string `gorm:"index;size:36;not null"`
	Status    Status `gorm:"type:varchar(16);index;not null"`

	// 骑手最近一次上报的位置
	Latitude  float64 `gorm:"not null;default:0"`
	Longitude float64 `gorm:"not null;default:0"`

	PhotoProofPath string `gorm:"size:255"` // 送达凭证照片相对路径

	Version int64 `gorm:"not null;default:0"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
}
