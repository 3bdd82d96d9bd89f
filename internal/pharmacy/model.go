package pharmacy

import "time"

// ValidationStatus 药房资质审核状态。
type ValidationStatus string

const (
	StatusPending  ValidationStatus = "pending"
	StatusApproved ValidationStatus = "approved"
	StatusRejected ValidationStatus = "rejected"
)

// Pharmacy 是 pharmacies 表的 GORM 模型。
type Pharmacy struct {
	ID            string           `gorm:"primaryKey;size:36"`
	OwnerID       string           `gorm:"index;size:36;not null"` // 药房负责人（pharmacist 用户）
	Name          string           `gorm:"size:128;not null"`
	Email         string           `gorm:"uniqueIndex;size:128;not null"`
	Phone         string           `gorm:"uniqueIndex;size:32;not null"`
	LicenseNumber string           `gorm:"uniqueIndex;size:64;not null"`
	LicensePath   string           `gorm:"size:255"` // 执照文档相对路径
	Status        ValidationStatus `gorm:"type:varchar(16);index;not null"`
	Address       string           `gorm:"size:255"`
	Latitude      float64          `gorm:"not null;default:0"`
	Longitude     float64          `gorm:"not null;default:0"`
	CreatedAt     time.Time        `gorm:"autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime"`
}

// Employee 药房员工及其操作权限。(pharmacy_id, user_id) 唯一。
type Employee struct {
	ID         string `gorm:"primaryKey;size:36"`
	PharmacyID string `gorm:"uniqueIndex:idx_pharmacy_user;size:36;not null"`
	UserID     string `gorm:"uniqueIndex:idx_pharmacy_user;index;size:36;not null"`

	CanConfirmOrders    bool `gorm:"not null;default:0"`
	CanPrepareOrders    bool `gorm:"not null;default:0"`
	CanAssignDeliveries bool `gorm:"not null;default:0"`
	CanManageStock      bool `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Permissions 权限快照，服务层据此做门禁判断。
type Permissions struct {
	Member              bool // 是否是该药房员工
	CanConfirmOrders    bool
	CanPrepareOrders    bool
	CanAssignDeliveries bool
	CanManageStock      bool
}
