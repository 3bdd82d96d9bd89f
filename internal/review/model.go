package review

import "time"

// ModerationStatus 评价审核状态。只有 approved 计入药房均分。
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Review 评价 GORM 模型。order_id 唯一：一单一评。
type Review struct {
	ID         string `gorm:"primaryKey;size:36"`
	OrderID    string `gorm:"uniqueIndex;size:36;not null"`
	PatientID  string `gorm:"index;size:36;not null"`
	PharmacyID string `gorm:"index;size:36;not null"`

	Rating  int              `gorm:"not null"` // [1,5]
	Comment string           `gorm:"size:512"`
	Status  ModerationStatus `gorm:"type:varchar(16);index;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
