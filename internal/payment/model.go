package payment

import "time"

// Status 支付单状态。
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Method 支付方式。
type Method string

const (
	MethodCard   Method = "card"
	MethodWallet Method = "wallet"
	MethodCash   Method = "cash_on_delivery"
)

// Payment 支付单 GORM 模型。一次支付尝试一条记录；
// 同一订单允许多条失败记录，但至多一条 success。
type Payment struct {
	ID      string `gorm:"primaryKey;size:36"`
	OrderID string `gorm:"index;size:36;not null"`

	Method         Method `gorm:"type:varchar(24);not null"`
	Status         Status `gorm:"type:varchar(16);index;not null"`
	AmountCents    int64  `gorm:"not null"`
	TransactionRef string `gorm:"size:64"` // 网关回执号

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
