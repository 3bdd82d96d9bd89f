package account

import "time"

// Role 平台角色。鉴权插件在网关侧，这里只做角色/归属判断。
type Role string

const (
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
	RoleCourier    Role = "courier"
	RoleAdmin      Role = "admin"
)

// User 是 users 表的 GORM 模型。
type User struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:64;not null"`
	Email     string    `gorm:"uniqueIndex;size:128;not null"`
	Phone     string    `gorm:"uniqueIndex;size:32;not null"`
	Role      Role      `gorm:"type:varchar(16);index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Actor 一次请求的操作者身份（由上游网关注入）。
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsPatient() bool { return a.Role == RolePatient }
func (a Actor) IsCourier() bool { return a.Role == RoleCourier }
