package account

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

func (r *Repo) Create(ctx context.Context, u *User) error {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.ErrDuplicateResource
		}
		return pkgerrors.Wrap(err, "create user")
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*User, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var u User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find user")
	}
	return &u, nil
}

// ExistsByContact 按邮箱或手机号查重。
func (r *Repo) ExistsByContact(ctx context.Context, email, phone string) (bool, error) {
	db := database.FromContext(ctx, r.db)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	err := db.Model(&User{}).
		Where("email = ? OR phone = ?", email, phone).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "count users by contact")
	}
	return count > 0, nil
}

func (r *Repo) List(ctx context.Context, role Role, offset, limit int) ([]User, int64, error) {
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

	q := db.Model(&User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count users")
	}
	var users []User
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list users")
	}
	return users, total, nil
}
