package repository

import (
	"context"
	"helpmarket_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// WithTx 返回绑定到事务 tx 的仓库
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// SetDisabled 启用/停用账号，返回是否命中
func (r *UserRepository) SetDisabled(ctx context.Context, id uint, disabled bool) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("disabled", disabled)
	return res.RowsAffected > 0, res.Error
}

func (r *UserRepository) SetRole(ctx context.Context, id uint, role model.UserRole) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role).Error
}

func (r *UserRepository) UpdateLastSeen(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_seen", at).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

type UserFilter struct {
	Query    string
	Disabled *bool
	Role     model.UserRole
}

func (r *UserRepository) List(ctx context.Context, f UserFilter, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.User{})
	if f.Query != "" {
		searchTerm := "%" + f.Query + "%"
		db = db.Where("(name LIKE ? OR email LIKE ?)", searchTerm, searchTerm)
	}
	if f.Disabled != nil {
		db = db.Where("disabled = ?", *f.Disabled)
	}
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}
