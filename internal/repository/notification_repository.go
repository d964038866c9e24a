package repository

import (
	"context"
	"helpmarket_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// FindForUser 只返回属于该用户的通知
func (r *NotificationRepository) FindForUser(ctx context.Context, id string, userID uint) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	return &n, err
}

func (r *NotificationRepository) SetRead(ctx context.Context, id string, userID uint, read bool) error {
	return r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", read).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id string, userID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	return res.RowsAffected > 0, res.Error
}
