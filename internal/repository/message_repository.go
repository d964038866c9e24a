package repository

import (
	"context"
	"helpmarket_backend/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.DB.WithContext(ctx).Create(msg).Error
}

// ListByRequest 按时间正序分页
func (r *MessageRepository) ListByRequest(ctx context.Context, requestID string, offset, limit int) ([]model.Message, int64, error) {
	var msgs []model.Message
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.Message{}).Where("request_id = ?", requestID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Sender").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&msgs).Error
	return msgs, total, err
}

// SenderIDs 在该求助下发过消息的用户
func (r *MessageRepository) SenderIDs(ctx context.Context, requestID string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("request_id = ?", requestID).
		Distinct().
		Pluck("sender_id", &ids).Error
	return ids, err
}
