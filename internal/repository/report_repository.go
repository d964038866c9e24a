package repository

import (
	"context"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) WithTx(tx *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: tx}
}

func (r *ReportRepository) Create(ctx context.Context, report *model.Report) error {
	return r.DB.WithContext(ctx).Create(report).Error
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := r.DB.WithContext(ctx).
		Preload("Reporter").
		Preload("TargetUser").
		Preload("TargetRequest").
		First(&report, "id = ?", id).Error
	return &report, err
}

func (r *ReportRepository) List(ctx context.Context, status model.ReportStatus, offset, limit int) ([]model.Report, int64, error) {
	var reports []model.Report
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.Report{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Preload("Reporter").
		Preload("TargetUser").
		Preload("TargetRequest").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error
	return reports, total, err
}

// Close 将 PENDING 举报置为终态；已被处理时返回 ErrReportNotPending
func (r *ReportRepository) Close(ctx context.Context, id string, status model.ReportStatus, action model.ModerationAction, notes string, adminID uint) error {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Report{}).
		Where("id = ? AND status = ?", id, model.ReportPending).
		Updates(map[string]interface{}{
			"status":        status,
			"action":        string(action),
			"admin_notes":   notes,
			"handled_by_id": adminID,
			"handled_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrReportNotPending
	}
	return nil
}
