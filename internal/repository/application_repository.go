package repository

import (
	"context"
	"errors"
	"helpmarket_backend/internal/model"
	"helpmarket_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

type ApplicationRepository struct {
	DB *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{DB: db}
}

func (r *ApplicationRepository) WithTx(tx *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{DB: tx}
}

// Create 插入申请；(request_id, helper_id) 唯一索引冲突时返回 ErrAlreadyApplied
func (r *ApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	err := r.DB.WithContext(ctx).Create(app).Error
	if IsDuplicateKey(err) {
		return util.ErrAlreadyApplied
	}
	return err
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := r.DB.WithContext(ctx).
		Preload("Request").
		Preload("Helper").
		First(&app, "id = ?", id).Error
	return &app, err
}

func (r *ApplicationRepository) FindByRequestAndHelper(ctx context.Context, requestID string, helperID uint) (*model.Application, error) {
	var app model.Application
	err := r.DB.WithContext(ctx).
		Where("request_id = ? AND helper_id = ?", requestID, helperID).
		First(&app).Error
	return &app, err
}

func (r *ApplicationRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Application, error) {
	var apps []model.Application
	err := r.DB.WithContext(ctx).
		Preload("Helper").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepository) ListByRequestAndStatus(ctx context.Context, requestID string, statuses ...model.ApplicationStatus) ([]model.Application, error) {
	var apps []model.Application
	err := r.DB.WithContext(ctx).
		Where("request_id = ? AND status IN ?", requestID, statuses).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepository) ListByHelper(ctx context.Context, helperID uint, status model.ApplicationStatus) ([]model.Application, error) {
	var apps []model.Application
	db := r.DB.WithContext(ctx).
		Preload("Request").
		Where("helper_id = ?", helperID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at DESC").Find(&apps).Error
	return apps, err
}

// FindAccepted 求助已接受的申请，没有时返回 gorm.ErrRecordNotFound
func (r *ApplicationRepository) FindAccepted(ctx context.Context, requestID string) (*model.Application, error) {
	var app model.Application
	err := r.DB.WithContext(ctx).
		Where("request_id = ? AND status = ?", requestID, model.ApplicationAccepted).
		First(&app).Error
	return &app, err
}

// HasActive 帮助者在该求助下是否有 APPLIED/ACCEPTED 的申请
func (r *ApplicationRepository) HasActive(ctx context.Context, requestID string, helperID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Application{}).
		Where("request_id = ? AND helper_id = ? AND status IN ?", requestID, helperID,
			[]model.ApplicationStatus{model.ApplicationApplied, model.ApplicationAccepted}).
		Count(&count).Error
	return count > 0, err
}

func (r *ApplicationRepository) HelperIDs(ctx context.Context, requestID string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Application{}).
		Where("request_id = ?", requestID).
		Pluck("helper_id", &ids).Error
	return ids, err
}

// DeletePending 删除仍为 APPLIED 的申请，状态已变化时返回 ErrApplicationNotPending
func (r *ApplicationRepository) DeletePending(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.ApplicationApplied).
		Delete(&model.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrApplicationNotPending
	}
	return nil
}

// AcceptResult 接受申请事务提交后的结果
type AcceptResult struct {
	Accepted model.Application
	Rejected []model.Application
}

// Accept 原子地接受一条申请：
//  1. 求助 OPEN -> IN_PROGRESS（条件更新，0 行说明已被并发接受或取消）
//  2. 目标申请 APPLIED -> ACCEPTED
//  3. 同一求助的其他申请全部 REJECTED
//
// 任一步失败整个事务回滚。
func (r *ApplicationRepository) Accept(ctx context.Context, applicationID, requestID string) (*AcceptResult, error) {
	result := &AcceptResult{}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.HelpRequest{}).
			Where("id = ? AND status = ?", requestID, model.RequestOpen).
			Update("status", model.RequestInProgress)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrRequestNotOpen
		}

		res = tx.Model(&model.Application{}).
			Where("id = ? AND request_id = ? AND status = ?", applicationID, requestID, model.ApplicationApplied).
			Update("status", model.ApplicationAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrApplicationNotPending
		}

		var others []model.Application
		if err := tx.Where("request_id = ? AND id <> ? AND status <> ?", requestID, applicationID, model.ApplicationRejected).
			Find(&others).Error; err != nil {
			return err
		}
		if err := r.WithTx(tx).rejectPending(ctx, requestID, applicationID); err != nil {
			return err
		}
		for i := range others {
			others[i].Status = model.ApplicationRejected
		}
		result.Rejected = others

		return tx.First(&result.Accepted, "id = ?", applicationID).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// rejectPending 把求助下除 exceptID 外尚未拒绝的申请全部置为 REJECTED
func (r *ApplicationRepository) rejectPending(ctx context.Context, requestID, exceptID string) error {
	db := r.DB.WithContext(ctx).Model(&model.Application{}).
		Where("request_id = ? AND status = ?", requestID, model.ApplicationApplied)
	if exceptID != "" {
		db = db.Where("id <> ?", exceptID)
	}
	return db.Update("status", model.ApplicationRejected).Error
}

// IsDuplicateKey 兼容 MySQL 与 SQLite 的唯一键冲突
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
